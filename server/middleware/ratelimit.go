package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/resilience"
)

// RateLimitConfig configures per-caller rate limiting.
type RateLimitConfig struct {
	// RequestsPerMinute is both the sustained rate and the burst. Defaults to 60.
	RequestsPerMinute int
	// KeyFunc identifies the caller. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit gives every caller a token bucket and answers 429 with
// Retry-After once it is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	buckets := &callerBuckets{
		cfg: resilience.RateLimiterConfig{
			Name:  "api",
			Rate:  float64(cfg.RequestsPerMinute) / 60,
			Burst: cfg.RequestsPerMinute,
		},
		byKey: make(map[string]*resilience.RateLimiter),
	}

	return func(c *gin.Context) {
		ok, wait := buckets.get(cfg.KeyFunc(c)).Allow()
		if !ok {
			err := errors.RateLimited("", wait)
			c.Header("Retry-After", retryAfterSeconds(wait))
			c.AbortWithStatusJSON(err.StatusCode(), err.ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey keys on the client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// ClientKey keys on the authenticated caller, falling back to client IP.
func ClientKey(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyClient); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}

type callerBuckets struct {
	mu        sync.Mutex
	cfg       resilience.RateLimiterConfig
	byKey     map[string]*resilience.RateLimiter
	lastSweep time.Time
}

// get returns the caller's bucket. Full buckets carry no state worth
// keeping, so they are swept at most once a minute.
func (b *callerBuckets) get(key string) *resilience.RateLimiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now := time.Now(); now.Sub(b.lastSweep) > time.Minute {
		for k, rl := range b.byKey {
			if rl.Full() {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}
	rl, ok := b.byKey[key]
	if !ok {
		rl = resilience.NewRateLimiter(b.cfg)
		b.byKey[key] = rl
	}
	return rl
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
