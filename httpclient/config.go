package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/llmx/resilience"
)

const defaultTimeout = 30 * time.Second

// Config is the transport of a single provider adapter. Only BaseURL and
// Timeout come from configuration files; the rest is filled in by code.
type Config struct {
	Name    string        `mapstructure:"name"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers are sent with every request; per-request headers win.
	Headers map[string]string `mapstructure:"headers"`

	Auth        *AuthConfig                   `mapstructure:"-"`
	Retry       *resilience.RetryConfig       `mapstructure:"-"`
	RateLimiter *resilience.RateLimiterConfig `mapstructure:"-"`

	// MapError converts transport failures into the caller's error type
	// before retry decisions are made.
	MapError func(*Error) error `mapstructure:"-"`
}

// ApplyDefaults sets Timeout to 30s when unset. On streams the timeout only
// bounds the wait for response headers.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient %s: timeout must be positive", c.Name)
	}
	return nil
}

// DefaultRetryConfig is resilience.DefaultRetryConfig with IsRetryable as
// the predicate.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}
