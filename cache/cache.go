// Package cache stores generation responses keyed by a digest of the
// request. Entries live in an in-process map and, when a Redis URL is
// configured, in Redis with a TTL. The cache is best-effort: after start-up
// no store failure ever reaches the caller.
package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/logger"
	"github.com/kbukum/llmx/redis"
	"github.com/kbukum/llmx/util"
)

// Config configures the response cache.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RedisURL enables the shared store when set.
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// DefaultConfig returns an enabled, memory-only cache with a one hour TTL.
func DefaultConfig() Config {
	return Config{Enabled: true, TTL: time.Hour, KeyPrefix: DefaultKeyPrefix}
}

// ApplyDefaults fills in the TTL and key prefix.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// Store is an external response store.
type Store interface {
	// Load returns (nil, nil) on a miss.
	Load(ctx context.Context, key string) (*llm.Response, error)
	Save(ctx context.Context, key string, val *llm.Response, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore uses store as the external layer instead of dialing RedisURL.
func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

// WithLogger sets the logger used for swallowed store failures.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager is safe for concurrent use. A Set is visible to every Get that
// starts after it returns.
type Manager struct {
	cfg    Config
	log    *logger.Logger
	store  Store
	client *redis.Client

	mu     sync.RWMutex
	memory map[string]*llm.Response
}

// New creates a cache manager. When cfg.RedisURL is set and caching is
// enabled, New connects and pings Redis; failure is a cache error.
func New(ctx context.Context, cfg Config, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	m := &Manager{
		cfg:    cfg,
		memory: make(map[string]*llm.Response),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.WithComponent("cache")
	}

	if cfg.Enabled && cfg.RedisURL != "" && m.store == nil {
		client, err := redis.Connect(ctx, redis.Config{URL: cfg.RedisURL}, m.log)
		if err != nil {
			return nil, errors.Cache(fmt.Sprintf("Failed to connect to Redis at %s: %v", util.RedactURL(cfg.RedisURL), err), err)
		}
		m.client = client
		m.store = redis.NewJSONStore[llm.Response](client, "")
	}
	return m, nil
}

// Enabled reports whether caching is on.
func (m *Manager) Enabled() bool { return m.cfg.Enabled }

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Key derives the cache key for a request under this manager's prefix.
func (m *Manager) Key(messages []llm.Message, cfg llm.GenerationConfig, provider string) string {
	return DeriveKey(m.cfg.KeyPrefix, messages, cfg, provider)
}

// Get returns a copy of the cached response. The external store is
// consulted first; its failures count as misses. An entry that no longer
// decodes is evicted.
func (m *Manager) Get(ctx context.Context, key string) (*llm.Response, bool) {
	if !m.cfg.Enabled {
		return nil, false
	}

	if m.store != nil {
		resp, err := m.store.Load(ctx, key)
		switch {
		case err == nil && resp != nil:
			return resp, true
		case stderrors.Is(err, redis.ErrCorrupt):
			m.log.Warn("evicting corrupt cache entry", logger.Fields(logger.FieldCacheKey, key))
			if derr := m.store.Delete(ctx, key); derr != nil {
				m.log.Debug("cache evict failed", logger.ErrorFields("cache.evict", derr))
			}
		case err != nil:
			m.log.Debug("cache store read failed", logger.ErrorFields("cache.get", err))
		}
	}

	m.mu.RLock()
	resp, ok := m.memory[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

// Set stores resp under key in both layers. The stored copy has Cached
// cleared.
func (m *Manager) Set(ctx context.Context, key string, resp *llm.Response) {
	if !m.cfg.Enabled || resp == nil {
		return
	}
	stored := resp.Clone()
	stored.Cached = false

	if m.store != nil {
		if err := m.store.Save(ctx, key, stored, m.cfg.TTL); err != nil {
			m.log.Debug("cache store write failed", logger.ErrorFields("cache.set", err))
		}
	}

	m.mu.Lock()
	m.memory[key] = stored
	m.mu.Unlock()
}

// Clear removes every entry under this manager's prefix from both layers.
func (m *Manager) Clear(ctx context.Context) {
	if !m.cfg.Enabled {
		return
	}
	if m.store != nil {
		if _, err := m.store.DeletePrefix(ctx, m.cfg.KeyPrefix); err != nil {
			m.log.Debug("cache store clear failed", logger.ErrorFields("cache.clear", err))
		}
	}

	m.mu.Lock()
	clear(m.memory)
	m.mu.Unlock()
}

// Len returns the number of in-process entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.memory)
}

// Ping checks the external store. It returns nil when there is none.
func (m *Manager) Ping(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Ping(ctx)
}

// Close releases the Redis connection, if any.
func (m *Manager) Close() error {
	return m.client.Close()
}
