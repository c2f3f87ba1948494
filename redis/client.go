package redis

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/llmx/logger"
)

const scanBatch = 256

// Client is a go-redis connection that logs through llmx's logger and can be
// closed more than once.
type Client struct {
	rdb *goredis.Client
	log *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// New builds a client from cfg without dialing.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("redis")
	log.Debug("redis client ready", map[string]interface{}{
		"addr": opts.Addr,
		"db":   opts.DB,
		"pool": opts.PoolSize,
	})
	return &Client{rdb: goredis.NewClient(opts), log: log}, nil
}

// Connect is New followed by a PING.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	c, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get returns an error satisfying IsNil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeletePrefix walks the keyspace with SCAN and deletes every key beginning
// with prefix, returning the number removed.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	iter := c.rdb.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Del(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("redis del: %w", err)
	}
	return deleted, nil
}

// Close is safe on a nil or already closed client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.log.Debug("closing redis connection")
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}

// IsNil reports whether err means the key does not exist.
func IsNil(err error) bool {
	return stderrors.Is(err, goredis.Nil)
}
