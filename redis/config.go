package redis

import (
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config describes one Redis connection. When URL is set it wins over Addr,
// Password and DB.
type Config struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// Durations use time.ParseDuration syntax, e.g. "3s".
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

func (c *Config) ApplyDefaults() {
	setInt := func(p *int, v int) {
		if *p <= 0 {
			*p = v
		}
	}
	setDur := func(p *string, v string) {
		if *p == "" {
			*p = v
		}
	}
	setInt(&c.PoolSize, 10)
	setInt(&c.MinIdleConns, 2)
	setInt(&c.MaxRetries, 3)
	setDur(&c.DialTimeout, "5s")
	setDur(&c.ReadTimeout, "3s")
	setDur(&c.WriteTimeout, "3s")
}

func (c *Config) Validate() error {
	if c.URL == "" && c.Addr == "" {
		return errors.New("redis url or addr is required")
	}
	if c.PoolSize <= 0 {
		return errors.New("redis pool_size must be > 0")
	}
	_, err := c.durations()
	return err
}

// durations parses the timeout fields in dial, read, write, idle order.
func (c *Config) durations() ([4]time.Duration, error) {
	var out [4]time.Duration
	for i, f := range []struct{ name, val string }{
		{"dial_timeout", c.DialTimeout},
		{"read_timeout", c.ReadTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_timeout", c.IdleTimeout},
	} {
		if f.val == "" {
			continue
		}
		d, err := time.ParseDuration(f.val)
		if err != nil {
			return out, fmt.Errorf("redis %s %q: %w", f.name, f.val, err)
		}
		out[i] = d
	}
	return out, nil
}

func (c *Config) options() (*goredis.Options, error) {
	opts := &goredis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
	if c.URL != "" {
		parsed, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
	}
	d, err := c.durations()
	if err != nil {
		return nil, err
	}
	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = c.MinIdleConns
	opts.MaxRetries = c.MaxRetries
	opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout, opts.ConnMaxIdleTime = d[0], d[1], d[2], d[3]
	return opts, nil
}
