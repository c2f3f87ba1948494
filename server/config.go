package server

import (
	"fmt"
	"net/http"

	"github.com/kbukum/llmx/server/middleware"
	"github.com/kbukum/llmx/validation"
)

// Config is the "server" section. Timeouts are whole seconds; WriteTimeout
// also bounds a streamed response end to end.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	MaxBodySize  string `yaml:"max_body_size" mapstructure:"max_body_size" validate:"bytesize"`

	CORS middleware.CORSConfig `yaml:"cors" mapstructure:"cors" validate:"-"`

	// MaxConcurrent generations run at once; a request that cannot get a
	// slot within QueueTimeout seconds is answered with 429.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	QueueTimeout  int `yaml:"queue_timeout" mapstructure:"queue_timeout" validate:"gte=0"`

	// RateLimitPerMinute is per caller. Zero turns it off.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute" validate:"gte=0"`

	// APIKeys are the bearer tokens /v1 accepts. Empty means open.
	APIKeys []string `yaml:"api_keys" mapstructure:"api_keys"`
}

func (c *Config) ApplyDefaults() {
	for _, d := range []struct {
		field *int
		def   int
	}{
		{&c.Port, 8080},
		{&c.ReadTimeout, 15},
		{&c.WriteTimeout, 300},
		{&c.IdleTimeout, 60},
		{&c.MaxConcurrent, 32},
		{&c.QueueTimeout, 5},
		{&c.CORS.MaxAge, 600},
	} {
		if *d.field == 0 {
			*d.field = d.def
		}
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
	cors := &c.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
}

func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
