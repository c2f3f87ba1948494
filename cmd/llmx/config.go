package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/llmx/cache"
	"github.com/kbukum/llmx/config"
	"github.com/kbukum/llmx/generator"
	"github.com/kbukum/llmx/observability"
	"github.com/kbukum/llmx/server"
)

// AppConfig is the llmx configuration file layout:
//
//	name: llmx
//	provider: openai
//	fallbacks: [claude]
//	timeout: 30s
//	cache:
//	  redis_url: redis://localhost:6379/0
//	server:
//	  port: 8080
//	observability:
//	  enabled: false
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	generator.Config     `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills in zero-valued fields of every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Config.ServiceName == "" {
		c.Config.ServiceName = c.Name
	}
	c.Config.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the service and server sections. The generator section
// is validated when the generator is built.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"provider":  "provider",
	"model":     "model",
	"fallback":  "fallbacks",
	"api-key":   "api_key",
	"api-base":  "api_base",
	"timeout":   "timeout",
	"redis-url": "cache.redis_url",
	"log-level": "logging.level",
	"host":      "server.host",
	"port":      "server.port",
}

// loadConfig reads the config file, .env, LLMX_* variables and flags.
func loadConfig(cmd *cobra.Command) (AppConfig, error) {
	cacheDefaults := cache.DefaultConfig()
	opts := []config.LoaderOption{
		config.WithDefault("max_retries", 3),
		config.WithDefault("cache.enabled", cacheDefaults.Enabled),
		config.WithDefault("cache.ttl", cacheDefaults.TTL),
		config.WithDefault("cache.key_prefix", cacheDefaults.KeyPrefix),
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		opts = append(opts, config.WithEnvFile(path))
	}
	for name, key := range flagKeys {
		opts = append(opts, config.WithFlag(key, cmd.Flags().Lookup(name)))
	}

	var cfg AppConfig
	if err := config.LoadConfig("llmx", &cfg, opts...); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
