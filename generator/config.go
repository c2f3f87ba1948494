package generator

import (
	"github.com/kbukum/llmx/cache"
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/validation"
)

// DefaultServiceName names spans and metrics emitted by a Generator.
const DefaultServiceName = "llmx"

// Config configures a Generator. The provider connection settings are
// flattened into the same level, so a config file reads:
//
//	provider: openai
//	model: gpt-4o
//	api_key: sk-...
//	timeout: 30s
//	fallbacks: [claude, cohere]
//	cache:
//	  enabled: true
//	  redis_url: redis://localhost:6379/0
type Config struct {
	// Provider is the primary provider name or alias.
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required"`
	// Model overrides the primary provider's default model for every call
	// that does not name one. Fallbacks never see it: they use the call's
	// model or their own default.
	Model string `yaml:"model" mapstructure:"model"`
	// Fallbacks are tried in order when the primary call fails.
	Fallbacks []string `yaml:"fallbacks" mapstructure:"fallbacks"`

	llm.ProviderConfig `yaml:",inline" mapstructure:",squash"`

	// Providers overrides connection settings per fallback provider, keyed
	// by name or alias. A fallback without an entry does not reuse the
	// primary's settings verbatim: it inherits timeout, retry, header and
	// pacing settings, while api_key, api_base and organization are cleared
	// so the fallback resolves its own endpoint and credential. The
	// primary's key is never sent to another vendor.
	Providers map[string]llm.ProviderConfig `yaml:"providers" mapstructure:"providers"`

	Cache       cache.Config `yaml:"cache" mapstructure:"cache"`
	ServiceName string       `yaml:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config for provider with default connection
// settings and an enabled in-memory cache.
func DefaultConfig(provider string) Config {
	return Config{
		Provider:       provider,
		ProviderConfig: llm.DefaultProviderConfig(),
		Cache:          cache.DefaultConfig(),
		ServiceName:    DefaultServiceName,
	}
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.ProviderConfig.ApplyDefaults()
	c.Cache.ApplyDefaults()
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	for name, pc := range c.Providers {
		pc.ApplyDefaults()
		c.Providers[name] = pc
	}
}

// providerConfig returns the connection settings for canonical, which the
// registry resolved from one of the configured names.
func (c Config) providerConfig(canonical string, resolve func(string) (string, error)) llm.ProviderConfig {
	for name, pc := range c.Providers {
		if target, err := resolve(name); err == nil && target == canonical {
			return pc
		}
	}
	pc := c.ProviderConfig
	pc.APIKey = ""
	pc.APIBase = ""
	pc.Organization = ""
	return pc
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.Validate(c)
}
