// Package grok provides the xAI Grok provider, which speaks the OpenAI chat
// completions protocol.
package grok

import (
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/llm/openai"
)

const (
	// ProviderName is the registered name for the Grok provider.
	ProviderName = "grok"

	DefaultBaseURL = "https://api.x.ai/v1"
	CredentialEnv  = "XAI_API_KEY"
	DefaultModel   = "grok-beta"
)

// SupportedModels lists the models accepted by the Grok provider.
var SupportedModels = []string{"grok-beta", "grok-2", "grok-2-mini"}

// NewDialect returns the Grok dialect.
func NewDialect() llm.Dialect {
	return openai.Compatible(ProviderName, llm.DialectInfo{
		DefaultBaseURL:     DefaultBaseURL,
		CredentialEnv:      CredentialEnv,
		CredentialRequired: true,
		DefaultModel:       DefaultModel,
		SupportedModels:    SupportedModels,
	})
}

// New creates a Grok provider.
func New(cfg llm.ProviderConfig) (llm.Provider, error) {
	return llm.New(NewDialect(), cfg)
}
