// Package providers holds the process-wide registry of built-in LLM
// providers and their aliases.
//
// Names resolve case-insensitively. The built-in table, in listing order:
//
//	openai
//	azure        -> openai
//	claude
//	anthropic    -> claude
//	grok
//	xai          -> grok
//	cohere
//	huggingface
//	hf           -> huggingface
package providers

import (
	"sync"

	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/llm/anthropic"
	"github.com/kbukum/llmx/llm/cohere"
	"github.com/kbukum/llmx/llm/grok"
	"github.com/kbukum/llmx/llm/huggingface"
	"github.com/kbukum/llmx/llm/openai"
	"github.com/kbukum/llmx/provider"
)

// Registry is a provider registry keyed by name with llm.ProviderConfig
// as the construction input.
type Registry = provider.Registry[llm.Provider, llm.ProviderConfig]

// Factory constructs a provider from its configuration.
type Factory = provider.Factory[llm.Provider, llm.ProviderConfig]

type builtin struct {
	name    string
	factory Factory
	aliases []string
}

var builtins = []builtin{
	{openai.ProviderName, openai.New, []string{"azure"}},
	{anthropic.ProviderName, anthropic.New, []string{"anthropic"}},
	{grok.ProviderName, grok.New, []string{"xai"}},
	{cohere.ProviderName, cohere.New, nil},
	{huggingface.ProviderName, huggingface.New, []string{"hf"}},
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// NewRegistry returns a registry populated with the built-in providers.
func NewRegistry() *Registry {
	r := provider.NewRegistry[llm.Provider, llm.ProviderConfig]()
	for _, b := range builtins {
		r.RegisterFactory(b.name, b.factory)
		for _, alias := range b.aliases {
			// Targets were registered just above.
			_ = r.RegisterAlias(alias, b.name)
		}
	}
	return r
}

// Default returns the shared registry, building it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Resolve maps a name or alias to its canonical provider name.
func Resolve(name string) (string, error) {
	return Default().Resolve(name)
}

// Names lists canonical names and aliases in registration order.
func Names() []string {
	return Default().Names()
}
