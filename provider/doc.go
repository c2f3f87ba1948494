// Package provider holds the generic plumbing shared by every LLM backend:
// a name registry with aliases, a lazily populated instance cache, ordered
// fallback and middleware for cross-cutting concerns.
//
// # Registry
//
// Names are case-insensitive. An alias resolves to the same factory as its
// canonical name, and an unknown name fails with a configuration error that
// lists every valid name:
//
//	reg := provider.NewRegistry[llm.Provider, llm.ProviderConfig]()
//	reg.RegisterFactory("openai", openai.New)
//	_ = reg.RegisterAlias("azure", "openai")
//	p, err := reg.Create("Azure", cfg)
//
// # Middleware
//
// Middleware[I, O] wraps a RequestResponse provider. Use Chain to compose:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics, "generate"),
//	    provider.WithTracing[In, Out]("llmx"),
//	)(rawProvider)
//
// # Fallback
//
// Fallback walks an ordered list of names and returns the first success or
// the last error.
package provider
