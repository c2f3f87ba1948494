package generator

import (
	"context"

	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/provider"
)

// call is one provider invocation.
type call struct {
	messages []llm.Message
	cfg      llm.GenerationConfig
	extra    map[string]any
}

// blocking wraps p.Generate with the generator's logging, tracing and
// metrics middleware.
func (g *Generator) blocking(p llm.Provider) provider.RequestResponse[call, *llm.Response] {
	inner := provider.Func(p.Name(), func(ctx context.Context, c call) (*llm.Response, error) {
		return p.Generate(ctx, c.messages, c.cfg, c.extra)
	})
	return provider.Chain(
		provider.WithLogging[call, *llm.Response](g.log),
		provider.WithTracing[call, *llm.Response](g.cfg.ServiceName),
		provider.WithMetrics[call, *llm.Response](g.metrics, "generate"),
	)(inner)
}

// streaming wraps opening p's stream with the same middleware. Only the
// open is observed; chunks flow to the caller untouched.
func (g *Generator) streaming(p llm.Provider) provider.RequestResponse[call, llm.Stream] {
	inner := provider.Func(p.Name(), func(ctx context.Context, c call) (llm.Stream, error) {
		return p.GenerateStream(ctx, c.messages, c.cfg, c.extra)
	})
	return provider.Chain(
		provider.WithLogging[call, llm.Stream](g.log),
		provider.WithTracing[call, llm.Stream](g.cfg.ServiceName),
		provider.WithMetrics[call, llm.Stream](g.metrics, "generate_stream"),
	)(inner)
}

// ownedStream closes a fallback provider together with its stream.
type ownedStream struct {
	llm.Stream
	owner llm.Provider
}

func (s *ownedStream) Close() error {
	err := s.Stream.Close()
	if cerr := s.owner.Close(context.Background()); err == nil {
		err = cerr
	}
	return err
}
