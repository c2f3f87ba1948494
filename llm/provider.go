package llm

import (
	"context"

	"github.com/kbukum/llmx/provider"
)

// Stream is a finite, non-restartable sequence of chunks. Close releases the
// underlying connection and may be called before the stream is exhausted.
type Stream = provider.Iterator[StreamChunk]

// Provider is the capability set every backend adapter implements.
type Provider interface {
	provider.Provider
	provider.Closeable

	DefaultModel() string
	// SupportedModels lists the known model ids. A provider that accepts
	// arbitrary ids may still return its well-known ones.
	SupportedModels() []string
	// ValidateConfig resolves the credential and fails when a required one
	// is missing.
	ValidateConfig() error

	Generate(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) (*Response, error)
	// AsyncGenerate runs Generate on its own goroutine.
	AsyncGenerate(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) *Future[*Response]
	GenerateStream(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) (Stream, error)
	// AsyncGenerateStream opens the stream and delivers its chunks on a
	// channel. A failed stream delivers one chunk with Err set. The channel
	// is closed when the stream ends or ctx is cancelled.
	AsyncGenerateStream(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) (<-chan StreamChunk, error)
}
