package provider

import "context"

// Provider is anything addressable by a canonical name in a Registry.
type Provider interface {
	Name() string
}

// Factory builds a provider from its configuration.
type Factory[T Provider, C any] func(cfg C) (T, error)

// Closeable providers hold connections that Instances.CloseAll releases.
type Closeable interface {
	Close(ctx context.Context) error
}

// RequestResponse is a provider call with one input and one output. A
// streaming call is a RequestResponse whose output is an Iterator.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Func adapts fn to RequestResponse under name.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return funcRR[I, O]{name: name, fn: fn}
}

type funcRR[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f funcRR[I, O]) Name() string { return f.name }

func (f funcRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}

// Middleware decorates a call.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain applies middlewares so the first is outermost:
// Chain(a, b, c)(p) == a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}
