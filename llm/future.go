package llm

import (
	"context"
	stderrors "errors"
)

// ErrNotCompleted is returned by Future.Result before the work finishes.
var ErrNotCompleted = stderrors.New("llm: future not completed")

// Future is the result of work running on its own goroutine.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	result T
	err    error
}

// Go runs fn on a new goroutine and returns its Future. fn receives a
// context derived from ctx that Cancel also cancels.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		defer close(f.done)
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Await waits for the work to finish or ctx to end.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
		return f.result, f.err
	}
}

// Ready is closed when the work has finished.
func (f *Future[T]) Ready() <-chan struct{} { return f.done }

// Done reports whether the work has finished.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome, or ErrNotCompleted if the work is still running.
func (f *Future[T]) Result() (T, error) {
	if !f.Done() {
		var zero T
		return zero, ErrNotCompleted
	}
	return f.result, f.err
}

// Cancel cancels the context passed to the work.
func (f *Future[T]) Cancel() { f.cancel() }
