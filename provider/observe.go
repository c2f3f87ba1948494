package provider

import (
	"context"
	"time"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/logger"
	"github.com/kbukum/llmx/observability"
)

// observed wraps a call with a hook that sees its outcome and duration.
type observed[I, O any] struct {
	inner  RequestResponse[I, O]
	around func(ctx context.Context, name string, call func(context.Context) error)
}

func (o *observed[I, O]) Name() string { return o.inner.Name() }

func (o *observed[I, O]) Execute(ctx context.Context, input I) (O, error) {
	var out O
	var err error
	o.around(ctx, o.inner.Name(), func(ctx context.Context) error {
		out, err = o.inner.Execute(ctx, input)
		return err
	})
	return out, err
}

func observe[I, O any](around func(ctx context.Context, name string, call func(context.Context) error)) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &observed[I, O]{inner: inner, around: around}
	}
}

// WithLogging logs every call: failures at warn, successes at debug.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return observe[I, O](func(ctx context.Context, name string, call func(context.Context) error) {
		start := time.Now()
		err := call(ctx)
		fields := logger.Fields(
			logger.FieldProvider, name,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		)
		if err != nil {
			fields[logger.FieldError] = err.Error()
			log.WithContext(ctx).Warn("provider call failed", fields)
			return
		}
		log.WithContext(ctx).Debug("provider call ok", fields)
	})
}

// WithTracing opens a "{service}.{provider}" span around every call.
func WithTracing[I, O any](serviceName string) Middleware[I, O] {
	return observe[I, O](func(ctx context.Context, name string, call func(context.Context) error) {
		ctx, span := observability.StartSpan(ctx, serviceName+"."+name)
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrServiceName, serviceName)
		observability.SetSpanAttribute(ctx, observability.AttrProvider, name)
		if err := call(ctx); err != nil {
			observability.SetSpanError(ctx, err)
		}
	})
}

// WithMetrics counts calls by outcome and errors by kind. A nil metrics
// leaves the call undecorated.
func WithMetrics[I, O any](metrics *observability.Metrics, operation string) Middleware[I, O] {
	if metrics == nil {
		return func(inner RequestResponse[I, O]) RequestResponse[I, O] { return inner }
	}
	return observe[I, O](func(ctx context.Context, name string, call func(context.Context) error) {
		start := time.Now()
		status := "ok"
		if err := call(ctx); err != nil {
			status = "error"
			kind := errors.ErrCodeInternal
			if appErr, ok := errors.AsAppError(err); ok {
				kind = appErr.Kind()
			}
			metrics.RecordError(ctx, string(kind), name)
		}
		metrics.RecordOperation(ctx, name, operation, status, time.Since(start))
	})
}
