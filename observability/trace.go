package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kbukum/llmx"

// Span names.
const (
	SpanGenerate       = "llmx.generate"
	SpanGenerateStream = "llmx.generate_stream"
)

// Attribute keys.
const (
	AttrServiceName   = "service.name"
	AttrOperationName = "operation.name"
	AttrRequestID     = "request.id"
	AttrProvider      = "llm.provider"
	AttrModel         = "llm.model"
	AttrCached        = "llm.cached"
	AttrFallback      = "llm.fallback"
	AttrDurationMs    = "duration_ms"
	AttrStatus        = "status"
)

// StartSpan starts a span on the llmx tracer of the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// SetSpanAttribute sets key on the span in ctx. Values other than strings,
// ints, floats, bools and string slices are ignored.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	}
}

// SetSpanError records err on the span in ctx and marks it failed.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Operation is one traced generation call. It owns a span and, when
// metrics are configured, an active-request slot.
type Operation struct {
	Service   string
	Name      string
	RequestID string
	Provider  string

	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartOperation opens the span spanName for op. metrics may be nil.
func StartOperation(ctx context.Context, spanName string, op Operation, metrics *Metrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, spanName, trace.WithAttributes(
		attribute.String(AttrServiceName, op.Service),
		attribute.String(AttrOperationName, op.Name),
		attribute.String(AttrRequestID, op.RequestID),
		attribute.String(AttrProvider, op.Provider),
	))
	op.start = time.Now()
	op.span = span
	op.metrics = metrics
	if metrics != nil {
		metrics.RecordRequestStart(ctx)
	}
	return ctx, &op
}

// End closes the span and records the outcome: "ok" when err is nil,
// "error" otherwise.
func (o *Operation) End(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	elapsed := time.Since(o.start)
	o.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, elapsed.Milliseconds()),
	)
	o.span.End()
	if o.metrics != nil {
		o.metrics.RecordRequestEnd(ctx, o.Service, o.Name, status, elapsed)
	}
}
