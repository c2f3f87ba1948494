package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded around generation calls.
type Metrics struct {
	requests          metric.Int64Counter
	requestDuration   metric.Float64Histogram
	requestsActive    metric.Int64UpDownCounter
	operations        metric.Int64Counter
	operationDuration metric.Float64Histogram
	errors            metric.Int64Counter
	cacheLookups      metric.Int64Counter
	tokens            metric.Int64Counter
	fallbacks         metric.Int64Counter
}

// NewMetrics creates the llmx instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
			if err != nil {
				err = fmt.Errorf("creating %s: %w", name, err)
			}
		}
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		if err == nil {
			*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
			if err != nil {
				err = fmt.Errorf("creating %s: %w", name, err)
			}
		}
	}

	counter(&m.requests, "llmx.requests", "Generation requests by operation and status")
	seconds(&m.requestDuration, "llmx.request.duration", "Generation request duration")
	counter(&m.operations, "llmx.provider.calls", "Provider calls by provider, operation and status")
	seconds(&m.operationDuration, "llmx.provider.duration", "Provider call duration")
	counter(&m.errors, "llmx.errors", "Provider errors by kind")
	counter(&m.cacheLookups, "llmx.cache.lookups", "Cache lookups by result")
	counter(&m.tokens, "llmx.tokens", "Tokens reported by providers")
	counter(&m.fallbacks, "llmx.fallbacks", "Fallback provider attempts")
	if err == nil {
		m.requestsActive, err = meter.Int64UpDownCounter("llmx.requests.active",
			metric.WithDescription("Generation requests in flight"))
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRequestStart marks a generation request in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestsActive.Add(ctx, 1)
}

// RecordRequestEnd records a finished generation request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, service, operation, status string, d time.Duration) {
	m.requestsActive.Add(ctx, -1)
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordOperation records one provider call.
func (m *Metrics) RecordOperation(ctx context.Context, provider, operation, status string, d time.Duration) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
}

// RecordError counts a failed provider call by error kind.
func (m *Metrics) RecordError(ctx context.Context, kind, provider string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("provider", provider),
	))
}

// RecordCacheLookup counts a cache hit or miss for provider.
func (m *Metrics) RecordCacheLookup(ctx context.Context, provider string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("result", result),
	))
}

// RecordTokens adds prompt and completion token counts for provider and model.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, prompt, completion int) {
	for kind, n := range map[string]int{"prompt": prompt, "completion": completion} {
		if n <= 0 {
			continue
		}
		m.tokens.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("model", model),
			attribute.String("kind", kind),
		))
	}
}

// RecordFallback counts an attempt on a fallback provider.
func (m *Metrics) RecordFallback(ctx context.Context, from, to string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
