// Package observability wires OpenTelemetry tracing and metrics for llmx.
//
// Tracing and metrics are exported over OTLP/HTTP when enabled:
//
//	shutdown, err := observability.Setup(ctx, "llmx", version, "production", cfg)
//	defer shutdown(ctx)
//
// Generation calls record spans named SpanGenerate or SpanGenerateStream, and
// Metrics counts requests, cache lookups, fallbacks and token usage:
//
//	metrics, err := observability.NewMetrics(observability.Meter("llmx"))
//	metrics.RecordCacheLookup(ctx, "openai", true)
//
// Health reports are assembled from component checks:
//
//	health := observability.NewServiceHealth("llmx", version)
//	health.AddComponent(observability.Health{Name: "cache", Status: observability.HealthStatusUp})
package observability
