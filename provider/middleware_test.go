package provider_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/llmx/logger"
	"github.com/kbukum/llmx/observability"
	"github.com/kbukum/llmx/provider"
)

type echoProvider struct {
	name string
}

func (p *echoProvider) Name() string { return p.name }

func (p *echoProvider) Execute(_ context.Context, input string) (string, error) {
	return "echo:" + input, nil
}

type failingProvider struct{}

func (p *failingProvider) Name() string { return "fail" }

func (p *failingProvider) Execute(_ context.Context, _ string) (string, error) {
	return "", errors.New("intentional failure")
}

// --- Chain tests ---

func TestChain_Empty(t *testing.T) {
	p := &echoProvider{name: "test"}
	wrapped := provider.Chain[string, string]()(p)
	if wrapped.Name() != "test" {
		t.Fatalf("expected 'test', got %q", wrapped.Name())
	}
	result, err := wrapped.Execute(context.Background(), "hello")
	if err != nil || result != "echo:hello" {
		t.Fatalf("expected echo:hello, got %q, err %v", result, err)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(tag string) provider.Middleware[string, string] {
		return func(inner provider.RequestResponse[string, string]) provider.RequestResponse[string, string] {
			return provider.Func(inner.Name(), func(ctx context.Context, in string) (string, error) {
				order = append(order, tag+":before")
				out, err := inner.Execute(ctx, in)
				order = append(order, tag+":after")
				return out, err
			})
		}
	}

	wrapped := provider.Chain(mw("A"), mw("B"), mw("C"))(&echoProvider{name: "test"})
	if _, err := wrapped.Execute(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}

	want := []string{"A:before", "B:before", "C:before", "C:after", "B:after", "A:after"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

// --- WithLogging tests ---

func TestWithLogging_Success(t *testing.T) {
	wrapped := provider.WithLogging[string, string](logger.Nop())(&echoProvider{name: "log-test"})

	result, err := wrapped.Execute(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "echo:hello" {
		t.Fatalf("expected echo:hello, got %q", result)
	}
	if wrapped.Name() != "log-test" {
		t.Fatalf("expected name 'log-test', got %q", wrapped.Name())
	}
}

func TestWithLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	wrapped := provider.WithLogging[string, string](log)(&failingProvider{})
	if _, err := wrapped.Execute(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"provider":"fail"`, `"error":"intentional failure"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %s missing %s", out, want)
		}
	}
}

// --- WithTracing tests ---

func TestWithTracing_Success(t *testing.T) {
	wrapped := provider.WithTracing[string, string]("llmx")(&echoProvider{name: "trace-test"})

	result, err := wrapped.Execute(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "echo:hello" {
		t.Fatalf("expected echo:hello, got %q", result)
	}
}

func TestWithTracing_Error(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	wrapped := provider.WithTracing[string, string]("llmx")(&failingProvider{})
	if _, err := wrapped.Execute(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "llmx.fail" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want error", spans[0].Status.Code)
	}
}

// --- WithMetrics tests ---

func TestWithMetrics_SuccessAndError(t *testing.T) {
	metrics, err := observability.NewMetrics(observability.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	ok := provider.WithMetrics[string, string](metrics, "generate")(&echoProvider{name: "metrics-test"})
	if result, err := ok.Execute(context.Background(), "hello"); err != nil || result != "echo:hello" {
		t.Fatalf("expected echo:hello, got %q, err %v", result, err)
	}

	failing := provider.WithMetrics[string, string](metrics, "generate")(&failingProvider{})
	if _, err := failing.Execute(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWithMetrics_NilIsPassThrough(t *testing.T) {
	p := &echoProvider{name: "plain"}
	wrapped := provider.WithMetrics[string, string](nil, "generate")(p)
	if wrapped != provider.RequestResponse[string, string](p) {
		t.Fatal("expected nil metrics to return the inner provider unchanged")
	}
}

func TestChain_AllMiddlewares(t *testing.T) {
	metrics, err := observability.NewMetrics(observability.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	wrapped := provider.Chain(
		provider.WithLogging[string, string](logger.Nop()),
		provider.WithMetrics[string, string](metrics, "generate"),
		provider.WithTracing[string, string]("llmx"),
	)(&echoProvider{name: "full-stack"})

	result, err := wrapped.Execute(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "echo:hello" {
		t.Fatalf("expected echo:hello, got %q", result)
	}
}
