package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	llmxerrors "github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/resilience"
)

func fastRetry() *resilience.RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestAdapter_Do_POST_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.Header.Get("OpenAI-Organization"); got != "org-1" {
			t.Errorf("expected default header, got %q", got)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4" {
			t.Errorf("expected model in body, got %v", body)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(Config{
		BaseURL: srv.URL + "/v1/",
		Auth:    BearerAuth("sk-test"),
		Headers: map[string]string{"OpenAI-Organization": "org-1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), Request{Path: "/chat/completions", Body: map[string]any{"model": "gpt-4"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestAdapter_Do_FullURLIgnoresBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gpt2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: "http://unused.invalid"})
	if _, err := c.Do(context.Background(), Request{Path: srv.URL + "/models/gpt2", Body: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
}

func TestAdapter_Do_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{400, ErrCodeClient, false},
		{404, ErrCodeClient, false},
		{429, ErrCodeRateLimit, true},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Path: "/x"})
			var e *Error
			if !asError(err, &e) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if e.Code != tt.code || e.Retryable != tt.retryable || e.StatusCode != tt.status {
				t.Errorf("got code=%s retryable=%v status=%d", e.Code, e.Retryable, e.StatusCode)
			}
			if !strings.Contains(string(e.Body), "nope") {
				t.Errorf("expected body to be kept, got %s", e.Body)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Error("expected response alongside the error")
			}
		})
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

func TestAdapter_Do_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	resp, err := c.Do(context.Background(), Request{Path: "/"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestAdapter_Do_NoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	if _, err := c.Do(context.Background(), Request{Path: "/"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestAdapter_Do_MapError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := New(Config{
		Name:    "claude",
		BaseURL: srv.URL,
		MapError: func(e *Error) error {
			return llmxerrors.RateLimited("claude", e.RetryAfter)
		},
	})
	_, err := c.Do(context.Background(), Request{Path: "/"})
	appErr, ok := llmxerrors.AsAppError(err)
	if !ok || appErr.Code != llmxerrors.ErrCodeRateLimited {
		t.Fatalf("expected mapped rate limit error, got %v", err)
	}
	if appErr.RetryAfter != 3*time.Second {
		t.Errorf("expected 3s retry-after, got %v", appErr.RetryAfter)
	}
}

func TestAdapter_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Timeout: 10 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Path: "/"})
	if !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
}

func TestAdapter_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Do(context.Background(), Request{Path: "/"})
	var e *Error
	if !asError(err, &e) || e.Code != ErrCodeConnection {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestAdapter_DoStream_SSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: one\n\ndata: two\n\n"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	stream, err := c.DoStream(context.Background(), Request{Path: "/"})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if stream.SSE == nil {
		t.Fatal("expected SSE reader")
	}
	ev, err := stream.SSE.Next()
	if err != nil || ev.Data != "one" {
		t.Fatalf("unexpected first event %v %v", ev, err)
	}
}

func TestAdapter_DoStream_NDJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/stream+json")
		w.Write([]byte("{\"text\":\"a\"}\n"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	stream, err := c.DoStream(context.Background(), Request{Path: "/"})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if stream.Body == nil || stream.SSE != nil {
		t.Fatal("expected raw body")
	}
	data, _ := io.ReadAll(stream.Body)
	if !strings.Contains(string(data), `"a"`) {
		t.Errorf("unexpected body %s", data)
	}
}

func TestAdapter_DoStream_ErrorStatusRetriedThenSurfaced(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	_, err := c.DoStream(context.Background(), Request{Path: "/"})
	var e *Error
	if !asError(err, &e) || e.Code != ErrCodeServer {
		t.Fatalf("expected server error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 open attempts, got %d", calls.Load())
	}
}

func TestAdapter_RateLimiterPacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, RateLimiter: &resilience.RateLimiterConfig{Rate: 40, Burst: 1}})
	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := c.Do(context.Background(), Request{Path: "/"}); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("second request should wait for the limiter")
	}
}

func TestAdapter_Close(t *testing.T) {
	c, _ := New(Config{})
	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.config.Timeout != defaultTimeout || c.httpClient.Timeout != defaultTimeout {
		t.Error("expected default timeout")
	}
	if c.streamClient.Timeout != 0 {
		t.Error("stream client must not bound the whole body")
	}
}
