package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/provider"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := llm.DefaultProviderConfig()
	cfg.APIKey = "ak-test"
	cfg.APIBase = srv.URL
	cfg.MaxRetries = 0
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestBuildRequest(t *testing.T) {
	body, err := Dialect{}.BuildRequest(llm.CompletionRequest{
		Model: DefaultModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Be terse."},
			{Role: llm.RoleUser, Content: "Hi"},
		},
		TopP: llm.Float(0.9),
	})
	if err != nil {
		t.Fatal(err)
	}
	payload := body.(map[string]any)
	if payload["system"] != "Be terse." {
		t.Errorf("system = %v", payload["system"])
	}
	if payload["max_tokens"] != DefaultMaxTokens {
		t.Errorf("max_tokens = %v", payload["max_tokens"])
	}
	if msgs := payload["messages"].([]map[string]string); len(msgs) != 1 || msgs[0]["role"] != "user" {
		t.Errorf("messages = %v", msgs)
	}
	if _, ok := payload["temperature"]; ok {
		t.Error("temperature must be omitted when unset")
	}
	if _, ok := payload["stream"]; ok {
		t.Error("stream must be omitted for blocking calls")
	}
}

func TestGenerate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak-test" || r.Header.Get("anthropic-version") != APIVersion {
			t.Errorf("headers = %v", r.Header)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["max_tokens"] != float64(50) {
			t.Errorf("max_tokens = %v", payload["max_tokens"])
		}
		_, _ = io.WriteString(w, `{
			"content":[{"type":"text","text":"Hello"},{"type":"tool_use","id":"x"},{"type":"text","text":" world"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":10,"output_tokens":4}
		}`)
	})

	resp, err := p.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
		llm.GenerationConfig{MaxTokens: llm.Int(50)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "Hello world" || resp.Choices[0].FinishReason != "end_turn" {
		t.Errorf("choice = %+v", resp.Choices[0])
	}
	if resp.Usage.TotalTokens != 14 || resp.Usage.PromptTokens != 10 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != DefaultModel {
		t.Errorf("model = %s", resp.Model)
	}
}

func TestGenerate_Unauthorized(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	})
	_, err := p.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "Hi"}}, llm.GenerationConfig{}, nil)
	if !errors.IsKind(err, errors.ErrCodeAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestGenerateStream(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []struct{ name, data string }{
			{"message_start", `{"type":"message_start","message":{"id":"m1"}}`},
			{"content_block_start", `{"type":"content_block_start","index":0}`},
			{"ping", `{"type":"ping"}`},
			{"content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hi "}}`},
			{"content_block_delta", `{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{"}}`},
			{"content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"there"}}`},
			{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`},
			{"message_stop", `{"type":"message_stop"}`},
		}
		for _, e := range events {
			_, _ = io.WriteString(w, "event: "+e.name+"\ndata: "+e.data+"\n\n")
		}
	})

	s, err := p.GenerateStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "Hi"}}, llm.GenerationConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := provider.Collect(context.Background(), s)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if chunks[0].Content+chunks[1].Content != "Hi there" {
		t.Errorf("content = %q%q", chunks[0].Content, chunks[1].Content)
	}
	if !chunks[2].Done || chunks[2].FinishReason != "stop" {
		t.Errorf("terminal chunk = %+v", chunks[2])
	}
}

func TestGenerateStream_ErrorEvent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	})

	s, err := p.GenerateStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "Hi"}}, llm.GenerationConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = provider.Collect(context.Background(), s)
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Kind() != errors.ErrCodeStreaming || appErr.Message != "Overloaded" {
		t.Fatalf("unexpected error %v", err)
	}
}
