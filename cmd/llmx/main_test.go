package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// isolate keeps config files, .env and LLMX_* variables of the host out of
// the command under test.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
}

type fakeOpenAI struct {
	srv      *httptest.Server
	calls    atomic.Int32
	messages atomic.Value
}

// newFakeOpenAI answers every chat request with reply, except that call
// number failCall (1-based) gets a 401.
func newFakeOpenAI(t *testing.T, reply string, failCall int32) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		var payload struct {
			Messages []map[string]any `json:"messages"`
			Stream   bool             `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.messages.Store(payload.Messages)
		if n == failCall {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
			return
		}
		if payload.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"`+reply+`"}}]}`+"\n\n")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return
		}
		_, _ = io.WriteString(w, `{"model":"gpt-test","choices":[{"message":{"content":"`+reply+`"},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOpenAI) lastMessages() []map[string]any {
	m, _ := f.messages.Load().([]map[string]any)
	return m
}

func (f *fakeOpenAI) args(extra ...string) []string {
	return append(extra, "--api-base", f.srv.URL, "--api-key", "sk-test", "--log-level", "error")
}

func execute(ctx context.Context, args []string, input string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(ctx, args, strings.NewReader(input), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestGenerate(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "Paris", 0)

	code, out, errOut := execute(context.Background(), up.args("generate", "Capital of France?"), "")
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "Paris" {
		t.Errorf("stdout = %q", out)
	}
	msgs := up.lastMessages()
	if len(msgs) != 1 || msgs[0]["content"] != "Capital of France?" {
		t.Errorf("upstream messages = %v", msgs)
	}
}

func TestGenerate_Stream(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "streamed", 0)

	code, out, errOut := execute(context.Background(), up.args("generate", "hi", "--stream"), "")
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "streamed" {
		t.Errorf("stdout = %q", out)
	}
}

func TestChat_SinglePrompt(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "pong", 0)

	code, out, _ := execute(context.Background(), up.args("chat", "--prompt", "ping"), "")
	if code != 0 || strings.TrimSpace(out) != "pong" {
		t.Errorf("exit %d, stdout %q", code, out)
	}
}

func TestChat_InteractiveRecoversFromError(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "hello", 1)

	code, out, errOut := execute(context.Background(), up.args("chat", "--no-cache"), "first\nsecond\nquit\n")
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(errOut, "Error:") {
		t.Errorf("stderr should report the failed turn: %q", errOut)
	}
	if !strings.Contains(out, "Assistant: hello") {
		t.Errorf("stdout = %q", out)
	}
	if got := up.calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
	msgs := up.lastMessages()
	if len(msgs) != 1 || msgs[0]["content"] != "second" {
		t.Errorf("failed turn should be dropped from history, got %v", msgs)
	}
}

func TestChat_EndOfInput(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "unused", 0)

	code, _, _ := execute(context.Background(), up.args("chat"), "")
	if code != 0 {
		t.Errorf("exit %d", code)
	}
	if up.calls.Load() != 0 {
		t.Error("no request expected without input")
	}
}

func TestList(t *testing.T) {
	isolate(t)
	code, out, _ := execute(context.Background(), []string{"list"}, "")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(out, "Available providers:\n") {
		t.Errorf("stdout = %q", out)
	}
	for _, name := range []string{"openai", "claude", "grok", "cohere", "huggingface"} {
		if !strings.Contains(out, "  - "+name+"\n") {
			t.Errorf("missing %s in %q", name, out)
		}
	}
}

func TestTest_SingleProvider(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "Hi there", 0)

	code, out, errOut := execute(context.Background(), up.args("test", "--provider", "openai"), "")
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	for _, want := range []string{"Testing openai...", "✓ openai: Connected successfully", "Model: gpt-3.5-turbo", "Response: Hi there..."} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
}

func TestTest_FailureExitsNonZero(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "", 1)

	code, out, _ := execute(context.Background(), up.args("test", "--provider", "openai"), "")
	if code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(out, "✗ openai: Failed") {
		t.Errorf("stdout = %q", out)
	}
}

func TestRun_Errors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown provider", []string{"generate", "hi", "--provider", "nope", "--api-key", "k"}},
		{"missing credential", []string{"generate", "hi", "--provider", "openai"}},
		{"missing prompt", []string{"generate"}},
		{"unknown command", []string{"frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := execute(context.Background(), tt.args, "")
			if code != 1 {
				t.Errorf("exit %d, want 1", code)
			}
			if !strings.HasPrefix(errOut, "Error: ") && !strings.Contains(errOut, "\nError: ") {
				t.Errorf("stderr = %q", errOut)
			}
		})
	}
}

func TestRun_InterruptExitsCleanly(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "unused", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, _, errOut := execute(ctx, up.args("chat"), "")
	if code != 0 {
		t.Errorf("exit %d, want 0 (stderr %q)", code, errOut)
	}
	if up.calls.Load() != 0 {
		t.Error("no request expected after interrupt")
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	up := newFakeOpenAI(t, "from flag", 0)
	t.Setenv("LLMX_API_BASE", "http://127.0.0.1:1")

	code, out, errOut := execute(context.Background(), up.args("generate", "hi"), "")
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "from flag" {
		t.Errorf("stdout = %q", out)
	}
}
