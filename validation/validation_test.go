package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/llmx/errors"
)

type testMessage struct {
	Role    string `json:"role" validate:"oneof=system user assistant"`
	Content string `json:"content"`
}

type testRequest struct {
	Provider  string        `json:"provider" validate:"required"`
	MaxTokens *int          `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Messages  []testMessage `json:"messages" validate:"min=1,dive"`
}

func intPtr(v int) *int { return &v }

func TestValidate_Valid(t *testing.T) {
	req := testRequest{
		Provider:  "openai",
		MaxTokens: intPtr(10),
		Messages:  []testMessage{{Role: "user", Content: "hi"}},
	}
	if err := Validate(req); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	req := testRequest{
		MaxTokens: intPtr(0),
		Messages:  []testMessage{{Role: "robot"}},
	}
	err := Validate(req)
	if !errors.IsKind(err, errors.ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	msg := err.Error()
	for _, want := range []string{
		"provider: is required",
		"max_tokens: must be greater than 0",
		"messages[0].role: must be one of: system user assistant",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}

	appErr, _ := errors.AsAppError(err)
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Errorf("expected 3 field errors, got %v", appErr.Details["fields"])
	}
}

func TestValidate_EmptyMessages(t *testing.T) {
	err := Validate(testRequest{Provider: "openai"})
	if err == nil || !strings.Contains(err.Error(), "messages: must be at least 1") {
		t.Errorf("expected min error, got %v", err)
	}
}

func TestVar(t *testing.T) {
	if err := Var("role", "assistant", "oneof=system user assistant"); err != nil {
		t.Errorf("expected valid role, got %v", err)
	}
	err := Var("role", "tool", "oneof=system user assistant")
	if !errors.IsKind(err, errors.ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "role: must be one of") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxTokens"); got != "max_tokens" {
		t.Errorf("expected max_tokens, got %q", got)
	}
}

func TestValidate_ByteSize(t *testing.T) {
	type limits struct {
		MaxBodySize string `validate:"bytesize"`
	}
	if err := Validate(limits{MaxBodySize: "512KB"}); err != nil {
		t.Errorf("expected valid size, got %v", err)
	}
	err := Validate(limits{MaxBodySize: "lots"})
	if err == nil || !strings.Contains(err.Error(), "max_body_size: must be a size") {
		t.Errorf("unexpected error %v", err)
	}
}
