package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeRateLimited, "slow down")
	if !err.Retryable {
		t.Error("RATE_LIMIT_ERROR should be retryable")
	}
	if New(ErrCodeValidation, "bad").Retryable {
		t.Error("VALIDATION_ERROR should not be retryable")
	}
}

func TestAppError_Provider_RetryableByStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{0, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := Provider("openai", tt.status, "boom")
			if err.Retryable != tt.retryable {
				t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, err.Retryable)
			}
			if err.HTTPStatus != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, err.HTTPStatus)
			}
		})
	}
}

func TestAppError_RateLimited_RetryAfter(t *testing.T) {
	err := RateLimited("claude", 7*time.Second)
	if err.RetryAfter != 7*time.Second {
		t.Errorf("expected 7s retry hint, got %v", err.RetryAfter)
	}
	if err.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", err.HTTPStatus)
	}
	if err.Provider != "claude" {
		t.Errorf("expected provider claude, got %q", err.Provider)
	}
}

func TestAppError_WarmingUp_IsProviderKind(t *testing.T) {
	err := WarmingUp("huggingface")
	if err.Code != ErrCodeWarmingUp {
		t.Errorf("expected PROVIDER_WARMING_UP, got %s", err.Code)
	}
	if !IsKind(err, ErrCodeProvider) {
		t.Error("warming-up error should be a provider error")
	}
	if !strings.Contains(err.Message, "loading") {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestAppError_MissingCredential(t *testing.T) {
	err := MissingCredential("openai", "OPENAI_API_KEY")
	if err.Code != ErrCodeAuthentication {
		t.Errorf("expected AUTHENTICATION_ERROR, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "OPENAI_API_KEY") {
		t.Errorf("message should name the env var, got %q", err.Message)
	}
	if err.Retryable {
		t.Error("authentication errors are never retryable")
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := Provider("cohere", 400, "bad request")
	if got := err.Error(); got != "PROVIDER_ERROR[cohere]: bad request" {
		t.Errorf("unexpected format %q", got)
	}

	err = Validation("bad role").WithCause(fmt.Errorf("role=robot"))
	if got := err.Error(); !strings.Contains(got, "cause: role=robot") {
		t.Errorf("expected cause in message, got %q", got)
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := Configuration("bad").WithDetails(map[string]any{"a": 1})
	err.WithDetails(map[string]any{"b": 2})
	err.WithDetail("c", 3)
	if len(err.Details) != 3 {
		t.Errorf("expected 3 details, got %d", len(err.Details))
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Cache("Failed to connect to Redis", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestIsKind_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", Authentication("openai", ""))
	if !IsKind(err, ErrCodeAuthentication) {
		t.Error("expected authentication kind through wrapping")
	}
	if IsKind(err, ErrCodeProvider) {
		t.Error("did not expect provider kind")
	}
	if IsKind(fmt.Errorf("plain"), ErrCodeInternal) {
		t.Error("plain errors have no kind")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("wrap: %w", RateLimited("x", 0))) {
		t.Error("expected wrapped rate limit to be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestAppError_StatusCode_Table(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{Configuration("x"), http.StatusBadRequest},
		{Authentication("p", ""), http.StatusUnauthorized},
		{RateLimited("p", 0), http.StatusTooManyRequests},
		{Provider("p", 500, "x"), http.StatusBadGateway},
		{WarmingUp("p"), http.StatusBadGateway},
		{Streaming("p", "x", nil), http.StatusBadGateway},
		{Cache("x", nil), http.StatusServiceUnavailable},
		{Internal(nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	resp := RateLimited("grok", 0).ToResponse()
	if resp.Error.Code != ErrCodeRateLimited || !resp.Error.Retryable || resp.Error.Provider != "grok" {
		t.Errorf("unexpected response body %+v", resp.Error)
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrap_WrappedAppError(t *testing.T) {
	orig := Validation("bad")
	got := Wrap(fmt.Errorf("outer: %w", orig))
	if got != orig {
		t.Error("Wrap should return the original AppError")
	}
}

func TestWrap_PlainError(t *testing.T) {
	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}
