package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified llmx error type.
type AppError struct {
	// Code is the machine-readable error kind.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Provider names the backend that produced the error, if any.
	Provider string `json:"provider,omitempty"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the upstream status code, or 0 for local and transport failures.
	HTTPStatus int `json:"status,omitempty"`
	// RetryAfter is the backend's retry hint for rate-limited calls.
	RetryAfter time.Duration `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	prefix := string(e.Code)
	if e.Provider != "" {
		prefix = fmt.Sprintf("%s[%s]", e.Code, e.Provider)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Kind returns the taxonomy kind, folding sub-codes such as ErrCodeWarmingUp
// into their parent kind.
func (e *AppError) Kind() ErrorCode { return kindOf(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithProvider sets the provider name and returns the receiver.
func (e *AppError) WithProvider(provider string) *AppError {
	e.Provider = provider
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// Validation creates an error for malformed caller input.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// Configuration creates an error for an unknown provider or an unsupported model.
func Configuration(message string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message}
}

// Authentication creates an error for a missing or rejected credential.
func Authentication(provider, message string) *AppError {
	if message == "" {
		message = "Invalid API key"
	}
	return &AppError{
		Code: ErrCodeAuthentication, Message: message, Provider: provider,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// MissingCredential creates the local-precondition variant of Authentication.
func MissingCredential(provider, envVar string) *AppError {
	return &AppError{
		Code:     ErrCodeAuthentication,
		Message:  fmt.Sprintf("%s API key not found. Set %s environment variable or pass api_key in config.", provider, envVar),
		Provider: provider,
		Details:  map[string]any{"env": envVar},
	}
}

// RateLimited creates an error for an HTTP 429 answer. retryAfter may be zero.
func RateLimited(provider string, retryAfter time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Rate limit exceeded", Provider: provider,
		HTTPStatus: http.StatusTooManyRequests, RetryAfter: retryAfter, Retryable: true,
	}
}

// Provider creates an error for a non-2xx backend answer. A zero status
// denotes a transport failure. Only 5xx and transport failures are retryable.
func Provider(provider string, status int, message string) *AppError {
	return &AppError{
		Code: ErrCodeProvider, Message: message, Provider: provider,
		HTTPStatus: status, Retryable: status == 0 || status >= 500,
	}
}

// WarmingUp creates the provider error for a hosted model that is still loading.
func WarmingUp(provider string) *AppError {
	return &AppError{
		Code: ErrCodeWarmingUp, Message: "Model is currently loading, please try again later",
		Provider: provider, HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// Cache creates an error for an external cache store that could not be reached.
func Cache(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeCache, Message: message, Cause: cause}
}

// Streaming creates an error for a failure while consuming a stream.
func Streaming(provider, message string, cause error) *AppError {
	return &AppError{Code: ErrCodeStreaming, Message: message, Provider: provider, Cause: cause}
}

// Internal creates an error for an unexpected local failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "An unexpected error occurred", Cause: cause}
}

// Wrap returns err as an *AppError, wrapping plain errors as Internal.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind() == kindOf(kind)
}

// IsRetryable reports whether err is an *AppError marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
