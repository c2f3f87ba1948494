package errors

// ErrorCode represents a machine-readable error kind.
type ErrorCode string

// Caller errors (never retried)
const (
	// ErrCodeValidation indicates malformed caller input such as a bad message shape or role.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeConfiguration indicates an unknown provider name or an unsupported model.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
)

// Upstream errors
const (
	// ErrCodeAuthentication indicates a missing or rejected credential.
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"
	// ErrCodeRateLimited indicates the backend answered 429.
	ErrCodeRateLimited ErrorCode = "RATE_LIMIT_ERROR"
	// ErrCodeProvider indicates any other non-2xx backend response or a transport failure.
	ErrCodeProvider ErrorCode = "PROVIDER_ERROR"
	// ErrCodeWarmingUp indicates a hosted model is still loading. It is a provider error.
	ErrCodeWarmingUp ErrorCode = "PROVIDER_WARMING_UP"
)

// Local infrastructure errors
const (
	// ErrCodeCache indicates the external cache store was unreachable at startup.
	ErrCodeCache ErrorCode = "CACHE_ERROR"
	// ErrCodeStreaming indicates a failure while consuming an in-flight stream.
	ErrCodeStreaming ErrorCode = "STREAMING_ERROR"
	// ErrCodeInternal indicates an unexpected local failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeRateLimited: true,
	ErrCodeWarmingUp:   true,
	ErrCodeProvider:    false, // depends on the status code, see Provider
}

// IsRetryableCode returns true if every error with this code can be retried.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// kindOf folds sub-codes into the kind they belong to.
func kindOf(code ErrorCode) ErrorCode {
	if code == ErrCodeWarmingUp {
		return ErrCodeProvider
	}
	return code
}
