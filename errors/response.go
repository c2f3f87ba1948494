package errors

import "net/http"

// ErrorResponse is the JSON structure returned to HTTP clients.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Provider  string                 `json:"provider,omitempty"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Provider:  e.Provider,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// StatusCode maps the error kind to the status a local HTTP surface answers with.
func (e *AppError) StatusCode() int {
	switch e.Kind() {
	case ErrCodeValidation, ErrCodeConfiguration:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeProvider, ErrCodeStreaming:
		return http.StatusBadGateway
	case ErrCodeCache:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
