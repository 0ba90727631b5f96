package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of an error raised at or above the
// backend adapter boundary.
type ErrorType string

const (
	ErrorTypeServerError      ErrorType = "server_error"
	ErrorTypeInvalidRequest   ErrorType = "invalid_request"
	ErrorTypeAuthentication   ErrorType = "authentication"
	ErrorTypeRateLimited      ErrorType = "rate_limited"
	ErrorTypeTransientBackend ErrorType = "transient_backend"
	ErrorTypeNotFound         ErrorType = "not_found"
)

// APIError represents a structured error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	// StatusCode is the backend HTTP status that produced the error, if any.
	StatusCode int `json:"-"`

	// RetryAfter is the backend's hint for rate limited errors.
	RetryAfter time.Duration `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Retryable reports whether the error may succeed when the same call is
// repeated after a delay.
func (e *APIError) Retryable() bool {
	return e.Type == ErrorTypeRateLimited || e.Type == ErrorTypeTransientBackend
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for requests the backend (or
// the engine) rejected as malformed. Fatal for the run.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewAuthenticationError creates an APIError for rejected credentials.
// Fatal, never retried.
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthentication,
		Message: message,
	}
}

// NewRateLimitedError creates an APIError for backend rate limiting.
// retryAfter may be zero when the backend gave no hint.
func NewRateLimitedError(message string, retryAfter time.Duration) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		RetryAfter: retryAfter,
	}
}

// NewTransientBackendError creates an APIError for failures that are safe
// to retry (timeouts, dropped connections, 5xx).
func NewTransientBackendError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTransientBackend,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal failures.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// AsAPIError returns err as an *APIError. Errors that carry no
// classification are reported as server errors so callers always learn a
// category.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewServerError(err.Error())
}
