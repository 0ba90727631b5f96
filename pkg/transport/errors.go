package transport

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/rhuss/tooldrive/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type,
// method not allowed) are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeAuthentication:
		// The backend rejected our credentials, not the caller's.
		return http.StatusBadGateway
	case api.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case api.ErrorTypeTransientBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api. It sets the Content-Type header and writes
// the HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	SetRetryAfter(w.Header(), apiErr)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// SetRetryAfter forwards a backend rate-limit hint as a Retry-After header
// in whole seconds, rounded up.
func SetRetryAfter(h http.Header, apiErr *api.APIError) {
	if apiErr == nil || apiErr.Type != api.ErrorTypeRateLimited || apiErr.RetryAfter <= 0 {
		return
	}
	secs := int(math.Ceil(apiErr.RetryAfter.Seconds()))
	h.Set("Retry-After", strconv.Itoa(secs))
}
