package transport

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rhuss/tooldrive/pkg/api"
)

// maxRequestIDLen bounds client-supplied request IDs.
const maxRequestIDLen = 128

// RequestID returns middleware that makes sure every run carries a usable
// request ID. A client-supplied ID (placed in the context by the HTTP
// adapter) is kept when SanitizeRequestID accepts it; otherwise a fresh
// "req_" ID replaces it.
func RequestID() Middleware {
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w ResponseWriter) error {
			id := SanitizeRequestID(RequestIDFromContext(ctx))
			if id == "" {
				id = NewRequestID()
			}
			return next.CreateRun(ContextWithRequestID(ctx, id), req, w)
		})
	}
}

// NewRequestID returns a new request ID.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SanitizeRequestID returns id when it is safe to echo into headers and
// logs: at most 128 characters of letters, digits, '-', '_', '.' or ':'.
// Anything else yields "".
func SanitizeRequestID(id string) string {
	if id == "" || len(id) > maxRequestIDLen {
		return ""
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return ""
		}
	}
	return id
}
