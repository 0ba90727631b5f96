package tools

import (
	"errors"
	"fmt"
	"strings"
)

// maxErrorSummary caps the length of an error message placed into the
// conversation.
const maxErrorSummary = 512

// ValidationError reports arguments that do not satisfy a tool's input
// schema or safety limits. It is fatal to one tool call, never to a run.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// TransportError reports an I/O failure of a binding: a refused connection,
// a non-2xx response, a non-zero exit status.
type TransportError struct {
	// StatusCode is the HTTP status or process exit code, when known.
	StatusCode int

	// Message is a short description of the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Message
}

func (e *TransportError) Unwrap() error { return e.Err }

// Summarize reduces an error to a single line of bounded length suitable
// for the conversation.
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode != 0 && !strings.Contains(msg, fmt.Sprint(te.StatusCode)) {
		msg = fmt.Sprintf("status %d: %s", te.StatusCode, msg)
	}
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorSummary {
		msg = truncateUTF8(msg, maxErrorSummary) + "..."
	}
	if msg == "" {
		msg = "tool call failed"
	}
	return msg
}
