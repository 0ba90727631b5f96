package transport

import (
	"context"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
)

// RunCreator handles the create-run operation. The implementation
// receives a request and writes the result (streaming events or a
// finished run) to the ResponseWriter.
type RunCreator interface {
	CreateRun(ctx context.Context, req *api.RunRequest, w ResponseWriter) error
}

// RunCreatorFunc is an adapter that allows using an ordinary function
// as a RunCreator.
type RunCreatorFunc func(ctx context.Context, req *api.RunRequest, w ResponseWriter) error

// CreateRun calls f(ctx, req, w).
func (f RunCreatorFunc) CreateRun(ctx context.Context, req *api.RunRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ToolLister exposes the tools a server advertises to backends.
type ToolLister interface {
	List() []catalog.Tool
}

// ResponseWriter abstracts streaming and non-streaming output for the handler.
// The transport layer creates a ResponseWriter for each request and provides
// it to the handler. The handler uses WriteEvent for streaming runs or
// WriteRun for blocking runs.
//
// WriteEvent and WriteRun are mutually exclusive on a single writer
// instance. Calling WriteEvent after WriteRun (or vice versa) returns
// an error. Calling WriteEvent after a terminal event (turn_complete or
// aborted) also returns an error.
type ResponseWriter interface {
	// WriteEvent sends a single streaming event.
	WriteEvent(ctx context.Context, event api.Event) error

	// WriteRun sends a finished run as a single response.
	WriteRun(ctx context.Context, run *api.Run) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
