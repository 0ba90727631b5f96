package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/observability"
)

// Recovery returns middleware that turns a panic in the run handler into
// an *AbortedError: the run ends aborted with reason internal_error and a
// server_error, and the server keeps serving.
func Recovery() Middleware {
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w ResponseWriter) (retErr error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				run := AbortedRun(ctx, req, api.AbortReasonInternalError,
					api.NewServerError(fmt.Sprintf("internal server error: %v", r)))
				slog.Error("run handler panicked",
					"run_id", run.ID,
					"request_id", RequestIDFromContext(ctx),
					"panic", r,
					"stack", string(debug.Stack()),
				)
				observability.RunsTotal.WithLabelValues(string(api.RunStatusAborted)).Inc()
				retErr = &AbortedError{Run: run}
			}()
			return next.CreateRun(ctx, req, w)
		})
	}
}

// AbortedError reports a run that ended without reaching the engine's own
// terminal handling. The transport delivers Run to the client.
type AbortedError struct {
	Run *api.Run
}

func (e *AbortedError) Error() string {
	if e.Run.Error != nil {
		return fmt.Sprintf("run %s aborted: %s", e.Run.ID, e.Run.Error.Message)
	}
	return fmt.Sprintf("run %s aborted: %s", e.Run.ID, e.Run.AbortReason)
}

// Unwrap exposes the run's typed error.
func (e *AbortedError) Unwrap() error {
	if e.Run.Error == nil {
		return nil
	}
	return e.Run.Error
}

// AbortedRun builds a terminal aborted run for req, using the run ID
// assigned in ctx or a fresh one when ctx has none.
func AbortedRun(ctx context.Context, req *api.RunRequest, reason api.AbortReason, apiErr *api.APIError) *api.Run {
	id := RunIDFromContext(ctx)
	if !api.ValidateRunID(id) {
		id = api.NewRunID()
	}
	now := time.Now().Unix()
	run := &api.Run{
		ID:          id,
		Status:      api.RunStatusAborted,
		AbortReason: reason,
		Error:       apiErr,
		History:     []api.Message{},
		CreatedAt:   now,
		CompletedAt: now,
	}
	if req != nil {
		run.Model = req.Model
	}
	return run
}
