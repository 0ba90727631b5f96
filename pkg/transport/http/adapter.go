package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/observability"
	"github.com/rhuss/tooldrive/pkg/transport"
)

// Adapter serves the run API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	creator transport.RunCreator
	tools   transport.ToolLister // nil disables GET /v1/tools
	runs    *transport.RunTracker
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds

	// Metrics enables GET /metrics and the HTTP request metrics.
	Metrics bool
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
		Metrics:         true,
	}
}

// NewAdapter creates an HTTP adapter with the given RunCreator and options.
// The ToolLister is optional. Middleware is applied to the RunCreator in
// the given order, outside the run tracker.
func NewAdapter(creator transport.RunCreator, tools transport.ToolLister, cfg Config, middlewares ...transport.Middleware) *Adapter {
	runs := transport.NewRunTracker()
	chain := append(append([]transport.Middleware(nil), middlewares...), runs.Middleware())

	a := &Adapter{
		creator: transport.Chain(chain...)(creator),
		tools:   tools,
		runs:    runs,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/runs", a.handleCreateRun)
	a.mux.HandleFunc("GET /v1/runs", a.handleListRuns)
	a.mux.HandleFunc("DELETE /v1/runs/{id}", a.handleCancelRun)
	a.mux.HandleFunc("GET /v1/tools", a.handleListTools)
	a.mux.HandleFunc("GET /healthz", handleHealth)
	if cfg.Metrics {
		a.mux.Handle("GET /metrics", promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter, including request ID
// handling and, when enabled, request metrics.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = requestIDHandler(a.mux)
	if a.config.Metrics {
		h = observability.MetricsMiddleware(h)
	}
	return h
}

// requestIDHandler settles the request ID before routing: a valid
// X-Request-ID from the client is kept, anything else is replaced. The
// ID is echoed in the response header and placed in the context for the
// run middleware and logs.
func requestIDHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := transport.SanitizeRequestID(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// handleCreateRun handles POST /v1/runs.
func (a *Adapter) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	// The run ID is fixed before the run starts so blocking clients can
	// cancel through DELETE /v1/runs/{id} while they wait.
	runID := api.NewRunID()
	w.Header().Set("X-Run-ID", runID)
	ctx := transport.ContextWithRunID(r.Context(), runID)

	rw := newSSEResponseWriter(w)
	if err := a.creator.CreateRun(ctx, &req, rw); err != nil {
		a.writeHandlerError(ctx, w, rw, &req, err)
	}
}

// runList is the response body of GET /v1/runs.
type runList struct {
	Object string              `json:"object"`
	Data   []transport.RunInfo `json:"data"`
}

// handleListRuns handles GET /v1/runs, listing the runs executing now.
func (a *Adapter) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runList{Object: "list", Data: a.runs.Active()})
}

// handleCancelRun handles DELETE /v1/runs/{id}. The run, blocking or
// streaming, ends as aborted/cancelled on its own connection.
func (a *Adapter) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateRunID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed run ID"),
			http.StatusBadRequest,
		)
		return
	}

	if !a.runs.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("run "+id+" is not in flight"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toolInfo is the listing shape of one catalog tool.
type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Source      string         `json:"source,omitempty"`
}

// toolList is the response body of GET /v1/tools.
type toolList struct {
	Object string     `json:"object"`
	Data   []toolInfo `json:"data"`
}

// handleListTools handles GET /v1/tools.
func (a *Adapter) handleListTools(w http.ResponseWriter, r *http.Request) {
	if a.tools == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "tool listing is not available"),
			http.StatusNotImplemented,
		)
		return
	}

	list := toolList{Object: "list", Data: []toolInfo{}}
	for _, t := range a.tools.List() {
		list.Data = append(list.Data, toolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Source:      t.Source,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// writeHandlerError delivers a handler error. An *transport.AbortedError
// carries its own run; any other error is wrapped into an aborted run
// with reason backend_error. Once streaming has started the run goes out
// as an aborted event, otherwise a run carried by the error is written as
// JSON and a bare error as an error response.
func (a *Adapter) writeHandlerError(ctx context.Context, w http.ResponseWriter, rw *sseResponseWriter, req *api.RunRequest, err error) {
	if rw.completed() {
		// The run was delivered; the error is already part of it or the
		// client went away.
		return
	}

	var aborted *transport.AbortedError
	hasRun := errors.As(err, &aborted)
	apiErr := api.AsAPIError(err)

	if rw.hasStartedStreaming() {
		run := transport.AbortedRun(ctx, req, api.AbortReasonBackendError, apiErr)
		if hasRun {
			run = aborted.Run
		}
		rw.WriteEvent(context.Background(), api.Event{
			Type:  api.EventAborted,
			RunID: run.ID,
			Run:   run,
		})
		return
	}

	if hasRun {
		rw.WriteRun(context.Background(), aborted.Run)
		return
	}
	transport.WriteAPIError(w, apiErr)
}
