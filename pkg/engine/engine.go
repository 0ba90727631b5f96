package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/tools"
	"github.com/rhuss/tooldrive/pkg/transport"
)

// Catalog is the read-only view of the tool catalog the engine needs.
type Catalog interface {
	Resolve(name string) (catalog.Tool, error)
	List() []catalog.Tool
}

// Invoker executes one resolved tool call. Implementations never fail;
// every outcome is a result.
type Invoker interface {
	Invoke(ctx context.Context, tool catalog.Tool, call api.ToolCallRequest) api.ToolExecutionResult
}

// Engine orchestrates runs between a provider and the tool catalog. It
// holds no per-run state and is safe for concurrent use.
type Engine struct {
	provider provider.Provider
	catalog  Catalog
	invoker  Invoker
	cfg      Config
}

// Ensure Engine implements transport.RunCreator at compile time.
var _ transport.RunCreator = (*Engine)(nil)

// New creates a new Engine. The provider and catalog must not be nil. A
// nil invoker is replaced by one with default limits.
func New(p provider.Provider, cat Catalog, inv Invoker, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	if cat == nil {
		return nil, fmt.Errorf("engine: catalog must not be nil")
	}
	if inv == nil {
		inv = tools.NewInvoker(tools.DefaultConfig())
	}
	return &Engine{
		provider: p,
		catalog:  cat,
		invoker:  inv,
		cfg:      cfg,
	}, nil
}

// Run executes a run in blocking mode. Invalid requests fail with an
// *api.APIError and a nil run. Otherwise the terminal run is always
// returned; the error is non-nil when the run was aborted by a fatal
// backend error or by cancellation.
func (e *Engine) Run(ctx context.Context, req *api.RunRequest) (*api.Run, error) {
	st, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	err = e.loop(ctx, st, e.complete)
	return st.run, err
}

// Stream executes a run in streaming mode. Events are delivered in order
// with increasing sequence numbers; exactly one turn_complete or aborted
// event ends the stream and the channel is then closed. Callers must
// drain the channel. Progress events are dropped once ctx is done, the
// terminal event never is.
func (e *Engine) Stream(ctx context.Context, req *api.RunRequest) (<-chan api.Event, error) {
	st, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan api.Event, 16)
	st.events = newEmitter(ctx, ch, st.run.ID)

	go func() {
		defer close(ch)
		e.loop(ctx, st, e.stream)
	}()
	return ch, nil
}

// CreateRun implements transport.RunCreator. Blocking runs are written
// with WriteRun, including aborted ones, whose typed error travels in
// the run. Streaming runs are written event by event.
func (e *Engine) CreateRun(ctx context.Context, req *api.RunRequest, w transport.ResponseWriter) error {
	if !req.Stream {
		run, err := e.Run(ctx, req)
		if run == nil {
			return err
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("run aborted",
				"run_id", run.ID,
				"abort_reason", run.AbortReason,
				"error", err,
			)
		}
		return w.WriteRun(ctx, run)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := e.Stream(ctx, req)
	if err != nil {
		return err
	}

	var writeErr error
	for ev := range events {
		if writeErr != nil {
			continue
		}
		if writeErr = w.WriteEvent(ctx, ev); writeErr != nil {
			// The client is gone; stop the run and drain.
			cancel()
		}
	}
	return writeErr
}
