package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/debug"
	"github.com/rhuss/tooldrive/pkg/observability"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/tools"
)

// turnFunc performs one backend call. Blocking runs use Complete,
// streaming runs consume Stream and forward text as it arrives.
type turnFunc func(ctx context.Context, st *runState, req *provider.Request) (*provider.TurnResult, error)

// loop drives a prepared run to a terminal state:
//
//	Init -> AwaitingBackend -> ExecutingTools -> AwaitingBackend -> ... -> Done | Aborted
//
// The returned error is nil unless the run was aborted by cancellation
// or by a fatal backend error. In every case st.run is terminal.
func (e *Engine) loop(ctx context.Context, st *runState, turn turnFunc) error {
	slog.Debug("run started",
		"run_id", st.run.ID,
		"model", st.model,
		"tools", len(st.tools),
		"max_iterations", st.maxIterations,
	)

	for {
		if err := ctx.Err(); err != nil {
			return e.cancelled(st, err)
		}

		st.enter(api.PhaseAwaitingBackend)
		res, err := turn(ctx, st, st.request())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.cancelled(st, ctxErr)
			}
			return e.failed(st, err)
		}

		st.run.Iterations++
		st.run.TotalCost += res.Cost
		st.run.Usage.Add(res.Usage)
		if res.Model != "" {
			st.run.Model = res.Model
		}
		st.appendTurn(res)
		debug.Log("engine", "turn finished",
			"run_id", st.run.ID,
			"iteration", st.run.Iterations,
			"finish_reason", res.FinishReason,
			"tool_calls", len(res.ToolCalls),
			"cost", res.Cost,
		)

		calls := res.ToolCalls
		if res.FinishReason != api.FinishReasonToolCallsPending || len(calls) == 0 {
			return e.completed(st, res)
		}
		st.events.toolCallsDetected(st.run.Iterations, calls)

		if !st.autoExecute {
			return e.requiresAction(st, calls)
		}
		if st.run.Iterations >= st.maxIterations {
			return e.iterationLimit(st, calls)
		}

		st.enter(api.PhaseExecutingTools)
		st.events.executingTools(st.run.Iterations, calls)
		st.appendResults(e.executeTools(ctx, st, calls))
	}
}

// complete performs a blocking backend call.
func (e *Engine) complete(ctx context.Context, _ *runState, req *provider.Request) (*provider.TurnResult, error) {
	res, err := e.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	res.FinishReason = provider.NormalizeFinish(res.FinishReason, len(res.ToolCalls))
	return res, nil
}

// stream performs a streaming backend call, forwarding text deltas as
// content_delta events and assembling the turn from the deltas.
func (e *Engine) stream(ctx context.Context, st *runState, req *provider.Request) (*provider.TurnResult, error) {
	deltas, err := e.provider.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	iteration := st.run.Iterations + 1
	var acc provider.Accumulator
	for d := range deltas {
		if d.Type == provider.DeltaText && d.Text != "" {
			st.events.contentDelta(iteration, d.Text)
		}
		acc.Add(d)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return acc.Result()
}

// executeTools runs the calls of one turn through a bounded pool. Results
// are stored by index so they follow the order of the calls, whatever
// order the invocations finish in.
func (e *Engine) executeTools(ctx context.Context, st *runState, calls []api.ToolCallRequest) []api.ToolExecutionResult {
	iteration := st.run.Iterations
	results := make([]api.ToolExecutionResult, len(calls))

	p := pool.New().WithMaxGoroutines(e.cfg.maxParallel())
	for i, call := range calls {
		p.Go(func() {
			results[i] = e.executeTool(ctx, st, call)
			st.events.toolResult(iteration, results[i])
		})
	}
	p.Wait()
	return results
}

// executeTool resolves and invokes a single call. Nothing here is fatal to
// the run: unknown, disallowed and cancelled calls become failed results.
func (e *Engine) executeTool(ctx context.Context, st *runState, call api.ToolCallRequest) api.ToolExecutionResult {
	if ctx.Err() != nil {
		return api.Failed(call, "tool "+call.Name+" was cancelled before it started")
	}
	if !st.allowed.Permits(call.Name) {
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "rejected").Inc()
		return tools.Rejected(call)
	}

	tool, err := e.catalog.Resolve(call.Name)
	if err != nil {
		slog.Warn("tool execution error",
			"run_id", st.run.ID,
			"tool", call.Name,
			"call_id", call.ID,
			"error", err.Error(),
		)
		observability.ToolExecutionsTotal.WithLabelValues("unknown", "not_found").Inc()
		return api.Failed(call, err.Error())
	}

	res := e.invoker.Invoke(ctx, tool, call)
	res.CallID = call.ID
	return res
}

func (e *Engine) completed(st *runState, res *provider.TurnResult) error {
	st.enter(api.PhaseDone)
	st.run.FinalText = res.Text
	st.run.FinishReason = res.FinishReason
	if res.FinishReason == api.FinishReasonToolCallsPending {
		st.run.FinishReason = api.FinishReasonStop
	}
	e.finish(st, api.RunStatusCompleted)
	return nil
}

func (e *Engine) requiresAction(st *runState, calls []api.ToolCallRequest) error {
	st.enter(api.PhaseDone)
	st.run.FinishReason = api.FinishReasonToolCallsPending
	st.run.PendingToolCalls = calls
	st.run.FinalText = st.best
	e.finish(st, api.RunStatusRequiresAction)
	return nil
}

// iterationLimit aborts with the unexecuted calls of the last turn left
// pending.
func (e *Engine) iterationLimit(st *runState, calls []api.ToolCallRequest) error {
	st.enter(api.PhaseAborted)
	st.run.AbortReason = api.AbortReasonIterationLimit
	st.run.FinishReason = api.FinishReasonToolCallsPending
	st.run.PendingToolCalls = calls
	st.run.FinalText = st.best
	slog.Warn("run reached iteration limit",
		"run_id", st.run.ID,
		"iterations", st.run.Iterations,
	)
	e.finish(st, api.RunStatusAborted)
	return nil
}

func (e *Engine) failed(st *runState, err error) error {
	apiErr := api.AsAPIError(err)
	st.enter(api.PhaseAborted)
	st.run.AbortReason = api.AbortReasonBackendError
	st.run.Error = apiErr
	st.run.FinalText = st.best
	slog.Error("run aborted by backend error",
		"run_id", st.run.ID,
		"provider", e.provider.Name(),
		"error_type", apiErr.Type,
		"error", apiErr.Message,
	)
	e.finish(st, api.RunStatusAborted)
	return apiErr
}

func (e *Engine) cancelled(st *runState, err error) error {
	st.enter(api.PhaseAborted)
	st.run.AbortReason = api.AbortReasonCancelled
	st.run.FinalText = st.best
	e.finish(st, api.RunStatusAborted)
	return err
}

// finish records the terminal status, metrics and terminal event.
func (e *Engine) finish(st *runState, status api.RunStatus) {
	if apiErr := api.ValidateRunTransition(st.run.Status, status); apiErr != nil {
		slog.Error("run status violation", "run_id", st.run.ID, "error", apiErr.Message)
	}
	st.run.Status = status
	st.run.CompletedAt = time.Now().Unix()

	observability.RunsTotal.WithLabelValues(string(status)).Inc()
	observability.RunIterations.Observe(float64(st.run.Iterations))

	slog.Debug("run finished",
		"run_id", st.run.ID,
		"status", status,
		"abort_reason", st.run.AbortReason,
		"iterations", st.run.Iterations,
		"tool_calls", st.run.ToolCallsExecuted,
		"cost", st.run.TotalCost,
	)

	typ := api.EventTurnComplete
	if status == api.RunStatusAborted {
		typ = api.EventAborted
	}
	st.events.terminal(typ, st.run)
}
