package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
	"github.com/rhuss/tooldrive/pkg/tools"
	"github.com/rhuss/tooldrive/pkg/transport"
)

// runState is everything one run owns while it is in progress. The
// backend options and rendered tool declarations are fixed at start.
type runState struct {
	run *api.Run

	model       string
	temperature *float64
	maxTokens   *int
	tools       []json.RawMessage
	allowed     tools.AllowList

	maxIterations int
	autoExecute   bool

	phase  api.Phase
	best   string
	events *emitter
}

// prepare validates req and builds the initial state of its run: the
// history is seeded with the optional system prompt and the user prompt,
// and the permitted tools are rendered once in the provider's dialect.
func (e *Engine) prepare(ctx context.Context, req *api.RunRequest) (*runState, error) {
	if apiErr := api.ValidateRunRequest(req, e.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	model := req.Model
	if model == "" {
		model = e.cfg.DefaultModel
	}
	if model == "" {
		return nil, api.NewInvalidRequestError("model", "model is required")
	}

	allowed := tools.AllowList(req.AllowedTools)
	for _, name := range allowed {
		if _, err := e.catalog.Resolve(name); err != nil {
			return nil, api.NewInvalidRequestError("allowed_tools", err.Error())
		}
	}

	rendered, err := renderTools(allowed.Filter(e.catalog.List()), e.provider.Dialect())
	if err != nil {
		return nil, api.NewServerError(err.Error())
	}

	id := transport.RunIDFromContext(ctx)
	if !api.ValidateRunID(id) {
		id = api.NewRunID()
	}

	run := &api.Run{
		ID:        id,
		Model:     model,
		Status:    api.RunStatusInProgress,
		History:   seedHistory(req),
		CreatedAt: time.Now().Unix(),
	}

	return &runState{
		run:           run,
		model:         model,
		temperature:   req.Temperature,
		maxTokens:     req.MaxTokens,
		tools:         rendered,
		allowed:       allowed,
		maxIterations: e.cfg.maxIterations(req),
		autoExecute:   e.cfg.autoExecute(req),
		phase:         api.PhaseInit,
	}, nil
}

// renderTools converts catalog tools to backend declarations.
func renderTools(list []catalog.Tool, dialect schema.Dialect) ([]json.RawMessage, error) {
	if len(list) == 0 {
		return nil, nil
	}
	decls := make([]schema.Declaration, len(list))
	for i, t := range list {
		decls[i] = t.Declaration()
	}
	return schema.RenderAll(decls, dialect)
}

// request builds the backend request for the next turn. The history is
// copied so adapters never observe later appends.
func (st *runState) request() *provider.Request {
	return &provider.Request{
		Model:       st.model,
		Messages:    append([]api.Message(nil), st.run.History...),
		Tools:       st.tools,
		Temperature: st.temperature,
		MaxTokens:   st.maxTokens,
	}
}

// enter moves the run to phase p. Transitions are fixed by the loop's
// structure, so a rejected one is logged rather than returned.
func (st *runState) enter(p api.Phase) {
	if err := api.ValidatePhaseTransition(st.phase, p); err != nil {
		slog.Error("orchestration phase violation",
			"run_id", st.run.ID,
			"error", err,
		)
	}
	st.phase = p
}
