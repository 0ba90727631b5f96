package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/schema"
	"github.com/rhuss/tooldrive/pkg/transport"
)

func TestPrepare(t *testing.T) {
	prov := &scriptedProvider{}
	cat := newCatalog(t, newTool("get_weather", sunny), newTool("get_time", sunny))
	eng := newEngine(t, prov, cat, Config{DefaultModel: "m-default", MaxIterations: 7})

	temp := 0.2
	st, err := eng.prepare(context.Background(), &api.RunRequest{Prompt: "hi", SystemPrompt: "sys", Temperature: &temp})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if st.model != "m-default" || st.run.Model != "m-default" {
		t.Errorf("model = %q", st.model)
	}
	if st.maxIterations != 7 {
		t.Errorf("max iterations = %d, want 7", st.maxIterations)
	}
	if !st.autoExecute {
		t.Error("auto execution is the default")
	}
	if st.run.Status != api.RunStatusInProgress || st.phase != api.PhaseInit {
		t.Errorf("initial state %q/%q", st.run.Status, st.phase)
	}
	if len(st.tools) != 2 {
		t.Fatalf("rendered tools = %d, want 2", len(st.tools))
	}

	var first schema.OpenAITool
	if err := json.Unmarshal(st.tools[0], &first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "function" || first.Function.Name != "get_weather" {
		t.Errorf("tools must follow catalog order, got %+v", first)
	}

	req := st.request()
	if req.Temperature == nil || *req.Temperature != 0.2 || len(req.Messages) != 2 {
		t.Errorf("unexpected backend request %+v", req)
	}
	req.Messages[0].Content = "mutated"
	if st.run.History[0].Content != "sys" {
		t.Error("backend request must not alias the run history")
	}
}

func TestPrepareRequestOverrides(t *testing.T) {
	eng := newEngine(t, &scriptedProvider{}, newCatalog(t), Config{MaxIterations: 7})

	st, err := eng.prepare(context.Background(), &api.RunRequest{Prompt: "hi", Model: "m-req", MaxIterations: 2, AutoExecuteTools: boolPtr(false)})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if st.model != "m-req" || st.maxIterations != 2 || st.autoExecute {
		t.Errorf("request overrides not applied: %q %d %v", st.model, st.maxIterations, st.autoExecute)
	}
	if st.tools != nil {
		t.Errorf("empty catalog renders no tools, got %d", len(st.tools))
	}
}

func TestPrepareUsesRunIDFromContext(t *testing.T) {
	eng := newEngine(t, &scriptedProvider{}, newCatalog(t), Config{DefaultModel: "m"})

	const id = "run_0123456789abcdef0123456789abcdef"
	st, err := eng.prepare(transport.ContextWithRunID(context.Background(), id), &api.RunRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if st.run.ID != id {
		t.Errorf("run ID = %q, want %q", st.run.ID, id)
	}

	st, err = eng.prepare(transport.ContextWithRunID(context.Background(), "bogus"), &api.RunRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !api.ValidateRunID(st.run.ID) {
		t.Errorf("malformed context ID should be replaced, got %q", st.run.ID)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	if got := cfg.maxIterations(&api.RunRequest{}); got != defaultMaxIterations {
		t.Errorf("max iterations = %d", got)
	}
	if got := cfg.maxParallel(); got != defaultMaxParallelTools {
		t.Errorf("max parallel = %d", got)
	}
}
