package integration

import (
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/tooldrive/pkg/api"
)

func TestWeatherRoundTrip(t *testing.T) {
	resp := postRun(t, api.RunRequest{Prompt: "What is the weather in Lisbon?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	run := decodeRun(t, resp)

	if run.Status != api.RunStatusCompleted {
		t.Fatalf("status = %q, want completed (error: %+v)", run.Status, run.Error)
	}
	if run.FinalText != "Result: Sunny, 21C in Lisbon" {
		t.Errorf("final text = %q", run.FinalText)
	}
	if run.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", run.Iterations)
	}
	if run.ToolCallsExecuted != 1 {
		t.Errorf("tool calls executed = %d, want 1", run.ToolCallsExecuted)
	}
	if run.Usage.Total() != 300 {
		t.Errorf("usage total = %d, want 300", run.Usage.Total())
	}
	if math.Abs(run.TotalCost-0.4) > 1e-9 {
		t.Errorf("total cost = %v, want 0.4", run.TotalCost)
	}

	// user, assistant(tool call), tool, assistant(answer)
	if len(run.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(run.History))
	}
	toolMsg := run.History[2]
	if toolMsg.Role != api.RoleTool || toolMsg.CallID != run.History[1].ToolCalls[0].ID {
		t.Errorf("tool message does not answer the call: %+v", toolMsg)
	}
}

func TestMCPToolRoundTrip(t *testing.T) {
	run := decodeRun(t, postRun(t, api.RunRequest{Model: "mock-echo", Prompt: "say ping"}))

	if run.Status != api.RunStatusCompleted {
		t.Fatalf("status = %q, want completed (error: %+v)", run.Status, run.Error)
	}
	if run.FinalText != "Result: Echo: ping" {
		t.Errorf("final text = %q", run.FinalText)
	}
}

func TestToolFailureIsFedBack(t *testing.T) {
	run := decodeRun(t, postRun(t, api.RunRequest{Prompt: "What is the weather in Atlantis?"}))

	if run.Status != api.RunStatusCompleted {
		t.Fatalf("status = %q, want completed", run.Status)
	}
	toolMsg := run.History[2]
	if !toolMsg.IsError {
		t.Errorf("tool message should be an error: %+v", toolMsg)
	}
	if !strings.HasPrefix(run.FinalText, "Result: Error:") {
		t.Errorf("final text = %q, want the error fed back", run.FinalText)
	}
}

func TestIterationLimit(t *testing.T) {
	resp := postRun(t, api.RunRequest{Model: "mock-loop", Prompt: "weather in Oslo", MaxIterations: 2})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	run := decodeRun(t, resp)

	if run.Status != api.RunStatusAborted || run.AbortReason != api.AbortReasonIterationLimit {
		t.Fatalf("run = %s/%s, want aborted/iteration_limit", run.Status, run.AbortReason)
	}
	if run.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", run.Iterations)
	}
	// The calls of the last permitted turn are not executed.
	if run.ToolCallsExecuted != 1 {
		t.Errorf("tool calls executed = %d, want 1", run.ToolCallsExecuted)
	}
}

func TestManualApproval(t *testing.T) {
	off := false
	run := decodeRun(t, postRun(t, api.RunRequest{Prompt: "weather in Rome", AutoExecuteTools: &off}))

	if run.Status != api.RunStatusRequiresAction {
		t.Fatalf("status = %q, want requires_action", run.Status)
	}
	if len(run.PendingToolCalls) != 1 || run.PendingToolCalls[0].Name != "get_weather" {
		t.Errorf("pending calls = %+v", run.PendingToolCalls)
	}
	if run.ToolCallsExecuted != 0 {
		t.Errorf("tool calls executed = %d, want 0", run.ToolCallsExecuted)
	}
}

func TestAllowedToolsRestrictsCatalog(t *testing.T) {
	run := decodeRun(t, postRun(t, api.RunRequest{
		Model:        "mock-echo",
		Prompt:       "say ping",
		AllowedTools: []string{"get_weather"},
	}))

	// echo is requested but not allowed: the failure goes back to the model.
	if run.Status != api.RunStatusCompleted {
		t.Fatalf("status = %q, want completed", run.Status)
	}
	if !run.History[2].IsError {
		t.Errorf("disallowed call should produce an error result: %+v", run.History[2])
	}
}
