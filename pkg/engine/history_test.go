package engine

import (
	"errors"
	"testing"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

func TestSeedHistory(t *testing.T) {
	got := seedHistory(&api.RunRequest{Prompt: "hi"})
	if len(got) != 1 || got[0].Role != api.RoleUser || got[0].Content != "hi" {
		t.Errorf("without system prompt: %+v", got)
	}

	got = seedHistory(&api.RunRequest{Prompt: "hi", SystemPrompt: "be brief"})
	if len(got) != 2 || got[0].Role != api.RoleSystem || got[1].Role != api.RoleUser {
		t.Errorf("with system prompt: %+v", got)
	}
}

func TestAppendTurnTracksBestText(t *testing.T) {
	st := &runState{run: &api.Run{}}
	st.appendTurn(&provider.TurnResult{Text: "first"})
	st.appendTurn(&provider.TurnResult{Text: ""})

	if st.best != "first" {
		t.Errorf("best = %q, want last non-empty text", st.best)
	}
	if len(st.run.History) != 2 {
		t.Errorf("history length = %d", len(st.run.History))
	}
}

func TestAppendResults(t *testing.T) {
	st := &runState{run: &api.Run{}}
	call := weatherCall("call_1", "Paris")
	st.appendResults([]api.ToolExecutionResult{
		{CallID: "call_1", ToolName: "get_weather", Success: true, Output: "sunny"},
		api.Failed(call, "timeout"),
	})

	if st.run.ToolCallsExecuted != 2 {
		t.Errorf("tool calls executed = %d", st.run.ToolCallsExecuted)
	}
	if got := st.run.History[1].Content; got != "Error: timeout" {
		t.Errorf("failed result content = %q", got)
	}
}

func TestValidateHistory(t *testing.T) {
	calls := []api.ToolCallRequest{{ID: "a", Name: "t"}, {ID: "b", Name: "t"}}
	assistant := api.Message{Role: api.RoleAssistant, ToolCalls: calls}
	tool := func(id string) api.Message { return api.Message{Role: api.RoleTool, CallID: id} }
	user := api.Message{Role: api.RoleUser, Content: "hi"}

	tests := []struct {
		name    string
		history []api.Message
		wantErr bool
	}{
		{"empty", nil, false},
		{"in order", []api.Message{user, assistant, tool("a"), tool("b")}, false},
		{"partial answers", []api.Message{user, assistant, tool("a")}, false},
		{"out of order", []api.Message{user, assistant, tool("b"), tool("a")}, true},
		{"answered twice", []api.Message{user, assistant, tool("a"), tool("a")}, true},
		{"orphan", []api.Message{user, tool("a")}, true},
		{"too many", []api.Message{user, assistant, tool("a"), tool("b"), tool("c")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHistory(tt.history)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateHistory() error = %v, wantErr %v", err, tt.wantErr)
			}
			var he *HistoryError
			if err != nil && !errors.As(err, &he) {
				t.Errorf("error type = %T", err)
			}
		})
	}
}
