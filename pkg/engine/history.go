package engine

import (
	"fmt"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

// seedHistory returns the opening messages of a run.
func seedHistory(req *api.RunRequest) []api.Message {
	var history []api.Message
	if req.SystemPrompt != "" {
		history = append(history, api.Message{Role: api.RoleSystem, Content: req.SystemPrompt})
	}
	return append(history, api.Message{Role: api.RoleUser, Content: req.Prompt})
}

// appendTurn records the assistant message of a backend turn and keeps
// track of the last non-empty text for runs that end without an answer.
func (st *runState) appendTurn(res *provider.TurnResult) {
	st.run.History = append(st.run.History, api.Message{
		Role:      api.RoleAssistant,
		Content:   res.Text,
		ToolCalls: res.ToolCalls,
	})
	if res.Text != "" {
		st.best = res.Text
	}
}

// appendResults records one tool message per result. results must be in
// the order of the calls of the preceding assistant message.
func (st *runState) appendResults(results []api.ToolExecutionResult) {
	for _, r := range results {
		st.run.History = append(st.run.History, r.ToMessage())
	}
	st.run.ToolCallsExecuted += len(results)
}

// ValidateHistory checks that every tool message answers a call of the
// closest preceding assistant message, in the order the calls were made,
// and that no call is answered twice.
func ValidateHistory(history []api.Message) error {
	var calls []api.ToolCallRequest
	next := 0
	for i, m := range history {
		switch m.Role {
		case api.RoleAssistant:
			calls = m.ToolCalls
			next = 0
		case api.RoleTool:
			if next >= len(calls) {
				return &HistoryError{Index: i, CallID: m.CallID, Reason: "does not answer a pending tool call"}
			}
			if calls[next].ID != m.CallID {
				return &HistoryError{Index: i, CallID: m.CallID, Reason: "answers call " + calls[next].ID + " out of order"}
			}
			next++
		default:
			calls = nil
			next = 0
		}
	}
	return nil
}

// HistoryError reports a tool message that breaks the call/result
// pairing of a conversation.
type HistoryError struct {
	Index  int
	CallID string
	Reason string
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("history message %d (call %s) %s", e.Index, e.CallID, e.Reason)
}
