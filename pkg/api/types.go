package api

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a run's conversation history. It is a tagged
// union over Role:
//   - system and user messages carry Content only.
//   - assistant messages carry Content and zero or more ToolCalls.
//   - tool messages answer exactly one CallID with Content holding the
//     tool output, or "Error: ..." when IsError is set.
type Message struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content,omitempty"`
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`
	CallID    string            `json:"call_id,omitempty"`
	ToolName  string            `json:"tool_name,omitempty"`
	IsError   bool              `json:"is_error,omitempty"`
}

// ToolCallRequest is a structured request, emitted by the backend, to
// invoke a named tool with specific arguments.
type ToolCallRequest struct {
	// ID is the correlation token issued by the backend.
	ID string `json:"id"`

	// Name is the requested tool name.
	Name string `json:"name"`

	// Arguments holds the decoded arguments. Nil when RawArguments is
	// not a JSON object.
	Arguments map[string]any `json:"arguments,omitempty"`

	// RawArguments is the argument text exactly as the model produced it.
	RawArguments string `json:"raw_arguments,omitempty"`
}

// NewToolCallRequest builds a ToolCallRequest from raw JSON argument text.
// Empty text is treated as an empty object.
func NewToolCallRequest(id, name, rawArgs string) ToolCallRequest {
	tc := ToolCallRequest{ID: id, Name: name, RawArguments: rawArgs}
	if rawArgs == "" {
		tc.Arguments = map[string]any{}
		tc.RawArguments = "{}"
		return tc
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err == nil && args != nil {
		tc.Arguments = args
	}
	return tc
}

// ArgumentsJSON returns the arguments as JSON text suitable for echoing
// back to a backend.
func (tc ToolCallRequest) ArgumentsJSON() string {
	if tc.RawArguments != "" {
		return tc.RawArguments
	}
	if tc.Arguments == nil {
		return "{}"
	}
	data, err := json.Marshal(tc.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ToolExecutionResult is the outcome of one tool invocation.
type ToolExecutionResult struct {
	CallID   string        `json:"call_id"`
	ToolName string        `json:"tool_name"`
	Success  bool          `json:"success"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// DurationMs returns the wall-clock duration in milliseconds.
func (r ToolExecutionResult) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// toolResultJSON is the wire form of ToolExecutionResult.
type toolResultJSON struct {
	CallID     string `json:"call_id"`
	ToolName   string `json:"tool_name"`
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// MarshalJSON encodes the duration as whole milliseconds in duration_ms.
func (r ToolExecutionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(toolResultJSON{
		CallID:     r.CallID,
		ToolName:   r.ToolName,
		Success:    r.Success,
		Output:     r.Output,
		Error:      r.Error,
		DurationMs: r.DurationMs(),
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *ToolExecutionResult) UnmarshalJSON(data []byte) error {
	var w toolResultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = ToolExecutionResult{
		CallID:   w.CallID,
		ToolName: w.ToolName,
		Success:  w.Success,
		Output:   w.Output,
		Error:    w.Error,
		Duration: time.Duration(w.DurationMs) * time.Millisecond,
	}
	return nil
}

// Failed builds an unsuccessful result with zero duration.
func Failed(call ToolCallRequest, message string) ToolExecutionResult {
	return ToolExecutionResult{
		CallID:   call.ID,
		ToolName: call.Name,
		Error:    message,
	}
}

// ToMessage serializes the result into the tool message that answers
// its call.
func (r ToolExecutionResult) ToMessage() Message {
	msg := Message{
		Role:     RoleTool,
		CallID:   r.CallID,
		ToolName: r.ToolName,
	}
	if r.Success {
		msg.Content = r.Output
	} else {
		msg.Content = "Error: " + r.Error
		msg.IsError = true
	}
	return msg
}

// FinishReason explains why the backend ended a turn.
type FinishReason string

const (
	FinishReasonStop             FinishReason = "stop"
	FinishReasonToolCallsPending FinishReason = "tool_calls_pending"
	FinishReasonLengthLimit      FinishReason = "length_limit"
	FinishReasonContentFiltered  FinishReason = "content_filtered"
)

// Usage holds the token accounting for one or more backend calls.
type Usage struct {
	PromptUnits     int `json:"prompt_units"`
	CompletionUnits int `json:"completion_units"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptUnits += other.PromptUnits
	u.CompletionUnits += other.CompletionUnits
}

// Total returns the combined unit count.
func (u Usage) Total() int {
	return u.PromptUnits + u.CompletionUnits
}

// RunRequest is the caller input for one run of the orchestration loop.
type RunRequest struct {
	Prompt       string   `json:"prompt"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`

	// MaxIterations bounds the number of backend calls. Zero means the
	// engine default.
	MaxIterations int `json:"max_iterations,omitempty"`

	// AutoExecuteTools selects between executing requested tools and
	// returning them to the caller for approval. Nil means the engine
	// default.
	AutoExecuteTools *bool `json:"auto_execute_tools,omitempty"`

	// AllowedTools restricts the catalog subset advertised to the backend.
	// Empty means every registered tool.
	AllowedTools []string `json:"allowed_tools,omitempty"`

	Stream bool `json:"stream,omitempty"`
}

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusAborted        RunStatus = "aborted"
)

// AbortReason explains why a run was aborted.
type AbortReason string

const (
	AbortReasonIterationLimit AbortReason = "iteration_limit"
	AbortReasonCancelled      AbortReason = "cancelled"
	AbortReasonBackendError   AbortReason = "backend_error"
	AbortReasonInternalError  AbortReason = "internal_error"
)

// Run is the state of one end-to-end execution of the loop. The engine
// owns it exclusively while the run is in progress; once terminal it is
// not mutated again.
type Run struct {
	ID                string            `json:"id"`
	Model             string            `json:"model,omitempty"`
	Status            RunStatus         `json:"status"`
	History           []Message         `json:"history"`
	Iterations        int               `json:"iterations"`
	ToolCallsExecuted int               `json:"tool_calls_executed"`
	TotalCost         float64           `json:"total_cost"`
	Usage             Usage             `json:"usage"`
	FinalText         string            `json:"final_text,omitempty"`
	FinishReason      FinishReason      `json:"finish_reason,omitempty"`
	AbortReason       AbortReason       `json:"abort_reason,omitempty"`
	PendingToolCalls  []ToolCallRequest `json:"pending_tool_calls,omitempty"`
	Error             *APIError         `json:"error,omitempty"`
	CreatedAt         int64             `json:"created_at"`
	CompletedAt       int64             `json:"completed_at,omitempty"`
}

// Terminal reports whether the run has reached a final status.
func (r *Run) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusRequiresAction, RunStatusAborted:
		return true
	}
	return false
}

// Partial reports whether the run ended without a final answer.
func (r *Run) Partial() bool {
	return r.Status == RunStatusAborted
}

// Snapshot returns a copy of the run whose slices do not alias the
// original.
func (r *Run) Snapshot() *Run {
	cp := *r
	cp.History = append([]Message(nil), r.History...)
	cp.PendingToolCalls = append([]ToolCallRequest(nil), r.PendingToolCalls...)
	return &cp
}
