package api

// EventType identifies the type of a streaming event.
type EventType string

// Progress events are emitted while a run advances.
const (
	EventContentDelta      EventType = "content_delta"
	EventToolCallsDetected EventType = "tool_calls_detected"
	EventExecutingTools    EventType = "executing_tools"
	EventToolResult        EventType = "tool_result"
)

// Terminal events end a run's event stream. Exactly one is emitted per run.
const (
	EventTurnComplete EventType = "turn_complete"
	EventAborted      EventType = "aborted"
)

// Event is a single streaming event. Events of one run are delivered in
// order with strictly increasing sequence numbers.
type Event struct {
	Type           EventType            `json:"type"`
	SequenceNumber int                  `json:"sequence_number"`
	RunID          string               `json:"run_id"`
	Iteration      int                  `json:"iteration,omitempty"`
	Delta          string               `json:"delta,omitempty"`
	ToolCalls      []ToolCallRequest    `json:"tool_calls,omitempty"`
	Result         *ToolExecutionResult `json:"result,omitempty"`
	Run            *Run                 `json:"run,omitempty"`
}

// IsTerminal reports whether t ends a run's event stream.
func IsTerminal(t EventType) bool {
	return t == EventTurnComplete || t == EventAborted
}
