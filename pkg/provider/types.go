package provider

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/tooldrive/pkg/api"
)

// Request is the backend-neutral input for one turn.
type Request struct {
	Model    string
	Messages []api.Message

	// Tools holds tool declarations already rendered in the provider's
	// Dialect.
	Tools []json.RawMessage

	Temperature *float64
	MaxTokens   *int
}

// TurnResult is the complete response of one backend call.
type TurnResult struct {
	Text         string
	ToolCalls    []api.ToolCallRequest
	FinishReason api.FinishReason
	Usage        api.Usage
	Cost         float64
	Model        string
}

// DeltaType identifies the kind of streaming delta.
type DeltaType int

const (
	// DeltaText carries a fragment of assistant text in Text.
	DeltaText DeltaType = iota

	// DeltaToolCallFragment carries partial argument text in Text for
	// the call identified by CallID.
	DeltaToolCallFragment

	// DeltaToolCall carries a complete, adapter-assembled call.
	DeltaToolCall

	// DeltaFinish ends a successful stream with the finish reason and
	// usage of the turn.
	DeltaFinish

	// DeltaError ends a failed stream.
	DeltaError
)

// String returns a readable name for the delta type.
func (t DeltaType) String() string {
	switch t {
	case DeltaText:
		return "text"
	case DeltaToolCallFragment:
		return "tool_call_fragment"
	case DeltaToolCall:
		return "tool_call"
	case DeltaFinish:
		return "finish"
	case DeltaError:
		return "error"
	}
	return "unknown"
}

// Delta is one incremental unit of a streaming turn.
type Delta struct {
	Type DeltaType

	Text     string
	CallID   string
	ToolName string
	ToolCall *api.ToolCallRequest

	FinishReason api.FinishReason
	Usage        api.Usage
	Cost         float64
	Model        string

	Err error
}

// Terminal reports whether the delta ends the stream.
func (d Delta) Terminal() bool {
	return d.Type == DeltaFinish || d.Type == DeltaError
}

// Accumulator folds a stream of deltas into the TurnResult a blocking
// call would have returned.
type Accumulator struct {
	text   strings.Builder
	calls  []api.ToolCallRequest
	finish *Delta
	err    error
}

// Add records one delta. It returns true once a terminal delta was seen.
func (a *Accumulator) Add(d Delta) bool {
	switch d.Type {
	case DeltaText:
		a.text.WriteString(d.Text)
	case DeltaToolCall:
		if d.ToolCall != nil {
			a.calls = append(a.calls, *d.ToolCall)
		}
	case DeltaFinish:
		a.finish = &d
		return true
	case DeltaError:
		a.err = d.Err
		return true
	}
	return false
}

// Result returns the accumulated turn, or the stream error. A stream that
// ended without a terminal delta yields a transient backend error.
func (a *Accumulator) Result() (*TurnResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.finish == nil {
		return nil, api.NewTransientBackendError("stream ended without a finish event")
	}
	res := &TurnResult{
		Text:         a.text.String(),
		ToolCalls:    a.calls,
		FinishReason: a.finish.FinishReason,
		Usage:        a.finish.Usage,
		Cost:         a.finish.Cost,
		Model:        a.finish.Model,
	}
	res.FinishReason = NormalizeFinish(res.FinishReason, len(res.ToolCalls))
	return res, nil
}

// NormalizeFinish maps a plain stop that carries tool calls to
// tool_calls_pending. An empty reason is treated as stop.
func NormalizeFinish(reason api.FinishReason, toolCalls int) api.FinishReason {
	if reason == "" {
		reason = api.FinishReasonStop
	}
	if reason == api.FinishReasonStop && toolCalls > 0 {
		return api.FinishReasonToolCallsPending
	}
	return reason
}
