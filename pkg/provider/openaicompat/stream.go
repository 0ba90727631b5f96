package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

// maxLineSize bounds one SSE line. Tool call chunks from some backends
// carry the full argument text in a single line.
const maxLineSize = 1 << 20

// ToolCallBuffer tracks incremental tool call argument assembly across
// multiple SSE chunks for a single tool call index.
type ToolCallBuffer struct {
	ID   string
	Name string
	Args strings.Builder
}

// streamState carries what a Chat Completions stream has produced so far.
type streamState struct {
	ctx     context.Context
	ch      chan<- provider.Delta
	pricing provider.Pricing

	toolCalls map[int]*ToolCallBuffer
	flushed   int
	finish    api.FinishReason
	usage     api.Usage
	model     string
}

// ParseSSEStream reads Chat Completions SSE chunks from body, translates
// each chunk to Delta values, and sends them on ch. It always ends with
// exactly one DeltaFinish or DeltaError unless ctx is cancelled. The
// channel is NOT closed by this function; the caller is responsible for
// closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// model is the requested model. It prices the turn when the chunks carry
// no model of their own.
//
// Malformed chunks are logged and skipped. With include_usage the usage
// arrives in a choice-less chunk after the finish_reason, so the terminal
// delta is held back until [DONE] or end of body.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Delta, pricing provider.Pricing, model string) {
	st := &streamState{
		ctx:       ctx,
		ch:        ch,
		pricing:   pricing,
		model:     model,
		toolCalls: make(map[int]*ToolCallBuffer),
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	done := false
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// SSE lines that don't start with "data:" are ignored
		// (e.g., empty lines, comments starting with ":").
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if payload == "[DONE]" {
			done = true
			break
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		if !st.handleChunk(&chunk) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		provider.Send(ctx, ch, provider.Delta{
			Type: provider.DeltaError,
			Err:  api.NewTransientBackendError("SSE stream read error: " + err.Error()),
		})
		return
	}
	if ctx.Err() != nil {
		return
	}

	if st.finish == "" && !done {
		provider.Send(ctx, ch, provider.Delta{
			Type: provider.DeltaError,
			Err:  api.NewTransientBackendError("stream ended before a finish_reason"),
		})
		return
	}
	st.complete()
}

// handleChunk translates one chunk. It returns false when the receiver
// went away.
func (st *streamState) handleChunk(chunk *ChatCompletionChunk) bool {
	if chunk.Model != "" {
		st.model = chunk.Model
	}
	if chunk.Usage != nil {
		st.usage = api.Usage{
			PromptUnits:     chunk.Usage.PromptTokens,
			CompletionUnits: chunk.Usage.CompletionTokens,
		}
	}

	// No choices means nothing else to translate (e.g., a usage-only final chunk).
	if len(chunk.Choices) == 0 {
		return true
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.Content != nil && *delta.Content != "" {
		if !st.send(provider.Delta{Type: provider.DeltaText, Text: *delta.Content}) {
			return false
		}
	}

	for _, tc := range delta.ToolCalls {
		buf, exists := st.toolCalls[tc.Index]
		if !exists {
			// First chunk for this index carries id and function name.
			id := tc.ID
			if id == "" {
				id = api.NewCallID()
			}
			buf = &ToolCallBuffer{ID: id, Name: tc.Function.Name}
			st.toolCalls[tc.Index] = buf
		} else if buf.Name == "" && tc.Function.Name != "" {
			buf.Name = tc.Function.Name
		}
		buf.Args.WriteString(tc.Function.Arguments)

		if !st.send(provider.Delta{
			Type:     provider.DeltaToolCallFragment,
			CallID:   buf.ID,
			ToolName: buf.Name,
			Text:     tc.Function.Arguments,
		}) {
			return false
		}
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		st.finish = MapFinishReason(*choice.FinishReason)
		return st.flush()
	}
	return true
}

// flush emits a DeltaToolCall for every buffered call in index order and
// clears the buffer.
func (st *streamState) flush() bool {
	indexes := make([]int, 0, len(st.toolCalls))
	for idx := range st.toolCalls {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	for _, idx := range indexes {
		buf := st.toolCalls[idx]
		call := api.NewToolCallRequest(buf.ID, buf.Name, buf.Args.String())
		if !st.send(provider.Delta{
			Type:     provider.DeltaToolCall,
			CallID:   call.ID,
			ToolName: call.Name,
			ToolCall: &call,
		}) {
			return false
		}
		st.flushed++
	}
	clear(st.toolCalls)
	return true
}

func (st *streamState) complete() {
	// Backends that stop without a finish_reason may still leave
	// buffered calls behind.
	if !st.flush() {
		return
	}
	st.send(provider.Delta{
		Type:         provider.DeltaFinish,
		FinishReason: provider.NormalizeFinish(st.finish, st.flushed),
		Usage:        st.usage,
		Cost:         st.pricing.Cost(st.model, st.usage),
		Model:        st.model,
	})
}

func (st *streamState) send(d provider.Delta) bool {
	return provider.Send(st.ctx, st.ch, d)
}

// truncate limits a string to maxLen bytes for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
