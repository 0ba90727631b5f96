package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

// streamState folds Messages stream events into Deltas. The SDK
// accumulator assembles the final message; tool_use block ids are kept by
// content index so that input_json fragments can be attributed.
type streamState struct {
	ctx   context.Context
	ch    chan<- provider.Delta
	p     *Provider
	model string

	acc     sdk.Message
	callIDs map[int64]string
	names   map[int64]string
}

func newStreamState(ctx context.Context, ch chan<- provider.Delta, p *Provider, model string) *streamState {
	return &streamState{
		ctx:     ctx,
		ch:      ch,
		p:       p,
		model:   model,
		callIDs: make(map[int64]string),
		names:   make(map[int64]string),
	}
}

// handle processes one event. It returns false when the stream must stop.
func (st *streamState) handle(event sdk.MessageStreamEventUnion) bool {
	if err := st.acc.Accumulate(event); err != nil {
		provider.Send(st.ctx, st.ch, provider.Delta{
			Type: provider.DeltaError,
			Err:  api.NewTransientBackendError("malformed stream event: " + err.Error()),
		})
		return false
	}

	switch ev := event.AsAny().(type) {
	case sdk.ContentBlockStartEvent:
		if ev.ContentBlock.Type == "tool_use" {
			block := ev.ContentBlock.AsToolUse()
			id := block.ID
			if id == "" {
				id = api.NewCallID()
			}
			st.callIDs[ev.Index] = id
			st.names[ev.Index] = block.Name
		}
	case sdk.ContentBlockDeltaEvent:
		switch d := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			if d.Text != "" {
				return provider.Send(st.ctx, st.ch, provider.Delta{Type: provider.DeltaText, Text: d.Text})
			}
		case sdk.InputJSONDelta:
			return provider.Send(st.ctx, st.ch, provider.Delta{
				Type:     provider.DeltaToolCallFragment,
				CallID:   st.callIDs[ev.Index],
				ToolName: st.names[ev.Index],
				Text:     d.PartialJSON,
			})
		}
	}
	return true
}

// complete emits the assembled tool calls followed by the finish delta.
func (st *streamState) complete() {
	res := st.p.translateMessage(&st.acc, st.model)

	// Keep the ids announced in fragments when the block carried none.
	i := 0
	for idx, block := range st.acc.Content {
		if block.Type != "tool_use" {
			continue
		}
		if id, ok := st.callIDs[int64(idx)]; ok && i < len(res.ToolCalls) {
			res.ToolCalls[i].ID = id
		}
		i++
	}

	for k := range res.ToolCalls {
		call := res.ToolCalls[k]
		if !provider.Send(st.ctx, st.ch, provider.Delta{
			Type:     provider.DeltaToolCall,
			CallID:   call.ID,
			ToolName: call.Name,
			ToolCall: &call,
		}) {
			return
		}
	}
	provider.Send(st.ctx, st.ch, provider.Delta{
		Type:         provider.DeltaFinish,
		FinishReason: res.FinishReason,
		Usage:        res.Usage,
		Cost:         res.Cost,
		Model:        res.Model,
	})
}
