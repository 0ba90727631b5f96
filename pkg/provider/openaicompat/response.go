package openaicompat

import (
	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

// TranslateResponse converts a ChatCompletionResponse into a TurnResult.
// It uses only choices[0].
func TranslateResponse(resp *ChatCompletionResponse) (*provider.TurnResult, error) {
	res := &provider.TurnResult{Model: resp.Model}
	if resp.Usage != nil {
		res.Usage = api.Usage{
			PromptUnits:     resp.Usage.PromptTokens,
			CompletionUnits: resp.Usage.CompletionTokens,
		}
	}

	// Empty choices means the backend produced no output.
	if len(resp.Choices) == 0 {
		return nil, api.NewTransientBackendError("backend returned no choices")
	}

	choice := resp.Choices[0]
	if choice.Message.Content != nil {
		res.Text = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		res.ToolCalls = append(res.ToolCalls, api.NewToolCallRequest(id, tc.Function.Name, tc.Function.Arguments))
	}
	res.FinishReason = provider.NormalizeFinish(MapFinishReason(choice.FinishReason), len(res.ToolCalls))
	return res, nil
}

// MapFinishReason converts a Chat Completions finish_reason string to a
// FinishReason. Unknown values are treated as stop.
func MapFinishReason(reason string) api.FinishReason {
	switch reason {
	case "tool_calls", "function_call":
		return api.FinishReasonToolCallsPending
	case "length":
		return api.FinishReasonLengthLimit
	case "content_filter":
		return api.FinishReasonContentFiltered
	default:
		return api.FinishReasonStop
	}
}
