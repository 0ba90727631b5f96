package openaicompat

import (
	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

// TranslateToChat converts a provider Request into a ChatCompletionRequest
// suitable for the /v1/chat/completions endpoint. Tools are expected to be
// rendered in the OpenAI dialect already and are passed through verbatim.
func TranslateToChat(req *provider.Request, stream bool) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:       req.Model,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
		Stream:      stream,
	}

	// When streaming, enable usage reporting in the stream.
	if stream {
		cr.StreamOptions = &ChatStreamOptions{IncludeUsage: true}
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, translateMessage(m))
	}
	return cr
}

func translateMessage(m api.Message) ChatMessage {
	cm := ChatMessage{Role: string(m.Role)}
	switch m.Role {
	case api.RoleAssistant:
		if m.Content != "" || len(m.ToolCalls) == 0 {
			cm.Content = strPtr(m.Content)
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, ChatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: ChatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.ArgumentsJSON(),
				},
			})
		}
	case api.RoleTool:
		cm.ToolCallID = m.CallID
		cm.Content = strPtr(m.Content)
	default:
		cm.Content = strPtr(m.Content)
	}
	return cm
}

func strPtr(s string) *string { return &s }
