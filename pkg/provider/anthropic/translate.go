package anthropic

import (
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// translate builds the Messages request. System messages move to the
// system field, and consecutive tool messages are merged into a single
// user message of tool_result blocks, since the API requires user and
// assistant turns to alternate.
func (p *Provider) translate(req *provider.Request) (sdk.MessageNewParams, error) {
	maxTokens := p.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	var results []sdk.ContentBlockParamUnion
	flushResults := func() {
		if len(results) > 0 {
			params.Messages = append(params.Messages, sdk.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range req.Messages {
		if m.Role != api.RoleTool {
			flushResults()
		}
		switch m.Role {
		case api.RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case api.RoleUser:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case api.RoleAssistant:
			params.Messages = append(params.Messages, assistantMessage(m))
		case api.RoleTool:
			results = append(results, sdk.NewToolResultBlock(m.CallID, m.Content, m.IsError))
		}
	}
	flushResults()

	for _, raw := range req.Tools {
		tool, err := decodeTool(raw)
		if err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, sdk.ToolUnionParam{OfTool: &tool})
	}
	return params, nil
}

func assistantMessage(m api.Message) sdk.MessageParam {
	var blocks []sdk.ContentBlockParamUnion
	if m.Content != "" {
		blocks = append(blocks, sdk.NewTextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		input := tc.Arguments
		if input == nil {
			input = map[string]any{}
		}
		blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, input, tc.Name))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, sdk.NewTextBlock(""))
	}
	return sdk.NewAssistantMessage(blocks...)
}

// decodeTool turns a declaration rendered in the Anthropic dialect into
// the SDK's tool parameter.
func decodeTool(raw json.RawMessage) (sdk.ToolParam, error) {
	var decl schema.AnthropicTool
	if err := json.Unmarshal(raw, &decl); err != nil {
		return sdk.ToolParam{}, api.NewServerError(fmt.Sprintf("invalid anthropic tool declaration: %s", err.Error()))
	}

	in := sdk.ToolInputSchemaParam{
		Properties: decl.InputSchema["properties"],
		Required:   decl.InputSchema.Required(),
	}
	for k, v := range decl.InputSchema {
		switch k {
		case "type", "properties", "required":
			continue
		}
		if in.ExtraFields == nil {
			in.ExtraFields = map[string]any{}
		}
		in.ExtraFields[k] = v
	}

	tool := sdk.ToolParam{Name: decl.Name, InputSchema: in}
	if decl.Description != "" {
		tool.Description = sdk.String(decl.Description)
	}
	return tool, nil
}
