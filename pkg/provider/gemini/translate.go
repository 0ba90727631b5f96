package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// translate converts the history into genai contents. System messages
// become the system instruction; consecutive tool messages are sent as a
// single user turn of function responses.
func (p *Provider) translate(req *provider.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	maxTokens := p.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	var system []string
	var contents []*genai.Content
	var responses []*genai.Part
	flush := func() {
		if len(responses) > 0 {
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responses})
			responses = nil
		}
	}

	for _, m := range req.Messages {
		if m.Role != api.RoleTool {
			flush()
		}
		switch m.Role {
		case api.RoleSystem:
			system = append(system, m.Content)
		case api.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case api.RoleAssistant:
			contents = append(contents, modelContent(m))
		case api.RoleTool:
			responses = append(responses, &genai.Part{FunctionResponse: functionResponse(m)})
		}
	}
	flush()

	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, raw := range req.Tools {
			var fn schema.GeminiFunction
			if err := json.Unmarshal(raw, &fn); err != nil {
				return nil, nil, api.NewServerError(fmt.Sprintf("invalid gemini function declaration: %s", err.Error()))
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 fn.Name,
				Description:          fn.Description,
				ParametersJsonSchema: map[string]any(fn.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return contents, config, nil
}

func modelContent(m api.Message) *genai.Content {
	c := &genai.Content{Role: genai.RoleModel}
	if m.Content != "" {
		c.Parts = append(c.Parts, &genai.Part{Text: m.Content})
	}
	for _, tc := range m.ToolCalls {
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		c.Parts = append(c.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
		})
	}
	return c
}

func functionResponse(m api.Message) *genai.FunctionResponse {
	key := "output"
	content := m.Content
	if m.IsError {
		key = "error"
		content = strings.TrimPrefix(content, "Error: ")
	}
	return &genai.FunctionResponse{
		ID:       m.CallID,
		Name:     m.ToolName,
		Response: map[string]any{key: content},
	}
}
