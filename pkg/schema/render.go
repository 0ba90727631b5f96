package schema

import (
	"encoding/json"
	"fmt"
)

// Declaration is the backend-neutral description of one tool.
type Declaration struct {
	Name        string
	Description string
	Schema      Schema
}

// OpenAIFunction is the inner "function" object of the OpenAI rendering.
type OpenAIFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  Schema `json:"parameters"`
}

// OpenAITool is the OpenAI rendering of a Declaration.
type OpenAITool struct {
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// AnthropicTool is the Anthropic rendering of a Declaration.
type AnthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema Schema `json:"input_schema"`
}

// GeminiFunction is the Gemini rendering of a Declaration.
type GeminiFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  Schema `json:"parameters"`
}

// Render produces the tool declaration document for the given dialect. Every
// dialect carries the same schema body; only the envelope differs. Unknown
// dialects fail with *UnsupportedDialectError.
func Render(decl Declaration, d Dialect) (json.RawMessage, error) {
	params := decl.Schema
	if params == nil {
		params = EmptyObject()
	}

	var doc any
	switch d {
	case DialectOpenAI:
		doc = OpenAITool{
			Type: "function",
			Function: OpenAIFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  params,
			},
		}
	case DialectAnthropic:
		doc = AnthropicTool{Name: decl.Name, Description: decl.Description, InputSchema: params}
	case DialectGemini:
		doc = GeminiFunction{Name: decl.Name, Description: decl.Description, Parameters: params}
	default:
		return nil, &UnsupportedDialectError{Dialect: d}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("rendering tool %s: %w", decl.Name, err)
	}
	return data, nil
}

// RenderAll renders every declaration in order.
func RenderAll(decls []Declaration, d Dialect) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(decls))
	for _, decl := range decls {
		doc, err := Render(decl, d)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
