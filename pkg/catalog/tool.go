package catalog

import (
	"context"
	"regexp"

	"github.com/rhuss/tooldrive/pkg/schema"
)

// namePattern is the tool name format every backend accepts.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Binding performs the side effect behind a tool: an HTTP request, a
// subprocess, an MCP call. It receives validated arguments and returns the
// raw tool output.
type Binding interface {
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Tool is a callable tool as the catalog stores it.
type Tool struct {
	Name        string
	Description string
	InputSchema schema.Schema
	Binding     Binding

	// Source names where the tool came from ("config", "mcp:<server>").
	Source string
}

// Declaration returns the backend-neutral declaration of the tool.
func (t Tool) Declaration() schema.Declaration {
	return schema.Declaration{
		Name:        t.Name,
		Description: t.Description,
		Schema:      t.InputSchema,
	}
}

// Definition is a tool record as a tool source yields it, before its
// parameters are flattened into one input schema.
type Definition struct {
	Name        string
	Description string
	Operation   schema.Operation
	Source      string
}

// Build turns a definition into a Tool. The input schema is the flattened
// operation with unsupported combinators stripped.
func Build(def Definition, binding Binding) (Tool, error) {
	t := Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema.Strip(schema.Flatten(def.Operation)),
		Binding:     binding,
		Source:      def.Source,
	}
	if err := Validate(t); err != nil {
		return Tool{}, err
	}
	return t, nil
}

// Validate checks the structural requirements of a tool.
func Validate(t Tool) error {
	if !namePattern.MatchString(t.Name) {
		return &InvalidToolError{Name: t.Name, Reason: "name must match " + namePattern.String()}
	}
	if t.Binding == nil {
		return &InvalidToolError{Name: t.Name, Reason: "binding is required"}
	}
	if t.InputSchema == nil {
		return &InvalidToolError{Name: t.Name, Reason: "input schema is required"}
	}
	if t.InputSchema.Type() != "object" {
		return &InvalidToolError{Name: t.Name, Reason: `input schema root must have type "object"`}
	}

	var props map[string]any
	if _, ok := t.InputSchema["properties"]; ok {
		props = t.InputSchema.Properties()
		if props == nil {
			return &InvalidToolError{Name: t.Name, Reason: "properties must be an object"}
		}
	}
	for _, name := range t.InputSchema.Required() {
		if _, ok := props[name]; !ok {
			return &InvalidToolError{Name: t.Name, Reason: "required property " + name + " is not declared"}
		}
	}
	return nil
}
