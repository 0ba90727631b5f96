package schema

import "slices"

// Parameter locations accepted by Flatten.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
)

// BodyProperty is the property name a non-object request body is placed
// under when flattened.
const BodyProperty = "body"

// Parameter is one named request parameter of an operation.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	In          string `json:"in,omitempty" yaml:"in,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Operation is the input surface of a tool as a tool source declares it:
// path, query and header parameters plus an optional request body.
type Operation struct {
	Parameters   []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Body         Schema      `json:"body,omitempty" yaml:"body,omitempty"`
	BodyRequired bool        `json:"body_required,omitempty" yaml:"body_required,omitempty"`
}

// Flatten merges an operation's parameters and body into one object schema.
//
// Parameters become properties in declaration order. The properties of an
// object body are merged on top of them: when a body property has the same
// name as a parameter, the body property replaces it and the parameter's
// required flag is replaced by the body's. A body that is not an object is
// exposed as the single property "body".
//
// The result never aliases op.
func Flatten(op Operation) Schema {
	props := make(map[string]any)
	var required []string

	for _, p := range op.Parameters {
		if p.Name == "" {
			continue
		}
		prop := p.Schema.Clone()
		if prop == nil {
			prop = Schema{"type": "string"}
		}
		if p.Description != "" {
			if _, ok := prop["description"]; !ok {
				prop["description"] = p.Description
			}
		}
		props[p.Name] = map[string]any(prop)
		if p.Required && !slices.Contains(required, p.Name) {
			required = append(required, p.Name)
		}
	}

	// Composed bodies are collapsed first so allOf branches contribute
	// their properties.
	body := Strip(op.Body)

	switch {
	case body == nil:
	case body.IsObject():
		bodyRequired := body.Required()
		bodyProps := body.Properties()
		for _, name := range sortedKeys(bodyProps) {
			props[name] = deepCopy(bodyProps[name])
			required = slices.DeleteFunc(required, func(n string) bool { return n == name })
			if slices.Contains(bodyRequired, name) {
				required = append(required, name)
			}
		}
	default:
		props[BodyProperty] = map[string]any(body)
		required = slices.DeleteFunc(required, func(n string) bool { return n == BodyProperty })
		if op.BodyRequired {
			required = append(required, BodyProperty)
		}
	}

	out := Schema{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
