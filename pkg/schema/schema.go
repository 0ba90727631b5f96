package schema

import (
	"maps"
	"slices"
)

// Schema is a JSON Schema document decoded into generic Go values.
type Schema map[string]any

// Type returns the schema's "type" keyword when it is a single string.
func (s Schema) Type() string {
	t, _ := s["type"].(string)
	return t
}

// Properties returns the schema's "properties" keyword as a map, or nil.
func (s Schema) Properties() map[string]any {
	return asMap(s["properties"])
}

// Required returns the names listed in the schema's "required" keyword.
func (s Schema) Required() []string {
	return stringList(s["required"])
}

// IsObject reports whether the schema describes a JSON object.
func (s Schema) IsObject() bool {
	if s.Type() == "object" {
		return true
	}
	_, hasProps := s["properties"]
	return s.Type() == "" && hasProps
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return Schema(deepCopy(map[string]any(s)).(map[string]any))
}

// EmptyObject returns the schema of an object without declared properties.
func EmptyObject() Schema {
	return Schema{"type": "object", "properties": map[string]any{}}
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Schema:
		return m
	}
	return nil
}

func asNodes(v any) []map[string]any {
	switch list := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m := asMap(item); m != nil {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return list
	case []Schema:
		out := make([]map[string]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// unionNames appends the names of b missing from a, keeping a's order.
func unionNames(a, b []string) []string {
	out := slices.Clone(a)
	for _, name := range b {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case Schema:
		return deepCopy(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		return slices.Clone(t)
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []Schema:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
