package schema

// combinators are the keywords Strip removes.
var combinators = map[string]bool{
	"oneOf": true,
	"anyOf": true,
	"allOf": true,
	"not":   true,
}

// Strip returns a copy of s without the oneOf, anyOf, allOf and not
// keywords, at any depth.
//
// Combinators are collapsed rather than dropped where that keeps the
// schema useful. allOf branches are merged into their parent node. The
// properties of every non-null oneOf/anyOf branch are added to the parent,
// and the first such branch fills in the other keywords the parent lacks.
// Alternatives never contribute required names, so a value valid under
// the original schema stays valid. Strip recurses into properties, items,
// additionalProperties, patternProperties, $defs and definitions. It never
// mutates s, and Strip(Strip(s)) equals Strip(s).
func Strip(s Schema) Schema {
	if s == nil {
		return nil
	}
	return Schema(stripNode(s))
}

func stripNode(node map[string]any) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		if combinators[k] {
			continue
		}
		out[k] = deepCopy(v)
	}

	for _, branch := range asNodes(node["allOf"]) {
		mergeBranch(out, stripNode(branch), mergeAll)
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		for i, branch := range nonNull(asNodes(node[key])) {
			mode := mergeProperties
			if i == 0 {
				mode = mergeAlternative
			}
			mergeBranch(out, stripNode(branch), mode)
		}
	}

	if props := asMap(out["properties"]); props != nil {
		out["properties"] = stripEach(props)
	}
	switch items := out["items"].(type) {
	case map[string]any, Schema:
		out["items"] = stripNode(asMap(items))
	case []any:
		list := make([]any, len(items))
		for i, item := range items {
			if m := asMap(item); m != nil {
				list[i] = stripNode(m)
			} else {
				list[i] = item
			}
		}
		out["items"] = list
	}
	if ap := asMap(out["additionalProperties"]); ap != nil {
		out["additionalProperties"] = stripNode(ap)
	}
	for _, key := range []string{"patternProperties", "$defs", "definitions"} {
		if m := asMap(out[key]); m != nil {
			out[key] = stripEach(m)
		}
	}
	if req, ok := out["required"]; ok {
		out["required"] = stringList(req)
	}
	return out
}

func stripEach(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for name, v := range m {
		if sub := asMap(v); sub != nil {
			out[name] = stripNode(sub)
		} else {
			out[name] = v
		}
	}
	return out
}

// mergeMode selects which keywords of a branch reach the parent node.
type mergeMode int

const (
	// mergeAll unites properties and required names and fills in missing
	// keywords (allOf).
	mergeAll mergeMode = iota
	// mergeAlternative adds missing properties and keywords but no
	// required names (first oneOf/anyOf branch).
	mergeAlternative
	// mergeProperties adds missing properties only (later branches).
	mergeProperties
)

// mergeBranch copies the keywords of branch into dst according to mode.
// Existing properties and keywords of dst are never overwritten.
func mergeBranch(dst, branch map[string]any, mode mergeMode) {
	for k, v := range branch {
		switch k {
		case "properties":
			bp := asMap(v)
			if bp == nil {
				continue
			}
			dp := asMap(dst["properties"])
			if dp == nil {
				dp = make(map[string]any, len(bp))
				dst["properties"] = dp
			}
			for name, prop := range bp {
				if _, exists := dp[name]; !exists {
					dp[name] = prop
				}
			}
		case "required":
			if mode != mergeAll {
				continue
			}
			dst["required"] = unionNames(stringList(dst["required"]), stringList(v))
		default:
			if mode == mergeProperties {
				continue
			}
			if _, exists := dst[k]; !exists {
				dst[k] = v
			}
		}
	}
}

func nonNull(branches []map[string]any) []map[string]any {
	var out []map[string]any
	for _, b := range branches {
		if t, _ := b["type"].(string); t == "null" {
			continue
		}
		out = append(out, b)
	}
	return out
}
