package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern matches {name} placeholders in URL and argv templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// Placeholders returns the argument names referenced by a template, in
// order of first appearance.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Expand replaces each {name} placeholder in tmpl with the string form of
// args[name], passed through escape when escape is non-nil. A placeholder
// without a matching argument is an error.
func Expand(tmpl string, args map[string]any, escape func(string) string) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := args[name]
		if !ok || v == nil {
			missing = append(missing, name)
			return m
		}
		s := ArgString(v)
		if escape != nil {
			s = escape(s)
		}
		return s
	})
	if len(missing) > 0 {
		return "", &ValidationError{Field: missing[0], Message: "value is required by the tool binding"}
	}
	return out, nil
}

// ArgString renders an argument value as a plain string. Strings are used
// verbatim, numbers and booleans in their JSON form, and anything else as
// compact JSON.
func ArgString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(string(data))
}
