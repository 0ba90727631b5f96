package schema

import (
	"fmt"
	"strings"
)

// Dialect identifies the tool declaration format of a model backend.
type Dialect string

const (
	// DialectOpenAI wraps declarations as {"type":"function","function":{...}}.
	DialectOpenAI Dialect = "openai"

	// DialectAnthropic declares tools as {"name","description","input_schema"}.
	DialectAnthropic Dialect = "anthropic"

	// DialectGemini declares functions as {"name","description","parameters"}.
	DialectGemini Dialect = "gemini"
)

// Dialects lists every supported dialect.
var Dialects = []Dialect{DialectOpenAI, DialectAnthropic, DialectGemini}

// ParseDialect converts a configuration value into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dialects {
		if d == known {
			return d, nil
		}
	}
	return "", &UnsupportedDialectError{Dialect: Dialect(s)}
}

// UnsupportedDialectError is returned when a dialect has no renderer.
type UnsupportedDialectError struct {
	Dialect Dialect
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported tool dialect %q", string(e.Dialect))
}
