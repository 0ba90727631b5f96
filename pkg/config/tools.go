package config

import (
	"fmt"

	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/tools/execbind"
	"github.com/rhuss/tooldrive/pkg/tools/httpbind"
)

// StaticSourceName is the catalog source name of tools declared under tools:.
const StaticSourceName = "config"

// Build turns the record into a catalog tool with its binding.
func (t ToolConfig) Build() (catalog.Tool, error) {
	var binding catalog.Binding
	switch {
	case t.HTTP != nil && t.Exec != nil:
		return catalog.Tool{}, fmt.Errorf("tool %q: http and exec are mutually exclusive", t.Name)
	case t.HTTP != nil:
		binding = httpbind.New(t.HTTP.Method, t.HTTP.URL, t.Operation, httpbind.WithHeaders(t.HTTP.Headers))
	case t.Exec != nil:
		b := execbind.New(t.Exec.Command, t.Exec.Args...)
		b.Env = t.Exec.Env
		b.Dir = t.Exec.Dir
		binding = b
	default:
		return catalog.Tool{}, fmt.Errorf("tool %q: one of http or exec is required", t.Name)
	}

	return catalog.Build(catalog.Definition{
		Name:        t.Name,
		Description: t.Description,
		Operation:   t.Operation,
		Source:      StaticSourceName,
	}, binding)
}

// StaticSource builds every configured tool into one catalog source.
func (c *Config) StaticSource() (*catalog.StaticSource, error) {
	src := &catalog.StaticSource{SourceName: StaticSourceName}
	for i, tc := range c.Tools {
		tool, err := tc.Build()
		if err != nil {
			return nil, fmt.Errorf("tools[%d]: %w", i, err)
		}
		src.Items = append(src.Items, tool)
	}
	return src, nil
}
