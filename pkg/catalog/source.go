package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Source yields tools from an external description: static configuration,
// an MCP server's tool listing, and so on.
type Source interface {
	// Name returns a unique identifier for this source (e.g., "config").
	Name() string

	// Tools returns the tools this source contributes.
	Tools(ctx context.Context) ([]Tool, error)
}

// Load registers the tools of every source in order. A source that fails
// to list its tools is skipped with a warning; registration errors are
// collected and returned together so that one bad record does not hide the
// others.
func Load(ctx context.Context, c *Catalog, sources ...Source) error {
	var errs []error
	for _, src := range sources {
		tools, err := src.Tools(ctx)
		if err != nil {
			slog.Warn("tool source unavailable", "source", src.Name(), "error", err)
			continue
		}
		registered := 0
		for _, t := range tools {
			if t.Source == "" {
				t.Source = src.Name()
			}
			if err := c.Register(t); err != nil {
				errs = append(errs, fmt.Errorf("source %s: %w", src.Name(), err))
				continue
			}
			registered++
		}
		slog.Info("loaded tool source", "source", src.Name(), "tools", registered)
	}
	return errors.Join(errs...)
}

// StaticSource is a Source over a fixed list of tools.
type StaticSource struct {
	SourceName string
	Items      []Tool
}

// Name returns the source name.
func (s *StaticSource) Name() string { return s.SourceName }

// Tools returns the fixed tool list.
func (s *StaticSource) Tools(context.Context) ([]Tool, error) { return s.Items, nil }
