package provider

import (
	"context"

	"github.com/rhuss/tooldrive/pkg/schema"
)

// Provider abstracts a model backend. Implementations must be safe for
// concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Dialect names the tool declaration format Request.Tools must be
	// rendered in.
	Dialect() schema.Dialect

	// Complete sends the history and returns one assistant turn.
	Complete(ctx context.Context, req *Request) (*TurnResult, error)

	// Stream sends the history and returns the turn incrementally. The
	// channel receives exactly one DeltaFinish or DeltaError as its last
	// value and is then closed. When ctx is cancelled the terminal value
	// may be dropped if the receiver has stopped reading.
	Stream(ctx context.Context, req *Request) (<-chan Delta, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
