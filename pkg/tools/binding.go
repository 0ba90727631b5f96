package tools

import (
	"context"

	"github.com/rhuss/tooldrive/pkg/catalog"
)

// FuncBinding adapts an in-process Go function to catalog.Binding.
type FuncBinding func(ctx context.Context, args map[string]any) (string, error)

// Ensure FuncBinding implements catalog.Binding at compile time.
var _ catalog.Binding = FuncBinding(nil)

// Invoke calls f.
func (f FuncBinding) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return f(ctx, args)
}

// Exposure describes which argument fields a binding passes into shell
// command lines or URLs.
type Exposure struct {
	// All marks every string argument, at any depth, as exposed.
	All bool

	// Fields lists exposed top-level argument names.
	Fields []string
}

// Exposer is implemented by bindings that place arguments into shell or URL
// contexts. The Invoker rejects control characters in exposed fields.
type Exposer interface {
	Exposure() Exposure
}
