package catalog

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rhuss/tooldrive/pkg/schema"
)

// Catalog is an ordered set of uniquely named tools.
type Catalog struct {
	mu     sync.RWMutex
	frozen atomic.Bool

	// tools stores registered tools in insertion order.
	tools []Tool

	// byName maps tool name to its index in tools.
	byName map[string]int
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		byName: make(map[string]int),
	}
}

// Register validates and adds a tool. A duplicate name is rejected and the
// existing tool is left untouched.
func (c *Catalog) Register(t Tool) error {
	if err := Validate(t); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen.Load() {
		return ErrFrozen
	}
	if _, exists := c.byName[t.Name]; exists {
		return &DuplicateToolError{Name: t.Name}
	}

	t.InputSchema = t.InputSchema.Clone()
	c.byName[t.Name] = len(c.tools)
	c.tools = append(c.tools, t)

	slog.Debug("registered tool", "tool", t.Name, "source", t.Source)
	return nil
}

// Freeze ends the registration phase. Reads on a frozen catalog take no
// lock and are safe from any number of goroutines.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	c.frozen.Store(true)
	c.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (c *Catalog) Frozen() bool {
	return c.frozen.Load()
}

// Resolve returns the tool with the given name.
func (c *Catalog) Resolve(name string) (Tool, error) {
	if !c.frozen.Load() {
		c.mu.RLock()
		defer c.mu.RUnlock()
	}
	idx, ok := c.byName[name]
	if !ok {
		return Tool{}, &ToolNotFoundError{Name: name}
	}
	return c.tools[idx], nil
}

// List returns the tools in insertion order.
func (c *Catalog) List() []Tool {
	if !c.frozen.Load() {
		c.mu.RLock()
		defer c.mu.RUnlock()
	}
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	if !c.frozen.Load() {
		c.mu.RLock()
		defer c.mu.RUnlock()
	}
	return len(c.tools)
}

// Declarations returns the declaration of every tool in insertion order.
func (c *Catalog) Declarations() []schema.Declaration {
	tools := c.List()
	out := make([]schema.Declaration, len(tools))
	for i, t := range tools {
		out[i] = t.Declaration()
	}
	return out
}
