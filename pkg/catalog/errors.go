package catalog

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned by Register after Freeze.
var ErrFrozen = errors.New("catalog is frozen")

// DuplicateToolError is returned when a tool name is already registered.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// InvalidToolError is returned when a tool fails structural validation.
type InvalidToolError struct {
	Name   string
	Reason string
}

func (e *InvalidToolError) Error() string {
	if e.Name == "" {
		return "invalid tool: " + e.Reason
	}
	return fmt.Sprintf("invalid tool %q: %s", e.Name, e.Reason)
}

// ToolNotFoundError is returned when no tool has the requested name.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}
