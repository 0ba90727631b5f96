package engine

import "github.com/rhuss/tooldrive/pkg/api"

const (
	defaultMaxIterations    = 5
	defaultMaxParallelTools = 4
)

// Config holds configuration for the orchestration engine.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// MaxIterations bounds the backend calls of one run. Zero or negative
	// means use the default of 5. A request value overrides it.
	MaxIterations int

	// MaxParallelTools bounds the tool calls of one turn that execute at
	// the same time. Zero or negative means use the default of 4.
	MaxParallelTools int

	// ManualApproval makes requests that leave auto_execute_tools unset
	// stop at the first tool request and return the pending calls.
	ManualApproval bool

	// Validation limits the accepted run requests.
	Validation api.ValidationConfig
}

func (c Config) maxIterations(req *api.RunRequest) int {
	if req.MaxIterations > 0 {
		return req.MaxIterations
	}
	if c.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) maxParallel() int {
	if c.MaxParallelTools <= 0 {
		return defaultMaxParallelTools
	}
	return c.MaxParallelTools
}

func (c Config) autoExecute(req *api.RunRequest) bool {
	if req.AutoExecuteTools != nil {
		return *req.AutoExecuteTools
	}
	return !c.ManualApproval
}
