package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/debug"
	"github.com/rhuss/tooldrive/pkg/observability"
)

// Config holds the Invoker limits.
type Config struct {
	// MaxArgumentBytes caps the JSON size of a call's arguments.
	MaxArgumentBytes int

	// MaxResultBytes caps the output placed into the conversation.
	MaxResultBytes int

	// Timeout bounds a single binding call.
	Timeout time.Duration

	// RateLimit applies to every tool without an override.
	RateLimit RateLimit

	// ToolRateLimits overrides RateLimit per tool name.
	ToolRateLimits map[string]RateLimit
}

// DefaultConfig returns the default Invoker limits.
func DefaultConfig() Config {
	return Config{
		MaxArgumentBytes: 64 * 1024,
		MaxResultBytes:   32 * 1024,
		Timeout:          30 * time.Second,
	}
}

// Invoker executes tool calls. It is safe for concurrent use.
type Invoker struct {
	cfg      Config
	limiters *limiterSet
}

// NewInvoker creates an Invoker. Zero limits in cfg take their defaults;
// rate limiting stays disabled unless configured.
func NewInvoker(cfg Config) *Invoker {
	def := DefaultConfig()
	if cfg.MaxArgumentBytes <= 0 {
		cfg.MaxArgumentBytes = def.MaxArgumentBytes
	}
	if cfg.MaxResultBytes <= 0 {
		cfg.MaxResultBytes = def.MaxResultBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Invoker{
		cfg:      cfg,
		limiters: newLimiterSet(cfg.RateLimit, cfg.ToolRateLimits),
	}
}

// Invoke runs one tool call and reports its outcome. Invalid arguments and
// safety violations produce a failed result with zero duration. Binding
// failures, timeouts and panics produce a failed result with the measured
// duration.
func (inv *Invoker) Invoke(ctx context.Context, tool catalog.Tool, call api.ToolCallRequest) api.ToolExecutionResult {
	if err := inv.validate(tool, call); err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(tool.Name, "invalid").Inc()
		return api.Failed(call, "invalid arguments: "+err.Error())
	}

	if err := inv.checkSafety(tool, call); err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(tool.Name, "rejected").Inc()
		return api.Failed(call, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	debug.Log("tools", "invoking tool", "tool", tool.Name, "call_id", call.ID, "source", tool.Source)

	start := time.Now()
	output, err := dispatch(ctx, tool, call.Arguments)
	duration := time.Since(start)
	observability.ToolDuration.WithLabelValues(tool.Name).Observe(duration.Seconds())

	result := api.ToolExecutionResult{
		CallID:   call.ID,
		ToolName: tool.Name,
		Duration: duration,
	}

	if err != nil {
		status := "error"
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Sprintf("tool %s timed out after %s", tool.Name, inv.cfg.Timeout)
			status = "timeout"
		case errors.Is(ctx.Err(), context.Canceled):
			result.Error = fmt.Sprintf("tool %s was cancelled", tool.Name)
			status = "cancelled"
		default:
			var pe *panicError
			if errors.As(err, &pe) {
				status = "panic"
			}
			result.Error = Summarize(err)
		}
		slog.Warn("tool execution error",
			"tool", tool.Name,
			"call_id", call.ID,
			"status", status,
			"error", err,
		)
		observability.ToolExecutionsTotal.WithLabelValues(tool.Name, status).Inc()
		return result
	}

	result.Success = true
	result.Output = Truncate(output, inv.cfg.MaxResultBytes)
	debug.Log("tools", "tool succeeded",
		"tool", tool.Name,
		"call_id", call.ID,
		"duration_ms", result.DurationMs(),
		"output_bytes", len(output),
	)
	observability.ToolExecutionsTotal.WithLabelValues(tool.Name, "success").Inc()
	return result
}

// validate checks the call arguments against the tool's input schema and
// returns the first failure.
func (inv *Invoker) validate(tool catalog.Tool, call api.ToolCallRequest) error {
	if call.Arguments == nil {
		return &ValidationError{Message: "arguments must be a JSON object"}
	}
	if tool.InputSchema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(map[string]any(tool.InputSchema)),
		gojsonschema.NewGoLoader(call.Arguments),
	)
	if err != nil {
		return &ValidationError{Message: "schema cannot be evaluated: " + err.Error()}
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := first.Field()
	if field == "(root)" {
		field = ""
	}
	return &ValidationError{Field: field, Message: first.Description()}
}

// checkSafety applies the argument size ceiling and the control character
// rules before it takes a token from the tool's rate limiter.
func (inv *Invoker) checkSafety(tool catalog.Tool, call api.ToolCallRequest) error {
	if size := len(call.ArgumentsJSON()); size > inv.cfg.MaxArgumentBytes {
		return &ValidationError{
			Message: fmt.Sprintf("arguments size %d bytes exceeds the limit of %d bytes", size, inv.cfg.MaxArgumentBytes),
		}
	}

	if exp, ok := tool.Binding.(Exposer); ok {
		if err := checkExposed(exp.Exposure(), call.Arguments); err != nil {
			return err
		}
	}

	if !inv.limiters.allow(tool.Name) {
		observability.ToolRateLimitRejectedTotal.WithLabelValues(tool.Name).Inc()
		return &ValidationError{Message: fmt.Sprintf("rate limit exceeded for tool %s", tool.Name)}
	}
	return nil
}

// panicError carries a recovered binding panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("internal error: tool panicked: %v", e.value)
}

// dispatch calls the binding and converts a panic into an error.
func dispatch(ctx context.Context, tool catalog.Tool, args map[string]any) (output string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool binding panicked",
				"tool", tool.Name,
				"panic", rec,
			)
			output = ""
			err = &panicError{value: rec}
		}
	}()
	return tool.Binding.Invoke(ctx, args)
}
