package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxPromptSize    int
	MaxIterationsCap int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxPromptSize:    1024 * 1024, // 1MB
		MaxIterationsCap: 50,
	}
}

// ValidateRunRequest checks a RunRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the
// request is valid.
func ValidateRunRequest(req *RunRequest, cfg ValidationConfig) *APIError {
	if req == nil {
		return NewInvalidRequestError("", "request is required")
	}

	if req.Prompt == "" {
		return NewInvalidRequestError("prompt", "prompt is required")
	}

	if cfg.MaxPromptSize > 0 && len(req.Prompt)+len(req.SystemPrompt) > cfg.MaxPromptSize {
		return NewInvalidRequestError("prompt",
			fmt.Sprintf("prompt exceeds maximum size of %d bytes", cfg.MaxPromptSize))
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	if req.MaxIterations < 0 {
		return NewInvalidRequestError("max_iterations", "max_iterations must not be negative")
	}

	if cfg.MaxIterationsCap > 0 && req.MaxIterations > cfg.MaxIterationsCap {
		return NewInvalidRequestError("max_iterations",
			fmt.Sprintf("max_iterations exceeds maximum of %d", cfg.MaxIterationsCap))
	}

	return nil
}
