package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Backend.Provider {
	case "openai":
		if c.Backend.BaseURL == "" {
			errs = append(errs, errors.New("backend.base_url is required for provider \"openai\""))
		}
	case "anthropic", "gemini":
		if c.Backend.APIKey == "" && c.Backend.APIKeyFile == "" {
			errs = append(errs, fmt.Errorf("backend.api_key or backend.api_key_file is required for provider %q", c.Backend.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.provider must be \"openai\", \"anthropic\" or \"gemini\", got %q", c.Backend.Provider))
	}

	if c.Engine.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("engine.max_iterations must be >= 1, got %d", c.Engine.MaxIterations))
	}
	if c.Engine.MaxParallelTools < 1 {
		errs = append(errs, fmt.Errorf("engine.max_parallel_tools must be >= 1, got %d", c.Engine.MaxParallelTools))
	}
	if c.Engine.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("engine.retry.max_retries must be >= 0, got %d", c.Engine.Retry.MaxRetries))
	}

	if c.Invoker.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("invoker.rate_per_second must be >= 0, got %v", c.Invoker.RatePerSecond))
	}

	seen := make(map[string]bool)
	for i, t := range c.Tools {
		path := fmt.Sprintf("tools[%d]", i)
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", path))
		} else if seen[t.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is declared more than once", path, t.Name))
		}
		seen[t.Name] = true

		switch {
		case t.HTTP == nil && t.Exec == nil:
			errs = append(errs, fmt.Errorf("%s needs an http or exec binding", path))
		case t.HTTP != nil && t.Exec != nil:
			errs = append(errs, fmt.Errorf("%s: http and exec are mutually exclusive", path))
		case t.HTTP != nil && t.HTTP.URL == "":
			errs = append(errs, fmt.Errorf("%s.http.url is required", path))
		case t.Exec != nil && t.Exec.Command == "":
			errs = append(errs, fmt.Errorf("%s.exec.command is required", path))
		}
	}

	for i, s := range c.MCP.Servers {
		path := fmt.Sprintf("mcp.servers[%d]", i)
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", path))
		}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required", path))
		}
		switch s.Transport {
		case "", "sse", "streamable-http":
		default:
			errs = append(errs, fmt.Errorf("%s.transport must be \"sse\" or \"streamable-http\", got %q", path, s.Transport))
		}
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("observability.log_level must be trace, debug, info, warn or error, got %q", c.Observability.LogLevel))
	}
	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("observability.log_format must be \"text\" or \"json\", got %q", c.Observability.LogFormat))
	}

	return errors.Join(errs...)
}
