// Package config provides unified configuration for the tooldrive server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TOOLDRIVE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
	"github.com/rhuss/tooldrive/pkg/tools"
	"github.com/rhuss/tooldrive/pkg/tools/mcp"
)

// Config holds all configuration for the tooldrive server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Engine        EngineConfig        `yaml:"engine"`
	Invoker       InvokerConfig       `yaml:"invoker"`
	Tools         []ToolConfig        `yaml:"tools"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// BackendConfig selects and configures the model backend adapter.
type BackendConfig struct {
	Provider     string           `yaml:"provider"`      // "openai", "anthropic" or "gemini", default: "openai"
	BaseURL      string           `yaml:"base_url"`      // required for openai
	APIKey       string           `yaml:"api_key"`       // required for anthropic and gemini
	APIKeyFile   string           `yaml:"api_key_file"`  // _file variant for api_key
	Timeout      time.Duration    `yaml:"timeout"`       // default: 120s
	DefaultModel string           `yaml:"default_model"` // optional
	MaxTokens    int              `yaml:"max_tokens"`    // optional
	Pricing      provider.Pricing `yaml:"pricing"`
}

// EngineConfig holds orchestration loop settings.
type EngineConfig struct {
	MaxIterations    int                  `yaml:"max_iterations"`     // default: 5
	MaxParallelTools int                  `yaml:"max_parallel_tools"` // default: 4
	AutoExecuteTools bool                 `yaml:"auto_execute_tools"` // default: true
	Retry            provider.RetryPolicy `yaml:"retry"`
}

// InvokerConfig holds the tool execution limits.
type InvokerConfig struct {
	MaxArgumentBytes int                        `yaml:"max_argument_bytes"` // default: 64 KiB
	MaxResultBytes   int                        `yaml:"max_result_bytes"`   // default: 32 KiB
	Timeout          time.Duration              `yaml:"timeout"`            // default: 30s
	RatePerSecond    float64                    `yaml:"rate_per_second"`    // 0 disables limiting
	Burst            int                        `yaml:"burst"`
	ToolRateLimits   map[string]tools.RateLimit `yaml:"tool_rate_limits"`
}

// ToolConfig is a static tool record. Exactly one of HTTP and Exec
// describes how the tool is invoked.
type ToolConfig struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Operation   schema.Operation `yaml:",inline"`
	HTTP        *HTTPToolConfig  `yaml:"http,omitempty"`
	Exec        *ExecToolConfig  `yaml:"exec,omitempty"`
}

// HTTPToolConfig invokes a tool with an HTTP request.
type HTTPToolConfig struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// ExecToolConfig invokes a tool by running a command.
type ExecToolConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	Dir     string   `yaml:"dir"`
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []mcp.ServerConfig `yaml:"servers"`
}

// ObservabilityConfig holds logging and monitoring settings.
type ObservabilityConfig struct {
	LogLevel  string        `yaml:"log_level"`  // "trace", "debug", "info", "warn" or "error", default: "info"
	LogFormat string        `yaml:"log_format"` // "text" or "json", default: "text"
	Debug     string        `yaml:"debug"`      // comma-separated debug categories, e.g. "providers,engine"
	Metrics   MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Provider: "openai",
			Timeout:  120 * time.Second,
		},
		Engine: EngineConfig{
			MaxIterations:    5,
			MaxParallelTools: 4,
			AutoExecuteTools: true,
			Retry:            provider.DefaultRetryPolicy(),
		},
		Invoker: InvokerConfig{
			MaxArgumentBytes: 64 * 1024,
			MaxResultBytes:   32 * 1024,
			Timeout:          30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
	}
}

// InvokerLimits converts the invoker section into tools.Config.
func (c InvokerConfig) InvokerLimits() tools.Config {
	return tools.Config{
		MaxArgumentBytes: c.MaxArgumentBytes,
		MaxResultBytes:   c.MaxResultBytes,
		Timeout:          c.Timeout,
		RateLimit: tools.RateLimit{
			PerSecond: c.RatePerSecond,
			Burst:     c.Burst,
		},
		ToolRateLimits: c.ToolRateLimits,
	}
}
