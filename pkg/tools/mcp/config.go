package mcp

import "time"

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical name for this server, used for logging and as
	// the catalog source name ("mcp:<name>").
	Name string `yaml:"name" json:"name"`

	// Transport is the transport type to use: "sse" or "streamable-http".
	// If empty, defaults to "streamable-http".
	Transport string `yaml:"transport" json:"transport"`

	// URL is the MCP server endpoint URL.
	URL string `yaml:"url" json:"url"`

	// Headers contains additional HTTP headers to send with requests,
	// typically used for authentication (API keys, bearer tokens, etc.).
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// ConnectTimeout bounds the protocol handshake. Zero means 10s.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}
