// Package mcp makes tools served by MCP (Model Context Protocol) servers
// available to the catalog.
//
// A Client connects to one server. Its tool listing is exposed as a
// catalog.Source, and every listed tool is bound to a Binding that forwards
// calls to the server with CallTool. The package wraps the official MCP Go
// SDK (github.com/modelcontextprotocol/go-sdk).
package mcp
