// Package catalog holds the validated set of tools a run may call.
//
// A Catalog is filled once at startup, from static configuration and from
// tool sources such as MCP servers, and then frozen. A frozen catalog is
// shared read-only by every concurrent run.
package catalog
