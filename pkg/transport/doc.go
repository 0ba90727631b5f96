// Package transport defines the handler interfaces and middleware chain for
// the tooldrive HTTP/SSE transport layer.
//
// The transport layer deserializes incoming run requests into the types
// defined in pkg/api, dispatches them to a RunCreator, and serializes the
// outcome back to the client either as a single JSON run (blocking mode)
// or as a server-sent event stream (streaming mode).
//
// # Handler Interfaces
//
//   - RunCreator handles the create-run operation.
//   - ToolLister exposes the frozen tool catalog for listing.
//
// The ResponseWriter interface abstracts streaming and non-streaming output,
// allowing the handler to emit SSE events or a complete JSON run without
// knowing the underlying transport protocol.
//
// # Middleware
//
// The middleware chain wraps RunCreator with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog. RunTracker
// contributes the innermost middleware: it assigns the run ID and keeps
// the run listable and cancellable until the handler returns.
package transport
