// Package tools invokes catalog tools on behalf of the orchestration loop.
//
// The Invoker validates a tool call's arguments against the tool's input
// schema, applies safety limits (argument size, per-tool rate limits,
// control characters in shell or URL bound fields), dispatches the call
// through the tool's Binding and caps the output. Every outcome, including
// panics and timeouts inside a binding, is reported as an
// api.ToolExecutionResult; Invoke never returns an error.
//
// Subpackages provide the bindings: httpbind (HTTP endpoints), execbind
// (subprocesses) and mcp (tools served by MCP servers). FuncBinding adapts
// an in-process Go function.
package tools
