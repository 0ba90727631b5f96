// Package api defines the core data model of the tooldrive orchestration
// engine: conversation messages, tool call requests and results, runs,
// streaming events, the error taxonomy, run phase transitions, and ID
// generation.
//
// The package performs no I/O. All types serialize to JSON so runs and
// events can be handed to external collaborators unchanged.
//
// Core types:
//   - [Message]: One conversation entry (system, user, assistant, tool)
//   - [ToolCallRequest]: A model's request to invoke a named tool
//   - [ToolExecutionResult]: The outcome of one tool invocation
//   - [RunRequest]: Caller input for one run of the loop
//   - [Run]: The run transcript, counters, cost, and terminal state
//   - [Event]: A streaming event emitted while a run progresses
//   - [APIError]: Structured error carrying the failure category
package api
