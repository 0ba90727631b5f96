// Package engine implements the orchestration loop of tooldrive. The
// Engine alternates between asking a provider.Provider for a turn and
// executing the tool calls that turn requests through the tool catalog
// and invoker, until the backend answers without tools, an iteration
// bound is reached, the caller cancels, or the backend fails fatally.
//
// Both modes share one state machine (api.Phase). Run returns the
// finished api.Run; Stream delivers api.Event values as the run advances
// and closes the channel after exactly one terminal event. The Engine
// also implements transport.RunCreator so it can be mounted directly
// behind the HTTP adapter.
package engine
