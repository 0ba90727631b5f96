package engine

import (
	"context"
	"sync"

	"github.com/rhuss/tooldrive/pkg/api"
)

// emitter delivers the events of one run. It holds the running sequence
// number; tool results of one turn are emitted from several goroutines,
// so sends are serialized. A nil emitter (blocking mode) drops everything.
type emitter struct {
	mu    sync.Mutex
	ctx   context.Context
	ch    chan<- api.Event
	runID string
	seq   int
	done  bool
}

func newEmitter(ctx context.Context, ch chan<- api.Event, runID string) *emitter {
	return &emitter{ctx: ctx, ch: ch, runID: runID}
}

// progress sends a non-terminal event. It gives up once ctx is done.
func (em *emitter) progress(ev api.Event) {
	if em == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.done || em.ctx.Err() != nil {
		return
	}
	em.stamp(&ev)
	select {
	case em.ch <- ev:
	case <-em.ctx.Done():
	}
}

// terminal sends the final event carrying a snapshot of run. It blocks
// until the consumer receives it and is a no-op after the first call.
func (em *emitter) terminal(typ api.EventType, run *api.Run) {
	if em == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.done {
		return
	}
	em.done = true
	ev := api.Event{Type: typ, Iteration: run.Iterations, Run: run.Snapshot()}
	em.stamp(&ev)
	em.ch <- ev
}

func (em *emitter) stamp(ev *api.Event) {
	ev.SequenceNumber = em.seq
	ev.RunID = em.runID
	em.seq++
}

func (em *emitter) contentDelta(iteration int, text string) {
	em.progress(api.Event{Type: api.EventContentDelta, Iteration: iteration, Delta: text})
}

func (em *emitter) toolCallsDetected(iteration int, calls []api.ToolCallRequest) {
	em.progress(api.Event{Type: api.EventToolCallsDetected, Iteration: iteration, ToolCalls: calls})
}

func (em *emitter) executingTools(iteration int, calls []api.ToolCallRequest) {
	em.progress(api.Event{Type: api.EventExecutingTools, Iteration: iteration, ToolCalls: calls})
}

func (em *emitter) toolResult(iteration int, result api.ToolExecutionResult) {
	em.progress(api.Event{Type: api.EventToolResult, Iteration: iteration, Result: &result})
}
