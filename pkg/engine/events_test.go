package engine

import (
	"context"
	"testing"

	"github.com/rhuss/tooldrive/pkg/api"
)

func TestEmitterSequenceNumbers(t *testing.T) {
	ch := make(chan api.Event, 8)
	em := newEmitter(context.Background(), ch, "run_1")

	em.contentDelta(1, "a")
	em.toolCallsDetected(1, nil)
	em.terminal(api.EventTurnComplete, &api.Run{ID: "run_1"})
	em.contentDelta(1, "late")
	em.terminal(api.EventAborted, &api.Run{ID: "run_1"})
	close(ch)

	var got []api.Event
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, ev := range got {
		if ev.SequenceNumber != i || ev.RunID != "run_1" {
			t.Errorf("event %d: seq=%d run=%q", i, ev.SequenceNumber, ev.RunID)
		}
	}
	if got[2].Type != api.EventTurnComplete {
		t.Errorf("terminal = %s", got[2].Type)
	}
}

func TestEmitterDropsProgressAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan api.Event, 1)
	em := newEmitter(ctx, ch, "run_1")
	cancel()

	em.contentDelta(1, "dropped")
	em.terminal(api.EventAborted, &api.Run{})

	ev := <-ch
	if ev.Type != api.EventAborted || ev.SequenceNumber != 0 {
		t.Errorf("got %s seq %d, want the terminal event only", ev.Type, ev.SequenceNumber)
	}
}

func TestNilEmitterIsNoop(t *testing.T) {
	var em *emitter
	em.contentDelta(1, "x")
	em.toolResult(1, api.ToolExecutionResult{})
	em.terminal(api.EventTurnComplete, &api.Run{})
}

func TestTerminalEventCarriesSnapshot(t *testing.T) {
	ch := make(chan api.Event, 1)
	em := newEmitter(context.Background(), ch, "run_1")
	run := &api.Run{History: []api.Message{{Role: api.RoleUser, Content: "hi"}}}

	em.terminal(api.EventTurnComplete, run)
	run.History[0].Content = "changed"

	ev := <-ch
	if ev.Run == run || ev.Run.History[0].Content != "hi" {
		t.Error("terminal event must not alias the live run")
	}
}
