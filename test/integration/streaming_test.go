package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/tooldrive/pkg/api"
)

func TestStreamingRoundTrip(t *testing.T) {
	resp := postRun(t, api.RunRequest{Prompt: "What is the weather in Lisbon?", Stream: true})
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
	events := readEvents(t, resp)
	if len(events) == 0 {
		t.Fatal("no events")
	}

	var types []api.EventType
	var text strings.Builder
	for i, ev := range events {
		if ev.SequenceNumber != i {
			t.Errorf("event %d has sequence number %d", i, ev.SequenceNumber)
		}
		if ev.RunID != events[0].RunID {
			t.Errorf("event %d has run id %q, want %q", i, ev.RunID, events[0].RunID)
		}
		if ev.Type == api.EventContentDelta {
			text.WriteString(ev.Delta)
		}
		if len(types) == 0 || types[len(types)-1] != ev.Type {
			types = append(types, ev.Type)
		}
	}

	want := []api.EventType{
		api.EventToolCallsDetected,
		api.EventExecutingTools,
		api.EventToolResult,
		api.EventContentDelta,
		api.EventTurnComplete,
	}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event type[%d] = %q, want %q", i, types[i], want[i])
		}
	}

	if text.String() != "Result: Sunny, 21C in Lisbon" {
		t.Errorf("streamed text = %q", text.String())
	}

	last := events[len(events)-1]
	if last.Run == nil || last.Run.Status != api.RunStatusCompleted {
		t.Fatalf("terminal run = %+v", last.Run)
	}
	if last.Run.FinalText != text.String() {
		t.Errorf("final text %q differs from streamed text %q", last.Run.FinalText, text.String())
	}
}

func TestStreamingIterationLimit(t *testing.T) {
	events := readEvents(t, postRun(t, api.RunRequest{Model: "mock-loop", Prompt: "weather in Oslo", MaxIterations: 1, Stream: true}))

	last := events[len(events)-1]
	if last.Type != api.EventAborted {
		t.Fatalf("last event = %q, want aborted", last.Type)
	}
	if last.Run.AbortReason != api.AbortReasonIterationLimit {
		t.Errorf("abort reason = %q, want iteration_limit", last.Run.AbortReason)
	}

	terminals := 0
	for _, ev := range events {
		if api.IsTerminal(ev.Type) {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("terminal events = %d, want 1", terminals)
	}
}

func TestStreamingBackendError(t *testing.T) {
	resp := postRun(t, api.RunRequest{Model: "mock-unauthorized", Prompt: "hi", Stream: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d once streaming started", resp.StatusCode, http.StatusOK)
	}
	events := readEvents(t, resp)

	if len(events) != 1 || events[0].Type != api.EventAborted {
		t.Fatalf("events = %+v, want a single aborted event", events)
	}
	run := events[0].Run
	if run.AbortReason != api.AbortReasonBackendError || run.Error == nil || run.Error.Type != api.ErrorTypeAuthentication {
		t.Errorf("run = %+v, want backend_error with an authentication error", run)
	}
}
