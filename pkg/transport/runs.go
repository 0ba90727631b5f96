package transport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/observability"
)

// RunInfo describes a run that is currently executing.
type RunInfo struct {
	ID        string    `json:"id"`
	Model     string    `json:"model,omitempty"`
	Stream    bool      `json:"stream"`
	RequestID string    `json:"request_id,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

type trackedRun struct {
	info   RunInfo
	cancel context.CancelFunc
}

// RunTracker records blocking and streaming runs from the moment they
// start until they return, so they can be listed and cancelled by ID.
// It is safe for concurrent use.
type RunTracker struct {
	mu   sync.Mutex
	runs map[string]*trackedRun
}

// NewRunTracker creates an empty tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{runs: make(map[string]*trackedRun)}
}

// Middleware returns middleware that assigns the run ID (unless ctx
// already carries a valid one), tracks the run under it and hands the
// handler a context that Cancel can end.
func (t *RunTracker) Middleware() Middleware {
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w ResponseWriter) error {
			id := RunIDFromContext(ctx)
			if !api.ValidateRunID(id) {
				id = api.NewRunID()
				ctx = ContextWithRunID(ctx, id)
			}
			ctx, done := t.start(ctx, RunInfo{
				ID:        id,
				Model:     req.Model,
				Stream:    req.Stream,
				RequestID: RequestIDFromContext(ctx),
				StartedAt: time.Now(),
			})
			defer done()
			return next.CreateRun(ctx, req, w)
		})
	}
}

func (t *RunTracker) start(ctx context.Context, info RunInfo) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.runs[info.ID] = &trackedRun{info: info, cancel: cancel}
	t.mu.Unlock()

	gauge := observability.RunsInFlight.WithLabelValues(runMode(info.Stream))
	gauge.Inc()

	return ctx, func() {
		t.mu.Lock()
		if tr, ok := t.runs[info.ID]; ok && tr.info.StartedAt.Equal(info.StartedAt) {
			delete(t.runs, info.ID)
		}
		t.mu.Unlock()
		gauge.Dec()
		cancel()
	}
}

// Cancel ends the run's context. The run itself finishes as
// aborted/cancelled and is delivered to its own client. Cancel reports
// false when no run with the ID is executing.
func (t *RunTracker) Cancel(id string) bool {
	t.mu.Lock()
	tr, ok := t.runs[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	tr.cancel()
	return true
}

// Active returns the executing runs, oldest first.
func (t *RunTracker) Active() []RunInfo {
	t.mu.Lock()
	out := make([]RunInfo, 0, len(t.runs))
	for _, tr := range t.runs {
		out = append(out, tr.info)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func runMode(stream bool) string {
	if stream {
		return "streaming"
	}
	return "blocking"
}
