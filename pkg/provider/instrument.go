package provider

import (
	"context"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/observability"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// Instrument decorates p with request, latency and token metrics.
func Instrument(p Provider) Provider {
	return &instrumented{next: p}
}

type instrumented struct {
	next Provider
}

func (i *instrumented) Name() string            { return i.next.Name() }
func (i *instrumented) Dialect() schema.Dialect { return i.next.Dialect() }
func (i *instrumented) Close() error            { return i.next.Close() }

func (i *instrumented) Complete(ctx context.Context, req *Request) (*TurnResult, error) {
	start := time.Now()
	res, err := i.next.Complete(ctx, req)
	model := req.Model
	if res != nil && res.Model != "" {
		model = res.Model
	}
	var usage api.Usage
	if res != nil {
		usage = res.Usage
	}
	i.record(model, start, usage, err)
	return res, err
}

func (i *instrumented) Stream(ctx context.Context, req *Request) (<-chan Delta, error) {
	start := time.Now()
	in, err := i.next.Stream(ctx, req)
	if err != nil {
		i.record(req.Model, start, api.Usage{}, err)
		return nil, err
	}
	out := make(chan Delta, cap(in))
	go func() {
		defer close(out)
		for d := range in {
			switch d.Type {
			case DeltaFinish:
				model := req.Model
				if d.Model != "" {
					model = d.Model
				}
				i.record(model, start, d.Usage, nil)
			case DeltaError:
				i.record(req.Model, start, api.Usage{}, d.Err)
			}
			if !Send(ctx, out, d) {
				// Drain so the adapter goroutine can exit.
				for range in {
				}
				return
			}
		}
	}()
	return out, nil
}

func (i *instrumented) record(model string, start time.Time, usage api.Usage, err error) {
	status := "success"
	if err != nil {
		status = string(api.AsAPIError(err).Type)
	}
	name := i.next.Name()
	observability.ProviderRequestsTotal.WithLabelValues(name, model, status).Inc()
	observability.ProviderLatency.WithLabelValues(name, model).Observe(time.Since(start).Seconds())
	if usage.PromptUnits > 0 {
		observability.ProviderTokensTotal.WithLabelValues(name, model, "input").Add(float64(usage.PromptUnits))
	}
	if usage.CompletionUnits > 0 {
		observability.ProviderTokensTotal.WithLabelValues(name, model, "output").Add(float64(usage.CompletionUnits))
	}
}

// Send delivers d on ch unless ctx is done first. It reports whether the
// value was delivered.
func Send(ctx context.Context, ch chan<- Delta, d Delta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
