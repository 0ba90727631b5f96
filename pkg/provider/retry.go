package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/observability"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// RetryPolicy bounds the retries applied at the adapter boundary.
type RetryPolicy struct {
	MaxRetries    int           `yaml:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	JitterPercent uint64        `yaml:"jitter_percent"`
}

// DefaultRetryPolicy returns the policy used when configuration leaves it
// unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		JitterPercent: 10,
	}
}

// WithRetry decorates p so that rate limited and transient errors from
// Complete, and from opening a Stream, are retried with exponential
// backoff. Once a stream is open its deltas are passed through untouched.
// A zero MaxRetries returns p unchanged.
func WithRetry(p Provider, policy RetryPolicy) Provider {
	if policy.MaxRetries <= 0 {
		return p
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	return &retrying{next: p, policy: policy}
}

type retrying struct {
	next   Provider
	policy RetryPolicy
}

func (r *retrying) Name() string            { return r.next.Name() }
func (r *retrying) Dialect() schema.Dialect { return r.next.Dialect() }
func (r *retrying) Close() error            { return r.next.Close() }

func (r *retrying) Complete(ctx context.Context, req *Request) (*TurnResult, error) {
	return retryCall(ctx, r, "complete", func(ctx context.Context) (*TurnResult, error) {
		return r.next.Complete(ctx, req)
	})
}

func (r *retrying) Stream(ctx context.Context, req *Request) (<-chan Delta, error) {
	return retryCall(ctx, r, "stream", func(ctx context.Context) (<-chan Delta, error) {
		return r.next.Stream(ctx, req)
	})
}

func retryCall[T any](ctx context.Context, r *retrying, op string, fn retry.RetryFuncValue[T]) (T, error) {
	hint := &retryAfterHint{}
	attempt := 0
	return retry.DoValue(ctx, r.backoff(hint), func(ctx context.Context) (T, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		var apiErr *api.APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return v, err
		}
		hint.set(apiErr.RetryAfter)
		observability.ProviderRetriesTotal.WithLabelValues(r.next.Name(), string(apiErr.Type)).Inc()
		slog.Warn("backend call failed, retrying",
			"provider", r.next.Name(),
			"op", op,
			"attempt", attempt,
			"error_type", apiErr.Type,
			"error", apiErr.Message,
		)
		return v, retry.RetryableError(err)
	})
}

// backoff builds a fresh exponential schedule for one call. A pending
// Retry-After hint replaces the computed delay of the next attempt.
func (r *retrying) backoff(hint *retryAfterHint) retry.Backoff {
	b := retry.NewExponential(r.policy.BaseDelay)
	if r.policy.JitterPercent > 0 {
		b = retry.WithJitterPercent(r.policy.JitterPercent, b)
	}
	b = retry.WithCappedDuration(r.policy.MaxDelay, b)
	b = retry.WithMaxRetries(uint64(r.policy.MaxRetries), b)
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if stop {
			return 0, true
		}
		if h := hint.take(); h > 0 {
			d = h
		}
		return d, false
	})
}

type retryAfterHint struct {
	mu sync.Mutex
	d  time.Duration
}

func (h *retryAfterHint) set(d time.Duration) {
	h.mu.Lock()
	h.d = d
	h.mu.Unlock()
}

func (h *retryAfterHint) take() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.d
	h.d = 0
	return d
}
