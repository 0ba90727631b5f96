// Package anthropic implements the backend adapter for the Anthropic
// Messages API using the official SDK.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// DefaultMaxTokens is sent when a request does not bound the output. The
// Messages API requires max_tokens on every call.
const DefaultMaxTokens = 4096

// Config holds configuration for the Anthropic adapter.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string

	// Timeout bounds each non-streaming request. Defaults to 120s.
	Timeout time.Duration

	// MaxTokens is used when a request leaves MaxTokens unset.
	MaxTokens int

	Pricing provider.Pricing
}

// Provider implements provider.Provider against the Messages API.
type Provider struct {
	client    sdk.Client
	timeout   time.Duration
	maxTokens int
	pricing   provider.Pricing
}

var _ provider.Provider = (*Provider)(nil)

// New creates an Anthropic adapter. The SDK's own retries are disabled;
// retries are applied once, by provider.WithRetry.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: APIKey is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:    sdk.NewClient(opts...),
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		pricing:   cfg.Pricing,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "anthropic" }

// Dialect returns the Anthropic tool dialect.
func (p *Provider) Dialect() schema.Dialect { return schema.DialectAnthropic }

// Close is a no-op; the SDK client holds no resources of its own.
func (p *Provider) Close() error { return nil }

// Complete sends one Messages request.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.TurnResult, error) {
	params, err := p.translate(req)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params, option.WithRequestTimeout(p.timeout))
	if err != nil {
		return nil, mapError(err)
	}
	return p.translateMessage(msg, req.Model), nil
}

// Stream opens a streaming Messages request. The first event is read
// before returning so that connection and HTTP errors surface as the
// Stream error, where the retry decorator can see them.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Delta, error) {
	params, err := p.translate(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err == nil {
			err = api.NewTransientBackendError("stream closed before the first event")
		}
		return nil, mapError(err)
	}

	ch := make(chan provider.Delta, 16)
	go func() {
		defer close(ch)
		defer stream.Close()

		st := newStreamState(ctx, ch, p, req.Model)
		for ok := true; ok; ok = stream.Next() {
			if !st.handle(stream.Current()) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			provider.Send(ctx, ch, provider.Delta{Type: provider.DeltaError, Err: mapError(err)})
			return
		}
		st.complete()
	}()
	return ch, nil
}

// translateMessage converts a complete Messages response into a TurnResult.
func (p *Provider) translateMessage(msg *sdk.Message, model string) *provider.TurnResult {
	res := &provider.TurnResult{
		Model: string(msg.Model),
		Usage: api.Usage{
			PromptUnits:     int(msg.Usage.InputTokens),
			CompletionUnits: int(msg.Usage.OutputTokens),
		},
	}
	if res.Model == "" {
		res.Model = model
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case sdk.TextBlock:
			text.WriteString(b.Text)
		case sdk.ToolUseBlock:
			id := b.ID
			if id == "" {
				id = api.NewCallID()
			}
			res.ToolCalls = append(res.ToolCalls, api.NewToolCallRequest(id, b.Name, string(b.Input)))
		}
	}
	res.Text = text.String()
	res.FinishReason = provider.NormalizeFinish(mapStopReason(msg.StopReason), len(res.ToolCalls))
	res.Cost = p.pricing.Cost(res.Model, res.Usage)
	return res
}

// mapStopReason converts an Anthropic stop reason to a FinishReason.
func mapStopReason(reason sdk.StopReason) api.FinishReason {
	switch reason {
	case sdk.StopReasonToolUse:
		return api.FinishReasonToolCallsPending
	case sdk.StopReasonMaxTokens:
		return api.FinishReasonLengthLimit
	case "refusal":
		return api.FinishReasonContentFiltered
	default:
		return api.FinishReasonStop
	}
}
