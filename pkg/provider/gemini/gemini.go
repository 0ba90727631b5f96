// Package gemini implements the backend adapter for the Google Gemini API
// using the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// Config holds configuration for the Gemini adapter.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string

	// Timeout bounds each non-streaming request. Defaults to 120s.
	Timeout time.Duration

	// MaxTokens is used when a request leaves MaxTokens unset. Zero lets
	// the backend decide.
	MaxTokens int

	Pricing provider.Pricing

	// HTTPClient overrides the SDK's default client.
	HTTPClient *http.Client
}

// Provider implements provider.Provider against the Gemini API.
type Provider struct {
	client    *genai.Client
	timeout   time.Duration
	maxTokens int
	pricing   provider.Pricing
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Gemini adapter.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: APIKey is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Provider{
		client:    gc,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		pricing:   cfg.Pricing,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Dialect returns the Gemini function-declaration dialect.
func (p *Provider) Dialect() schema.Dialect { return schema.DialectGemini }

// Close is a no-op; the SDK client holds no resources of its own.
func (p *Provider) Close() error { return nil }

// Complete sends one GenerateContent request.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.TurnResult, error) {
	contents, config, err := p.translate(req)
	if err != nil {
		return nil, err
	}
	timeout := p.timeout
	config.HTTPOptions = &genai.HTTPOptions{Timeout: &timeout}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, mapError(err)
	}

	var t turn
	t.add(resp)
	return t.result(p.pricing, req.Model), nil
}

// Stream opens a GenerateContentStream request. The first chunk is pulled
// before returning so that connection and HTTP errors surface as the
// Stream error.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Delta, error) {
	contents, config, err := p.translate(req)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(ctx, req.Model, contents, config))
	first, err, ok := next()
	if err != nil {
		stop()
		return nil, mapError(err)
	}
	if !ok {
		stop()
		return nil, api.NewTransientBackendError("stream closed before the first chunk")
	}

	ch := make(chan provider.Delta, 16)
	go func() {
		defer close(ch)
		defer stop()

		var t turn
		for resp := first; ; {
			text := t.add(resp)
			if text != "" && !provider.Send(ctx, ch, provider.Delta{Type: provider.DeltaText, Text: text}) {
				return
			}

			var err error
			resp, err, ok = next()
			if !ok {
				break
			}
			if err != nil {
				if ctx.Err() == nil {
					provider.Send(ctx, ch, provider.Delta{Type: provider.DeltaError, Err: mapError(err)})
				}
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		res := t.result(p.pricing, req.Model)
		for i := range res.ToolCalls {
			call := res.ToolCalls[i]
			if !provider.Send(ctx, ch, provider.Delta{
				Type:     provider.DeltaToolCall,
				CallID:   call.ID,
				ToolName: call.Name,
				ToolCall: &call,
			}) {
				return
			}
		}
		provider.Send(ctx, ch, provider.Delta{
			Type:         provider.DeltaFinish,
			FinishReason: res.FinishReason,
			Usage:        res.Usage,
			Cost:         res.Cost,
			Model:        res.Model,
		})
	}()
	return ch, nil
}

// turn accumulates one or more GenerateContent responses. Gemini sends
// function calls whole, so no argument buffering is needed.
type turn struct {
	text    strings.Builder
	calls   []api.ToolCallRequest
	finish  genai.FinishReason
	blocked bool
	usage   api.Usage
	model   string
}

// add folds resp into the turn and returns the text it contributed.
func (t *turn) add(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.ModelVersion != "" {
		t.model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		t.usage = api.Usage{
			PromptUnits:     int(u.PromptTokenCount),
			CompletionUnits: int(u.CandidatesTokenCount + u.ThoughtsTokenCount),
		}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		t.blocked = true
	}
	if len(resp.Candidates) == 0 {
		return ""
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		t.finish = cand.FinishReason
	}
	if cand.Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		switch {
		case part == nil || part.Thought:
		case part.FunctionCall != nil:
			t.calls = append(t.calls, toolCall(part.FunctionCall))
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}
	t.text.WriteString(text.String())
	return text.String()
}

func (t *turn) result(pricing provider.Pricing, model string) *provider.TurnResult {
	res := &provider.TurnResult{
		Text:      t.text.String(),
		ToolCalls: t.calls,
		Usage:     t.usage,
		Model:     t.model,
	}
	if res.Model == "" {
		res.Model = model
	}
	reason := mapFinishReason(t.finish)
	if t.blocked {
		reason = api.FinishReasonContentFiltered
	}
	res.FinishReason = provider.NormalizeFinish(reason, len(res.ToolCalls))
	res.Cost = pricing.Cost(res.Model, res.Usage)
	return res
}

func toolCall(fc *genai.FunctionCall) api.ToolCallRequest {
	id := fc.ID
	if id == "" {
		id = api.NewCallID()
	}
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	call := api.ToolCallRequest{ID: id, Name: fc.Name, Arguments: args}
	call.RawArguments = call.ArgumentsJSON()
	return call
}

// mapFinishReason converts a Gemini finish reason. A plain STOP is
// returned as stop; provider.NormalizeFinish turns it into
// tool_calls_pending when the turn carries function calls.
func mapFinishReason(reason genai.FinishReason) api.FinishReason {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return api.FinishReasonLengthLimit
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonImageSafety:
		return api.FinishReasonContentFiltered
	default:
		return api.FinishReasonStop
	}
}

// mapError classifies SDK errors into the api error taxonomy.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return provider.ClassifyStatus(apiErr.Code, apiErr.Message, "")
	}
	return provider.ClassifyNetworkError(err)
}
