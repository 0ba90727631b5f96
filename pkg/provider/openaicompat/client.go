package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/debug"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/schema"
)

// Config holds configuration for an OpenAI-compatible backend.
type Config struct {
	// BaseURL is the server URL without the /v1 suffix
	// (e.g., "http://localhost:8000").
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout for non-streaming requests. Defaults to 120s.
	Timeout time.Duration

	// Pricing computes the cost of each turn.
	Pricing provider.Pricing

	// HTTPClient overrides the default client (tests, custom transports).
	HTTPClient *http.Client
}

// Client implements provider.Provider against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pricing    provider.Pricing
}

var _ provider.Provider = (*Client)(nil)

// NewClient creates a new Client for an OpenAI-compatible backend.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		pricing:    cfg.Pricing,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "openai" }

// Dialect returns the OpenAI function-tool dialect.
func (c *Client) Dialect() schema.Dialect { return schema.DialectOpenAI }

// Complete performs non-streaming inference against the Chat Completions endpoint.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.TurnResult, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, provider.ClassifyNetworkError(err)
	}
	defer httpResp.Body.Close()

	debug.Log("providers", "chat completion response", "status", httpResp.StatusCode)
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewTransientBackendError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	res, err := TranslateResponse(&chatResp)
	if err != nil {
		return nil, err
	}
	if res.Model == "" {
		res.Model = req.Model
	}
	res.Cost = c.pricing.Cost(res.Model, res.Usage)
	return res, nil
}

// Stream performs streaming inference against the Chat Completions endpoint.
// The channel is closed when the stream completes, errors, or the context
// is cancelled.
//
// The HTTP client timeout is not applied for streaming requests because a
// stream can legitimately last longer than any fixed timeout. Lifecycle
// control relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Delta, error) {
	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: c.httpClient.Transport}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, provider.ClassifyNetworkError(err)
	}

	// Check for error status codes before starting the stream.
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	ch := make(chan provider.Delta, 16)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, httpResp.Body, ch, c.pricing, req.Model)
	}()
	return ch, nil
}

func (c *Client) newRequest(ctx context.Context, req *provider.Request, stream bool) (*http.Request, error) {
	body, err := json.Marshal(TranslateToChat(req, stream))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.baseURL + "/v1/chat/completions"
	debug.Log("providers", "chat completion request",
		"url", url,
		"model", req.Model,
		"stream", stream,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)
	if debug.TraceEnabled("providers") {
		debug.Trace("providers", "chat completion body", "body", debug.Truncate(string(body), 8192))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return httpReq, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
