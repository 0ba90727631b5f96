// Package httpbind invokes tools backed by HTTP endpoints.
//
// Path parameters are substituted into the URL template, query and header
// parameters are sent as such, and the remaining arguments form the JSON
// request body. Any non-2xx response is a *tools.TransportError.
package httpbind

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/schema"
	"github.com/rhuss/tooldrive/pkg/tools"
)

// defaultMaxResponseBytes caps how much of a response body is read.
const defaultMaxResponseBytes = 1 << 20

// Binding calls one HTTP endpoint.
type Binding struct {
	// Method is the HTTP method. Defaults to GET, or POST when the
	// operation has a body.
	Method string

	// URL is the endpoint template, e.g. "https://api.example.com/v1/cities/{city}".
	URL string

	// Operation describes where each argument goes.
	Operation schema.Operation

	// Headers are sent with every request.
	Headers map[string]string

	// MaxResponseBytes caps the bytes read from the response body.
	MaxResponseBytes int64

	client *http.Client
}

// Ensure Binding implements the binding contracts at compile time.
var (
	_ catalog.Binding = (*Binding)(nil)
	_ tools.Exposer   = (*Binding)(nil)
)

// Option configures a Binding.
type Option func(*Binding)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Binding) { b.client = c }
}

// WithHeaders adds static request headers.
func WithHeaders(h map[string]string) Option {
	return func(b *Binding) { b.Headers = h }
}

// New creates a Binding for the given method, URL template and operation.
func New(method, urlTemplate string, op schema.Operation, opts ...Option) *Binding {
	b := &Binding{
		Method:           strings.ToUpper(method),
		URL:              urlTemplate,
		Operation:        op,
		MaxResponseBytes: defaultMaxResponseBytes,
		client:           &http.Client{Timeout: 60 * time.Second},
	}
	if b.Method == "" {
		b.Method = http.MethodGet
		if op.Body != nil {
			b.Method = http.MethodPost
		}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Exposure reports the path and query parameters, which end up in the URL.
func (b *Binding) Exposure() tools.Exposure {
	fields := tools.Placeholders(b.URL)
	for _, p := range b.Operation.Parameters {
		if (p.In == schema.InQuery || p.In == schema.InHeader) && !slices.Contains(fields, p.Name) {
			fields = append(fields, p.Name)
		}
	}
	return tools.Exposure{Fields: fields}
}

// Invoke performs the request and returns the response body.
func (b *Binding) Invoke(ctx context.Context, args map[string]any) (string, error) {
	req, err := b.buildRequest(ctx, args)
	if err != nil {
		return "", err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &tools.TransportError{Message: fmt.Sprintf("%s %s failed", req.Method, req.URL.Redacted()), Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, b.MaxResponseBytes))
	if err != nil {
		return "", &tools.TransportError{StatusCode: resp.StatusCode, Message: "reading response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &tools.TransportError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), snippet(body)),
		}
	}
	return string(body), nil
}

func (b *Binding) buildRequest(ctx context.Context, args map[string]any) (*http.Request, error) {
	target, err := tools.Expand(b.URL, args, url.PathEscape)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, &tools.ValidationError{Message: "invalid URL: " + err.Error()}
	}

	used := make(map[string]bool)
	for _, name := range tools.Placeholders(b.URL) {
		used[name] = true
	}

	q := u.Query()
	header := make(http.Header)
	for _, p := range b.Operation.Parameters {
		v, ok := args[p.Name]
		switch p.In {
		case schema.InQuery:
			used[p.Name] = true
			if ok && v != nil {
				q.Set(p.Name, tools.ArgString(v))
			}
		case schema.InHeader:
			used[p.Name] = true
			if ok && v != nil {
				header.Set(p.Name, tools.ArgString(v))
			}
		case schema.InPath:
			used[p.Name] = true
		}
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if b.Method != http.MethodGet && b.Method != http.MethodHead && b.Method != http.MethodDelete {
		payload, err := b.bodyPayload(args, used)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			body = bytes.NewReader(payload)
			header.Set("Content-Type", "application/json")
		}
	}

	req, err := http.NewRequestWithContext(ctx, b.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// bodyPayload encodes the arguments that are not request parameters. A
// non-object body is taken from the "body" argument as is.
func (b *Binding) bodyPayload(args map[string]any, used map[string]bool) ([]byte, error) {
	if b.Operation.Body != nil && !b.Operation.Body.IsObject() {
		v, ok := args[schema.BodyProperty]
		if !ok {
			return nil, nil
		}
		return json.Marshal(v)
	}

	rest := make(map[string]any)
	for k, v := range args {
		if !used[k] {
			rest[k] = v
		}
	}
	if len(rest) == 0 && b.Operation.Body == nil {
		return nil, nil
	}
	return json.Marshal(rest)
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = strings.ToValidUTF8(s[:200], "")
	}
	if s == "" {
		return "empty response"
	}
	return s
}
