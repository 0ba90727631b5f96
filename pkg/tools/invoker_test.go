package tools

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/schema"
)

func weatherTool(b catalog.Binding) catalog.Tool {
	return catalog.Tool{
		Name:        "weather",
		Description: "Current weather",
		InputSchema: schema.Schema{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string"},
				"days":     map[string]any{"type": "integer", "minimum": 1},
			},
			"required": []string{"location"},
		},
		Binding: b,
	}
}

func staticBinding(out string) FuncBinding {
	return func(context.Context, map[string]any) (string, error) { return out, nil }
}

func TestInvokeSuccess(t *testing.T) {
	inv := NewInvoker(Config{})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Berlin"}`)

	res := inv.Invoke(context.Background(), weatherTool(staticBinding("22C sunny")), call)

	assert.True(t, res.Success)
	assert.Equal(t, "22C sunny", res.Output)
	assert.Equal(t, "c1", res.CallID)
	assert.Equal(t, "weather", res.ToolName)
}

func TestInvokeMissingRequiredArgument(t *testing.T) {
	var called atomic.Bool
	binding := FuncBinding(func(context.Context, map[string]any) (string, error) {
		called.Store(true)
		return "", nil
	})
	call := api.NewToolCallRequest("c1", "weather", `{}`)

	res := NewInvoker(Config{}).Invoke(context.Background(), weatherTool(binding), call)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "location is required")
	assert.Zero(t, res.Duration)
	assert.False(t, called.Load(), "binding must not run for invalid arguments")
}

func TestInvokeSchemaViolationReportsField(t *testing.T) {
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Oslo","days":0}`)

	res := NewInvoker(Config{}).Invoke(context.Background(), weatherTool(staticBinding("x")), call)

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "invalid arguments: days"), res.Error)
}

func TestInvokeMalformedArguments(t *testing.T) {
	call := api.NewToolCallRequest("c1", "weather", `{"location":`)

	res := NewInvoker(Config{}).Invoke(context.Background(), weatherTool(staticBinding("x")), call)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "arguments must be a JSON object")
}

func TestInvokeArgumentSizeCeiling(t *testing.T) {
	inv := NewInvoker(Config{MaxArgumentBytes: 32})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"`+strings.Repeat("a", 64)+`"}`)

	res := inv.Invoke(context.Background(), weatherTool(staticBinding("x")), call)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "exceeds the limit")
	assert.Zero(t, res.Duration)
}

func TestInvokeRateLimit(t *testing.T) {
	inv := NewInvoker(Config{
		RateLimit:      RateLimit{PerSecond: 0.001, Burst: 2},
		ToolRateLimits: map[string]RateLimit{"unlimited": {}},
	})
	tool := weatherTool(staticBinding("ok"))
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Rome"}`)

	for i := 0; i < 2; i++ {
		res := inv.Invoke(context.Background(), tool, call)
		require.True(t, res.Success, "call %d: %s", i, res.Error)
	}
	res := inv.Invoke(context.Background(), tool, call)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "rate limit exceeded")

	// Buckets are per tool.
	other := weatherTool(staticBinding("ok"))
	other.Name = "unlimited"
	for i := 0; i < 5; i++ {
		assert.True(t, inv.Invoke(context.Background(), other, call).Success)
	}
}

type exposedBinding struct {
	FuncBinding
	exposure Exposure
}

func (b exposedBinding) Exposure() Exposure { return b.exposure }

func TestInvokeRejectsControlCharacters(t *testing.T) {
	tests := []struct {
		name     string
		exposure Exposure
		args     string
		wantOK   bool
	}{
		{"exposed field", Exposure{Fields: []string{"location"}}, `{"location":"a\nb"}`, false},
		{"unexposed field", Exposure{Fields: []string{"other"}}, `{"location":"a\nb"}`, true},
		{"all fields nested", Exposure{All: true}, `{"location":"x","tags":["ok","\u0007"]}`, false},
		{"clean input", Exposure{All: true}, `{"location":"Paris"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := exposedBinding{FuncBinding: staticBinding("ok"), exposure: tt.exposure}
			tool := weatherTool(b)
			tool.InputSchema = schema.Schema{"type": "object"}

			res := NewInvoker(Config{}).Invoke(context.Background(), tool, api.NewToolCallRequest("c1", "weather", tt.args))

			assert.Equal(t, tt.wantOK, res.Success, res.Error)
			if !tt.wantOK {
				assert.Contains(t, res.Error, "control characters")
			}
		})
	}
}

func TestInvokeTransportError(t *testing.T) {
	binding := FuncBinding(func(context.Context, map[string]any) (string, error) {
		return "", &TransportError{StatusCode: 503, Message: "upstream unavailable\ngoroutine 1 [running]:\nmain.main()"}
	})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Lima"}`)

	res := NewInvoker(Config{}).Invoke(context.Background(), weatherTool(binding), call)

	assert.False(t, res.Success)
	assert.Equal(t, "status 503: upstream unavailable", res.Error)
	assert.NotContains(t, res.Error, "goroutine")
}

func TestInvokeTimeout(t *testing.T) {
	binding := FuncBinding(func(ctx context.Context, _ map[string]any) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	inv := NewInvoker(Config{Timeout: 20 * time.Millisecond})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Quito"}`)

	res := inv.Invoke(context.Background(), weatherTool(binding), call)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timed out")
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestInvokeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	binding := FuncBinding(func(ctx context.Context, _ map[string]any) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Quito"}`)

	res := NewInvoker(Config{}).Invoke(ctx, weatherTool(binding), call)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
}

func TestInvokeRecoversPanic(t *testing.T) {
	binding := FuncBinding(func(context.Context, map[string]any) (string, error) {
		panic("boom")
	})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Nairobi"}`)

	var res api.ToolExecutionResult
	require.NotPanics(t, func() {
		res = NewInvoker(Config{}).Invoke(context.Background(), weatherTool(binding), call)
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panicked")
}

func TestInvokeTruncatesOutput(t *testing.T) {
	inv := NewInvoker(Config{MaxResultBytes: 10})
	call := api.NewToolCallRequest("c1", "weather", `{"location":"Seoul"}`)

	res := inv.Invoke(context.Background(), weatherTool(staticBinding(strings.Repeat("é", 20))), call)

	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Output, strings.Repeat("é", 5)))
	assert.Contains(t, res.Output, "[output truncated: 10 of 40 bytes shown]")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", Summarize(nil))
	assert.Equal(t, "tool call failed", Summarize(errors.New("  ")))
	long := errors.New(strings.Repeat("x", 2000))
	assert.LessOrEqual(t, len(Summarize(long)), maxErrorSummary+3)
}

func TestInvokeAcceptsEitherAlternative(t *testing.T) {
	tool, err := catalog.Build(catalog.Definition{
		Name: "lookup",
		Operation: schema.Operation{Body: schema.Schema{
			"type": "object",
			"properties": map[string]any{
				"id":   map[string]any{"type": "string"},
				"name": map[string]any{"type": "string"},
			},
			"oneOf": []any{
				map[string]any{"required": []any{"id"}},
				map[string]any{"required": []any{"name"}},
			},
		}},
	}, staticBinding("found"))
	require.NoError(t, err)

	inv := NewInvoker(Config{})
	for _, args := range []string{`{"id":"42"}`, `{"name":"x"}`} {
		res := inv.Invoke(context.Background(), tool, api.NewToolCallRequest("c1", "lookup", args))
		assert.True(t, res.Success, "args %s: %s", args, res.Error)
	}
}
