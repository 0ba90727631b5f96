// Package integration runs end-to-end tests against the full tooldrive
// stack: the HTTP server, the engine, the Chat Completions adapter and real
// HTTP and MCP tool bindings, all started in-process.
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/config"
	"github.com/rhuss/tooldrive/pkg/engine"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/provider/openaicompat"
	"github.com/rhuss/tooldrive/pkg/schema"
	"github.com/rhuss/tooldrive/pkg/tools"
	"github.com/rhuss/tooldrive/pkg/tools/mcp"
	transporthttp "github.com/rhuss/tooldrive/pkg/transport/http"
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the tooldrive server and its collaborators.
type TestEnvironment struct {
	Server      *httptest.Server
	MockBackend *httptest.Server
	WeatherAPI  *httptest.Server
	mcpClient   *mcp.Client
}

// TestMain starts the environment before running tests.
func TestMain(m *testing.M) {
	env, err := setupTestEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up integration environment: %v\n", err)
		os.Exit(1)
	}
	testEnv = env
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment wires a catalog with one HTTP tool and one MCP tool,
// an engine on a mock Chat Completions backend, and the HTTP server.
func setupTestEnvironment() (*TestEnvironment, error) {
	ctx := context.Background()
	env := &TestEnvironment{
		MockBackend: startMockBackend(),
		WeatherAPI:  startWeatherAPI(),
	}

	weather := config.ToolConfig{
		Name:        "get_weather",
		Description: "Current weather for a city.",
		Operation: schema.Operation{
			Parameters: []schema.Parameter{
				{Name: "city", In: schema.InPath, Required: true, Schema: schema.Schema{"type": "string"}},
			},
		},
		HTTP: &config.HTTPToolConfig{URL: env.WeatherAPI.URL + "/cities/{city}"},
	}
	cfg := config.Defaults()
	cfg.Tools = []config.ToolConfig{weather}
	static, err := cfg.StaticSource()
	if err != nil {
		return nil, err
	}

	env.mcpClient, err = startMCPServer(ctx)
	if err != nil {
		return nil, err
	}

	cat := catalog.New()
	if err := catalog.Load(ctx, cat, static, env.mcpClient); err != nil {
		return nil, err
	}
	cat.Freeze()

	client, err := openaicompat.NewClient(openaicompat.Config{
		BaseURL: env.MockBackend.URL,
		Pricing: provider.Pricing{"*": {Prompt: 1, Completion: 2}},
	})
	if err != nil {
		return nil, err
	}
	prov := provider.WithRetry(provider.Instrument(client), provider.RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})

	eng, err := engine.New(prov, cat, tools.NewInvoker(tools.DefaultConfig()), engine.Config{
		DefaultModel:  "mock-model",
		MaxIterations: 3,
		Validation:    api.DefaultValidationConfig(),
	})
	if err != nil {
		return nil, err
	}

	srv := transporthttp.NewServer(eng, cat, transporthttp.WithMetrics(true))
	env.Server = httptest.NewServer(srv.Handler())
	return env, nil
}

// Teardown stops all servers.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
	if env.mcpClient != nil {
		env.mcpClient.Close()
	}
	env.MockBackend.Close()
	env.WeatherAPI.Close()
}

// URL returns the absolute URL of path on the tooldrive server.
func (env *TestEnvironment) URL(path string) string {
	return env.Server.URL + path
}

// --- HTTP helpers ---

// postRun sends a run request and returns the response.
func postRun(t *testing.T, req api.RunRequest) *http.Response {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(testEnv.URL("/v1/runs"), "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST /v1/runs: %v", err)
	}
	return resp
}

// decodeRun decodes a blocking run response.
func decodeRun(t *testing.T, resp *http.Response) api.Run {
	t.Helper()
	defer resp.Body.Close()
	var run api.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decoding run: %v", err)
	}
	return run
}

// readEvents reads an SSE response until [DONE] and returns the events.
func readEvents(t *testing.T, resp *http.Response) []api.Event {
	t.Helper()
	defer resp.Body.Close()

	var events []api.Event
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return events
		}
		var ev api.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decoding event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	t.Fatal("stream ended without [DONE]")
	return nil
}

// --- Weather API ---

func startWeatherAPI() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cities/{city}", func(w http.ResponseWriter, r *http.Request) {
		city := r.PathValue("city")
		if city == "Atlantis" {
			http.Error(w, "unknown city", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "Sunny, 21C in %s", city)
	})
	return httptest.NewServer(mux)
}

// --- MCP server ---

type echoInput struct {
	Message string `json:"message"`
}

func startMCPServer(ctx context.Context) (*mcp.Client, error) {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "integration", Version: "v1"}, nil)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "echo", Description: "Echoes a message."},
		func(_ context.Context, _ *sdkmcp.CallToolRequest, in echoInput) (*sdkmcp.CallToolResult, struct{}, error) {
			return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: "Echo: " + in.Message}}}, struct{}{}, nil
		})

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	go server.Run(ctx, serverTransport)

	client := mcp.NewClient(mcp.ServerConfig{Name: "echo-server"})
	if err := client.ConnectWithTransport(ctx, clientTransport); err != nil {
		return nil, err
	}
	return client, nil
}

// --- Mock backend ---

// The mock backend picks its behavior from the model name:
//
//	mock-model        get_weather for the prompt's city, then the tool output
//	mock-echo         the MCP echo tool, then the tool output
//	mock-loop         get_weather on every turn
//	mock-ratelimit    429 on every call
//	mock-unauthorized 401 on every call
func startMockBackend() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleMockChatCompletions)
	return httptest.NewServer(mux)
}

type mockMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type mockTurn struct {
	text string
	tool string
	args string
}

func handleMockChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string        `json:"model"`
		Messages []mockMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	switch req.Model {
	case "mock-ratelimit":
		w.Header().Set("Retry-After", "0")
		http.Error(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`, http.StatusTooManyRequests)
		return
	case "mock-unauthorized":
		http.Error(w, `{"error":{"message":"bad key","type":"authentication_error"}}`, http.StatusUnauthorized)
		return
	}

	turn := nextTurn(req.Model, req.Messages)
	if req.Stream {
		writeMockStream(w, req.Model, turn)
		return
	}

	msg := map[string]any{"role": "assistant", "content": nil}
	finish := "stop"
	if turn.tool != "" {
		msg["tool_calls"] = []any{map[string]any{
			"id": fmt.Sprintf("call_it_%d", len(req.Messages)), "type": "function",
			"function": map[string]any{"name": turn.tool, "arguments": turn.args},
		}}
		finish = "tool_calls"
	} else {
		msg["content"] = turn.text
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id": "chatcmpl-it", "object": "chat.completion", "model": req.Model,
		"choices": []any{map[string]any{"index": 0, "message": msg, "finish_reason": finish}},
		"usage":   map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	})
}

func nextTurn(model string, msgs []mockMessage) mockTurn {
	last := msgs[len(msgs)-1]
	if last.Role == "tool" && model != "mock-loop" {
		return mockTurn{text: "Result: " + deref(last.Content)}
	}

	switch model {
	case "mock-echo":
		return mockTurn{tool: "echo", args: `{"message":"ping"}`}
	default:
		city := "Paris"
		for _, m := range msgs {
			if m.Role == "user" {
				if i := strings.LastIndex(deref(m.Content), " in "); i >= 0 {
					city = strings.Trim(deref(m.Content)[i+4:], "?. ")
				}
			}
		}
		args, _ := json.Marshal(map[string]string{"city": city})
		return mockTurn{tool: "get_weather", args: string(args)}
	}
}

func writeMockStream(w http.ResponseWriter, model string, turn mockTurn) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)

	send := func(delta map[string]any, finish any, usage map[string]any) {
		chunk := map[string]any{
			"id": "chatcmpl-it", "object": "chat.completion.chunk", "model": model,
			"choices": []any{map[string]any{"index": 0, "delta": delta, "finish_reason": finish}},
		}
		if usage != nil {
			chunk["usage"] = usage
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(map[string]any{"role": "assistant"}, nil, nil)
	finish := "stop"
	if turn.tool != "" {
		half := len(turn.args) / 2
		send(map[string]any{"tool_calls": []any{map[string]any{
			"index": 0, "id": "call_it_stream", "type": "function",
			"function": map[string]any{"name": turn.tool, "arguments": turn.args[:half]},
		}}}, nil, nil)
		send(map[string]any{"tool_calls": []any{map[string]any{
			"index": 0, "function": map[string]any{"arguments": turn.args[half:]},
		}}}, nil, nil)
		finish = "tool_calls"
	} else {
		for _, word := range strings.SplitAfter(turn.text, " ") {
			send(map[string]any{"content": word}, nil, nil)
		}
	}
	send(map[string]any{}, finish, map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
