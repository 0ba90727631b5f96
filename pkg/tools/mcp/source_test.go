package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/tools"
)

// setupTestServer creates a test MCP server with tools and connects it
// to a client via in-memory transports. Returns the client ready for use.
func setupTestServer(t *testing.T, name string, serverTools map[string]mcp.ToolHandler) *Client {
	t.Helper()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "test-server", Version: "1.0.0"},
		nil,
	)

	for toolName, handler := range serverTools {
		server.AddTool(
			&mcp.Tool{
				Name:        toolName,
				Description: "Test tool: " + toolName,
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
				},
			},
			handler,
		)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := NewClient(ServerConfig{Name: name})
	if err := client.ConnectWithTransport(ctx, clientTransport); err != nil {
		t.Fatalf("ConnectWithTransport failed: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func textResult(text string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func TestClientTools(t *testing.T) {
	client := setupTestServer(t, "weather", map[string]mcp.ToolHandler{
		"get_weather": textResult("sunny"),
		"get_time":    textResult("12:00"),
	})

	discovered, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if len(discovered) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(discovered))
	}

	var names []string
	for _, tool := range discovered {
		names = append(names, tool.Name)
		if tool.Source != "mcp:weather" {
			t.Errorf("Source = %q, want mcp:weather", tool.Source)
		}
		if tool.InputSchema.Type() != "object" {
			t.Errorf("tool %q: schema type = %q, want object", tool.Name, tool.InputSchema.Type())
		}
		if tool.Binding == nil {
			t.Errorf("tool %q has no binding", tool.Name)
		}
	}
	sort.Strings(names)
	if names[0] != "get_time" || names[1] != "get_weather" {
		t.Errorf("unexpected tool names %v", names)
	}
}

func TestClientToolsNotConnected(t *testing.T) {
	_, err := NewClient(ServerConfig{Name: "offline"}).Tools(context.Background())
	if err == nil {
		t.Fatal("expected error for unconnected client")
	}
}

func TestLoadIntoCatalog(t *testing.T) {
	clientA := setupTestServer(t, "server-a", map[string]mcp.ToolHandler{
		"tool_a": textResult("from server A"),
	})
	clientB := setupTestServer(t, "server-b", map[string]mcp.ToolHandler{
		"tool_b": textResult("from server B"),
	})

	c := catalog.New()
	if err := catalog.Load(context.Background(), c, clientA, clientB); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for tool, want := range map[string]string{"tool_a": "from server A", "tool_b": "from server B"} {
		resolved, err := c.Resolve(tool)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", tool, err)
		}
		out, err := resolved.Binding.Invoke(context.Background(), map[string]any{})
		if err != nil {
			t.Fatalf("Invoke(%q) failed: %v", tool, err)
		}
		if out != want {
			t.Errorf("%s: expected %q, got %q", tool, want, out)
		}
	}
}

func TestBindingPassesArguments(t *testing.T) {
	client := setupTestServer(t, "greeter", map[string]mcp.ToolHandler{
		"greet": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, err
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Hello, " + args.Name + "!"}},
			}, nil
		},
	})

	b := &Binding{client: client, tool: "greet"}
	out, err := b.Invoke(context.Background(), map[string]any{"name": "World"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "Hello, World!" {
		t.Errorf("expected output 'Hello, World!', got %q", out)
	}
}

func TestBindingToolError(t *testing.T) {
	client := setupTestServer(t, "flaky", map[string]mcp.ToolHandler{
		"failing_tool": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "something went wrong"}},
				IsError: true,
			}, nil
		},
	})

	b := &Binding{client: client, tool: "failing_tool"}
	_, err := b.Invoke(context.Background(), map[string]any{})

	var te *tools.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Message != "something went wrong" {
		t.Errorf("expected message 'something went wrong', got %q", te.Message)
	}
}

func TestBindingUnknownTool(t *testing.T) {
	client := setupTestServer(t, "small", map[string]mcp.ToolHandler{
		"known_tool": textResult("ok"),
	})

	b := &Binding{client: client, tool: "nonexistent_tool"}
	if _, err := b.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for unknown tool")
	}
}
