package main

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	_, err := newServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestListsTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_weather", "echo"}, names)
}

func TestGetWeatherIsDeterministic(t *testing.T) {
	session := connect(t)
	call := func(city string) *mcp.CallToolResult {
		res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      "get_weather",
			Arguments: map[string]any{"city": city},
		})
		require.NoError(t, err)
		return res
	}

	first := call("Lisbon")
	second := call("lisbon ")
	require.False(t, first.IsError)
	require.Len(t, first.Content, 1)

	text := first.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "Lisbon")
	assert.Equal(t, text[:4], second.Content[0].(*mcp.TextContent).Text[:4])

	empty := call("  ")
	assert.True(t, empty.IsError)
}
