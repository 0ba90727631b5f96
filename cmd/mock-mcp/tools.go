package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type weatherInput struct {
	City string `json:"city" jsonschema:"the city to report on"`
}

type echoInput struct {
	Message string `json:"message" jsonschema:"the message to echo back"`
}

var conditions = []string{"Sunny", "Cloudy", "Rainy", "Windy"}

func newServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "tooldrive-mock-mcp", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_weather",
		Description: "Current weather for a city.",
	}, getWeather)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echoes the provided message back.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, struct{}, error) {
		return textResult("Echo: " + in.Message), struct{}{}, nil
	})

	return server
}

// getWeather derives a stable report from the city name.
func getWeather(_ context.Context, _ *mcp.CallToolRequest, in weatherInput) (*mcp.CallToolResult, struct{}, error) {
	city := strings.TrimSpace(in.City)
	if city == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "city must not be empty"}},
		}, struct{}{}, nil
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(city)))
	sum := h.Sum32()

	report := fmt.Sprintf("%s in %s, %dC", conditions[sum%uint32(len(conditions))], city, 5+int(sum%25))
	return textResult(report), struct{}{}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
