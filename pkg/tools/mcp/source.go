package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/debug"
	"github.com/rhuss/tooldrive/pkg/schema"
	"github.com/rhuss/tooldrive/pkg/tools"
)

// Ensure Client implements catalog.Source at compile time.
var _ catalog.Source = (*Client)(nil)

// SourceName returns the catalog source name of a server.
func SourceName(server string) string {
	return "mcp:" + server
}

// Tools lists the server's tools and binds each one to this client. Tools
// whose names or schemas the catalog would reject are skipped with a
// warning.
func (c *Client) Tools(ctx context.Context) ([]catalog.Tool, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var out []catalog.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		t, convErr := c.convertTool(tool)
		if convErr != nil {
			slog.Warn("skipping MCP tool",
				"server", c.cfg.Name,
				"tool", tool.Name,
				"error", convErr,
			)
			continue
		}
		out = append(out, t)
	}

	slog.Info("discovered MCP tools",
		"server", c.cfg.Name,
		"count", len(out),
	)
	return out, nil
}

// convertTool turns an MCP tool listing entry into a catalog tool.
func (c *Client) convertTool(t *mcp.Tool) (catalog.Tool, error) {
	input := schema.EmptyObject()
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return catalog.Tool{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		input = nil
		if err := json.Unmarshal(data, &input); err != nil {
			return catalog.Tool{}, fmt.Errorf("decoding input schema: %w", err)
		}
	}

	tool := catalog.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema.Strip(input),
		Binding:     &Binding{client: c, tool: t.Name},
		Source:      SourceName(c.cfg.Name),
	}
	if err := catalog.Validate(tool); err != nil {
		return catalog.Tool{}, err
	}
	return tool, nil
}

// Binding forwards calls for one tool to its MCP server.
type Binding struct {
	client *Client
	tool   string
}

// Ensure Binding implements catalog.Binding at compile time.
var _ catalog.Binding = (*Binding)(nil)

// Invoke calls the tool on the server. A result flagged as an error by the
// server is returned as a *tools.TransportError with the server's text.
func (b *Binding) Invoke(ctx context.Context, args map[string]any) (string, error) {
	session := b.client.session
	if session == nil {
		return "", &tools.TransportError{Message: fmt.Sprintf("MCP client %q not connected", b.client.cfg.Name)}
	}

	debug.Log("mcp", "calling MCP tool", "server", b.client.cfg.Name, "tool", b.tool)
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      b.tool,
		Arguments: args,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &tools.TransportError{Message: "MCP tool call error", Err: err}
	}

	output := textContent(result)
	if result.IsError {
		if output == "" {
			output = "MCP tool reported an error"
		}
		return "", &tools.TransportError{Message: output}
	}
	return output, nil
}

// textContent joins the text parts of a tool result.
func textContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
