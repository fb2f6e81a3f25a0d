package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/summary-mcp/internal/web"
)

// MaterialSource is implemented by web.Summarizer.
type MaterialSource interface {
	Material(ctx context.Context, rawURL string) (*web.Page, bool, error)
}

// WebFetchHandler returns the MCP tool handler for the "web-fetch" tool.
func WebFetchHandler(src MaterialSource) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		page, _, err := src.Material(ctx, strings.TrimSpace(url))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatPage(page)), nil
	}
}

func formatPage(p *web.Page) string {
	var sb strings.Builder
	if p.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(p.Title)
		sb.WriteString("\n\n")
	}
	if p.Description != "" {
		sb.WriteString(p.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString(p.Markdown)
	return sb.String()
}
