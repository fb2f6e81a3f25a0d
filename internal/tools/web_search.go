package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/summary-mcp/internal/coordinator"
)

// PagedSearcher is implemented by web.Searcher.
type PagedSearcher interface {
	Search(ctx context.Context, query string, page int, refresh bool) ([]coordinator.ListItem, error)
}

// WebSearchHandler returns the MCP tool handler for the "web-search" tool.
// pageSize only affects result numbering.
func WebSearchHandler(searcher PagedSearcher, pageSize int) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		page := req.GetInt("page", 0)
		if page < 0 {
			return mcp.NewToolResultError("page must not be negative"), nil
		}
		refresh := req.GetBool("refresh", false)

		results, err := searcher.Search(ctx, q, page, refresh)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatSearchResults(results, page*pageSize)), nil
	}
}

// formatSearchResults renders an ordered list numbered across pages.
func formatSearchResults(results []coordinator.ListItem, offset int) string {
	if len(results) == 0 {
		return "No results."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s", offset+i+1, r.Title, r.Key)
		if r.Description != "" {
			sb.WriteString("\n   ")
			sb.WriteString(r.Description)
		}
		if i < len(results)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
