package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// CacheInvalidateHandler drops cached data for one key, or everything when
// no key is given. forget, when non-nil, also removes the persisted result
// for a single key.
func CacheInvalidateHandler(c Coordinator, forget func(resourceKey string) error) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := strings.TrimSpace(req.GetString("key", ""))
		if key == "" {
			c.InvalidateAll()
			return mcp.NewToolResultText("Invalidated all caches."), nil
		}
		c.Invalidate(key)
		if forget != nil {
			if err := forget(key); err != nil {
				return mcp.NewToolResultError("invalidated in memory, but removing the stored result failed: " + err.Error()), nil
			}
		}
		return mcp.NewToolResultText("Invalidated " + key + "."), nil
	}
}

// CacheStatsHandler reports cache and request counts as JSON.
func CacheStatsHandler(c Coordinator) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.MarshalIndent(c.Stats(), "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}
