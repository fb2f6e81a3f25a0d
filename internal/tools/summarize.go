package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/summary-mcp/internal/coordinator"
)

// Coordinator is the part of coordinator.Coordinator the tools use.
type Coordinator interface {
	Submit(resourceKey, label string, forceRegenerate bool) (coordinator.RequestRecord, error)
	Status(id string) (coordinator.RequestRecord, bool)
	Invalidate(resourceKey string)
	InvalidateAll()
	Stats() coordinator.Stats
}

// SummarizeHandler returns the MCP tool handler for the "summarize" tool.
func SummarizeHandler(c Coordinator) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		label := req.GetString("label", "")
		force := req.GetBool("force_regenerate", false)

		rec, err := c.Submit(url, label, force)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatHandle(rec.Handle())), nil
	}
}

// SummaryStatusHandler returns the MCP tool handler for the "summary-status" tool.
func SummaryStatusHandler(c Coordinator) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, ok := c.Status(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("request %s not found", id)), nil
		}
		return mcp.NewToolResultText(formatHandle(rec.Handle())), nil
	}
}

// formatHandle renders the request state, followed by the summary once done.
func formatHandle(h coordinator.RequestHandle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %s\nstatus: %s", h.ID, h.Status)
	switch h.Status {
	case coordinator.StatusQueued:
		fmt.Fprintf(&sb, "\nqueue position: %d\n\nPoll summary-status with this id until the status is completed or failed.", h.QueuePosition)
	case coordinator.StatusProcessing:
		sb.WriteString("\n\nPoll summary-status with this id until the status is completed or failed.")
	case coordinator.StatusFailed:
		fmt.Fprintf(&sb, "\nerror: %s\n\nResubmit with force_regenerate to try again.", h.Error)
	case coordinator.StatusCompleted:
		sb.WriteString("\n\n")
		sb.WriteString(h.Result)
	}
	return sb.String()
}
