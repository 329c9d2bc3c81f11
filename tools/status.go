package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the tokenindex_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Indexer *indexer.Indexer
	Logger  *slog.Logger
}

// Handle processes a tokenindex_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	status := h.Indexer.Status()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("tokenindex_status",
		"files", status.Files,
		"pending", status.Pending,
		"folders", len(status.WatchedFolders),
		"memory", memStats.Alloc,
	)

	var builder strings.Builder
	builder.WriteString("=== tokenindex-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(status.Uptime)))
	builder.WriteString(fmt.Sprintf("Indexed files: %d\n", status.Files))
	builder.WriteString(fmt.Sprintf("Pending tokenization tasks: %d\n", status.Pending))
	builder.WriteString(fmt.Sprintf("Watched folders: %d\n", len(status.WatchedFolders)))
	if status.Separator != "" {
		builder.WriteString(fmt.Sprintf("Separator pattern: %s\n", status.Separator))
	}
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	if len(status.Roots) > 0 {
		builder.WriteString("\nIndexed roots:\n")
		for _, root := range status.Roots {
			builder.WriteString(fmt.Sprintf("  %s\n", root))
		}
	}
	if len(status.IgnoredNames) > 0 {
		builder.WriteString(fmt.Sprintf("\nIgnored names: %s\n", strings.Join(status.IgnoredNames, ", ")))
	}

	return textResult(builder.String()), nil, nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
