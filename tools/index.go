package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultIndexWaitTimeout bounds a waiting index request when the handler
// does not set WaitTimeout.
const DefaultIndexWaitTimeout = 30 * time.Second

// IndexArgs defines the input parameters for the tokenindex_index tool.
type IndexArgs struct {
	Paths []string `json:"paths" jsonschema:"Files or folders to index and watch. Relative paths are resolved against the server working directory"`
	Wait  bool     `json:"wait,omitempty" jsonschema:"If true wait until tokenization of the new paths has finished"`
}

// IndexHandler holds the dependencies for the index tool.
type IndexHandler struct {
	Indexer     *indexer.Indexer
	WaitTimeout time.Duration // bound for Wait, default DefaultIndexWaitTimeout
	Logger      *slog.Logger
}

// Handle processes a tokenindex_index request.
func (h *IndexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if len(args.Paths) == 0 {
		h.Logger.Warn("tokenindex_index called without paths")
		return errorResult("Error: paths parameter is required"), nil, nil
	}

	h.Indexer.Index(args.Paths)

	if args.Wait {
		timeout := h.WaitTimeout
		if timeout <= 0 {
			timeout = DefaultIndexWaitTimeout
		}
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := h.Indexer.WaitIdle(waitCtx); err != nil {
			h.Logger.Warn("tokenindex_index wait interrupted", "error", err)
			return errorResult("Indexing still in progress after %s: %v", timeout, err), nil, nil
		}
	}

	status := h.Indexer.Status()
	h.Logger.Info("tokenindex_index",
		"paths", len(args.Paths),
		"files", status.Files,
		"pending", status.Pending,
		"elapsed", time.Since(start),
	)

	output := fmt.Sprintf("indexing scheduled for %d paths: %d files indexed, %d pending",
		len(args.Paths), status.Files, status.Pending)
	return textResult(output), nil, nil
}
