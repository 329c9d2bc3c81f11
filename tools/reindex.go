package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the tokenindex_reindex tool.
type ReindexArgs struct{}

// ReindexFunc is the function signature for the reindex operation.
// It is provided by main.go so the tool stays free of indexing logic.
type ReindexFunc func(ctx context.Context) (roots int, files int, elapsed string, err error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a tokenindex_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("tokenindex_reindex started")

	roots, files, elapsed, err := h.DoReindex(ctx)
	if err != nil {
		h.Logger.Error("tokenindex_reindex failed", "error", err)
		return errorResult("Reindex error: %v", err), nil, nil
	}

	h.Logger.Info("tokenindex_reindex complete",
		"roots", roots,
		"files", files,
		"elapsed", elapsed,
	)

	output := fmt.Sprintf("Reindex complete: %d files from %d roots in %s", files, roots, elapsed)
	return textResult(output), nil, nil
}
