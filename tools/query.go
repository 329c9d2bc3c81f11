package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryArgs defines the input parameters for the tokenindex_query tool.
type QueryArgs struct {
	Token    string `json:"token" jsonschema:"Exact token to look up. Matching is case-sensitive"`
	MaxFiles int    `json:"maxFiles,omitempty" jsonschema:"Maximum number of files to list (default 50)"`
}

// QueryHandler holds the dependencies for the query tool.
type QueryHandler struct {
	Indexer *indexer.Indexer
	Logger  *slog.Logger
}

// Handle processes a tokenindex_query request.
func (h *QueryHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Token == "" {
		h.Logger.Warn("tokenindex_query called with empty token")
		return errorResult("Error: token parameter is required"), nil, nil
	}

	result, err := h.Indexer.QueryToken(ctx, args.Token)
	switch {
	case indexer.IsBusy(err):
		h.Logger.Warn("tokenindex_query timed out", "token", args.Token)
		return errorResult("Index is being updated, retry the query shortly."), nil, nil
	case err != nil:
		h.Logger.Error("tokenindex_query failed", "token", args.Token, "error", err)
		return errorResult("Query error: %v", err), nil, nil
	}

	maxFiles := args.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 50
	}

	h.Logger.Info("tokenindex_query",
		"token", args.Token,
		"files", len(result.Occurrences),
		"total", result.Total,
		"elapsed", time.Since(start),
	)

	return textResult(FormatQueryResult(result, maxFiles)), nil, nil
}
