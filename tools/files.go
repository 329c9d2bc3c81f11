package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FilesArgs defines the input parameters for the tokenindex_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern" jsonschema:"Glob pattern matched against absolute paths (e.g. **/*.go)"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return only file paths without metadata"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Indexer *indexer.Indexer
	Logger  *slog.Logger
}

// Handle processes a tokenindex_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" {
		h.Logger.Warn("tokenindex_files called with empty pattern")
		return errorResult("Error: pattern parameter is required"), nil, nil
	}

	results, err := h.Indexer.Files(args.Pattern, args.MaxResults)
	switch {
	case indexer.IsBusy(err):
		h.Logger.Warn("tokenindex_files timed out", "pattern", args.Pattern)
		return errorResult("Index is being updated, retry the listing shortly."), nil, nil
	case err != nil:
		h.Logger.Error("tokenindex_files failed", "pattern", args.Pattern, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("tokenindex_files",
		"pattern", args.Pattern,
		"results", len(results),
		"elapsed", time.Since(start),
	)

	return textResult(FormatFileResults(results, args.NameOnly)), nil, nil
}
