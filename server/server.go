package server

import (
	"github.com/lexandro/tokenindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers groups the tool handlers registered on the server.
type Handlers struct {
	Index   *tools.IndexHandler
	Query   *tools.QueryHandler
	Files   *tools.FilesHandler
	Status  *tools.StatusHandler
	Reindex *tools.ReindexHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tokenindex-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server keeps a live inverted index of token occurrences over files and folders. The index follows filesystem changes automatically.

- Use tokenindex_index to add files or folders; they stay watched afterwards
- Use tokenindex_query to count exact, case-sensitive occurrences of a token per file
- Use tokenindex_files to list indexed files by glob pattern
- A query may report that the index is being updated; retry it shortly`,
		},
	)

	// Register tokenindex_index tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "tokenindex_index",
		Description: `Index files or folders and watch them for changes. Folders are indexed recursively.

Tokenization runs in the background; pass wait=true to return only once it has finished.`,
	}, handlers.Index.Handle)

	// Register tokenindex_query tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "tokenindex_query",
		Description: `Count occurrences of a token in every indexed file.

Tokens are split on anything that is not a letter, digit or underscore (configurable). Matching is exact and case-sensitive: "Foo" and "foo" are different tokens.`,
	}, handlers.Query.Handle)

	// Register tokenindex_files tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "tokenindex_files",
		Description: `Find indexed files by glob pattern, matched against the absolute path.

Pattern examples:
  - "**/*.go" - all Go files
  - "**/src/**/*.ts" - TypeScript files under any src/ folder`,
	}, handlers.Files.Handle)

	// Register tokenindex_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "tokenindex_status",
		Description: "Show index status: file count, pending tokenization, watched folders, memory usage and uptime.",
	}, handlers.Status.Handle)

	// Register tokenindex_reindex tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "tokenindex_reindex",
		Description: "Clear the index and tokenize every indexed root again.",
	}, handlers.Reindex.Handle)

	return mcpServer
}
