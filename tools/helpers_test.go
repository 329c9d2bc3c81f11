package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestIndexer returns an indexer over a temp folder holding the given files.
func newTestIndexer(t *testing.T, files map[string]string) (*indexer.Indexer, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating folder: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	ix, err := indexer.New(indexer.Config{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("creating indexer: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })

	ix.Index([]string{root})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ix.WaitIdle(ctx); err != nil {
		t.Fatalf("waiting for indexing: %v", err)
	}
	return ix, root
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}
