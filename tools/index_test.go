package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_IndexHandler_NoPaths(t *testing.T) {
	ix, _ := newTestIndexer(t, nil)
	h := &IndexHandler{Indexer: ix, Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, IndexArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true without paths")
	}
}

func Test_IndexHandler_IndexAndWait(t *testing.T) {
	ix, _ := newTestIndexer(t, nil)
	h := &IndexHandler{Indexer: ix, Logger: discardLogger()}

	folder := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(folder, name), []byte("added"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	result, _, err := h.Handle(context.Background(), nil, IndexArgs{Paths: []string{folder}, Wait: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "2 files indexed, 0 pending") {
		t.Errorf("unexpected text: %s", text)
	}
}
