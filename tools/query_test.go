package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func Test_QueryHandler_EmptyToken(t *testing.T) {
	ix, _ := newTestIndexer(t, nil)
	h := &QueryHandler{Indexer: ix, Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, QueryArgs{Token: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for empty token")
	}
	if text := resultText(t, result); !strings.Contains(text, "token parameter is required") {
		t.Errorf("expected error message about empty token, got: %s", text)
	}
}

func Test_QueryHandler_Found(t *testing.T) {
	ix, root := newTestIndexer(t, map[string]string{
		"abl.bla":       "classic1 classic2",
		"sub/other.txt": "classic1 classic1",
		"none.txt":      "nothing here",
	})
	h := &QueryHandler{Indexer: ix, Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, QueryArgs{Token: "classic1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("expected success, got error result")
	}

	text := resultText(t, result)
	if !strings.Contains(text, `Found 3 occurrences of "classic1" in 2 files`) {
		t.Errorf("unexpected summary:\n%s", text)
	}
	first := strings.Index(text, filepath.Join(root, "sub", "other.txt"))
	second := strings.Index(text, filepath.Join(root, "abl.bla"))
	if first < 0 || second < 0 || first > second {
		t.Errorf("expected files ordered by count, got:\n%s", text)
	}
	if strings.Contains(text, "none.txt") {
		t.Errorf("expected result to NOT contain none.txt, got:\n%s", text)
	}
}

func Test_QueryHandler_NotFound(t *testing.T) {
	ix, _ := newTestIndexer(t, map[string]string{"a.txt": "alpha"})
	h := &QueryHandler{Indexer: ix, Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, QueryArgs{Token: "omega"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, result); text != `No occurrences of "omega" found.` {
		t.Errorf("unexpected text: %s", text)
	}
}
