package index

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// IndexedFile is an immutable snapshot of one file's tokenization result.
// Re-tokenizing a file produces a new IndexedFile that replaces the old one.
type IndexedFile struct {
	ID        uuid.UUID // Unique per tokenization
	Path      string    // Absolute, cleaned file path
	SizeBytes int64     // File size at tokenization time
	ModTime   time.Time // Last modification time at tokenization time
	tokens    map[string]int
}

func newIndexedFile(path string, tokens map[string]int, info os.FileInfo) *IndexedFile {
	file := &IndexedFile{
		ID:     uuid.New(),
		Path:   path,
		tokens: tokens,
	}
	if info != nil {
		file.SizeBytes = info.Size()
		file.ModTime = info.ModTime()
	}
	return file
}

// Count returns the number of occurrences of token in the file.
func (f *IndexedFile) Count(token string) int {
	return f.tokens[token]
}

// DistinctTokens returns the number of different tokens in the file.
func (f *IndexedFile) DistinctTokens() int {
	return len(f.tokens)
}
