package tokenizer

import (
	"strings"

	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Unicode segments lines into words following Unicode word boundary rules,
// using bleve's segmenter. Terms are counted as-is, without lowercasing.
type Unicode struct {
	segmenter *bleveunicode.UnicodeTokenizer
}

// NewUnicode creates a Unicode word tokenizer.
func NewUnicode() *Unicode {
	return &Unicode{segmenter: bleveunicode.NewUnicodeTokenizer()}
}

// Tokenize reads the file at path and returns its word counts.
func (u *Unicode) Tokenize(path string) (map[string]int, error) {
	return tokenizeFile(path, u.countLine)
}

func (u *Unicode) countLine(line string, counts map[string]int) {
	for _, token := range u.segmenter.Tokenize([]byte(line)) {
		term := string(token.Term)
		if strings.TrimSpace(term) == "" {
			continue
		}
		counts[term]++
	}
}
