package tokenizer

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPattern splits on every run of characters that are not Latin or
// Cyrillic letters, ASCII digits or underscores.
const DefaultPattern = `[^\p{Latin}\p{Cyrillic}0-9_]+`

// Regex splits every line on a separator pattern and counts the remaining
// non-blank pieces. Counting is exact and case-sensitive.
type Regex struct {
	separator *regexp.Regexp
}

// NewRegex compiles the separator pattern. An empty pattern selects DefaultPattern.
func NewRegex(pattern string) (*Regex, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	separator, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return &Regex{separator: separator}, nil
}

// Pattern returns the separator expression in use.
func (r *Regex) Pattern() string {
	return r.separator.String()
}

// Tokenize reads the file at path and returns its token counts.
func (r *Regex) Tokenize(path string) (map[string]int, error) {
	return tokenizeFile(path, r.countLine)
}

// Count tokenizes an in-memory string with the same rules as Tokenize.
func (r *Regex) Count(content string) map[string]int {
	counts := make(map[string]int)
	for _, line := range strings.Split(content, "\n") {
		r.countLine(strings.TrimRight(line, "\r"), counts)
	}
	return counts
}

func (r *Regex) countLine(line string, counts map[string]int) {
	for _, token := range r.separator.Split(line, -1) {
		if strings.TrimSpace(token) == "" {
			continue
		}
		counts[token]++
	}
}
