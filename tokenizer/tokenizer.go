package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrInvalidPattern is returned when a separator pattern does not compile.
	ErrInvalidPattern = errors.New("invalid separator pattern")
	// ErrUndecodable is returned when a file is neither valid UTF-8 nor valid UTF-16.
	ErrUndecodable = errors.New("file content cannot be decoded")

	errNotUTF8 = errors.New("content is not valid UTF-8")
)

// Tokenizer turns the content of a file into token occurrence counts.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	Tokenize(path string) (map[string]int, error)
}

// lineFunc receives one decoded line at a time and adds its tokens to counts.
type lineFunc func(line string, counts map[string]int)

// tokenizeFile streams a file line by line through split, trying UTF-8 first
// and falling back to UTF-16 when the content is not valid UTF-8.
func tokenizeFile(path string, split lineFunc) (map[string]int, error) {
	counts, err := scanFile(path, split, nil)
	if err == nil {
		return counts, nil
	}
	if !errors.Is(err, errNotUTF8) {
		return nil, err
	}

	counts, err = scanFile(path, split, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, path, err)
	}
	return counts, nil
}

// scanFile reads the file through an optional decoder. Without a decoder the
// bytes must already be valid UTF-8.
func scanFile(path string, split lineFunc, decoder transform.Transformer) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var source io.Reader = f
	if decoder != nil {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat file: %w", err)
		}
		if info.Size()%2 != 0 {
			return nil, errors.New("odd byte length for UTF-16")
		}
		source = transform.NewReader(f, decoder)
	}

	counts := make(map[string]int)
	reader := bufio.NewReader(source)
	for {
		line, readErr := reader.ReadString('\n')
		if len(line) > 0 {
			if decoder == nil && !utf8.ValidString(line) {
				return nil, errNotUTF8
			}
			// The UTF-16 decoder substitutes U+FFFD for malformed input.
			if decoder != nil && strings.ContainsRune(line, utf8.RuneError) {
				return nil, errors.New("malformed UTF-16 sequence")
			}
			split(strings.TrimRight(line, "\r\n"), counts)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading file: %w", readErr)
		}
	}
	return counts, nil
}
