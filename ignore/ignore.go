package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides whether a file is excluded from indexing and from
// watch-triggered updates. It matches on the file name, never the full path,
// except for rules coming from an optional gitignore-style file.
// A Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	exact      map[string]struct{}
	globs      []string
	ignoreFile gitignore.GitIgnore
	ignoreRoot string
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	// Names are file names to ignore. Names containing glob metacharacters are
	// matched as doublestar patterns against the file name.
	Names []string
	// IgnoreFile is an optional path to a gitignore-style file. Its rules apply
	// to paths below the directory containing it.
	IgnoreFile string
}

// NewMatcher validates the ignored names and loads the optional ignore file.
func NewMatcher(options MatcherOptions) (*Matcher, error) {
	matcher := &Matcher{exact: make(map[string]struct{})}

	for _, name := range options.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.ContainsAny(name, "*?[{") {
			matcher.exact[name] = struct{}{}
			continue
		}
		if !doublestar.ValidatePattern(name) {
			return nil, fmt.Errorf("invalid ignored name pattern: %s", name)
		}
		matcher.globs = append(matcher.globs, name)
	}

	if options.IgnoreFile != "" {
		absolutePath, err := filepath.Abs(options.IgnoreFile)
		if err != nil {
			return nil, fmt.Errorf("resolving ignore file %s: %w", options.IgnoreFile, err)
		}
		ignoreFile, err := loadIgnoreFile(absolutePath)
		if err != nil {
			return nil, err
		}
		matcher.ignoreFile = ignoreFile
		matcher.ignoreRoot = filepath.Dir(absolutePath)
	}

	return matcher, nil
}

// ShouldIgnore returns true if the file at the given absolute path is excluded.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	if m == nil {
		return false
	}

	baseName := filepath.Base(absolutePath)
	if _, ok := m.exact[baseName]; ok {
		return true
	}
	for _, pattern := range m.globs {
		if matched, _ := doublestar.Match(pattern, baseName); matched {
			return true
		}
	}

	return m.ignoredByFile(absolutePath, false)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely
// during traversal. Only rules of the ignore file apply to directories;
// ignored names always refer to files.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if m == nil {
		return false
	}
	return m.ignoredByFile(absolutePath, true)
}

// ignoredByFile checks the ignore file rules against the path and every
// folder between the ignore root and the path.
func (m *Matcher) ignoredByFile(absolutePath string, isDir bool) bool {
	if m.ignoreFile == nil {
		return false
	}
	relativePath, err := filepath.Rel(m.ignoreRoot, absolutePath)
	if err != nil || relativePath == "." || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return false
	}

	parts := strings.Split(filepath.ToSlash(relativePath), "/")
	for i := 1; i < len(parts); i++ {
		match := m.ignoreFile.Relative(strings.Join(parts[:i], "/"), true)
		if match != nil && match.Ignore() {
			return true
		}
	}
	match := m.ignoreFile.Relative(strings.Join(parts, "/"), isDir)
	return match != nil && match.Ignore()
}

// Names returns the configured ignored names in sorted order.
func (m *Matcher) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.exact)+len(m.globs))
	for name := range m.exact {
		names = append(names, name)
	}
	names = append(names, m.globs...)
	sort.Strings(names)
	return names
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string) (gitignore.GitIgnore, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	return gitignore.New(f, filepath.Dir(filePath), nil), nil
}
