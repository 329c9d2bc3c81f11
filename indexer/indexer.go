// Package indexer composes the token index and the folder watcher into a
// single live index over a set of files and folders.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lexandro/tokenindex-mcp/ignore"
	"github.com/lexandro/tokenindex-mcp/index"
	"github.com/lexandro/tokenindex-mcp/tokenizer"
	"github.com/lexandro/tokenindex-mcp/watcher"
)

// Config holds the indexer settings. Zero values select the defaults of the
// underlying components.
type Config struct {
	// IgnoredNames are file names excluded from indexing and from updates.
	IgnoredNames []string
	// SeparatorPattern is the regular expression splitting content into
	// tokens. Mutually exclusive with Tokenizer.
	SeparatorPattern string
	// Tokenizer replaces the default regex tokenizer.
	Tokenizer tokenizer.Tokenizer
	// IgnoreFile is an optional gitignore-style file.
	IgnoreFile string

	Workers         int
	QueueSize       int
	ReadLockTimeout time.Duration
	Debounce        time.Duration // negative disables the wait
	CacheSize       int           // negative disables the query cache
	Logger          *slog.Logger
}

// Status is a point-in-time summary of the indexer.
type Status struct {
	Files          int           `json:"files"`
	Pending        int           `json:"pending"`
	Roots          []string      `json:"roots"`
	WatchedFolders []string      `json:"watchedFolders"`
	IgnoredNames   []string      `json:"ignoredNames"`
	Separator      string        `json:"separator,omitempty"` // empty for custom tokenizers
	Uptime         time.Duration `json:"uptime"`
}

// Indexer keeps an index of a set of files and folders up to date with the
// filesystem.
type Indexer struct {
	index   *index.Index
	service *watcher.Service
	matcher   *ignore.Matcher
	separator string
	logger    *slog.Logger
	started   time.Time

	mu    sync.Mutex
	roots []string

	closeOnce sync.Once
	closeErr  error
}

// New validates the configuration, creates the index and starts the watcher.
func New(cfg Config) (*Indexer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tok, err := buildTokenizer(cfg)
	if err != nil {
		return nil, err
	}

	matcher, err := ignore.NewMatcher(ignore.MatcherOptions{
		Names:      cfg.IgnoredNames,
		IgnoreFile: cfg.IgnoreFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	idx, err := index.New(index.Options{
		Tokenizer:       tok,
		Ignore:          matcher,
		Logger:          logger,
		Workers:         cfg.Workers,
		QueueSize:       cfg.QueueSize,
		ReadLockTimeout: cfg.ReadLockTimeout,
		CacheSize:       cfg.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	service, err := watcher.NewService(idx, matcher, watcher.ServiceOptions{
		Debounce: cfg.Debounce,
		Logger:   logger,
	})
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("starting watcher: %w", err)
	}

	ix := &Indexer{
		index:   idx,
		service: service,
		matcher: matcher,
		logger:  logger,
		started: time.Now(),
	}
	if regex, ok := tok.(*tokenizer.Regex); ok {
		ix.separator = regex.Pattern()
	}
	return ix, nil
}

func buildTokenizer(cfg Config) (tokenizer.Tokenizer, error) {
	if cfg.Tokenizer != nil {
		if cfg.SeparatorPattern != "" {
			return nil, fmt.Errorf("%w: separator pattern and custom tokenizer are mutually exclusive", ErrConfiguration)
		}
		return cfg.Tokenizer, nil
	}
	tok, err := tokenizer.NewRegex(cfg.SeparatorPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return tok, nil
}

// Index adds each path to the index and starts watching it. A path that
// cannot be normalized or does not exist is logged and skipped; the others
// are still indexed. Tokenization completes asynchronously.
func (ix *Indexer) Index(paths []string) {
	for _, path := range paths {
		absolutePath, err := normalize(path)
		if err != nil {
			ix.logger.Warn("skipping path", "path", path, "error", err)
			continue
		}
		if _, err := os.Stat(absolutePath); err != nil {
			ix.logger.Warn("skipping path", "path", absolutePath, "error", err)
			continue
		}
		ix.index.Add(absolutePath)
		ix.service.Watch(absolutePath)
		ix.remember(absolutePath)
	}
}

func normalize(path string) (string, error) {
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return absolutePath, nil
}

func (ix *Indexer) remember(root string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !slices.Contains(ix.roots, root) {
		ix.roots = append(ix.roots, root)
	}
}

// QueryToken returns how often token occurs in each indexed file. It fails
// with index.ErrEmptyToken or, when the index stays locked for writing too
// long, with index.ErrIndexBusy.
func (ix *Indexer) QueryToken(ctx context.Context, token string) (index.QueryResult, error) {
	return ix.index.QueryToken(ctx, token)
}

// Files lists indexed files whose path matches a doublestar glob pattern.
func (ix *Indexer) Files(pattern string, maxResults int) ([]*index.IndexedFile, error) {
	return ix.index.Files(pattern, maxResults)
}

// Reindex clears the index and indexes every remembered root again.
func (ix *Indexer) Reindex() int {
	ix.mu.Lock()
	roots := slices.Clone(ix.roots)
	ix.mu.Unlock()

	ix.index.Clear()
	for _, root := range roots {
		ix.index.Add(root)
		ix.service.Watch(root)
	}
	ix.logger.Info("reindex scheduled", "roots", len(roots))
	return len(roots)
}

// WaitIdle blocks until no tokenization is pending or ctx is done.
func (ix *Indexer) WaitIdle(ctx context.Context) error {
	return ix.index.WaitIdle(ctx)
}

// Status reports the current size and activity of the indexer.
func (ix *Indexer) Status() Status {
	ix.mu.Lock()
	roots := slices.Clone(ix.roots)
	ix.mu.Unlock()
	slices.Sort(roots)

	return Status{
		Files:          ix.index.FileCount(),
		Pending:        ix.index.Pending(),
		Roots:          roots,
		WatchedFolders: ix.service.WatchedFolders(),
		IgnoredNames:   ix.matcher.Names(),
		Separator:      ix.separator,
		Uptime:         time.Since(ix.started),
	}
}

// Close stops the watcher, then closes and clears the index. Later calls
// return the result of the first one.
func (ix *Indexer) Close() error {
	ix.closeOnce.Do(func() {
		if err := ix.service.Stop(); err != nil {
			ix.closeErr = fmt.Errorf("stopping watcher: %w", err)
		}
		ix.index.Close()
		ix.logger.Info("indexer closed")
	})
	return ix.closeErr
}

// IsBusy reports whether err is the retryable lock timeout of a query.
func IsBusy(err error) bool {
	return errors.Is(err, index.ErrIndexBusy)
}
