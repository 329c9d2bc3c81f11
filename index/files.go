package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/tokenindex-mcp/tokenizer"
)

const (
	DefaultQueueSize       = 1024
	DefaultReadLockTimeout = 5 * time.Second
	DefaultCacheSize       = 256
)

// IgnoreChecker is used by the index to skip excluded files and folders.
type IgnoreChecker interface {
	ShouldIgnore(absolutePath string) bool
	ShouldIgnoreDir(absolutePath string) bool
}

// Options configures an Index. Zero values select the defaults.
type Options struct {
	Tokenizer       tokenizer.Tokenizer
	Ignore          IgnoreChecker
	Logger          *slog.Logger
	Workers         int           // default: runtime.NumCPU()
	QueueSize       int           // default: DefaultQueueSize
	ReadLockTimeout time.Duration // default: DefaultReadLockTimeout
	CacheSize       int           // default: DefaultCacheSize, negative disables the cache
}

// Index is a concurrent store of path -> IndexedFile.
//
// Tokenization runs on a bounded worker pool and only takes the write lock to
// commit its result, so tokenizing is parallel while commits are serialized.
// Queries take the read lock with a bounded wait.
type Index struct {
	lock        *rwLock
	files       map[string]*IndexedFile // key: absolute path
	sortedPaths []string                // sorted for listing and prefix removal
	generation  uint64                  // bumped on every mutation, guarded by lock
	fileCount   atomic.Int64            // len(files), readable without the lock

	closed          atomic.Bool
	tokenizer       tokenizer.Tokenizer
	ignore          IgnoreChecker
	pool            *pool
	cache           *queryCache
	readLockTimeout time.Duration
	logger          *slog.Logger
}

// New creates an empty index and starts its tokenization workers.
func New(options Options) (*Index, error) {
	if options.Tokenizer == nil {
		defaultTokenizer, err := tokenizer.NewRegex("")
		if err != nil {
			return nil, err
		}
		options.Tokenizer = defaultTokenizer
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Workers <= 0 {
		options.Workers = runtime.NumCPU()
	}
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultQueueSize
	}
	if options.ReadLockTimeout <= 0 {
		options.ReadLockTimeout = DefaultReadLockTimeout
	}
	if options.CacheSize == 0 {
		options.CacheSize = DefaultCacheSize
	}

	cache, err := newQueryCache(options.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	return &Index{
		lock:            newRWLock(),
		files:           make(map[string]*IndexedFile),
		sortedPaths:     make([]string, 0),
		tokenizer:       options.Tokenizer,
		ignore:          options.Ignore,
		pool:            newPool(options.Workers, options.QueueSize),
		cache:           cache,
		readLockTimeout: options.ReadLockTimeout,
		logger:          options.Logger,
	}, nil
}

// Add schedules tokenization of a file, or of every non-ignored regular file
// below a directory. It returns before tokenization completes.
func (idx *Index) Add(path string) {
	info, err := os.Stat(path)
	if err != nil {
		idx.logger.Warn("cannot add path to index", "path", path, "error", err)
		return
	}

	if info.Mode().IsRegular() {
		if idx.shouldIgnore(path) {
			idx.logger.Debug("ignored file not added to index", "path", path)
			return
		}
		idx.submit(path)
		idx.logger.Info("file added to index", "path", path)
		return
	}

	if !info.IsDir() {
		idx.logger.Warn("path is neither a regular file nor a folder", "path", path)
		return
	}

	submitted := 0
	err = filepath.WalkDir(path, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			idx.logger.Debug("skipping unreadable entry", "path", filePath, "error", err)
			return nil
		}
		if d.IsDir() {
			if filePath != path && idx.ignore != nil && idx.ignore.ShouldIgnoreDir(filePath) {
				idx.logger.Debug("skipping ignored folder", "path", filePath)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || idx.shouldIgnore(filePath) {
			return nil
		}
		idx.submit(filePath)
		submitted++
		return nil
	})
	if err != nil {
		idx.logger.Warn("folder walk failed", "path", path, "error", err)
	}
	idx.logger.Info("folder added to index", "path", path, "files", submitted)
}

func (idx *Index) submit(path string) {
	err := idx.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				idx.logger.Error("tokenization panicked", "path", path, "panic", r)
			}
		}()
		idx.AddFile(path)
	})
	if err != nil {
		idx.logger.Debug("tokenization not scheduled", "path", path, "error", err)
	}
}

func (idx *Index) shouldIgnore(path string) bool {
	return idx.ignore != nil && idx.ignore.ShouldIgnore(path)
}

// AddFile tokenizes a file and replaces its entry. A tokenization failure is
// logged and leaves any existing entry untouched.
func (idx *Index) AddFile(path string) {
	if idx.closed.Load() {
		return
	}

	tokens, err := idx.tokenizer.Tokenize(path)
	if err != nil {
		idx.logger.Warn("tokenization failed, file was not indexed", "path", path, "error", err)
		return
	}
	info, _ := os.Stat(path)
	file := newIndexedFile(path, tokens, info)

	idx.lock.Lock()
	defer idx.lock.Unlock()

	if idx.closed.Load() {
		return
	}
	if _, exists := idx.files[path]; !exists {
		i := sort.SearchStrings(idx.sortedPaths, path)
		idx.sortedPaths = append(idx.sortedPaths, "")
		copy(idx.sortedPaths[i+1:], idx.sortedPaths[i:])
		idx.sortedPaths[i] = path
	}
	idx.files[path] = file
	idx.generation++
	idx.fileCount.Store(int64(len(idx.files)))

	idx.logger.Debug("file indexed", "path", path, "tokens", file.DistinctTokens())
}

// RemoveFile removes the entry for exactly this path.
func (idx *Index) RemoveFile(path string) {
	idx.lock.Lock()
	defer idx.lock.Unlock()

	if _, exists := idx.files[path]; !exists {
		idx.logger.Debug("file to remove is not indexed", "path", path)
		return
	}

	delete(idx.files, path)
	i := sort.SearchStrings(idx.sortedPaths, path)
	if i < len(idx.sortedPaths) && idx.sortedPaths[i] == path {
		idx.sortedPaths = append(idx.sortedPaths[:i], idx.sortedPaths[i+1:]...)
	}
	idx.generation++
	idx.fileCount.Store(int64(len(idx.files)))

	idx.logger.Info("file removed from index", "path", path)
}

// RemoveFolder removes every entry located at or below the folder.
func (idx *Index) RemoveFolder(folder string) {
	idx.lock.Lock()
	defer idx.lock.Unlock()

	removed := 0
	if _, exists := idx.files[folder]; exists {
		delete(idx.files, folder)
		i := sort.SearchStrings(idx.sortedPaths, folder)
		idx.sortedPaths = append(idx.sortedPaths[:i], idx.sortedPaths[i+1:]...)
		removed++
	}

	prefix := folder
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	// Paths sharing a prefix are contiguous in sorted order.
	lo := sort.SearchStrings(idx.sortedPaths, prefix)
	hi := lo
	for hi < len(idx.sortedPaths) && strings.HasPrefix(idx.sortedPaths[hi], prefix) {
		delete(idx.files, idx.sortedPaths[hi])
		hi++
	}
	removed += hi - lo
	idx.sortedPaths = append(idx.sortedPaths[:lo], idx.sortedPaths[hi:]...)

	if removed > 0 {
		idx.generation++
		idx.fileCount.Store(int64(len(idx.files)))
	}
	idx.logger.Info("folder removed from index", "path", folder, "files", removed)
}

// QueryToken returns the per-file occurrence counts of token.
// It waits at most the configured read lock timeout and then fails with
// ErrIndexBusy; cancellation of ctx returns the context error instead.
func (idx *Index) QueryToken(ctx context.Context, token string) (QueryResult, error) {
	if token == "" {
		return QueryResult{}, ErrEmptyToken
	}

	if err := idx.readLock(ctx); err != nil {
		if err == ErrIndexBusy {
			idx.logger.Warn("query timed out waiting for index", "token", token, "timeout", idx.readLockTimeout)
		}
		return QueryResult{}, err
	}
	defer idx.lock.RUnlock()

	if cached, ok := idx.cache.get(token, idx.generation); ok {
		return cached, nil
	}

	occurrences := make(map[string]int)
	for path, file := range idx.files {
		if count := file.Count(token); count > 0 {
			occurrences[path] = count
		}
	}
	result := newQueryResult(token, occurrences)
	idx.cache.put(token, idx.generation, result)

	idx.logger.Debug("token queried", "token", token, "files", len(occurrences), "total", result.Total)
	return result, nil
}

// readLock takes the read lock, waiting at most the read lock timeout.
// It returns ErrIndexBusy on timeout and the context error on cancellation.
func (idx *Index) readLock(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, idx.readLockTimeout)
	defer cancel()
	if err := idx.lock.RLock(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrIndexBusy
	}
	return nil
}

// Get returns the IndexedFile for a path, or nil if it is not indexed.
func (idx *Index) Get(path string) (*IndexedFile, error) {
	if err := idx.readLock(context.Background()); err != nil {
		return nil, err
	}
	defer idx.lock.RUnlock()
	return idx.files[path], nil
}

// FileCount returns the number of indexed files as of the last commit.
// It never waits for the lock.
func (idx *Index) FileCount() int {
	return int(idx.fileCount.Load())
}

// Files returns indexed paths matching a doublestar glob pattern, in sorted
// order. The pattern is matched against the absolute path with forward
// slashes and without the leading separator, so "**/*.go" matches every Go file.
func (idx *Index) Files(pattern string, maxResults int) ([]*IndexedFile, error) {
	if maxResults <= 0 {
		maxResults = 50
	}

	pattern = strings.TrimPrefix(strings.ReplaceAll(pattern, "\\", "/"), "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	if err := idx.readLock(context.Background()); err != nil {
		if err == ErrIndexBusy {
			idx.logger.Warn("file listing timed out waiting for index", "pattern", pattern, "timeout", idx.readLockTimeout)
		}
		return nil, err
	}
	defer idx.lock.RUnlock()

	var results []*IndexedFile
	for _, path := range idx.sortedPaths {
		if len(results) >= maxResults {
			break
		}
		candidate := strings.TrimPrefix(filepath.ToSlash(path), "/")
		if matched, _ := doublestar.Match(pattern, candidate); matched {
			results = append(results, idx.files[path])
		}
	}
	return results, nil
}

// Pending returns the number of queued and running tokenization tasks.
func (idx *Index) Pending() int {
	return idx.pool.Pending()
}

// WaitIdle blocks until no tokenization task is pending or ctx is done.
func (idx *Index) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for idx.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Clear removes all entries.
func (idx *Index) Clear() {
	idx.lock.Lock()
	defer idx.lock.Unlock()

	idx.files = make(map[string]*IndexedFile)
	idx.sortedPaths = make([]string, 0)
	idx.generation++
	idx.fileCount.Store(0)
	idx.cache.purge()
}

// Close stops accepting tokenization tasks and clears the index. Tasks that
// are still running complete as no-ops.
func (idx *Index) Close() {
	if idx.closed.Swap(true) {
		return
	}
	idx.pool.Close()
	idx.Clear()
}
