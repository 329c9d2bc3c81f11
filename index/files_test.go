package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, options Options) *Index {
	t.Helper()
	idx, err := New(options)
	require.NoError(t, err)
	t.Cleanup(idx.Close)
	return idx
}

func writeFile(t *testing.T, path string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func query(t *testing.T, idx *Index, token string) QueryResult {
	t.Helper()
	result, err := idx.QueryToken(context.Background(), token)
	require.NoError(t, err)
	return result
}

type nameIgnorer map[string]bool

func (n nameIgnorer) ShouldIgnore(path string) bool { return n[filepath.Base(path)] }

// ShouldIgnoreDir matches folder names registered with a trailing slash.
func (n nameIgnorer) ShouldIgnoreDir(path string) bool { return n[filepath.Base(path)+"/"] }

// flakyTokenizer fails while failing is set and counts whole-file content otherwise.
type flakyTokenizer struct {
	mu      sync.Mutex
	failing bool
}

func (f *flakyTokenizer) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *flakyTokenizer) Tokenize(path string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("decode failure")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return map[string]int{string(data): 1}, nil
}

func Test_Index_AddFileAndQuery(t *testing.T) {
	idx := newTestIndex(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "abl.bla"), "classic1 logback classic2\nlogback")

	idx.AddFile(path)

	result := query(t, idx, "logback")
	assert.Equal(t, map[string]int{path: 2}, result.Occurrences)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "logback", result.Token)

	result = query(t, idx, "classic1")
	assert.Equal(t, map[string]int{path: 1}, result.Occurrences)
}

func Test_Index_AddFileTwiceIsIdempotent(t *testing.T) {
	idx := newTestIndex(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "alpha alpha beta")

	idx.AddFile(path)
	first, err := idx.Get(path)
	require.NoError(t, err)
	idx.AddFile(path)
	second, err := idx.Get(path)
	require.NoError(t, err)

	assert.Equal(t, 1, idx.FileCount())
	assert.Equal(t, 2, query(t, idx, "alpha").Occurrences[path])
	assert.NotEqual(t, first.ID, second.ID, "re-tokenization creates a new snapshot")
}

func Test_Index_QueryUnknownToken(t *testing.T) {
	idx := newTestIndex(t, Options{})
	idx.AddFile(writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "alpha"))

	result := query(t, idx, "missing")
	assert.Empty(t, result.Occurrences)
	assert.NotNil(t, result.Occurrences)
	assert.Equal(t, 0, result.Total)
}

func Test_Index_QueryEmptyToken(t *testing.T) {
	idx := newTestIndex(t, Options{})

	_, err := idx.QueryToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func Test_Index_QueryTimesOutWhileWriteLocked(t *testing.T) {
	idx := newTestIndex(t, Options{ReadLockTimeout: 50 * time.Millisecond})

	idx.lock.Lock()
	start := time.Now()
	_, err := idx.QueryToken(context.Background(), "alpha")
	idx.lock.Unlock()

	assert.ErrorIs(t, err, ErrIndexBusy)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	_, err = idx.QueryToken(context.Background(), "alpha")
	assert.NoError(t, err, "index stays usable after a timeout")
}

func Test_Index_ListingTimesOutWhileWriteLocked(t *testing.T) {
	idx := newTestIndex(t, Options{ReadLockTimeout: 50 * time.Millisecond})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "alpha")
	idx.AddFile(path)

	idx.lock.Lock()
	_, filesErr := idx.Files("**", 0)
	_, getErr := idx.Get(path)
	count := idx.FileCount()
	idx.lock.Unlock()

	assert.ErrorIs(t, filesErr, ErrIndexBusy)
	assert.ErrorIs(t, getErr, ErrIndexBusy)
	assert.Equal(t, 1, count, "the file count never waits for the lock")

	files, err := idx.Files("**", 0)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func Test_Index_QueryHonoursCancellation(t *testing.T) {
	idx := newTestIndex(t, Options{})

	idx.lock.Lock()
	defer idx.lock.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.QueryToken(ctx, "alpha")
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Index_AddFolderSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	kept := writeFile(t, filepath.Join(root, "abl.bla"), "token")
	nested := writeFile(t, filepath.Join(root, "inner", "bla.bla"), "token token")
	writeFile(t, filepath.Join(root, "inner", ".DS_Store"), "token")

	idx := newTestIndex(t, Options{Ignore: nameIgnorer{".DS_Store": true}})
	idx.Add(root)

	require.Eventually(t, func() bool { return idx.FileCount() == 2 }, 5*time.Second, 10*time.Millisecond)
	result := query(t, idx, "token")
	assert.Equal(t, map[string]int{kept: 1, nested: 2}, result.Occurrences)
	assert.Equal(t, 3, result.Total)
}

func Test_Index_AddFolderSkipsIgnoredFolders(t *testing.T) {
	root := t.TempDir()
	kept := writeFile(t, filepath.Join(root, "src", "main.txt"), "token")
	writeFile(t, filepath.Join(root, "build", "out.txt"), "token")
	writeFile(t, filepath.Join(root, "build", "deep", "out.txt"), "token")
	writeFile(t, filepath.Join(root, "src", "build", "gen.txt"), "token")

	idx := newTestIndex(t, Options{Ignore: nameIgnorer{"build/": true}})
	idx.Add(root)
	require.NoError(t, idx.WaitIdle(context.Background()))

	assert.Equal(t, 1, idx.FileCount())
	assert.Equal(t, map[string]int{kept: 1}, query(t, idx, "token").Occurrences)
}

func Test_Index_AddIgnoredFileDirectly(t *testing.T) {
	idx := newTestIndex(t, Options{Ignore: nameIgnorer{"skip.txt": true}})
	path := writeFile(t, filepath.Join(t.TempDir(), "skip.txt"), "token")

	idx.Add(path)
	require.NoError(t, idx.WaitIdle(context.Background()))

	assert.Equal(t, 0, idx.FileCount())
}

func Test_Index_AddMissingPath(t *testing.T) {
	idx := newTestIndex(t, Options{})

	idx.Add(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, idx.WaitIdle(context.Background()))

	assert.Equal(t, 0, idx.FileCount())
}

func Test_Index_TokenizationFailureKeepsEntry(t *testing.T) {
	tok := &flakyTokenizer{}
	idx := newTestIndex(t, Options{Tokenizer: tok})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "original")

	idx.AddFile(path)
	writeFile(t, path, "changed")
	tok.setFailing(true)
	idx.AddFile(path)

	assert.Equal(t, 1, query(t, idx, "original").Total)
	assert.Equal(t, 0, query(t, idx, "changed").Total)
}

func Test_Index_TokenizationFailureExcludesNewFile(t *testing.T) {
	tok := &flakyTokenizer{failing: true}
	idx := newTestIndex(t, Options{Tokenizer: tok})

	idx.AddFile(writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "x"))
	assert.Equal(t, 0, idx.FileCount())
}

func Test_Index_RemoveFile(t *testing.T) {
	idx := newTestIndex(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "alpha")
	idx.AddFile(path)

	idx.RemoveFile(path)
	idx.RemoveFile(path)

	assert.Equal(t, 0, idx.FileCount())
	file, err := idx.Get(path)
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.Equal(t, 0, query(t, idx, "alpha").Total)
}

func Test_Index_RemoveFolderPrefix(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "b")
	paths := []string{
		writeFile(t, filepath.Join(folder, "one.txt"), "alpha"),
		writeFile(t, filepath.Join(folder, "deep", "two.txt"), "alpha"),
		writeFile(t, filepath.Join(root, "b-x", "three.txt"), "alpha"),
		writeFile(t, filepath.Join(root, "bc", "four.txt"), "alpha"),
		writeFile(t, filepath.Join(root, "a.txt"), "alpha"),
	}
	idx := newTestIndex(t, Options{})
	for _, path := range paths {
		idx.AddFile(path)
	}

	idx.RemoveFolder(folder)

	result := query(t, idx, "alpha")
	assert.Len(t, result.Occurrences, 3)
	for path := range result.Occurrences {
		rel, err := filepath.Rel(folder, path)
		require.NoError(t, err)
		assert.Contains(t, rel, "..", "entry %s is still below the removed folder", path)
	}
	files, err := idx.Files("**", 0)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func Test_Index_QueryCacheInvalidatedByWrites(t *testing.T) {
	idx := newTestIndex(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "alpha")
	idx.AddFile(path)

	first := query(t, idx, "alpha")
	first.Occurrences[path] = 100

	assert.Equal(t, 1, query(t, idx, "alpha").Occurrences[path], "cached results are copies")

	writeFile(t, path, "alpha alpha")
	idx.AddFile(path)
	assert.Equal(t, 2, query(t, idx, "alpha").Occurrences[path])
}

func Test_Index_FilesGlob(t *testing.T) {
	root := t.TempDir()
	idx := newTestIndex(t, Options{})
	idx.AddFile(writeFile(t, filepath.Join(root, "src", "main.go"), "x"))
	idx.AddFile(writeFile(t, filepath.Join(root, "src", "util", "helper.go"), "x"))
	idx.AddFile(writeFile(t, filepath.Join(root, "README.md"), "x"))

	results, err := idx.Files("**/*.go", 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Files("**/*.go", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = idx.Files("[invalid", 50)
	assert.Error(t, err)
}

func Test_Index_ClosedIndexIgnoresWrites(t *testing.T) {
	idx, err := New(Options{})
	require.NoError(t, err)
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "alpha")
	idx.AddFile(path)

	idx.Close()
	idx.Close()
	idx.AddFile(path)
	idx.Add(filepath.Dir(path))

	assert.Equal(t, 0, idx.FileCount())
	idx.pool.Wait()
}

func Test_Index_ConcurrentReadersAndWriters(t *testing.T) {
	root := t.TempDir()
	idx := newTestIndex(t, Options{})
	var paths []string
	for _, name := range []string{"a", "b", "c", "d"} {
		paths = append(paths, writeFile(t, filepath.Join(root, name+".txt"), "shared "+name))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					idx.AddFile(paths[(i+j)%len(paths)])
				} else {
					_, err := idx.QueryToken(context.Background(), "shared")
					assert.NoError(t, err)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, query(t, idx, "shared").Total)
}
