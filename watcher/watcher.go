package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registrar subscribes folders to OS change notifications.
// *fsnotify.Watcher satisfies it.
type Registrar interface {
	Add(name string) error
	Remove(name string) error
}

// Updater is the part of the index the watcher drives.
type Updater interface {
	Add(path string)
	AddFile(path string)
	RemoveFile(path string)
	RemoveFolder(path string)
}

// IgnoreChecker is used by the watcher to check if a file or folder should be ignored.
type IgnoreChecker interface {
	ShouldIgnore(absolutePath string) bool
	ShouldIgnoreDir(absolutePath string) bool
}

type watchMode int

const (
	// modeWholeFolder tracks every non-ignored file in the folder.
	modeWholeFolder watchMode = iota
	// modeExplicitFiles tracks only files registered one by one. Creation of
	// other entries in the folder is not observed.
	modeExplicitFiles
)

type folderWatch struct {
	mode  watchMode
	files map[string]struct{} // only used in modeExplicitFiles
}

func (f *folderWatch) tracks(path string) bool {
	if f.mode == modeWholeFolder {
		return true
	}
	_, ok := f.files[path]
	return ok
}

// FolderWatcher keeps track of which folders and files are observed and
// turns change events into index mutations.
//
// The folder state is guarded by a mutex so Watch can be called while the
// event loop is processing a batch. Index calls are made outside the lock.
type FolderWatcher struct {
	mu        sync.Mutex
	folders   map[string]*folderWatch // key: absolute folder path
	registrar Registrar
	index     Updater
	ignore    IgnoreChecker
	logger    *slog.Logger
}

// NewFolderWatcher creates a watcher with no registrations.
func NewFolderWatcher(registrar Registrar, index Updater, ignore IgnoreChecker, logger *slog.Logger) *FolderWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FolderWatcher{
		folders:   make(map[string]*folderWatch),
		registrar: registrar,
		index:     index,
		ignore:    ignore,
		logger:    logger,
	}
}

// Watch starts observing a path. A regular file is tracked on its own inside
// its parent folder; a directory is watched as a whole, recursively.
func (w *FolderWatcher) Watch(path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("cannot watch path", "path", path, "error", err)
		return
	}
	if info.Mode().IsRegular() {
		w.watchFile(path)
		return
	}
	if info.IsDir() {
		w.watchFolderRecursively(path)
	}
}

func (w *FolderWatcher) watchFile(path string) {
	folder := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	state, ok := w.folders[folder]
	switch {
	case ok && state.mode == modeWholeFolder:
		w.logger.Debug("file is already covered by its folder watch", "path", path)
	case ok:
		if _, tracked := state.files[path]; tracked {
			w.logger.Debug("file is already watched", "path", path)
			return
		}
		state.files[path] = struct{}{}
		w.logger.Info("file added to watch", "path", path)
	default:
		if err := w.registrar.Add(folder); err != nil {
			w.logger.Warn("watch registration failed", "path", folder, "error", err)
			return
		}
		w.folders[folder] = &folderWatch{
			mode:  modeExplicitFiles,
			files: map[string]struct{}{path: {}},
		}
		w.logger.Info("file added to watch", "path", path)
	}
}

func (w *FolderWatcher) watchFolderRecursively(root string) {
	var folders []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignore != nil && w.ignore.ShouldIgnoreDir(path) {
			w.logger.Debug("skipping ignored folder", "path", path)
			return filepath.SkipDir
		}
		folders = append(folders, path)
		return nil
	})
	if err != nil {
		w.logger.Warn("folder walk failed", "path", root, "error", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, folder := range folders {
		w.watchFolder(folder)
	}
}

// watchFolder puts one folder in whole-folder mode. Caller holds mu.
func (w *FolderWatcher) watchFolder(folder string) {
	if state, ok := w.folders[folder]; ok && state.mode == modeWholeFolder {
		w.logger.Debug("folder is already watched", "path", folder)
		return
	}
	if err := w.registrar.Add(folder); err != nil {
		w.logger.Warn("watch registration failed", "path", folder, "error", err)
		return
	}
	w.folders[folder] = &folderWatch{mode: modeWholeFolder}
	w.logger.Info("folder added to watch", "path", folder)
}

// RemoveFolder forgets a folder and every watched folder below it.
func (w *FolderWatcher) RemoveFolder(folder string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeFolder(folder)
}

// removeFolder drops state for folder and its subfolders. Caller holds mu.
func (w *FolderWatcher) removeFolder(folder string) {
	prefix := folder + string(filepath.Separator)
	for key := range w.folders {
		if key != folder && !strings.HasPrefix(key, prefix) {
			continue
		}
		delete(w.folders, key)
		// The OS usually dropped the registration already.
		_ = w.registrar.Remove(key)
		w.logger.Info("folder is not being watched anymore", "path", key)
	}
}

// WatchedFolders returns the registered folders in sorted order.
func (w *FolderWatcher) WatchedFolders() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	folders := make([]string, 0, len(w.folders))
	for folder := range w.folders {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}

// Process applies a batch of events in order.
func (w *FolderWatcher) Process(events []Event) {
	for _, event := range events {
		w.handleEvent(event)
	}
}

func (w *FolderWatcher) handleEvent(event Event) {
	path := filepath.Clean(event.Path)

	// Folders in explicit mode only see creation of the files they track.
	if event.Kind == KindCreate && !w.observesCreate(path) {
		w.logger.Debug("create event outside tracked files", "path", path)
		return
	}

	if w.isFolderEvent(path, event.Kind) {
		if event.Kind == KindCreate && w.ignore != nil && w.ignore.ShouldIgnoreDir(path) {
			w.logger.Debug("event is ignored for folder", "kind", event.Kind, "path", path)
			return
		}
		w.logger.Debug("folder event", "kind", event.Kind, "path", path)
		w.handleFolderEvent(path, event.Kind)
		return
	}

	if w.ignore != nil && w.ignore.ShouldIgnore(path) {
		w.logger.Debug("event is ignored for file", "kind", event.Kind, "path", path)
		return
	}

	w.logger.Debug("file event", "kind", event.Kind, "path", path)
	w.handleFileEvent(path, event.Kind)
}

func (w *FolderWatcher) observesCreate(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, ok := w.folders[filepath.Dir(path)]
	return !ok || state.tracks(path)
}

// isFolderEvent reports whether the path is a folder. Deleted paths cannot be
// inspected on disk, so a deleted path counts as a folder only if it is watched.
func (w *FolderWatcher) isFolderEvent(path string, kind EventKind) bool {
	w.mu.Lock()
	_, watched := w.folders[path]
	w.mu.Unlock()

	if watched {
		return true
	}
	if kind == KindDelete {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *FolderWatcher) handleFolderEvent(path string, kind EventKind) {
	switch kind {
	case KindCreate:
		w.Watch(path)
		w.index.Add(path)
	case KindDelete:
		// Covers both a deletion seen from the parent and the OS invalidating
		// the folder's own registration.
		w.RemoveFolder(path)
		w.index.RemoveFolder(path)
	}
}

type fileAction int

const (
	actionNone fileAction = iota
	actionIndex
	actionRemove
)

func (w *FolderWatcher) handleFileEvent(path string, kind EventKind) {
	folder := filepath.Dir(path)
	action := actionNone

	w.mu.Lock()
	state, ok := w.folders[folder]
	if ok {
		switch kind {
		case KindCreate, KindModify:
			if state.tracks(path) {
				action = actionIndex
			}
		case KindDelete:
			if state.mode == modeWholeFolder {
				action = actionRemove
			} else if _, tracked := state.files[path]; tracked {
				action = actionRemove
				delete(state.files, path)
				if len(state.files) == 0 {
					delete(w.folders, folder)
					_ = w.registrar.Remove(folder)
					w.logger.Info("folder is not being watched anymore", "path", folder)
				}
			}
		}
	}
	w.mu.Unlock()

	if !ok {
		w.logger.Debug("event for unwatched folder", "path", path)
		return
	}

	switch action {
	case actionIndex:
		w.index.AddFile(path)
	case actionRemove:
		w.index.RemoveFile(path)
	}
}
