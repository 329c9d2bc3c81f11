package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the event loop keeps gathering events after the
// first one of a batch. Some platforms report one change several times.
const DefaultDebounce = 50 * time.Millisecond

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Debounce defaults to DefaultDebounce; a negative value disables the wait.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Service owns the OS watch handle, the FolderWatcher and the goroutine
// running the event loop.
type Service struct {
	fsWatcher     *fsnotify.Watcher
	folderWatcher *FolderWatcher
	debounce      time.Duration
	logger        *slog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// NewService creates the OS watch handle and starts the event loop.
func NewService(index Updater, ignore IgnoreChecker, options ServiceOptions) (*Service, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := options.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}

	s := &Service{
		fsWatcher:     fsWatcher,
		folderWatcher: NewFolderWatcher(fsWatcher, index, ignore, logger),
		debounce:      debounce,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Watch registers a file or a folder tree for change notifications.
func (s *Service) Watch(path string) {
	s.folderWatcher.Watch(path)
}

// WatchedFolders returns the folders currently registered.
func (s *Service) WatchedFolders() []string {
	return s.folderWatcher.WatchedFolders()
}

// Stop ends the event loop between batches and releases the OS handle.
// It is safe to call more than once.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.stopErr = s.fsWatcher.Close()
		<-s.done
		s.logger.Info("file watcher stopped")
	})
	return s.stopErr
}

func (s *Service) run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return

		case event, ok := <-s.fsWatcher.Events:
			if !ok {
				return
			}
			events := gather(event, s.fsWatcher.Events, s.debounce)
			s.folderWatcher.Process(events)

		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.logger.Error("watcher event queue overflowed, changes were missed", "error", err)
				continue
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}
