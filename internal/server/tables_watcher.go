package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"atscore/internal/errors"
)

// TablesWatcher watches the scoring tables file and calls reload after
// writes settle. Editors that save by rename are handled by also watching
// the parent directory.
type TablesWatcher struct {
	mu sync.RWMutex

	path        string
	lastModTime time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reload func()
	logger *errors.Logger

	running bool
}

// NewTablesWatcher creates a watcher for path.
func NewTablesWatcher(path string, debounceDelay time.Duration, reload func(), logger *errors.Logger) *TablesWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &TablesWatcher{
		path:          path,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		reload:        reload,
		logger:        logger,
	}
}

// Start begins watching the tables file
func (tw *TablesWatcher) Start() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.running {
		return fmt.Errorf("tables watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if stat, err := os.Stat(tw.path); err == nil {
		tw.lastModTime = stat.ModTime()
	}

	dir := filepath.Dir(tw.path)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			tw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	tw.fsWatcher = watcher
	tw.running = true
	go tw.watchLoop()

	tw.logger.Info("Scoring tables watcher started",
		"file", tw.path,
		"debounce_delay", tw.debounceDelay)
	return nil
}

// Stop stops the watcher
func (tw *TablesWatcher) Stop() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if !tw.running {
		return nil
	}

	close(tw.stopChan)
	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	tw.running = false

	if err := tw.fsWatcher.Close(); err != nil {
		tw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	tw.logger.Info("Scoring tables watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (tw *TablesWatcher) IsRunning() bool {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.running
}

func (tw *TablesWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-tw.fsWatcher.Events:
			if !ok {
				return
			}
			if tw.shouldProcessEvent(event) {
				tw.scheduleReload()
			}

		case err, ok := <-tw.fsWatcher.Errors:
			if !ok {
				return
			}
			tw.logger.LogError(err, "File watcher error")

		case <-tw.reloadChan:
			if tw.hasFileChanged() {
				tw.logger.Info("Scoring tables file changed, reloading", "file", tw.path)
				tw.reload()
			}

		case <-tw.stopChan:
			return
		}
	}
}

// shouldProcessEvent determines if a file system event should trigger a reload check
func (tw *TablesWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(tw.path) &&
		filepath.Base(event.Name) != filepath.Base(tw.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged reports whether the file exists with a newer modification
// time. A deleted file keeps the current tables.
func (tw *TablesWatcher) hasFileChanged() bool {
	stat, err := os.Stat(tw.path)
	if err != nil {
		return false
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if stat.ModTime().After(tw.lastModTime) {
		tw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

// scheduleReload schedules a debounced reload
func (tw *TablesWatcher) scheduleReload() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}

	tw.debounceTimer = time.AfterFunc(tw.debounceDelay, func() {
		select {
		case tw.reloadChan <- struct{}{}:
		default:
		}
	})
}
