package bank

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultStabilityThreshold is how long a file must stay quiet after a
// change before the engine reacts to it.
const DefaultStabilityThreshold = 100 * time.Millisecond

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	StabilityThreshold time.Duration
}

// Watcher monitors the root directory for changes made outside the
// engine and keeps the cache, index and typed views in sync. It is
// optional: the host owns its lifecycle via Start and Stop, and without
// it staleness is still caught by mtime checks on access.
type Watcher struct {
	core               *Core
	watcher            *fsnotify.Watcher
	stabilityThreshold time.Duration
	logger             zerolog.Logger

	done           chan struct{}
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex
	stopOnce       sync.Once
}

// NewWatcher creates a watcher over the core's root directory.
func NewWatcher(core *Core, cfg WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, opError(CodeIO, "watch", core.Root(), err)
	}

	if cfg.StabilityThreshold <= 0 {
		cfg.StabilityThreshold = DefaultStabilityThreshold
	}

	return &Watcher{
		core:               core,
		watcher:            fsWatcher,
		stabilityThreshold: cfg.StabilityThreshold,
		logger:             core.logger.With().Str("component", "watcher").Logger(),
		done:               make(chan struct{}),
		debounceTimers:     make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the root directory and its subdirectories.
func (w *Watcher) Start() error {
	if err := w.addDirectoryRecursive(w.core.Root()); err != nil {
		return opError(CodeIO, "watch", w.core.Root(), fmt.Errorf("failed to watch root: %w", err))
	}

	go w.eventLoop()

	w.logger.Info().Str("path", w.core.Root()).Msg("Memory bank watcher started")
	return nil
}

// Stop stops the watcher and cancels pending debounce timers.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	clear(w.debounceTimers)
	w.debounceMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return opError(CodeIO, "watch", w.core.Root(), err)
	}

	w.logger.Info().Msg("Memory bank watcher stopped")
	return nil
}

// eventLoop processes file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

// handleEvent debounces a raw file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[event.Name]; exists {
		timer.Stop()
	}

	eventCopy := event
	w.debounceTimers[event.Name] = time.AfterFunc(w.stabilityThreshold, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, eventCopy.Name)
		w.debounceMu.Unlock()

		select {
		case <-w.done:
			return
		default:
			w.processEvent(eventCopy)
		}
	})
}

// processEvent applies a debounced event to the engine state
func (w *Watcher) processEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		// A new directory needs watching; a new file needs indexing.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addDirectoryRecursive(event.Name)
			return
		}
		w.refresh(event.Name)

	case event.Op&fsnotify.Write == fsnotify.Write:
		w.refresh(event.Name)

	case event.Op&fsnotify.Remove == fsnotify.Remove:
		w.core.handleExternalRemove(event.Name)

	case event.Op&fsnotify.Rename == fsnotify.Rename:
		// The new name triggers its own create event
		w.core.handleExternalRemove(event.Name)
	}
}

// refresh reloads one path into the engine
func (w *Watcher) refresh(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.core.handleExternalChange(ctx, path); err != nil {
		w.logger.Error().Err(err).Str("path", path).Msg("Failed to refresh externally changed file")
	}
}

// addDirectoryRecursive adds a directory and all its subdirectories to the watcher
func (w *Watcher) addDirectoryRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info == nil || !info.IsDir() {
			return nil
		}

		if w.shouldIgnore(walkPath) && walkPath != w.core.Root() {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(walkPath); err != nil {
			w.logger.Warn().Err(err).Str("path", walkPath).Msg("Failed to watch path")
		}

		return nil
	})
}

// shouldIgnore filters dotfiles, temp files from atomic writes, and
// anything outside the root.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.core.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	if rel == "." {
		return false
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if len(part) > 0 && part[0] == '.' {
			return true
		}
	}

	return strings.HasSuffix(path, ".tmp")
}
