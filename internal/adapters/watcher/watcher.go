// Package watcher provides file system watching for database hot-reload.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called when the watched file settles after a change.
type Handler func(ctx context.Context) error

// Watcher watches a single file for changes. Events are debounced so that
// a burst of writes (an atomic replace, a bulk import) triggers the handler
// once.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	path      string
	debounce  time.Duration

	mu      sync.Mutex
	pending *time.Time
}

// Config holds watcher configuration.
type Config struct {
	Path     string
	Debounce time.Duration
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		path:      absPath,
		debounce:  cfg.Debounce,
	}, nil
}

// Start begins watching. The parent directory is watched rather than the
// file itself so that atomic replace (write-then-rename) is still seen.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching database file", "path", w.path)

	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFsEvent records a change to the watched file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op.Has(fsnotify.Chmod) {
		return
	}

	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

	now := time.Now()
	w.mu.Lock()
	w.pending = &now
	w.mu.Unlock()
}

// debounceLoop fires the handler once the watched file has been quiet for
// the debounce interval.
func (w *Watcher) debounceLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.firePending(ctx)
		}
	}
}

func (w *Watcher) firePending(ctx context.Context) {
	w.mu.Lock()
	if w.pending == nil || time.Since(*w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = nil
	w.mu.Unlock()

	w.logger.Info("database file changed, reloading", "path", w.path)

	// Call handler in goroutine to not block the loop
	go func() {
		if err := w.handler(ctx); err != nil {
			w.logger.Error("reload handler error", "path", w.path, "error", err)
		}
	}()
}
