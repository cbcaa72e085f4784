// Package daemon keeps a workspace continuously provisioned: manifest edits
// and a periodic schedule both trigger new runs.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/provision/internal/logfields"
	"github.com/fsnotify/fsnotify"
)

// ManifestWatcher monitors the manifest file and triggers a debounced run
// when it changes.
type ManifestWatcher struct {
	manifestPath string
	trigger      func(reason string)
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	pendingChan  chan struct{}
	debounceTime time.Duration
	stopped      bool
}

// NewManifestWatcher creates a watcher for the given manifest path. The
// trigger callback fires after edits settle.
func NewManifestWatcher(manifestPath string, trigger func(reason string)) (*ManifestWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	absPath, err := filepath.Abs(manifestPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolving manifest path: %w", err)
	}

	return &ManifestWatcher{
		manifestPath: absPath,
		trigger:      trigger,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		pendingChan:  make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

// WithDebounce overrides the settle window before a change fires the trigger.
func (w *ManifestWatcher) WithDebounce(d time.Duration) *ManifestWatcher {
	w.debounceTime = d
	return w
}

// Start begins monitoring. Watching the parent directory instead of the file
// itself survives editors that replace the file on save.
func (w *ManifestWatcher) Start(ctx context.Context) error {
	manifestDir := filepath.Dir(w.manifestPath)
	if err := w.watcher.Add(manifestDir); err != nil {
		return fmt.Errorf("watching manifest directory %s: %w", manifestDir, err)
	}

	slog.Info("Watching manifest for changes", logfields.Path(w.manifestPath))

	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *ManifestWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true

	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing manifest watcher", logfields.Error(err))
	}
}

func (w *ManifestWatcher) watchLoop(ctx context.Context) {
	manifestFile := filepath.Base(w.manifestPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != manifestFile {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				slog.Debug("Manifest change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				w.markPending()
			case event.Op.Has(fsnotify.Remove):
				slog.Warn("Manifest removed", logfields.Path(event.Name))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Manifest watcher error", logfields.Error(err))
		}
	}
}

// debounceLoop collapses bursts of file events into a single trigger.
func (w *ManifestWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.pendingChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, func() {
				w.trigger("manifest changed")
			})
		}
	}
}

func (w *ManifestWatcher) markPending() {
	select {
	case w.pendingChan <- struct{}{}:
	default:
		// A trigger is already pending.
	}
}
