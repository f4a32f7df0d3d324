// Package watch reloads a file-backed dataset when the file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// LoadFunc reads the watched file into a dataset.
type LoadFunc func(ctx context.Context, path string) (*catalog.Dataset, error)

// ReplaceFunc receives each successfully reloaded dataset.
type ReplaceFunc func(ds *catalog.Dataset)

// Watcher reloads Path on write or create.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Load     LoadFunc
	Replace  ReplaceFunc
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file so atomic renames by editors are still seen. Reload failures
// are logged and the previous dataset stays active.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching dataset file", "path", abs)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			logger.Debug("dataset file changed, reloading", "path", abs)
			ds, err := w.Load(ctx, abs)
			if err != nil {
				logger.Error("reload failed", "path", abs, "error", err)
				continue
			}
			w.Replace(ds)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
