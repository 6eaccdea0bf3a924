package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// definitionWatcher calls onChange, debounced, whenever the watched file is
// written, created or renamed into place.
type definitionWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	trigger  chan struct{}
}

func newDefinitionWatcher(filename string, debounce time.Duration, onChange func()) (*definitionWatcher, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolve definition path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}
	return &definitionWatcher{
		path:     absPath,
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Run blocks until ctx is done or the watcher is closed.
func (w *definitionWatcher) Run(ctx context.Context) error {
	slog.Info("Watching definition", "path", w.path)
	name := filepath.Base(w.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				slog.Debug("Definition change detected", "file", event.Name, "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, w.fire)
			}
		case <-w.trigger:
			w.onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Definition watcher error", "error", err)
		}
	}
}

func (w *definitionWatcher) fire() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Close releases the underlying watcher.
func (w *definitionWatcher) Close() error {
	return w.watcher.Close()
}
