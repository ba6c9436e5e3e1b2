// Package watcher notifies the session when the contents of the selected
// input directory change, so the file list stays current without manual
// refresh.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

type Watcher interface {
	// Watch replaces the watched directory. Only one directory is
	// watched at a time; the session annotates a single folder.
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

// FSWatcher is an fsnotify-backed Watcher.
type FSWatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	fw       *fsnotify.Watcher
	current  string
	callback func(path string, event EventType)
}

func NewFSWatcher(logger *slog.Logger) (*FSWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot create fs watcher: %w", err)
	}

	w := &FSWatcher{logger: logger, fw: fw}
	go w.loop()
	return w, nil
}

func (w *FSWatcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fs watcher error", "error", err)
		}
	}
}

func (w *FSWatcher) dispatch(ev fsnotify.Event) {
	var kind EventType
	switch {
	case ev.Has(fsnotify.Create):
		kind = EventCreate
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		kind = EventDelete
	case ev.Has(fsnotify.Write):
		kind = EventModify
	default:
		return
	}

	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()

	if cb != nil {
		cb(ev.Name, kind)
	}
}

func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != "" {
		if err := w.fw.Remove(w.current); err != nil {
			w.logger.Warn("cannot unwatch previous directory", "path", w.current, "error", err)
		}
		w.current = ""
	}

	if err := w.fw.Add(path); err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}
	w.current = path
	w.logger.Info("watching input directory", "path", path)
	return nil
}

func (w *FSWatcher) Stop() error {
	return w.fw.Close()
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}
