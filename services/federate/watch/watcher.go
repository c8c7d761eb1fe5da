// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before its change
// event fires. Editors that write in bursts (atomic rename plus chmod)
// collapse into one event.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes a set of config files plus the sidecar file and emits
// debounced change events to a Hub.
//
// # Description
//
// fsnotify watches the parent directories of the given files rather than
// the files themselves, so rename-replace saves keep being observed. Events
// for unwatched paths inside those directories are dropped. Each watched
// path debounces independently.
//
// # Thread Safety
//
// Safe for concurrent use. Start may be called once; Stop is idempotent.
type Watcher struct {
	hub      *Hub
	logger   *slog.Logger
	debounce time.Duration

	// configPaths and sidecarPath are cleaned absolute paths.
	configPaths map[string]bool
	sidecarPath string

	fsw      *fsnotify.Watcher
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce overrides the debounce window. Useful in tests.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a Watcher over the given config file paths and the
// sidecar path. sidecarPath may be empty when no sidecar exists yet.
func NewWatcher(hub *Hub, configPaths []string, sidecarPath string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		hub:         hub,
		logger:      slog.Default(),
		debounce:    DefaultDebounce,
		configPaths: make(map[string]bool, len(configPaths)),
		fsw:         fsw,
		done:        make(chan struct{}),
		finished:    make(chan struct{}),
		timers:      make(map[string]*time.Timer),
	}
	for _, p := range configPaths {
		w.configPaths[filepath.Clean(p)] = true
	}
	if sidecarPath != "" {
		w.sidecarPath = filepath.Clean(sidecarPath)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds the watch directories and launches the event loop. The loop
// exits when ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for p := range w.configPaths {
		dirs[filepath.Dir(p)] = true
	}
	if w.sidecarPath != "" {
		dirs[filepath.Dir(w.sidecarPath)] = true
	}

	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			w.fsw.Close()
			close(w.finished)
			return err
		}
	}

	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
	<-w.finished
}

// loop consumes fsnotify events until shutdown.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.finished)
	defer w.cancelTimers()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error",
				slog.String("component", "watch"),
				slog.Any("error", err),
			)
		}
	}
}

// handleEvent schedules a debounced emit for a watched path.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(event.Name)
	var evType EventType
	switch {
	case path == w.sidecarPath && w.sidecarPath != "":
		evType = EventSidecarChanged
	case w.configPaths[path]:
		evType = EventConfigChanged
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		w.logger.Debug("config change detected",
			slog.String("component", "watch"),
			slog.String("path", path),
			slog.String("type", string(evType)),
		)
		w.hub.Publish(Event{Type: evType, Path: path})
	})
}

// cancelTimers stops any pending debounce timers.
func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}
