// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// seenCacheLimit bounds the duplicate-event cache; the watcher clears
// it wholesale past this size rather than tracking age per entry.
const seenCacheLimit = 1000

// WatchOptions controls a directory watch.
type WatchOptions struct {
	Options

	// ImportExisting ingests the current contents of each watched
	// directory before waiting for events.
	ImportExisting bool

	// OnFile observes every completed ingestion attempt.
	OnFile FileFunc
}

// Watch ingests files as they appear under the given directories,
// recursively, until ctx is cancelled. New subdirectories are added
// to the watch and swept for files that landed before the watch took
// effect. Per-file failures are logged and never stop the watch.
func (e *Engine) Watch(ctx context.Context, dirs []string, opts WatchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	w := &watchState{engine: e, watcher: watcher, opts: opts, seen: make(map[string]bool)}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	if opts.ImportExisting {
		for _, dir := range dirs {
			e.IngestTree(ctx, dir, opts.Options, opts.OnFile)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.Logger.Warn("watch error", "error", err)
		}
	}
}

type watchState struct {
	engine  *Engine
	watcher *fsnotify.Watcher
	opts    WatchOptions
	seen    map[string]bool
}

// addTree registers dir and every subdirectory with the watcher.
func (w *watchState) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// handleEvent routes one filesystem event. Creation of a directory
// extends the watch; creation or write of a file triggers ingestion,
// deduplicated so a burst of write events for one file ingests once.
func (w *watchState) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name); err != nil {
				w.engine.Logger.Warn("watching new directory failed",
					"path", event.Name, "error", err)
			}
			// Files may have landed before the watch took effect.
			w.engine.IngestTree(ctx, event.Name, w.opts.Options, w.opts.OnFile)
		}
		return
	}

	if w.seen[event.Name] {
		return
	}
	w.seen[event.Name] = true
	if len(w.seen) > seenCacheLimit {
		w.seen = make(map[string]bool)
	}

	result, err := w.engine.Ingest(ctx, event.Name, w.opts.Options)
	if err != nil {
		w.engine.Logger.Warn("ingestion failed", "path", event.Name, "error", err)
	}
	if w.opts.OnFile != nil {
		w.opts.OnFile(event.Name, result, err)
	}
}
