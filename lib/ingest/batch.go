// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileFunc observes one completed batch item. err is nil on success,
// wraps ErrRejected for gated files, and carries the ingestion
// failure otherwise.
type FileFunc func(path string, result Result, err error)

// IngestPaths ingests a mix of files and directories. Directories are
// walked recursively in sorted order. One file's failure never aborts
// the batch; the returned map collects every path that did not ingest
// cleanly (including gate rejections, distinguishable with
// errors.Is(err, ErrRejected)).
func (e *Engine) IngestPaths(ctx context.Context, paths []string, opts Options, onFile FileFunc) map[string]error {
	failures := make(map[string]error)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			failures[path] = fmt.Errorf("path does not exist or is not accessible: %w", err)
			continue
		}
		if info.IsDir() {
			for p, err := range e.IngestTree(ctx, path, opts, onFile) {
				failures[p] = err
			}
			continue
		}
		e.ingestOne(ctx, path, opts, onFile, failures)
	}
	return failures
}

// IngestTree walks a directory recursively, ingesting every regular
// file in lexical order. Unreadable subtrees are recorded as failures
// and skipped, not fatal.
func (e *Engine) IngestTree(ctx context.Context, dir string, opts Options, onFile FileFunc) map[string]error {
	failures := make(map[string]error)
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			failures[path] = err
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		e.ingestOne(ctx, path, opts, onFile, failures)
		return nil
	})
	if walkErr != nil && len(failures) == 0 {
		failures[dir] = walkErr
	}
	return failures
}

func (e *Engine) ingestOne(ctx context.Context, path string, opts Options, onFile FileFunc, failures map[string]error) {
	result, err := e.Ingest(ctx, path, opts)
	if err != nil {
		failures[path] = err
		e.Logger.Warn("ingestion failed", "path", path, "error", err)
	}
	if onFile != nil {
		onFile(path, result, err)
	}
}
