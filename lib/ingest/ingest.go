// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest orchestrates one file's journey into the store:
// gate, digest, classify, place, and optionally record in the
// catalog. Digest and placement errors bubble up unmodified so the
// caller decides whether to skip, retry, or abort a batch; metadata
// extraction failures never surface as errors; the classifier has
// already folded them into the corrupt flag.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hoardkeep/hoard/lib/catalog"
	"github.com/hoardkeep/hoard/lib/digest"
	"github.com/hoardkeep/hoard/lib/metadata"
	"github.com/hoardkeep/hoard/lib/store"
)

// Engine wires the ingestion collaborators together. Catalog is
// optional; without one, Created falls back to the placement
// decision.
type Engine struct {
	Store      *store.Store
	Classifier *metadata.Classifier
	Catalog    *catalog.Catalog
	Gate       Gate
	Logger     *slog.Logger
}

// NewEngine creates an Engine. A nil logger falls back to
// slog.Default.
func NewEngine(st *store.Store, classifier *metadata.Classifier, cat *catalog.Catalog, gate Gate, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Store: st, Classifier: classifier, Catalog: cat, Gate: gate, Logger: logger}
}

// Options controls one ingestion call.
type Options struct {
	// HardlinkOnly refuses to fall back to copying across
	// filesystems; the call fails with store.ErrCannotHardLink.
	HardlinkOnly bool

	// RemoveOriginal deletes the source path after successful
	// placement.
	RemoveOriginal bool

	// Progress, when non-nil, receives hashing progress callbacks and
	// may abort by returning an error.
	Progress digest.ProgressFunc
}

// Result is what one successful ingestion produces.
type Result struct {
	Digests  digest.Pair
	Size     int64
	MimeType string
	Metadata metadata.Metadata
	Corrupt  metadata.Corrupt
	Decision store.Decision

	// Created reports whether this call introduced new content. With
	// a catalog it is the single-winner answer; without one it
	// reflects the placement decision only.
	Created bool
}

// Ingest commits the file at path into the content-addressed store
// and returns its identity, metadata, and placement decision. Gate
// rejections wrap ErrRejected; digest and placement errors are
// returned unmodified semantics-wise (wrapped with context only).
func (e *Engine) Ingest(ctx context.Context, path string, opts Options) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", path, err)
	}
	if err := e.Gate.Check(path, info); err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", path, err)
	}

	summed, err := digest.Sum(path, opts.Progress)
	if err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", path, err)
	}
	mimeType := digest.MimeType(path)

	// Classification runs before placement so a corrupt verdict still
	// lands in the same result as the digest; it can never fail the
	// call.
	var meta metadata.Metadata
	corrupt := metadata.CorruptUnknown
	if e.Classifier != nil {
		meta, corrupt = e.Classifier.Classify(ctx, path, mimeType)
	}

	dst := e.Store.Path(summed.Strong)
	decision, err := e.Store.Place(path, dst, opts.HardlinkOnly)
	if err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", path, err)
	}

	result := Result{
		Digests:  summed.Pair,
		Size:     summed.Size,
		MimeType: mimeType,
		Metadata: meta,
		Corrupt:  corrupt,
		Decision: decision,
		Created:  decision == store.Hardlinked || decision == store.Copied,
	}

	if e.Catalog != nil {
		record := catalog.Record{
			StrongDigest: summed.Strong.String(),
			FastDigest:   summed.Fast.String(),
			MimeType:     mimeType,
			Size:         summed.Size,
			Metadata:     meta,
			Corrupt:      corrupt,
		}
		_, created, err := e.Catalog.GetOrCreate(record, path)
		if err != nil {
			return Result{}, fmt.Errorf("recording %s: %w", path, err)
		}
		result.Created = created
	}

	if opts.RemoveOriginal {
		if err := e.removeOriginal(path, dst); err != nil {
			return Result{}, err
		}
	}

	e.Logger.Info("ingested file",
		"path", path,
		"digest", summed.Strong.String(),
		"size", summed.Size,
		"mime_type", mimeType,
		"decision", decision.String(),
		"corrupt", corrupt.String(),
		"created", result.Created)
	return result, nil
}

// removeOriginal deletes the source after placement, refusing only
// when the source path is the canonical path itself.
func (e *Engine) removeOriginal(path, dst string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("removing original %s: %w", path, err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("removing original %s: %w", path, err)
	}
	if absPath == absDst {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing original %s: %w", path, err)
	}
	return nil
}
