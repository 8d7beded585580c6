// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package store manages the content-addressed artifact tree.
//
// Artifacts live under a root directory in a fixed two-level fan-out
// derived from the strong digest: <root>/<first 2>/<next 2>/<digest>,
// with no file extension (MIME type is metadata, not a name). The
// path is a pure function of the digest, so filesystem state, not a
// database, is the source of truth for "is this content already
// placed".
//
// The placement engine converges every physical occurrence of
// identical content onto as few inodes as possible: same-device
// sources are hardlinked into the tree, cross-device sources are
// copied, and a source whose content already exists at the canonical
// path is re-linked onto the canonical inode. Divergent content at a
// shared path is never silently overwritten; it fails loudly with
// [ErrContentMismatch].
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/hoardkeep/hoard/lib/digest"
)

// Store is the root of the content-addressed tree. It is safe for
// concurrent use: placement relies only on filesystem state, and
// concurrent placement of identical bytes converges via the
// byte-equality check. Single-winner "is this new" bookkeeping is the
// caller's concern (a unique constraint in whatever catalog persists
// results).
type Store struct {
	root string

	// deviceOf resolves the filesystem device of an existing path.
	// Overridable in tests to simulate cross-device placement.
	deviceOf func(path string) (uint64, error)
}

// NewStore creates a Store rooted at the given directory, creating it
// if it does not exist.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root %s: %w", root, err)
	}
	return &Store{root: root, deviceOf: deviceOf}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the canonical artifact path for a strong digest:
// <root>/<first 2 chars>/<next 2 chars>/<full digest>. The mapping is
// deterministic and stable across runs; two different contents can
// only collide here by colliding SHA-512 itself.
func (s *Store) Path(strong digest.Strong) string {
	text := strong.String()
	return filepath.Join(s.root, text[:2], text[2:4], text)
}

// deviceOf returns the device ID of an existing path.
func deviceOf(path string) (uint64, error) {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return 0, fmt.Errorf("stating %s: %w", path, err)
	}
	return uint64(stat.Dev), nil //nolint:unconvert // Dev width differs across platforms
}
