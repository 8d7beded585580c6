// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultMaxSize is the import gate's size cap when none is
// configured.
const DefaultMaxSize = 100 * 1024 * 1024

// ErrRejected reports a file turned away by the import gate. Callers
// distinguish it from real ingestion failures with errors.Is.
var ErrRejected = errors.New("rejected by import gate")

// Path fragments that indicate traversal or sensitive-tree access
// attempts in externally supplied names.
var disallowedPatterns = []string{"..", "/etc/", "/proc/", "/sys/"}

// DefaultExtensions is the stock allowed-extension set for
// externally supplied files.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif",
	".mp4", ".webm", ".pdf",
}

// Gate filters which files enter ingestion. The zero value applies
// the hidden/temporary/empty checks with the default size cap and no
// extension restriction.
type Gate struct {
	// MaxSize caps the file size in bytes; zero selects
	// DefaultMaxSize, negative disables the cap.
	MaxSize int64

	// Extensions, when non-empty, is the allowed extension set
	// (lowercase, with leading dot). Empty allows every extension.
	Extensions []string
}

// Check reports nil when the file may be ingested, or an error
// wrapping ErrRejected naming the reason. info must describe path.
func (g Gate) Check(path string, info fs.FileInfo) error {
	base := filepath.Base(path)
	if base == "" || strings.HasPrefix(base, ".") {
		return fmt.Errorf("hidden file: %w", ErrRejected)
	}
	if strings.HasSuffix(path, ".tmp") || strings.HasSuffix(path, ".temp") || strings.HasSuffix(path, "~") {
		return fmt.Errorf("temporary file: %w", ErrRejected)
	}
	lower := strings.ToLower(path)
	for _, pattern := range disallowedPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("disallowed path pattern %q: %w", pattern, ErrRejected)
		}
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %w", ErrRejected)
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty file: %w", ErrRejected)
	}
	maxSize := g.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("file size %d exceeds cap %d: %w", info.Size(), maxSize, ErrRejected)
	}
	if len(g.Extensions) > 0 {
		extension := strings.ToLower(filepath.Ext(base))
		allowed := false
		for _, candidate := range g.Extensions {
			if extension == candidate {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("extension %q not allowed: %w", extension, ErrRejected)
		}
	}
	return nil
}
