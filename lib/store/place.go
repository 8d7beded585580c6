// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Decision reports how Place committed a source file into the tree.
// It is consumed immediately by the caller (to decide whether a "new
// artifact" event should fire) and never persisted.
type Decision int

const (
	// AlreadyPresent: the destination is the same underlying file as
	// the source (identical device and inode), or already holds
	// byte-identical content that could not be linked. No data moved.
	AlreadyPresent Decision = iota

	// Hardlinked: a new hardlink to the source was created at the
	// destination on the same device.
	Hardlinked

	// Copied: the source was copied to the destination across
	// devices.
	Copied

	// LinkedToCanonical: byte-identical content already existed at
	// the destination; the source path was re-linked onto the
	// canonical destination inode (which may carry other hardlinks).
	LinkedToCanonical
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case AlreadyPresent:
		return "already-present"
	case Hardlinked:
		return "hardlinked"
	case Copied:
		return "copied"
	case LinkedToCanonical:
		return "linked-to-canonical"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// ErrCannotHardLink is returned when the source and destination are
// on different filesystems and the caller forbade copying. It is
// distinct from I/O errors so callers can distinguish "ask to copy
// instead" from "the source file is unreadable".
var ErrCannotHardLink = errors.New("source and destination are on different filesystems, cannot hardlink")

// ErrContentMismatch is returned when the destination path already
// exists with different bytes than the source. Under the strong
// digest's invariant this means either a hash collision or a prior
// bug; it is fatal and must never be downgraded to a warning or a
// silent winner-picking.
var ErrContentMismatch = errors.New("destination exists with different content")

// Place commits the file at src into the tree at dst.
//
// If dst is already the same underlying file as src, nothing happens.
// Same-device sources are hardlinked; cross-device sources are copied
// (preserving modification time and permission bits) unless
// hardlinkOnly is set, in which case [ErrCannotHardLink] is returned.
// A dst that already exists must hold byte-identical content; a
// mismatch is [ErrContentMismatch].
func (s *Store) Place(src, dst string, hardlinkOnly bool) (Decision, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stating source %s: %w", src, err)
	}

	if dstInfo, err := os.Stat(dst); err == nil {
		if os.SameFile(srcInfo, dstInfo) {
			return AlreadyPresent, nil
		}
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("stating destination %s: %w", dst, err)
	}

	same, err := s.onSameFilesystem(src, dst)
	if err != nil {
		return 0, err
	}
	if same {
		return s.placeLink(src, dst)
	}
	if hardlinkOnly {
		return 0, fmt.Errorf("placing %s at %s: %w", src, dst, ErrCannotHardLink)
	}
	return s.placeCopy(src, dst)
}

// onSameFilesystem reports whether src and dst reside on the same
// device. If dst does not exist yet, its nearest existing ancestor
// directory stands in for it.
func (s *Store) onSameFilesystem(src, dst string) (bool, error) {
	srcDevice, err := s.deviceOf(src)
	if err != nil {
		return false, err
	}

	probe := dst
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("stating %s: %w", probe, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			// Filesystem root does not exist; impossible in
			// practice, but stop rather than loop.
			break
		}
		probe = parent
	}

	dstDevice, err := s.deviceOf(probe)
	if err != nil {
		return false, err
	}
	return srcDevice == dstDevice, nil
}

// placeLink commits src via hardlink on the same device.
func (s *Store) placeLink(src, dst string) (Decision, error) {
	if _, err := os.Stat(dst); err == nil {
		if err := s.assertSameContents(src, dst); err != nil {
			return 0, err
		}
		// dst is canonical: it may already carry other hardlinks.
		// Re-point src at it rather than the other way around.
		if err := os.Remove(src); err != nil {
			return 0, fmt.Errorf("unlinking %s before re-link: %w", src, err)
		}
		if err := os.Link(dst, src); err != nil {
			return 0, fmt.Errorf("re-linking %s onto canonical %s: %w", src, dst, err)
		}
		return LinkedToCanonical, nil
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("stating destination %s: %w", dst, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("creating destination directory for %s: %w", dst, err)
	}
	if err := os.Link(src, dst); err != nil {
		return 0, fmt.Errorf("hardlinking %s to %s: %w", src, dst, err)
	}
	return Hardlinked, nil
}

// placeCopy commits src via copy across devices.
func (s *Store) placeCopy(src, dst string) (Decision, error) {
	if _, err := os.Stat(dst); err == nil {
		if err := s.assertSameContents(src, dst); err != nil {
			return 0, err
		}
		return AlreadyPresent, nil
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("stating destination %s: %w", dst, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("creating destination directory for %s: %w", dst, err)
	}
	if err := copyPreserving(src, dst); err != nil {
		return 0, err
	}
	return Copied, nil
}

// copyPreserving copies src to dst through a temp file in dst's
// directory (atomic rename, no partial destination on failure),
// carrying over the source's permission bits and modification time.
func copyPreserving(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s for copy: %w", src, err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stating %s: %w", src, err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".hoard-copy-*")
	if err != nil {
		return fmt.Errorf("creating temp copy target: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := tmpFile.Chmod(srcInfo.Mode().Perm()); err != nil {
		tmpFile.Close()
		return fmt.Errorf("preserving permissions on %s: %w", dst, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing copy of %s: %w", src, err)
	}
	if err := os.Chtimes(tmpPath, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return fmt.Errorf("preserving modification time on %s: %w", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming copy into place at %s: %w", dst, err)
	}
	success = true
	return nil
}

// assertSameContents verifies byte-for-byte equality of two files.
// This is a safety assertion, not a normal-path check: under the
// strong digest's invariant the files are always equal, and a
// mismatch surfaces as [ErrContentMismatch].
func (s *Store) assertSameContents(a, b string) error {
	equal, err := sameContents(a, b)
	if err != nil {
		return err
	}
	if !equal {
		return fmt.Errorf("%s vs %s: %w", a, b, ErrContentMismatch)
	}
	return nil
}

// sameContents streams both files and compares them chunk by chunk.
func sameContents(a, b string) (bool, error) {
	aInfo, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("stating %s: %w", a, err)
	}
	bInfo, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("stating %s: %w", b, err)
	}
	if aInfo.Size() != bInfo.Size() {
		return false, nil
	}

	aFile, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("opening %s for comparison: %w", a, err)
	}
	defer aFile.Close()
	bFile, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("opening %s for comparison: %w", b, err)
	}
	defer bFile.Close()

	aBuffer := make([]byte, 64*1024)
	bBuffer := make([]byte, 64*1024)
	for {
		n, aErr := io.ReadFull(aFile, aBuffer)
		m, bErr := io.ReadFull(bFile, bBuffer)
		if !bytes.Equal(aBuffer[:n], bBuffer[:m]) {
			return false, nil
		}
		aDone := aErr == io.EOF || aErr == io.ErrUnexpectedEOF
		bDone := bErr == io.EOF || bErr == io.ErrUnexpectedEOF
		if aDone || bDone {
			return aDone == bDone && n == m, nil
		}
		if aErr != nil {
			return false, fmt.Errorf("reading %s: %w", a, aErr)
		}
		if bErr != nil {
			return false, fmt.Errorf("reading %s: %w", b, bErr)
		}
	}
}
