// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha1"
	"crypto/sha512"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the read size used when streaming a file
// through the hash functions. Files are never loaded whole.
const DefaultChunkSize = 64 * 1024

// ProgressFunc receives (bytesProcessed, totalBytes) after each chunk
// during hashing. Returning a non-nil error aborts the hash and
// propagates the error to the [Sum] caller. This is the intended
// cancellation mechanism: a caller-chosen condition checked in the
// callback transparently aborts the whole ingestion.
type ProgressFunc func(processed, total int64) error

// Result is the output of a single hashing pass over one file.
type Result struct {
	Pair

	// Size is the total number of bytes read.
	Size int64
}

// Sum streams the file at path once, feeding every chunk into both
// hash functions, and returns the digest pair plus byte count. The
// digest is all-or-nothing: any open or read failure returns an error
// and no partial result. progress may be nil.
func Sum(path string, progress ProgressFunc) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stating %s: %w", path, err)
	}
	total := info.Size()

	fastHash := sha1.New()
	strongHash := sha512.New()

	var processed int64
	buffer := make([]byte, DefaultChunkSize)
	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			// Hash writers never fail.
			fastHash.Write(buffer[:n])
			strongHash.Write(buffer[:n])
			processed += int64(n)
			if progress != nil {
				if err := progress(processed, total); err != nil {
					return Result{}, fmt.Errorf("hashing %s aborted by progress callback: %w", path, err)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("reading %s while hashing: %w", path, readErr)
		}
	}

	var result Result
	copy(result.Fast[:], fastHash.Sum(nil))
	copy(result.Strong[:], strongHash.Sum(nil))
	result.Size = processed
	return result, nil
}
