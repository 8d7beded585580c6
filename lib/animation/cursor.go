// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package animation recovers total animation duration from container
// formats whose general-purpose image decoders omit it.
//
// Two independent binary scanners are provided: an ISOBMFF scanner
// for AVIF (movie header box) and a RIFF scanner for WebP (ANMF frame
// chunks). Both stream with bounded memory, tolerate arbitrarily
// large files, and answer "no duration" (never an error) on
// malformed, truncated, or non-animated input. Callers treat a
// missing duration as "not animated".
package animation

import (
	"bufio"
	"io"
)

// cursor is a bounds-checked sequential reader. Every read and skip
// reports whether it fully succeeded; a skip saturates at end of file
// instead of seeking past it, so malformed chunk sizes cannot cause
// out-of-range reads.
type cursor struct {
	reader *bufio.Reader
}

func newCursor(r io.Reader) *cursor {
	return &cursor{reader: bufio.NewReader(r)}
}

// readFull fills buf completely, reporting false on any short read.
func (c *cursor) readFull(buf []byte) bool {
	_, err := io.ReadFull(c.reader, buf)
	return err == nil
}

// readUpTo reads at most len(buf) bytes, returning how many were
// actually read. Unlike readFull, a short read is not a failure.
func (c *cursor) readUpTo(buf []byte) int {
	n, _ := io.ReadFull(c.reader, buf)
	return n
}

// skip discards n bytes, reporting false if end of file arrived
// first. Negative counts are treated as zero.
func (c *cursor) skip(n int64) bool {
	if n <= 0 {
		return true
	}
	discarded, _ := io.CopyN(io.Discard, c.reader, n)
	return discarded == n
}
