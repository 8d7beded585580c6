// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package animation

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

// ISOBMFF scan parameters.
const (
	// avifWindowSize is the read window for the mvhd tag search.
	avifWindowSize = 8192

	// avifOverlap is how many trailing bytes are retained across
	// window boundaries so a tag split across two windows is still
	// found.
	avifOverlap = 8
)

// mvhdTag is the movie header box type in the ISOBMFF box tree.
// Animated AVIF files carry their timescale and duration here; still
// images have no moov branch at all.
var mvhdTag = []byte("mvhd")

// AVIFDurationFile reports the total animation duration of the AVIF
// file at path, in milliseconds. I/O errors are absorbed into the
// "not animated" answer, matching the parser's boundary contract.
func AVIFDurationFile(path string) (int64, bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()
	return AVIFDuration(file)
}

// AVIFDuration scans an ISOBMFF stream for the mvhd box and computes
// the total duration in milliseconds (duration * 1000 / timescale,
// truncated). Returns ok=false when the file has no mvhd box (not
// animated), an unknown mvhd version, a zero timescale, or is
// malformed or truncated in any way.
func AVIFDuration(r io.ReadSeeker) (int64, bool) {
	offset, found := findTag(r, mvhdTag)
	if !found {
		return 0, false
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0, false
	}
	c := newCursor(r)

	// 4-byte tag, 1-byte version, 3 flag bytes.
	header := make([]byte, 8)
	if !c.readFull(header) {
		return 0, false
	}
	version := header[4]

	var timescale uint32
	var duration uint64
	switch version {
	case 0:
		// 32-bit creation and modification timestamps, then 32-bit
		// timescale and 32-bit duration.
		if !c.skip(8) {
			return 0, false
		}
		fields := make([]byte, 8)
		if !c.readFull(fields) {
			return 0, false
		}
		timescale = binary.BigEndian.Uint32(fields[:4])
		duration = uint64(binary.BigEndian.Uint32(fields[4:8]))
	case 1:
		// 64-bit timestamps, 32-bit timescale, 64-bit duration.
		if !c.skip(16) {
			return 0, false
		}
		fields := make([]byte, 12)
		if !c.readFull(fields) {
			return 0, false
		}
		timescale = binary.BigEndian.Uint32(fields[:4])
		duration = binary.BigEndian.Uint64(fields[4:12])
	default:
		return 0, false
	}

	if timescale == 0 {
		return 0, false
	}
	milliseconds := int64(duration * 1000 / uint64(timescale))
	if milliseconds <= 0 {
		return 0, false
	}
	return milliseconds, true
}

// findTag locates the first occurrence of tag in the stream using a
// sliding window, returning its absolute offset. The last avifOverlap
// bytes of each window are re-examined with the next one so a tag
// spanning a window boundary is still found.
func findTag(r io.ReadSeeker, tag []byte) (int64, bool) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, false
	}

	window := make([]byte, avifWindowSize)
	var carry []byte
	var windowStart int64 // absolute offset of carry+window data
	for {
		n, err := io.ReadFull(r, window)
		if n == 0 {
			return 0, false
		}
		search := append(carry, window[:n]...)

		if index := bytes.Index(search, tag); index >= 0 {
			return windowStart + int64(index), true
		}

		retained := avifOverlap
		if len(search) < retained {
			retained = len(search)
		}
		carry = append([]byte(nil), search[len(search)-retained:]...)
		windowStart += int64(len(search) - retained)

		if err != nil {
			// Short or empty final window: nothing more to scan.
			return 0, false
		}
	}
}
