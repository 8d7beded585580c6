// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package animation

import (
	"bytes"
	"io"
	"os"
)

// RIFF/WebP format constants.
const (
	webpChunkHeaderSize = 8
	anmfMinDataSize     = 16
)

var (
	riffSignature = []byte("RIFF")
	webpSignature = []byte("WEBP")
	animFourCC    = []byte("ANIM")
	anmfFourCC    = []byte("ANMF")
)

// WebPDurationFile reports the total animation duration of the WebP
// file at path, in milliseconds. I/O errors are absorbed into the
// "not animated" answer.
func WebPDurationFile(path string) (int64, bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()
	return WebPDuration(file)
}

// WebPDuration walks a RIFF/WebP chunk stream and accumulates the
// 24-bit frame durations of every ANMF chunk. A duration is reported
// only when more than one frame was seen and the total is positive:
// a single "frame" is not animation even if an ANMF chunk exists.
// Malformed, truncated, or non-WebP input yields ok=false.
func WebPDuration(r io.Reader) (int64, bool) {
	c := newCursor(r)
	if !validateWebPHeader(c) {
		return 0, false
	}

	var totalDuration int64
	var frameCount int

	header := make([]byte, webpChunkHeaderSize)
	for {
		if !c.readFull(header) {
			break
		}
		fourCC := header[:4]
		chunkSize := int64(uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16 | uint32(header[7])<<24)

		switch {
		case bytes.Equal(fourCC, animFourCC):
			// Animation parameters confirm an animated WebP; the
			// payload itself carries no duration.
			if !c.skip(chunkSize) {
				return finishWebP(totalDuration, frameCount)
			}
		case bytes.Equal(fourCC, anmfFourCC):
			frameDuration, consumed := parseANMFDuration(c, chunkSize)
			if frameDuration >= 0 {
				totalDuration += frameDuration
				frameCount++
			}
			if !c.skip(chunkSize - consumed) {
				return finishWebP(totalDuration, frameCount)
			}
		default:
			if !c.skip(chunkSize) {
				return finishWebP(totalDuration, frameCount)
			}
		}

		// Chunk payloads are padded to an even byte boundary.
		if chunkSize%2 == 1 {
			if !c.skip(1) {
				break
			}
		}
	}

	return finishWebP(totalDuration, frameCount)
}

// finishWebP applies the more-than-one-frame rule.
func finishWebP(totalDuration int64, frameCount int) (int64, bool) {
	if frameCount > 1 && totalDuration > 0 {
		return totalDuration, true
	}
	return 0, false
}

// validateWebPHeader checks the RIFF signature, skips the overall
// size, and checks the WEBP signature.
func validateWebPHeader(c *cursor) bool {
	signature := make([]byte, 4)
	if !c.readFull(signature) || !bytes.Equal(signature, riffSignature) {
		return false
	}
	if !c.skip(4) {
		return false
	}
	if !c.readFull(signature) || !bytes.Equal(signature, webpSignature) {
		return false
	}
	return true
}

// parseANMFDuration reads the 24-bit little-endian frame duration at
// payload bytes 12–14 of an ANMF chunk. It returns the duration
// (zero-extended to 64 bits) and how many payload bytes were
// consumed; a duration of -1 means the payload was too small to carry
// one.
func parseANMFDuration(c *cursor, chunkSize int64) (duration int64, consumed int64) {
	want := int64(anmfMinDataSize)
	if chunkSize < want {
		want = chunkSize
	}
	data := make([]byte, want)
	n := c.readUpTo(data)
	if n < 15 {
		return -1, int64(n)
	}
	frameDuration := int64(data[12]) | int64(data[13])<<8 | int64(data[14])<<16
	return frameDuration, int64(n)
}
