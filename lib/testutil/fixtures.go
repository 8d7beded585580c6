// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared media fixtures for hoard tests:
// small deterministic images and synthetic animated containers,
// written to temp directories. All helpers call t.Fatalf on failure
// rather than returning errors, since test setup failures are not
// recoverable.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// WritePNG writes a deterministic PNG whose pixel content varies with
// seed, so different seeds produce different digests.
func WritePNG(t *testing.T, dir, name string, width, height int, seed uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x) * seed, G: uint8(y), B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return WriteFile(t, dir, name, buf.Bytes())
}

// WriteGIF writes a GIF with one 8x8 frame per delay entry. Delays
// are in centiseconds, matching the wire format.
func WriteGIF(t *testing.T, dir, name string, delays []int) string {
	t.Helper()
	out := &gif.GIF{}
	palette := color.Palette{color.Black, color.White}
	for i, delay := range delays {
		frame := image.NewPaletted(image.Rect(0, 0, 8, 8), palette)
		frame.SetColorIndex(i%8, 0, 1)
		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, delay)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		t.Fatalf("encoding gif: %v", err)
	}
	return WriteFile(t, dir, name, buf.Bytes())
}

// AnimatedWebP builds a minimal RIFF/WEBP container with one ANMF
// frame per duration. The payload is a valid container but not a
// decodable image.
func AnimatedWebP(durationsMs ...uint32) []byte {
	chunk := func(fourCC string, payload []byte) []byte {
		var buf bytes.Buffer
		buf.WriteString(fourCC)
		binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
		buf.Write(payload)
		if len(payload)%2 == 1 {
			buf.WriteByte(0)
		}
		return buf.Bytes()
	}
	var body bytes.Buffer
	body.WriteString("WEBP")
	body.Write(chunk("ANIM", make([]byte, 6)))
	for _, duration := range durationsMs {
		payload := make([]byte, 16)
		payload[12] = byte(duration)
		payload[13] = byte(duration >> 8)
		payload[14] = byte(duration >> 16)
		body.Write(chunk("ANMF", payload))
	}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(body.Len()))
	buf.Write(body.Bytes())
	return buf.Bytes()
}
