// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package animation

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildAVIF assembles filler bytes followed by an mvhd box fragment
// with the given version, timescale, and duration.
func buildAVIF(fillerLength int, version byte, timescale uint32, duration uint64) []byte {
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0x00}, fillerLength))
	buf.WriteString("mvhd")
	buf.WriteByte(version)
	buf.Write([]byte{0, 0, 0}) // flags
	switch version {
	case 0:
		buf.Write(make([]byte, 8)) // 32-bit creation + modification
		binary.Write(&buf, binary.BigEndian, timescale)
		binary.Write(&buf, binary.BigEndian, uint32(duration))
	case 1:
		buf.Write(make([]byte, 16)) // 64-bit creation + modification
		binary.Write(&buf, binary.BigEndian, timescale)
		binary.Write(&buf, binary.BigEndian, duration)
	default:
		buf.Write(make([]byte, 8))
		binary.Write(&buf, binary.BigEndian, timescale)
		binary.Write(&buf, binary.BigEndian, uint32(duration))
	}
	return buf.Bytes()
}

func TestAVIFDurationVersion0(t *testing.T) {
	// A 4-second animation: timescale 1000, duration 4000.
	data := buildAVIF(100, 0, 1000, 4000)
	ms, ok := AVIFDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("AVIFDuration = not animated, want 4000ms")
	}
	if ms != 4000 {
		t.Errorf("duration = %dms, want 4000ms", ms)
	}
}

func TestAVIFDurationVersion1(t *testing.T) {
	data := buildAVIF(64, 1, 90000, 180000)
	ms, ok := AVIFDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("AVIFDuration = not animated, want 2000ms")
	}
	if ms != 2000 {
		t.Errorf("duration = %dms, want 2000ms", ms)
	}
}

func TestAVIFDurationTruncatesMilliseconds(t *testing.T) {
	// 10000/3 s-worth of ticks: 3333.33...ms must truncate, not round.
	data := buildAVIF(0, 0, 3, 10)
	ms, ok := AVIFDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("AVIFDuration = not animated")
	}
	if ms != 3333 {
		t.Errorf("duration = %dms, want 3333ms (truncated)", ms)
	}
}

func TestAVIFDurationBeyondFirstWindow(t *testing.T) {
	// mvhd well past the first 8 KiB search window.
	data := buildAVIF(3*avifWindowSize+57, 0, 1000, 1500)
	ms, ok := AVIFDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("AVIFDuration missed an mvhd past the first window")
	}
	if ms != 1500 {
		t.Errorf("duration = %dms, want 1500ms", ms)
	}
}

func TestAVIFDurationTagSplitAcrossWindows(t *testing.T) {
	// Place "mvhd" so it straddles the window boundary: two bytes in
	// the first window, two in the second.
	data := buildAVIF(avifWindowSize-2, 0, 1000, 2500)
	ms, ok := AVIFDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("AVIFDuration missed an mvhd split across windows")
	}
	if ms != 2500 {
		t.Errorf("duration = %dms, want 2500ms", ms)
	}
}

func TestAVIFDurationRejects(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("this is not an isobmff file at all")},
		{"empty", nil},
		{"no mvhd", bytes.Repeat([]byte{0xAB}, 20000)},
		{"zero timescale", buildAVIF(10, 0, 0, 4000)},
		{"zero duration", buildAVIF(10, 0, 1000, 0)},
		{"unknown version", buildAVIF(10, 7, 1000, 4000)},
		{"truncated after tag", []byte("xxmvhd")},
		{"truncated fields", append(bytes.Repeat([]byte{0}, 4), []byte("mvhd\x00\x00\x00\x00\x00")...)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if ms, ok := AVIFDuration(bytes.NewReader(c.data)); ok {
				t.Errorf("AVIFDuration = %dms, want not animated", ms)
			}
		})
	}
}

// riffChunk assembles a fourcc + little-endian size header, the
// payload, and the even-boundary pad byte when needed.
func riffChunk(fourCC string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(fourCC)
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// anmfPayload builds a minimal ANMF payload with the 24-bit frame
// duration at bytes 12–14.
func anmfPayload(durationMs uint32) []byte {
	payload := make([]byte, anmfMinDataSize)
	payload[12] = byte(durationMs)
	payload[13] = byte(durationMs >> 8)
	payload[14] = byte(durationMs >> 16)
	return payload
}

// webpFile wraps chunks in a RIFF/WEBP container.
func webpFile(chunks ...[]byte) []byte {
	var body bytes.Buffer
	body.WriteString("WEBP")
	for _, c := range chunks {
		body.Write(c)
	}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(body.Len()))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func TestWebPDurationMultipleFrames(t *testing.T) {
	data := webpFile(
		riffChunk("VP8X", make([]byte, 10)),
		riffChunk("ANIM", make([]byte, 6)),
		riffChunk("ANMF", anmfPayload(500)),
		riffChunk("ANMF", anmfPayload(700)),
		riffChunk("ANMF", anmfPayload(800)),
	)
	ms, ok := WebPDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("WebPDuration = not animated, want 2000ms")
	}
	if ms != 2000 {
		t.Errorf("duration = %dms, want 2000ms", ms)
	}
}

func TestWebPDurationOddSizedChunkPadding(t *testing.T) {
	// An odd-sized chunk before the frames: the pad byte must be
	// consumed or every following header is misaligned.
	data := webpFile(
		riffChunk("ICCP", make([]byte, 13)),
		riffChunk("ANMF", anmfPayload(100)),
		riffChunk("ANMF", anmfPayload(150)),
	)
	ms, ok := WebPDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("WebPDuration = not animated, want 250ms")
	}
	if ms != 250 {
		t.Errorf("duration = %dms, want 250ms", ms)
	}
}

func TestWebPDurationSingleFrameIsNotAnimated(t *testing.T) {
	data := webpFile(
		riffChunk("ANIM", make([]byte, 6)),
		riffChunk("ANMF", anmfPayload(500)),
	)
	if ms, ok := WebPDuration(bytes.NewReader(data)); ok {
		t.Errorf("WebPDuration = %dms for a single frame, want not animated", ms)
	}
}

func TestWebPDurationZeroTotalIsNotAnimated(t *testing.T) {
	data := webpFile(
		riffChunk("ANMF", anmfPayload(0)),
		riffChunk("ANMF", anmfPayload(0)),
	)
	if ms, ok := WebPDuration(bytes.NewReader(data)); ok {
		t.Errorf("WebPDuration = %dms for zero total, want not animated", ms)
	}
}

func TestWebPDurationRejects(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("definitely not a riff container")},
		{"empty", nil},
		{"riff but not webp", append([]byte("RIFF\x04\x00\x00\x00WAVE"), make([]byte, 16)...)},
		{"truncated header", []byte("RIFF\x10\x00")},
		{"no chunks", webpFile()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if ms, ok := WebPDuration(bytes.NewReader(c.data)); ok {
				t.Errorf("WebPDuration = %dms, want not animated", ms)
			}
		})
	}
}

func TestWebPDurationBogusChunkSizeSaturates(t *testing.T) {
	// Two valid frames, then a chunk whose declared size runs far
	// past end of file. The skip must saturate and the frames already
	// seen still count.
	var trailing bytes.Buffer
	trailing.WriteString("XXXX")
	binary.Write(&trailing, binary.LittleEndian, uint32(1<<30))
	data := webpFile(
		riffChunk("ANMF", anmfPayload(300)),
		riffChunk("ANMF", anmfPayload(400)),
		trailing.Bytes(),
	)
	ms, ok := WebPDuration(bytes.NewReader(data))
	if !ok {
		t.Fatal("WebPDuration = not animated, want 700ms")
	}
	if ms != 700 {
		t.Errorf("duration = %dms, want 700ms", ms)
	}
}

func TestDurationFileHelpersMissingFile(t *testing.T) {
	if _, ok := AVIFDurationFile("/nonexistent/path/file.avif"); ok {
		t.Error("AVIFDurationFile reported animation for a missing file")
	}
	if _, ok := WebPDurationFile("/nonexistent/path/file.webp"); ok {
		t.Error("WebPDurationFile reported animation for a missing file")
	}
}
