// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"strconv"
	"strings"
)

// Report is the parsed output of an ffprobe JSON invocation. Numeric
// fields that ffprobe emits as strings (durations, bit rates, frame
// rates) stay strings here; the accessor methods parse them on demand.
type Report struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

// Format describes the container.
type Format struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// Stream describes one elementary stream.
type Stream struct {
	Index      int               `json:"index"`
	CodecType  string            `json:"codec_type"`
	CodecName  string            `json:"codec_name"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	RFrameRate string            `json:"r_frame_rate"`
	Duration   string            `json:"duration"`
	BitRate    string            `json:"bit_rate"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Tags       map[string]string `json:"tags"`
}

// VideoStream returns the first video stream, or nil.
func (r *Report) VideoStream() *Stream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "video" {
			return &r.Streams[i]
		}
	}
	return nil
}

// AudioStream returns the first audio stream, or nil.
func (r *Report) AudioStream() *Stream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "audio" {
			return &r.Streams[i]
		}
	}
	return nil
}

// DurationMillis parses the container duration into integer
// milliseconds, truncating fractional parts. ok is false when the
// field is absent or unparseable.
func (f Format) DurationMillis() (int64, bool) {
	return parseSecondsToMillis(f.Duration)
}

// DurationMillis parses the stream duration into integer
// milliseconds, truncating fractional parts.
func (s Stream) DurationMillis() (int64, bool) {
	return parseSecondsToMillis(s.Duration)
}

// FrameRate evaluates the rational r_frame_rate field ("num/den").
// A zero denominator, zero numerator, or malformed field yields
// ok=false.
func (s Stream) FrameRate() (float64, bool) {
	numText, denText, found := strings.Cut(s.RFrameRate, "/")
	if !found {
		// Some muxers emit a bare number.
		rate, err := strconv.ParseFloat(s.RFrameRate, 64)
		if err != nil || rate <= 0 {
			return 0, false
		}
		return rate, true
	}
	num, err := strconv.ParseFloat(numText, 64)
	if err != nil {
		return 0, false
	}
	den, err := strconv.ParseFloat(denText, 64)
	if err != nil || den == 0 {
		return 0, false
	}
	rate := num / den
	if rate <= 0 {
		return 0, false
	}
	return rate, true
}

// BitRateInt parses the stream bit rate. ok is false when absent.
func (s Stream) BitRateInt() (int64, bool) {
	return parseInt(s.BitRate)
}

// BitRateInt parses the container bit rate. ok is false when absent.
func (f Format) BitRateInt() (int64, bool) {
	return parseInt(f.BitRate)
}

// SampleRateInt parses the audio sample rate. ok is false when absent.
func (s Stream) SampleRateInt() (int64, bool) {
	return parseInt(s.SampleRate)
}

// Tag looks up a tag case-insensitively; muxers disagree on casing
// ("title" vs "TITLE").
func (f Format) Tag(name string) (string, bool) {
	for key, value := range f.Tags {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

func parseInt(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func parseSecondsToMillis(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return int64(seconds * 1000), true
}
