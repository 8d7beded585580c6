// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package metadata extracts and validates type-specific media facts.
//
// The classifier routes a file by media family to an image, video, or
// audio extractor and enforces the downstream consistency contract:
// images and videos must have positive dimensions, videos and audio
// must have a positive duration, videos must have a positive frame
// rate. A file that cannot produce its family's required fields is
// marked corrupt with empty metadata; extraction failure is always
// converted into that verdict, never surfaced as an error or a panic
// to the caller.
package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hoardkeep/hoard/lib/digest"
	"github.com/hoardkeep/hoard/lib/probe"
)

// Metadata is the per-family extraction result. Exactly one of the
// family pointers is set for media files; all are nil for FamilyOther
// and for corrupt files.
type Metadata struct {
	Family Family     `json:"family"`
	Image  *ImageMeta `json:"image,omitempty"`
	Video  *VideoMeta `json:"video,omitempty"`
	Audio  *AudioMeta `json:"audio,omitempty"`
}

// ImageMeta carries the image-family fields. ThumbHash is empty only
// when the image was undecodable in-process and dimensions came from
// the external prober. DurationMillis is set only when Animated.
type ImageMeta struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	ThumbHash      []byte `json:"thumbhash,omitempty"`
	Animated       bool   `json:"animated"`
	DurationMillis int64  `json:"duration_ms,omitempty"`
}

// VideoMeta carries the video-family fields. Width, Height,
// FrameRate, and DurationMillis are required; the rest are
// opportunistic passthrough from the probe report.
type VideoMeta struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	FrameRate      float64 `json:"frame_rate"`
	DurationMillis int64   `json:"duration_ms"`
	Codec          string  `json:"codec,omitempty"`
	BitRate        int64   `json:"bit_rate,omitempty"`
	AudioCodec     string  `json:"audio_codec,omitempty"`
	AudioBitRate   int64   `json:"audio_bit_rate,omitempty"`
	SampleRate     int64   `json:"sample_rate,omitempty"`
	Channels       int     `json:"channels,omitempty"`
	Title          string  `json:"title,omitempty"`
}

// AudioMeta carries the audio-family fields. Only DurationMillis is
// required.
type AudioMeta struct {
	DurationMillis int64  `json:"duration_ms"`
	Codec          string `json:"codec,omitempty"`
	BitRate        int64  `json:"bit_rate,omitempty"`
	SampleRate     int64  `json:"sample_rate,omitempty"`
	Channels       int    `json:"channels,omitempty"`
	Title          string `json:"title,omitempty"`
	Artist         string `json:"artist,omitempty"`
	Album          string `json:"album,omitempty"`
}

// MediaProber is the external-tool capability the classifier needs:
// one JSON probe for video/audio streams and a dimension fallback for
// images no in-process decoder understands. *probe.Prober satisfies
// it; tests substitute fakes.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*probe.Report, error)
	ImageDimensions(ctx context.Context, path string) (width, height int, err error)
}

// Classifier routes files to family extractors and converts their
// errors into the corrupt verdict.
type Classifier struct {
	prober MediaProber
	extras *probe.MediaInfo // optional, may be nil
	logger *slog.Logger
}

// NewClassifier creates a Classifier. The prober is required for
// video and audio files; extras may be nil. A nil logger falls back
// to slog.Default.
func NewClassifier(prober MediaProber, extras *probe.MediaInfo, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{prober: prober, extras: extras, logger: logger}
}

// Classify extracts metadata for the file at path. An empty mimeType
// is inferred from the path's extension. Files outside the media
// families return empty metadata and CorruptFalse; media files that
// fail to produce their family's required fields return empty
// metadata and CorruptTrue. Classify never returns an error: every
// extraction failure becomes the corrupt verdict.
func (c *Classifier) Classify(ctx context.Context, path, mimeType string) (Metadata, Corrupt) {
	if mimeType == "" {
		mimeType = digest.MimeType(path)
	}
	family := FamilyOf(mimeType)
	meta := Metadata{Family: family}

	var err error
	switch family {
	case FamilyImage:
		meta.Image, err = c.extractImage(ctx, path, mimeType)
	case FamilyVideo:
		meta.Video, err = c.extractVideo(ctx, path)
	case FamilyAudio:
		meta.Audio, err = c.extractAudio(ctx, path)
	default:
		return meta, CorruptFalse
	}
	if err != nil {
		c.logger.Warn("metadata extraction failed",
			"path", path,
			"mime_type", mimeType,
			"family", family.String(),
			"error", err)
		return Metadata{Family: family}, CorruptTrue
	}
	return meta, CorruptFalse
}

// requireProber guards the extractors that cannot work without the
// external tool.
func (c *Classifier) requireProber() error {
	if c.prober == nil {
		return fmt.Errorf("no media prober configured: %w", probe.ErrToolUnavailable)
	}
	return nil
}
