// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"context"
	"fmt"

	"github.com/hoardkeep/hoard/lib/probe"
)

// extractVideo validates the probe report against the video contract:
// positive width, height, frame rate, and duration, all-or-nothing.
// Partial video metadata is not useful downstream, so any missing
// required field is an error. Optional fields are copied through only
// after the required set validated.
func (c *Classifier) extractVideo(ctx context.Context, path string) (*VideoMeta, error) {
	if err := c.requireProber(); err != nil {
		return nil, err
	}
	report, err := c.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	video := report.VideoStream()
	if video == nil {
		return nil, fmt.Errorf("no video stream in %s", path)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("non-positive dimensions %dx%d", video.Width, video.Height)
	}
	frameRate, ok := video.FrameRate()
	if !ok {
		return nil, fmt.Errorf("missing or invalid frame rate %q", video.RFrameRate)
	}
	duration, ok := video.DurationMillis()
	if !ok {
		duration, ok = report.Format.DurationMillis()
	}
	if !ok {
		return nil, fmt.Errorf("missing duration for %s", path)
	}

	meta := &VideoMeta{
		Width:          video.Width,
		Height:         video.Height,
		FrameRate:      frameRate,
		DurationMillis: duration,
		Codec:          video.CodecName,
	}
	if bitRate, ok := video.BitRateInt(); ok {
		meta.BitRate = bitRate
	} else if bitRate, ok := report.Format.BitRateInt(); ok {
		meta.BitRate = bitRate
	}
	if audio := report.AudioStream(); audio != nil {
		meta.AudioCodec = audio.CodecName
		if bitRate, ok := audio.BitRateInt(); ok {
			meta.AudioBitRate = bitRate
		}
		if sampleRate, ok := audio.SampleRateInt(); ok {
			meta.SampleRate = sampleRate
		}
		meta.Channels = audio.Channels
	}
	if title, ok := report.Format.Tag("title"); ok {
		meta.Title = title
	}
	c.mergeVideoExtras(ctx, path, meta)
	return meta, nil
}

// mergeVideoExtras fills tag gaps from mediainfo when the tool is
// present. Its absence, or any failure, degrades to the ffprobe-only
// result.
func (c *Classifier) mergeVideoExtras(ctx context.Context, path string, meta *VideoMeta) {
	if c.extras == nil || !c.extras.Available(ctx) {
		return
	}
	tracks, err := c.extras.Inspect(ctx, path)
	if err != nil {
		c.logger.Debug("mediainfo inspection failed", "path", path, "error", err)
		return
	}
	general := probe.GeneralTrack(tracks)
	if general == nil {
		return
	}
	if meta.Title == "" {
		meta.Title = general.Title
	}
}

// extractAudio validates the probe report against the audio contract:
// the only required field is a positive duration. Codec, bit rate,
// sample rate, channel count, and tags are copied through
// opportunistically.
func (c *Classifier) extractAudio(ctx context.Context, path string) (*AudioMeta, error) {
	if err := c.requireProber(); err != nil {
		return nil, err
	}
	report, err := c.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	audio := report.AudioStream()
	duration, ok := report.Format.DurationMillis()
	if !ok && audio != nil {
		duration, ok = audio.DurationMillis()
	}
	if !ok {
		return nil, fmt.Errorf("missing duration for %s", path)
	}

	meta := &AudioMeta{DurationMillis: duration}
	if audio != nil {
		meta.Codec = audio.CodecName
		if bitRate, ok := audio.BitRateInt(); ok {
			meta.BitRate = bitRate
		}
		if sampleRate, ok := audio.SampleRateInt(); ok {
			meta.SampleRate = sampleRate
		}
		meta.Channels = audio.Channels
	}
	if meta.BitRate == 0 {
		if bitRate, ok := report.Format.BitRateInt(); ok {
			meta.BitRate = bitRate
		}
	}
	if title, ok := report.Format.Tag("title"); ok {
		meta.Title = title
	}
	if artist, ok := report.Format.Tag("artist"); ok {
		meta.Artist = artist
	}
	if album, ok := report.Format.Tag("album"); ok {
		meta.Album = album
	}
	c.mergeAudioExtras(ctx, path, meta)
	return meta, nil
}

// mergeAudioExtras fills tag gaps from mediainfo when present.
func (c *Classifier) mergeAudioExtras(ctx context.Context, path string, meta *AudioMeta) {
	if c.extras == nil || !c.extras.Available(ctx) {
		return
	}
	tracks, err := c.extras.Inspect(ctx, path)
	if err != nil {
		c.logger.Debug("mediainfo inspection failed", "path", path, "error", err)
		return
	}
	general := probe.GeneralTrack(tracks)
	if general == nil {
		return
	}
	if meta.Title == "" {
		meta.Title = general.Title
	}
	if meta.Artist == "" {
		meta.Artist = general.Artist
	}
	if meta.Album == "" {
		meta.Album = general.Album
	}
}
