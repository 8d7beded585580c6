// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// DefaultMediaInfoBinary is the mediainfo executable name resolved
// via PATH.
const DefaultMediaInfoBinary = "mediainfo"

// MediaInfo wraps the optional mediainfo tool. It supplements the
// ffprobe report for container formats whose tags ffprobe reads
// poorly; when the tool is absent every method degrades to "no
// data" without error noise beyond a single warning. Availability is
// probed once and cached on the instance.
type MediaInfo struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     runner

	availOnce sync.Once
	available bool
}

// NewMediaInfo creates a MediaInfo wrapper. Empty binary or zero
// timeout select the defaults; a nil logger falls back to
// slog.Default.
func NewMediaInfo(binary string, timeout time.Duration, logger *slog.Logger) *MediaInfo {
	if binary == "" {
		binary = DefaultMediaInfoBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaInfo{binary: binary, timeout: timeout, logger: logger, run: execRunner}
}

// Available reports whether the tool can be executed, checking once
// per instance.
func (m *MediaInfo) Available(ctx context.Context) bool {
	m.availOnce.Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
		defer cancel()
		if _, err := m.run(runCtx, m.binary, "--Version"); err != nil {
			m.logger.Warn("mediainfo unavailable, extended tag extraction disabled", "error", err)
			return
		}
		m.available = true
	})
	return m.available
}

// Track is one mediainfo track record. Only the fields the extractors
// consume are decoded.
type Track struct {
	Type     string `json:"@type"`
	Format   string `json:"Format"`
	Duration string `json:"Duration"` // seconds, decimal
	Title    string `json:"Title"`
	Album    string `json:"Album"`
	Artist   string `json:"Performer"`
}

// DurationMillis parses the track duration (decimal seconds) into
// truncated integer milliseconds.
func (t Track) DurationMillis() (int64, bool) {
	if t.Duration == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(t.Duration, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return int64(seconds * 1000), true
}

// Inspect runs mediainfo with JSON output against the file and
// returns the track list. Callers should gate on [MediaInfo.Available]
// first; an unavailable tool is still reported as an error here.
func (m *MediaInfo) Inspect(ctx context.Context, path string) ([]Track, error) {
	if !m.Available(ctx) {
		return nil, fmt.Errorf("inspecting %s: %w", path, ErrToolUnavailable)
	}
	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	output, err := m.run(runCtx, m.binary, "--Output=JSON", path)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}

	var payload struct {
		Media struct {
			Tracks []Track `json:"track"`
		} `json:"media"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return nil, fmt.Errorf("parsing mediainfo output for %s: %w", path, err)
	}
	return payload.Media.Tracks, nil
}

// GeneralTrack returns the container-level track from a track list,
// or nil.
func GeneralTrack(tracks []Track) *Track {
	for i := range tracks {
		if tracks[i].Type == "General" {
			return &tracks[i]
		}
	}
	return nil
}
