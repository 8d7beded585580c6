// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package probe drives the external media inspection tools.
//
// [Prober] wraps ffprobe: one JSON invocation returns container and
// stream metadata for video and audio files, and stands in as a
// dimension extractor for images the in-process decoders cannot
// handle. [MediaInfo] wraps the optional mediainfo tool, whose
// absence degrades gracefully.
//
// Every invocation runs under an explicit timeout; a tool that hangs,
// exits non-zero, or emits bad JSON produces an error that callers
// convert into the corrupt-file path, never a crash or an unbounded
// wait. Tool command execution is injectable so tests never spawn
// processes.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Default invocation parameters.
const (
	// DefaultBinary is the ffprobe executable name resolved via PATH.
	DefaultBinary = "ffprobe"

	// DefaultTimeout bounds a metadata probe of one file.
	DefaultTimeout = 30 * time.Second

	// versionTimeout bounds the cheap "-version" invocation.
	versionTimeout = 5 * time.Second
)

// ErrToolUnavailable reports that an external tool could not be
// executed at all (not installed or not on PATH), as opposed to
// failing on a particular file.
var ErrToolUnavailable = errors.New("external tool unavailable")

// runner executes an external command and returns its stdout. It is
// the capability boundary: tests swap it for a fake so no process is
// ever spawned.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner is the real runner. Stderr is folded into the error so
// tool diagnostics survive into logs.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%s: %w", name, ErrToolUnavailable)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		trimmed := strings.TrimSpace(stderr.String())
		if trimmed != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, trimmed)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Prober issues ffprobe invocations. The zero value is not usable;
// construct with [NewProber]. The tool version is memoized on the
// instance after the first lookup.
type Prober struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     runner

	versionOnce sync.Once
	version     string
	versionOK   bool
}

// NewProber creates a Prober for the given ffprobe binary. Empty
// binary or zero timeout select the defaults. A nil logger falls back
// to slog.Default.
func NewProber(binary string, timeout time.Duration, logger *slog.Logger) *Prober {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{binary: binary, timeout: timeout, logger: logger, run: execRunner}
}

// Version returns the tool version parsed from the first line of
// "ffprobe -version" output, memoized for the life of the Prober.
// ok is false when the tool is missing or its output is unparseable.
func (p *Prober) Version(ctx context.Context) (version string, ok bool) {
	p.versionOnce.Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
		defer cancel()
		output, err := p.run(runCtx, p.binary, "-version")
		if err != nil {
			p.logger.Warn("ffprobe version check failed", "error", err)
			return
		}
		line, _, _ := strings.Cut(string(output), "\n")
		const prefix = "ffprobe version "
		if !strings.HasPrefix(line, prefix) {
			p.logger.Warn("unexpected ffprobe version output", "line", line)
			return
		}
		fields := strings.Fields(strings.TrimPrefix(line, prefix))
		if len(fields) == 0 {
			return
		}
		p.version = fields[0]
		p.versionOK = true
	})
	return p.version, p.versionOK
}

// Probe runs one "-show_format -show_streams" invocation against the
// file and returns the parsed report. Non-zero exit, timeout, or
// malformed JSON is an error; callers map it to the corrupt path.
func (p *Prober) Probe(ctx context.Context, path string) (*Report, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.run(runCtx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}

	var report Report
	if err := json.Unmarshal(output, &report); err != nil {
		return nil, fmt.Errorf("parsing probe output for %s: %w", path, err)
	}
	return &report, nil
}

// ImageDimensions extracts image width and height from a probe
// report. ffprobe reports still images as a video stream, so this is
// the fallback when no in-process decoder understands the format.
func (p *Prober) ImageDimensions(ctx context.Context, path string) (width, height int, err error) {
	report, err := p.Probe(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	for _, stream := range report.Streams {
		if stream.CodecType != "video" && stream.CodecType != "image" {
			continue
		}
		if stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no image dimensions in probe output for %s", path)
}

// Check is the startup advisory: it reports an error when ffprobe is
// entirely missing so operators can fix the environment. Ingestion
// proceeds regardless; video/audio files simply classify as corrupt.
func (p *Prober) Check(ctx context.Context) error {
	if _, ok := p.Version(ctx); !ok {
		return fmt.Errorf("%s is not available or not functional: %w (install ffmpeg/ffprobe for video and audio metadata extraction)", p.binary, ErrToolUnavailable)
	}
	return nil
}
