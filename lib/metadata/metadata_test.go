// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoardkeep/hoard/lib/probe"
	"github.com/hoardkeep/hoard/lib/testutil"
)

// fakeProber serves canned probe results so no process is spawned.
type fakeProber struct {
	report   *probe.Report
	probeErr error
	width    int
	height   int
	dimErr   error
	calls    int
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*probe.Report, error) {
	f.calls++
	return f.report, f.probeErr
}

func (f *fakeProber) ImageDimensions(ctx context.Context, path string) (int, int, error) {
	f.calls++
	return f.width, f.height, f.dimErr
}

func newTestClassifier(t *testing.T, prober MediaProber) *Classifier {
	t.Helper()
	return NewClassifier(prober, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 128, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "test.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test png: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return path
}

func TestFamilyOf(t *testing.T) {
	cases := []struct {
		mimeType string
		want     Family
	}{
		{"image/png", FamilyImage},
		{"image/avif", FamilyImage},
		{"video/mp4", FamilyVideo},
		{"video/webm", FamilyVideo},
		{"audio/flac", FamilyAudio},
		{"application/pdf", FamilyOther},
		{"text/plain", FamilyOther},
		{"", FamilyOther},
	}
	for _, c := range cases {
		if got := FamilyOf(c.mimeType); got != c.want {
			t.Errorf("FamilyOf(%q) = %v, want %v", c.mimeType, got, c.want)
		}
	}
}

func TestClassifyNonMedia(t *testing.T) {
	c := newTestClassifier(t, nil)
	meta, corrupt := c.Classify(context.Background(), "/tmp/report.pdf", "application/pdf")
	if corrupt != CorruptFalse {
		t.Errorf("corrupt = %v, want false (validation does not apply)", corrupt)
	}
	if meta.Family != FamilyOther || meta.Image != nil || meta.Video != nil || meta.Audio != nil {
		t.Errorf("metadata = %+v, want empty FamilyOther", meta)
	}
}

func TestClassifyPNG(t *testing.T) {
	path := writeTestPNG(t, 320, 200)
	fake := &fakeProber{}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), path, "image/png")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	img := meta.Image
	if img == nil {
		t.Fatal("no image metadata")
	}
	if img.Width != 320 || img.Height != 200 {
		t.Errorf("dimensions = %dx%d, want 320x200", img.Width, img.Height)
	}
	if len(img.ThumbHash) == 0 {
		t.Error("thumbhash is empty for a decodable image")
	}
	if img.Animated {
		t.Error("static png classified as animated")
	}
	// A decodable image never hits the external prober.
	if fake.calls != 0 {
		t.Errorf("prober called %d times, want 0", fake.calls)
	}
}

func TestClassifyMimeInferredFromExtension(t *testing.T) {
	path := writeTestPNG(t, 16, 16)
	c := newTestClassifier(t, nil)
	meta, corrupt := c.Classify(context.Background(), path, "")
	if corrupt != CorruptFalse || meta.Family != FamilyImage {
		t.Errorf("Classify with empty mime = (%v, %v), want image family, not corrupt", meta.Family, corrupt)
	}
}

func TestClassifyUndecodableImageFallsBackToProber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.avif")
	if err := os.WriteFile(path, []byte("not a real avif payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeProber{width: 640, height: 480}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), path, "image/avif")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	img := meta.Image
	if img == nil {
		t.Fatal("no image metadata")
	}
	if img.Width != 640 || img.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", img.Width, img.Height)
	}
	if len(img.ThumbHash) != 0 {
		t.Error("thumbhash present for an undecodable image")
	}
}

func TestClassifyUndecodableImageWithoutProberIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.avif")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeProber{dimErr: errors.New("no dimensions")}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), path, "image/avif")
	if corrupt != CorruptTrue {
		t.Errorf("corrupt = %v, want true", corrupt)
	}
	if meta.Image != nil {
		t.Errorf("metadata = %+v, want empty on corrupt", meta)
	}
}

func TestClassifyAnimatedGIF(t *testing.T) {
	// Delays are centiseconds: 10+20+30 = 60cs = 600ms.
	path := testutil.WriteGIF(t, t.TempDir(), "test.gif", []int{10, 20, 30})
	c := newTestClassifier(t, nil)

	meta, corrupt := c.Classify(context.Background(), path, "image/gif")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	img := meta.Image
	if img == nil {
		t.Fatal("no image metadata")
	}
	if !img.Animated {
		t.Fatal("3-frame gif not classified as animated")
	}
	if img.DurationMillis != 600 {
		t.Errorf("duration = %dms, want 600ms", img.DurationMillis)
	}
}

func TestClassifySingleFrameGIFIsStatic(t *testing.T) {
	path := testutil.WriteGIF(t, t.TempDir(), "static.gif", []int{50})
	c := newTestClassifier(t, nil)

	meta, corrupt := c.Classify(context.Background(), path, "image/gif")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	if meta.Image.Animated {
		t.Error("single-frame gif classified as animated")
	}
}

func TestClassifyAnimatedWebP(t *testing.T) {
	// A valid animated container that is not a decodable image: the
	// prober-dimensions path runs alongside the container scanner.
	path := testutil.WriteFile(t, t.TempDir(), "anim.webp", testutil.AnimatedWebP(100, 150))
	fake := &fakeProber{width: 64, height: 64}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), path, "image/webp")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	img := meta.Image
	if img == nil {
		t.Fatal("no image metadata")
	}
	if !img.Animated || img.DurationMillis != 250 {
		t.Errorf("animated = %v duration = %dms, want animated 250ms", img.Animated, img.DurationMillis)
	}
}

func videoReport() *probe.Report {
	return &probe.Report{
		Streams: []probe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720,
				RFrameRate: "30/1", Duration: "12.5", BitRate: "2500000"},
			{CodecType: "audio", CodecName: "aac", SampleRate: "44100",
				Channels: 2, BitRate: "128000"},
		},
		Format: probe.Format{Duration: "12.5", Tags: map[string]string{"title": "clip"}},
	}
}

func TestClassifyVideo(t *testing.T) {
	fake := &fakeProber{report: videoReport()}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), "/media/clip.mp4", "video/mp4")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	video := meta.Video
	if video == nil {
		t.Fatal("no video metadata")
	}
	if video.Width != 1280 || video.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", video.Width, video.Height)
	}
	if video.FrameRate != 30 {
		t.Errorf("frame rate = %v, want 30", video.FrameRate)
	}
	if video.DurationMillis != 12500 {
		t.Errorf("duration = %dms, want 12500ms", video.DurationMillis)
	}
	if video.Codec != "h264" || video.AudioCodec != "aac" {
		t.Errorf("codecs = %q/%q, want h264/aac", video.Codec, video.AudioCodec)
	}
	if video.SampleRate != 44100 || video.Channels != 2 {
		t.Errorf("audio = %dHz %dch, want 44100Hz 2ch", video.SampleRate, video.Channels)
	}
	if video.Title != "clip" {
		t.Errorf("title = %q, want %q", video.Title, "clip")
	}
}

func TestClassifyVideoAllOrNothing(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*probe.Report)
	}{
		{"no video stream", func(r *probe.Report) { r.Streams = r.Streams[1:] }},
		{"zero width", func(r *probe.Report) { r.Streams[0].Width = 0 }},
		{"zero height", func(r *probe.Report) { r.Streams[0].Height = 0 }},
		{"missing frame rate", func(r *probe.Report) { r.Streams[0].RFrameRate = "" }},
		{"zero frame rate", func(r *probe.Report) { r.Streams[0].RFrameRate = "0/1" }},
		{"missing duration", func(r *probe.Report) {
			r.Streams[0].Duration = ""
			r.Format.Duration = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := videoReport()
			tc.mutate(report)
			fake := &fakeProber{report: report}
			c := newTestClassifier(t, fake)

			meta, corrupt := c.Classify(context.Background(), "/media/clip.mp4", "video/mp4")
			if corrupt != CorruptTrue {
				t.Errorf("corrupt = %v, want true", corrupt)
			}
			if meta.Video != nil {
				t.Errorf("metadata = %+v, want empty on corrupt", meta.Video)
			}
		})
	}
}

func TestClassifyVideoProbeFailure(t *testing.T) {
	fake := &fakeProber{probeErr: errors.New("ffprobe failed: exit status 1")}
	c := newTestClassifier(t, fake)
	if _, corrupt := c.Classify(context.Background(), "/media/clip.mp4", "video/mp4"); corrupt != CorruptTrue {
		t.Errorf("corrupt = %v, want true", corrupt)
	}
}

func TestClassifyVideoWithoutProber(t *testing.T) {
	c := newTestClassifier(t, nil)
	if _, corrupt := c.Classify(context.Background(), "/media/clip.mp4", "video/mp4"); corrupt != CorruptTrue {
		t.Errorf("corrupt = %v, want true", corrupt)
	}
}

func TestClassifyAudio(t *testing.T) {
	fake := &fakeProber{report: &probe.Report{
		Streams: []probe.Stream{
			{CodecType: "audio", CodecName: "flac", SampleRate: "96000", Channels: 2},
		},
		Format: probe.Format{
			Duration: "251.906",
			BitRate:  "1411000",
			Tags: map[string]string{
				"TITLE": "Night Drive", "ARTIST": "The Examples", "ALBUM": "Fixtures",
			},
		},
	}}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), "/media/song.flac", "audio/flac")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	audio := meta.Audio
	if audio == nil {
		t.Fatal("no audio metadata")
	}
	if audio.DurationMillis != 251906 {
		t.Errorf("duration = %dms, want 251906ms", audio.DurationMillis)
	}
	if audio.Codec != "flac" || audio.SampleRate != 96000 || audio.Channels != 2 {
		t.Errorf("stream fields = %q %dHz %dch", audio.Codec, audio.SampleRate, audio.Channels)
	}
	if audio.BitRate != 1411000 {
		t.Errorf("bit rate = %d, want 1411000", audio.BitRate)
	}
	if audio.Title != "Night Drive" || audio.Artist != "The Examples" || audio.Album != "Fixtures" {
		t.Errorf("tags = %q/%q/%q", audio.Title, audio.Artist, audio.Album)
	}
}

func TestClassifyAudioMissingDurationIsCorrupt(t *testing.T) {
	fake := &fakeProber{report: &probe.Report{
		Streams: []probe.Stream{{CodecType: "audio", CodecName: "mp3"}},
	}}
	c := newTestClassifier(t, fake)

	meta, corrupt := c.Classify(context.Background(), "/media/song.mp3", "audio/mpeg")
	if corrupt != CorruptTrue {
		t.Errorf("corrupt = %v, want true", corrupt)
	}
	if meta.Audio != nil {
		t.Errorf("metadata = %+v, want empty on corrupt", meta.Audio)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	path := writeTestPNG(t, 40, 30)
	c := newTestClassifier(t, nil)

	first, firstCorrupt := c.Classify(context.Background(), path, "image/png")
	second, secondCorrupt := c.Classify(context.Background(), path, "image/png")
	if firstCorrupt != secondCorrupt {
		t.Errorf("corrupt verdicts differ: %v vs %v", firstCorrupt, secondCorrupt)
	}
	if !bytes.Equal(first.Image.ThumbHash, second.Image.ThumbHash) {
		t.Error("thumbhash differs between identical classifications")
	}
}

// exifJPEG encodes a small JPEG and splices in an APP1/Exif segment
// carrying the given orientation.
func exifJPEG(t *testing.T, width, height int, orientation byte) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, nil); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}

	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(42))
	binary.Write(&tiff, binary.BigEndian, uint32(8)) // IFD0 offset
	binary.Write(&tiff, binary.BigEndian, uint16(1)) // one entry
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112))
	binary.Write(&tiff, binary.BigEndian, uint16(3)) // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, uint16(orientation))
	binary.Write(&tiff, binary.BigEndian, uint16(0)) // value padding
	binary.Write(&tiff, binary.BigEndian, uint32(0)) // next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var app1 bytes.Buffer
	app1.Write([]byte{0xFF, 0xE1})
	binary.Write(&app1, binary.BigEndian, uint16(len(payload)+2))
	app1.Write(payload)

	data := encoded.Bytes()
	spliced := append(append(append([]byte{}, data[:2]...), app1.Bytes()...), data[2:]...)
	path := filepath.Join(t.TempDir(), "oriented.jpg")
	if err := os.WriteFile(path, spliced, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestJPEGOrientationTag(t *testing.T) {
	path := exifJPEG(t, 8, 4, 6)
	orientation, err := jpegOrientation(path)
	if err != nil {
		t.Fatalf("jpegOrientation failed: %v", err)
	}
	if orientation != 6 {
		t.Errorf("orientation = %d, want 6", orientation)
	}
}

func TestJPEGOrientationAbsent(t *testing.T) {
	var encoded bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := jpeg.Encode(&encoded, img, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "plain.jpg")
	if err := os.WriteFile(path, encoded.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := jpegOrientation(path); !errors.Is(err, errNoOrientation) {
		t.Errorf("jpegOrientation = %v, want errNoOrientation", err)
	}
}

func TestClassifyAppliesOrientation(t *testing.T) {
	// Orientation 6 is a 90° clockwise rotation: the 8x4 source must
	// report 4x8.
	path := exifJPEG(t, 8, 4, 6)
	c := newTestClassifier(t, nil)

	meta, corrupt := c.Classify(context.Background(), path, "image/jpeg")
	if corrupt != CorruptFalse {
		t.Fatalf("corrupt = %v, want false", corrupt)
	}
	img := meta.Image
	if img.Width != 4 || img.Height != 8 {
		t.Errorf("dimensions = %dx%d, want 4x8 after rotation", img.Width, img.Height)
	}
}

func TestApplyOrientationPixelMapping(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src.Set(0, 0, red)
	src.Set(1, 0, blue)

	rotated := applyOrientation(src, 6).(*image.RGBA)
	bounds := rotated.Bounds()
	if bounds.Dx() != 1 || bounds.Dy() != 2 {
		t.Fatalf("rotated bounds = %v, want 1x2", bounds)
	}
	if got := rotated.RGBAAt(0, 0); got != red {
		t.Errorf("pixel (0,0) = %v, want red", got)
	}
	if got := rotated.RGBAAt(0, 1); got != blue {
		t.Errorf("pixel (0,1) = %v, want blue", got)
	}
}

func TestResampleBoundsAndAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	dst := resample(src, 100)
	bounds := dst.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 25 {
		t.Errorf("resampled = %dx%d, want 100x25", bounds.Dx(), bounds.Dy())
	}

	small := image.NewRGBA(image.Rect(0, 0, 30, 20))
	dst = resample(small, 100)
	bounds = dst.Bounds()
	if bounds.Dx() != 30 || bounds.Dy() != 20 {
		t.Errorf("small image resampled = %dx%d, want untouched 30x20", bounds.Dx(), bounds.Dy())
	}
}
