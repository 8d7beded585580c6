// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"context"
	"fmt"
	"image"
	"os"

	"image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/hoardkeep/hoard/lib/animation"
	"github.com/hoardkeep/hoard/lib/thumbhash"
)

// extractImage decodes the image for dimensions and a thumbhash,
// falling back to the external prober for formats no in-process
// decoder understands. A decodable image that fails to hash is an
// error; an undecodable image that the prober can measure is not.
func (c *Classifier) extractImage(ctx context.Context, path, mimeType string) (*ImageMeta, error) {
	meta := &ImageMeta{}

	img, format, err := decodeOriented(path)
	if err == nil {
		bounds := img.Bounds()
		meta.Width = bounds.Dx()
		meta.Height = bounds.Dy()
		hash, hashErr := thumbhashOf(img)
		if hashErr != nil {
			return nil, fmt.Errorf("hashing %s image: %w", format, hashErr)
		}
		meta.ThumbHash = hash
	} else {
		if proberErr := c.requireProber(); proberErr != nil {
			return nil, fmt.Errorf("decoding image: %w (%v)", err, proberErr)
		}
		width, height, probeErr := c.prober.ImageDimensions(ctx, path)
		if probeErr != nil {
			return nil, fmt.Errorf("decoding image: %w (prober: %v)", err, probeErr)
		}
		meta.Width = width
		meta.Height = height
	}

	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("non-positive dimensions %dx%d", meta.Width, meta.Height)
	}

	// A missing or zero animation duration never makes an image
	// corrupt; the file simply classifies as static.
	if ms, ok := animationDuration(path, mimeType); ok {
		meta.Animated = true
		meta.DurationMillis = ms
	}
	return meta, nil
}

// animationDuration dispatches per format: GIF inter-frame timing is
// reliably reported by the general-purpose decoder; WebP and AVIF
// need the dedicated container scanners.
func animationDuration(path, mimeType string) (int64, bool) {
	switch mimeType {
	case "image/gif":
		return gifDuration(path)
	case "image/webp":
		return animation.WebPDurationFile(path)
	case "image/avif":
		return animation.AVIFDurationFile(path)
	default:
		return 0, false
	}
}

// gifDuration sums per-frame delays (centiseconds) across all frames.
// A single frame is not animation.
func gifDuration(path string) (int64, bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	decoded, err := gif.DecodeAll(file)
	if err != nil || len(decoded.Image) <= 1 {
		return 0, false
	}
	var total int64
	for _, delay := range decoded.Delay {
		total += int64(delay) * 10
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// decodeOriented decodes the image and applies EXIF orientation so
// the reported dimensions and the thumbhash match how viewers render
// the file.
func decodeOriented(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, "", err
	}
	if format == "jpeg" {
		if orientation, err := jpegOrientation(path); err == nil {
			img = applyOrientation(img, orientation)
		}
	}
	return img, format, nil
}

// thumbhashOf resamples the image to the encoder's bound and encodes
// it.
func thumbhashOf(img image.Image) ([]byte, error) {
	resampled := resample(img, thumbhash.MaxDimension)
	bounds := resampled.Bounds()
	return thumbhash.Encode(bounds.Dx(), bounds.Dy(), resampled.Pix)
}

// resample scales the image down to fit within limit×limit,
// preserving aspect ratio. Images already within the bound are only
// converted to RGBA.
func resample(img image.Image, limit int) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	targetWidth, targetHeight := width, height
	if width > limit || height > limit {
		if width >= height {
			targetWidth = limit
			targetHeight = height * limit / width
		} else {
			targetHeight = limit
			targetWidth = width * limit / height
		}
		if targetWidth < 1 {
			targetWidth = 1
		}
		if targetHeight < 1 {
			targetHeight = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// applyOrientation remaps pixels for EXIF orientations 2–8.
// Orientation 1 (and anything out of range) is identity.
func applyOrientation(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	outWidth, outHeight := width, height
	if orientation >= 5 {
		outWidth, outHeight = height, width
	}
	dst := image.NewRGBA(image.Rect(0, 0, outWidth, outHeight))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var dx, dy int
			switch orientation {
			case 2: // mirror horizontal
				dx, dy = width-1-x, y
			case 3: // rotate 180
				dx, dy = width-1-x, height-1-y
			case 4: // mirror vertical
				dx, dy = x, height-1-y
			case 5: // mirror horizontal + rotate 270 CW
				dx, dy = y, x
			case 6: // rotate 90 CW
				dx, dy = height-1-y, x
			case 7: // mirror horizontal + rotate 90 CW
				dx, dy = height-1-y, width-1-x
			case 8: // rotate 270 CW
				dx, dy = y, width-1-x
			}
			dst.Set(dx, dy, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}
