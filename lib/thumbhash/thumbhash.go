// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package thumbhash encodes a compact perceptual hash of an image.
//
// A ThumbHash is a DCT-based encoding of a heavily downsampled image
// (at most 100×100) into a short byte string usable as a blurred
// placeholder without decoding the original. The output format is
// fixed: a 24-bit header (luma DC, two chroma DCs, luma AC scale,
// alpha flag), a 16-bit header (grid size, chroma AC scales,
// landscape flag), an optional alpha DC/scale byte, then all AC
// coefficients quantized to 4 bits and packed two per byte in
// luma, chroma-P, chroma-Q, alpha order. The encoding is the
// interoperability contract: stored hashes are only comparable if
// every implementation reproduces the coefficient ordering and
// quantization exactly.
package thumbhash

import (
	"fmt"
	"math"
)

// MaxDimension is the largest width or height Encode accepts. Callers
// resample larger images down before encoding.
const MaxDimension = 100

// Encode computes the ThumbHash of an RGBA pixel buffer. rgba holds
// width*height*4 bytes in row-major R,G,B,A order (non-premultiplied
// alpha).
func Encode(width, height int, rgba []byte) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%dx%d doesn't fit in %dx%d", width, height, MaxDimension, MaxDimension)
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("rgba buffer is %d bytes, want %d", len(rgba), width*height*4)
	}

	pixels := width * height

	// Alpha-weighted (premultiplied) average color.
	var avgR, avgG, avgB, avgA float64
	for i := 0; i < pixels; i++ {
		j := i * 4
		alpha := float64(rgba[j+3]) / 255
		avgR += alpha / 255 * float64(rgba[j])
		avgG += alpha / 255 * float64(rgba[j+1])
		avgB += alpha / 255 * float64(rgba[j+2])
		avgA += alpha
	}
	if avgA > 0 {
		avgR /= avgA
		avgG /= avgA
		avgB /= avgA
	}

	hasAlpha := avgA < float64(pixels)

	// The luma grid is proportional to aspect ratio, and larger when
	// the image is fully opaque: with no alpha channel to encode, the
	// fixed coefficient budget is spent on luma instead.
	lumaLimit := 7
	if hasAlpha {
		lumaLimit = 5
	}
	longSide := width
	if height > width {
		longSide = height
	}
	lx := max(1, int(math.Round(float64(lumaLimit*width)/float64(longSide))))
	ly := max(1, int(math.Round(float64(lumaLimit*height)/float64(longSide))))

	// Derived channels: luma L, chroma differences P and Q, coverage
	// A. Colors are composited toward the average color by coverage
	// so transparent regions do not drag the DCT.
	l := make([]float64, pixels)
	p := make([]float64, pixels)
	q := make([]float64, pixels)
	a := make([]float64, pixels)
	for i := 0; i < pixels; i++ {
		j := i * 4
		alpha := float64(rgba[j+3]) / 255
		r := avgR*(1-alpha) + alpha/255*float64(rgba[j])
		g := avgG*(1-alpha) + alpha/255*float64(rgba[j+1])
		b := avgB*(1-alpha) + alpha/255*float64(rgba[j+2])
		l[i] = (r + g + b) / 3
		p[i] = (r+g)/2 - b
		q[i] = r - g
		a[i] = alpha
	}

	lDC, lAC, lScale := encodeChannel(l, max(3, lx), max(3, ly), width, height)
	pDC, pAC, pScale := encodeChannel(p, 3, 3, width, height)
	qDC, qAC, qScale := encodeChannel(q, 3, 3, width, height)
	aDC, aAC, aScale := 1.0, []float64(nil), 1.0
	if hasAlpha {
		aDC, aAC, aScale = encodeChannel(a, 5, 5, width, height)
	}

	isLandscape := width > height

	header24 := round(63*lDC) |
		round(31.5+31.5*pDC)<<6 |
		round(31.5+31.5*qDC)<<12 |
		round(31*lScale)<<18
	if hasAlpha {
		header24 |= 1 << 23
	}

	gridSize := lx
	if isLandscape {
		gridSize = ly
	}
	header16 := gridSize | round(63*pScale)<<3 | round(63*qScale)<<9
	if isLandscape {
		header16 |= 1 << 15
	}

	hash := []byte{
		byte(header24 & 255),
		byte((header24 >> 8) & 255),
		byte(header24 >> 16),
		byte(header16 & 255),
		byte(header16 >> 8),
	}

	if hasAlpha {
		hash = append(hash, byte(round(15*aDC)|round(15*aScale)<<4))
	}

	// AC coefficients: 4 bits each, two per byte, in fixed channel
	// order.
	isOdd := false
	for _, channel := range [][]float64{lAC, pAC, qAC, aAC} {
		for _, f := range channel {
			u := byte(round(15 * f))
			if isOdd {
				hash[len(hash)-1] |= u << 4
			} else {
				hash = append(hash, u)
			}
			isOdd = !isOdd
		}
	}

	return hash, nil
}

// encodeChannel computes a 2D DCT-II over the channel restricted to
// the triangular low-frequency set {(cx,cy) : cx*ny < nx*(ny-cy)},
// returning the DC term, the AC terms in scan order, and the maximum
// absolute AC magnitude. AC terms are normalized into [0,1] around
// 0.5 by the scale.
func encodeChannel(channel []float64, nx, ny, width, height int) (dc float64, ac []float64, scale float64) {
	fx := make([]float64, width)
	for cy := 0; cy < ny; cy++ {
		for cx := 0; cx*ny < nx*(ny-cy); cx++ {
			var f float64
			for x := 0; x < width; x++ {
				fx[x] = math.Cos(math.Pi / float64(width) * float64(cx) * (float64(x) + 0.5))
			}
			for y := 0; y < height; y++ {
				fy := math.Cos(math.Pi / float64(height) * float64(cy) * (float64(y) + 0.5))
				for x := 0; x < width; x++ {
					f += channel[x+y*width] * fx[x] * fy
				}
			}
			f /= float64(width * height)
			if cx > 0 || cy > 0 {
				ac = append(ac, f)
				scale = math.Max(scale, math.Abs(f))
			} else {
				dc = f
			}
		}
	}
	if scale > 0 {
		for i := range ac {
			ac[i] = 0.5 + 0.5/scale*ac[i]
		}
	}
	return dc, ac, scale
}

// round quantizes a non-negative value half away from zero. All
// quantized quantities in this encoding are non-negative.
func round(v float64) int {
	return int(math.Round(v))
}
