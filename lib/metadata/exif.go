// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// The orientation tag in IFD0.
const exifOrientationTag = 0x0112

var errNoOrientation = errors.New("no exif orientation")

// jpegOrientation reads the EXIF orientation value (1–8) from a JPEG
// file. Only the single tag is parsed; files without an EXIF segment
// or without the tag return errNoOrientation.
func jpegOrientation(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	segment, err := findEXIFSegment(bufio.NewReader(file))
	if err != nil {
		return 0, err
	}
	return parseOrientation(segment)
}

// findEXIFSegment walks JPEG markers until the APP1/Exif segment and
// returns its TIFF payload (after the "Exif\0\0" preamble).
func findEXIFSegment(r *bufio.Reader) ([]byte, error) {
	signature := make([]byte, 2)
	if _, err := io.ReadFull(r, signature); err != nil {
		return nil, err
	}
	if signature[0] != 0xFF || signature[1] != 0xD8 {
		return nil, errors.New("not a jpeg")
	}

	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, errNoOrientation
		}
		if header[0] != 0xFF {
			return nil, errNoOrientation
		}
		marker := header[1]
		length := int(binary.BigEndian.Uint16(header[2:4]))
		if length < 2 {
			return nil, errNoOrientation
		}
		payload := length - 2

		// Entropy-coded data begins at SOS; no EXIF past that point.
		if marker == 0xDA {
			return nil, errNoOrientation
		}
		if marker == 0xE1 && payload >= 6 {
			segment := make([]byte, payload)
			if _, err := io.ReadFull(r, segment); err != nil {
				return nil, errNoOrientation
			}
			if string(segment[:6]) == "Exif\x00\x00" {
				return segment[6:], nil
			}
			continue
		}
		if _, err := io.CopyN(io.Discard, r, int64(payload)); err != nil {
			return nil, errNoOrientation
		}
	}
}

// parseOrientation reads IFD0 of a TIFF structure and extracts tag
// 0x0112.
func parseOrientation(tiff []byte) (int, error) {
	if len(tiff) < 8 {
		return 0, errNoOrientation
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errNoOrientation
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 0, errNoOrientation
	}

	ifdOffset := int(order.Uint32(tiff[4:8]))
	if ifdOffset < 0 || ifdOffset+2 > len(tiff) {
		return 0, errNoOrientation
	}
	entryCount := int(order.Uint16(tiff[ifdOffset : ifdOffset+2]))

	for i := 0; i < entryCount; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(tiff) {
			return 0, errNoOrientation
		}
		if order.Uint16(tiff[entry:entry+2]) != exifOrientationTag {
			continue
		}
		// SHORT value stored inline in the value field.
		orientation := int(order.Uint16(tiff[entry+8 : entry+10]))
		if orientation < 1 || orientation > 8 {
			return 0, fmt.Errorf("orientation %d out of range", orientation)
		}
		return orientation, nil
	}
	return 0, errNoOrientation
}
