// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import "strings"

// Family is the coarse media family a file belongs to. It is derived
// exactly once per classification by [FamilyOf]; everything downstream
// switches on the enum instead of re-inspecting mime strings.
type Family int

const (
	FamilyOther Family = iota
	FamilyImage
	FamilyVideo
	FamilyAudio
)

func (f Family) String() string {
	switch f {
	case FamilyImage:
		return "image"
	case FamilyVideo:
		return "video"
	case FamilyAudio:
		return "audio"
	default:
		return "other"
	}
}

// FamilyOf maps a MIME type to its media family. Unrecognized and
// non-media types are FamilyOther.
func FamilyOf(mimeType string) Family {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FamilyImage
	case strings.HasPrefix(mimeType, "video/"):
		return FamilyVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return FamilyAudio
	default:
		return FamilyOther
	}
}

// Corrupt is the tri-state corruption verdict attached to an
// ingestion result. CorruptUnknown means classification has not run;
// the classifier always resolves to CorruptFalse or CorruptTrue.
type Corrupt int

const (
	CorruptUnknown Corrupt = iota
	CorruptFalse
	CorruptTrue
)

func (c Corrupt) String() string {
	switch c {
	case CorruptFalse:
		return "false"
	case CorruptTrue:
		return "true"
	default:
		return "unknown"
	}
}
