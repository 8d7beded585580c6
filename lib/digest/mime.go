// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMimeType is returned when a file's extension is not
// recognized. MIME type is carried as metadata, never inferred from
// the stored artifact's name (stored paths have no extension).
const DefaultMimeType = "application/octet-stream"

// mimeOverrides covers media types missing from or inconsistently
// present in the platform mime table.
var mimeOverrides = map[string]string{
	".avif": "image/avif",
	".webp": "image/webp",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".flac": "audio/flac",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
}

// MimeType infers a file's MIME type from its extension. Parameters
// such as charset are stripped: the result is always a bare
// "type/subtype". Unrecognized extensions yield [DefaultMimeType].
func MimeType(path string) string {
	extension := strings.ToLower(filepath.Ext(path))
	if extension == "" {
		return DefaultMimeType
	}
	if override, ok := mimeOverrides[extension]; ok {
		return override
	}
	mimeType := mime.TypeByExtension(extension)
	if mimeType == "" {
		return DefaultMimeType
	}
	if semicolon := strings.IndexByte(mimeType, ';'); semicolon >= 0 {
		mimeType = strings.TrimSpace(mimeType[:semicolon])
	}
	return mimeType
}
