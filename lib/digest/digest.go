// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes content identity for ingested files.
//
// Every file is identified by a pair of digests computed in a single
// streaming pass: a fast SHA-1 digest used for auxiliary indexing and
// a strong SHA-512 digest used as the primary identity key. Digest
// text is unpadded base32 (RFC 4648 alphabet with trailing "="
// stripped), the canonical encoding for storage paths and catalog
// keys. [ParseStrong] and [ParseFast] accept padded input and
// normalize it, so values
// written by older tooling remain readable, but padded text is never
// emitted.
package digest

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base32"
	"fmt"
)

// encoding is the canonical digest text encoding: standard base32
// without padding.
var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Fast is a 20-byte SHA-1 digest. It is never used as an identity key
// on its own; it exists for auxiliary lookup alongside [Strong].
type Fast [sha1.Size]byte

// Strong is a 64-byte SHA-512 digest, the primary content identity.
// Two files with equal Strong digests are treated as identical
// content everywhere in the system.
type Strong [sha512.Size]byte

// String returns the unpadded base32 text of the digest.
func (f Fast) String() string {
	return encoding.EncodeToString(f[:])
}

// String returns the unpadded base32 text of the digest.
func (s Strong) String() string {
	return encoding.EncodeToString(s[:])
}

// Pair is the content identity of one file: both digests computed
// over the same byte stream.
type Pair struct {
	Fast   Fast
	Strong Strong
}

// ParseStrong parses digest text into a [Strong]. Padded base32 input
// is accepted and normalized.
func ParseStrong(text string) (Strong, error) {
	var strong Strong
	decoded, err := decode(text)
	if err != nil {
		return strong, fmt.Errorf("parsing strong digest: %w", err)
	}
	if len(decoded) != len(strong) {
		return strong, fmt.Errorf("strong digest is %d bytes, want %d", len(decoded), len(strong))
	}
	copy(strong[:], decoded)
	return strong, nil
}

// ParseFast parses digest text into a [Fast]. Padded base32 input is
// accepted and normalized.
func ParseFast(text string) (Fast, error) {
	var fast Fast
	decoded, err := decode(text)
	if err != nil {
		return fast, fmt.Errorf("parsing fast digest: %w", err)
	}
	if len(decoded) != len(fast) {
		return fast, fmt.Errorf("fast digest is %d bytes, want %d", len(decoded), len(fast))
	}
	copy(fast[:], decoded)
	return fast, nil
}

// decode decodes base32 digest text, stripping any legacy padding
// before decoding.
func decode(text string) ([]byte, error) {
	for len(text) > 0 && text[len(text)-1] == '=' {
		text = text[:len(text)-1]
	}
	return encoding.DecodeString(text)
}
