// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonflags implements a set of boolean flags shared between the
// coder (jsontext) and the converter engine (spanjson).
//
// Flags are packed into a single uint64 so that reading or checking many
// of them at once stays branch-light on the hot path of Read/Write.
package jsonflags

// Bools is a bit set of boolean flags.
type Bools uint64

const (
	AllowDuplicateNames Bools = 1 << iota
	AllowInvalidUTF8
	AllowTrailingCommas
	EscapeForHTML
	EscapeForJS
	Multiline
	SpaceAfterColon
	SpaceAfterComma
	OmitTopLevelNewline
	CanonicalizeNumbers
	Deterministic
	FormatNilSliceAsNull
	FormatNilMapAsNull
	StringifyNumbers
	StringifyWithLegacySemantics
	MatchCaseInsensitiveNames
	RejectUnknownMembers
	DiscardUnknownMembers
	ReportErrorsWithLegacySemantics
	WithinArshalCall

	// AnyWhitespace is set whenever Multiline, SpaceAfterColon, or
	// SpaceAfterComma is configured, so the encoder's hot path can test a
	// single bit instead of three.
	AnyWhitespace

	numFlags
)

// Get reports whether any bit in f is set.
func (b Bools) Get(f Bools) bool { return b&f != 0 }

// Set sets every bit in f.
func (b *Bools) Set(f Bools) { *b |= f }

// Clear unsets every bit in f.
func (b *Bools) Clear(f Bools) { *b &^= f }

// Join merges the bits of f2 into b, with f2 taking precedence for any bit
// that it explicitly sets (the mask parameter records which bits f2 actually
// touched so that zero values don't clobber previously set flags).
func (b *Bools) Join(f2, mask Bools) {
	*b = (*b &^ mask) | (f2 & mask)
}
