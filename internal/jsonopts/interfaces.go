// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonopts centralizes the options shared by the jsontext coder
// and the spanjson converter engine, so that jsontext does not need to
// import the higher-level package to know about its own Options type.
package jsonopts

import (
	"github.com/spanjson/spanjson/internal/jsonflags"
	"github.com/spanjson/spanjson/internal/jsonwire"
)

// Options is implemented by any value that can contribute to a Struct.
// Its method is unexported, so FuncOptions (which every jsontext option
// constructor returns) is the only implementation.
type Options interface {
	joinTo(dst *Struct)
}

// Struct is the concrete, flattened representation of every option that
// has been specified for one (de)serialize operation. It is embedded by
// the jsontext encoder and decoder state.
type Struct struct {
	Flags jsonflags.Bools

	Indent       string
	IndentPrefix string
	EscapeFunc   func(rune) bool

	// frozen is set the first time a Struct built from package-level
	// defaults is used in a (de)serialize call; subsequent attempts to
	// mutate the originating Options value must fail (spec.md §5).
	frozen *bool

	escape *jsonwire.EscapeRunes
}

// ValidateUTF8 reports whether strings must be checked for well-formed UTF-8.
func (dst *Struct) ValidateUTF8() bool {
	return !dst.Flags.Get(jsonflags.AllowInvalidUTF8)
}

// CanonicalizeNumbers reports whether numbers are reformatted to their
// shortest round-trippable representation on output.
func (dst *Struct) CanonicalizeNumbers() bool {
	return dst.Flags.Get(jsonflags.CanonicalizeNumbers)
}

// Escape returns (and lazily builds) the escape policy table implied by the
// current flags and EscapeFunc.
func (dst *Struct) Escape() *jsonwire.EscapeRunes {
	if dst.escape == nil {
		html := dst.Flags.Get(jsonflags.EscapeForHTML)
		js := dst.Flags.Get(jsonflags.EscapeForJS)
		dst.escape = jsonwire.MakeEscapeRunes(html, js, dst.EscapeFunc)
	}
	return dst.escape
}

// Join folds each of opts into dst, in order; later options override
// earlier ones for any field they explicitly set.
func (dst *Struct) Join(opts ...Options) {
	for _, o := range opts {
		if o != nil {
			o.joinTo(dst)
		}
	}
}

// FuncOptions adapts a plain function into an Options value, mirroring
// the constructor style used throughout jsontext (AllowDuplicateNames,
// WithIndent, etc. are all built this way).
type FuncOptions func(*Struct)

func (f FuncOptions) joinTo(dst *Struct) { f(dst) }

// MarkFrozen records that dst (a package-level default Struct, typically
// reached through a sync.Once) has now been used at least once.
func (dst *Struct) MarkFrozen(frozen *bool) {
	dst.frozen = frozen
	*frozen = true
}

// Frozen reports whether this Struct must no longer be mutated directly.
func (dst *Struct) Frozen() bool {
	return dst.frozen != nil && *dst.frozen
}
