// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"bytes"

	"github.com/spanjson/spanjson/internal/jsonflags"
	"github.com/spanjson/spanjson/internal/jsonopts"
	"github.com/spanjson/spanjson/internal/jsonwire"
)

// Options configures the behavior of an Encoder or Decoder, or of a single
// WriteValue/ReadValue-style call. It is implemented by every option
// constructor in this package.
type Options = jsonopts.Options

// Value is an encoded JSON value, stored as raw UTF-8-encoded text. Unlike
// Token, which represents a single lexical element, a Value can hold an
// entire object or array.
type Value []byte

// Kind returns the kind of the JSON value, skipping any leading whitespace.
// It returns zero if v is empty or malformed.
func (v Value) Kind() Kind {
	if n := jsonwire.ConsumeWhitespace(v); n < len(v) {
		return Kind(v[n]).normalize()
	}
	return invalidKind
}

// Clone returns a copy of v that shares no memory with it.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	return bytes.Clone(v)
}

// String returns the formatting of v as a string.
func (v Value) String() string {
	if v == nil {
		return "null"
	}
	return string(v)
}

// IsValid reports whether v is a syntactically valid JSON value,
// optionally tolerating trailing whitespace.
func (v Value) IsValid() bool {
	d := NewDecoder(bytes.NewReader(v))
	_, err := d.ReadValue()
	if err != nil {
		return false
	}
	rest := v[d.s.previousOffsetEnd():]
	return jsonwire.ConsumeWhitespace(rest) == len(rest)
}

func AppendQuote[Bytes ~[]byte | ~string](dst []byte, src Bytes) ([]byte, error) {
	return jsonwire.AppendQuote(dst, src, true, nil)
}

func AppendUnquote[Bytes ~[]byte | ~string](dst []byte, src Bytes) ([]byte, error) {
	return jsonwire.AppendUnquote(dst, src)
}

func boolOption(f jsonflags.Bools, v bool) Options {
	return jsonopts.FuncOptions(func(dst *jsonopts.Struct) {
		if v {
			dst.Flags.Set(f)
		} else {
			dst.Flags.Clear(f)
		}
	})
}

// AllowDuplicateNames specifies that JSON objects may contain duplicate
// member names. If false (the default), a duplicate name is reported as an
// error at both encode and decode time.
func AllowDuplicateNames(v bool) Options { return boolOption(jsonflags.AllowDuplicateNames, v) }

// AllowInvalidUTF8 specifies that JSON strings may contain invalid UTF-8,
// which is mangled as the Unicode replacement character, U+FFFD.
func AllowInvalidUTF8(v bool) Options { return boolOption(jsonflags.AllowInvalidUTF8, v) }

// AllowTrailingCommas specifies that a comma may appear immediately before
// a closing "]" or "}" in the input.
func AllowTrailingCommas(v bool) Options { return boolOption(jsonflags.AllowTrailingCommas, v) }

// EscapeForHTML specifies that '<', '>', and '&' are escaped to keep the
// output safe to embed within HTML.
func EscapeForHTML(v bool) Options { return boolOption(jsonflags.EscapeForHTML, v) }

// EscapeForJS specifies that U+2028 and U+2029 are escaped to keep the
// output safe to embed within a <script> block.
func EscapeForJS(v bool) Options { return boolOption(jsonflags.EscapeForJS, v) }

// WithEscapeFunc specifies an arbitrary predicate for which runes to escape
// with a \uXXXX sequence, independent of EscapeForHTML/EscapeForJS.
func WithEscapeFunc(fn func(rune) bool) Options {
	return jsonopts.FuncOptions(func(dst *jsonopts.Struct) { dst.EscapeFunc = fn })
}

// Expand specifies that the output should use newlines and indentation to
// visually expand nested objects and arrays.
func Expand(v bool) Options {
	return jsonopts.FuncOptions(func(dst *jsonopts.Struct) {
		if v {
			dst.Flags.Set(jsonflags.Multiline | jsonflags.AnyWhitespace)
		} else {
			dst.Flags.Clear(jsonflags.Multiline)
		}
	})
}

// WithIndent sets the string used for one level of indentation; it implies
// Expand(true).
func WithIndent(indent string) Options {
	return jsonopts.FuncOptions(func(dst *jsonopts.Struct) {
		dst.Indent = indent
		dst.Flags.Set(jsonflags.Multiline | jsonflags.AnyWhitespace)
	})
}

// WithIndentPrefix sets a prefix emitted before every line of indentation.
func WithIndentPrefix(prefix string) Options {
	return jsonopts.FuncOptions(func(dst *jsonopts.Struct) { dst.IndentPrefix = prefix })
}

// SpaceAfterColon specifies that a space be printed after a colon.
func SpaceAfterColon(v bool) Options {
	return boolOption(jsonflags.SpaceAfterColon|jsonflags.AnyWhitespace, v)
}

// SpaceAfterComma specifies that a space be printed after a comma.
func SpaceAfterComma(v bool) Options {
	return boolOption(jsonflags.SpaceAfterComma|jsonflags.AnyWhitespace, v)
}

// CanonicalizeNumbers specifies that numbers are reformatted to their
// shortest round-trippable representation, per RFC 8785, section 3.2.2.3.
func CanonicalizeNumbers(v bool) Options { return boolOption(jsonflags.CanonicalizeNumbers, v) }

// OmitTopLevelNewline specifies that the encoder should not append a
// trailing newline after a streamed top-level value.
func OmitTopLevelNewline(v bool) Options { return boolOption(jsonflags.OmitTopLevelNewline, v) }

// MatchCaseInsensitiveNames specifies that JSON object names are matched
// against Go struct field names case-insensitively as a fallback.
func MatchCaseInsensitiveNames(v bool) Options {
	return boolOption(jsonflags.MatchCaseInsensitiveNames, v)
}
