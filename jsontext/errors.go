// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spanjson/spanjson/internal/jsonwire"
)

const errorPrefix = "jsontext: "

// Error matches errors returned by this package according to errors.Is.
const Error = textError("jsontext error")

type textError string

func (e textError) Error() string { return string(e) }
func (e textError) Is(target error) bool {
	return e == target || target == Error
}

// SyntacticError is a description of a syntactic error that occurred when
// encoding or decoding JSON according to the grammar.
type SyntacticError struct {
	requireKeyedLiterals
	nonComparable

	// ByteOffset indicates that an error occurred after this byte offset.
	ByteOffset int64
	str        string
}

func (e *SyntacticError) Error() string {
	return errorPrefix + e.str
}
func (e *SyntacticError) Is(target error) bool {
	return e == target || target == Error
}
func (e *SyntacticError) withOffset(pos int64) error {
	return &SyntacticError{ByteOffset: pos, str: e.str}
}

func newDuplicateNameError[Bytes ~[]byte | ~string](quoted Bytes) *SyntacticError {
	return &SyntacticError{str: "duplicate name " + string(quoted) + " in object"}
}

func newInvalidCharacterError[Bytes ~[]byte | ~string](prefix Bytes, where string) *SyntacticError {
	return &SyntacticError{str: "invalid character " + jsonwire.QuoteRune(string(prefix)) + " " + where}
}

func newInvalidEscapeSequenceError[Bytes ~[]byte | ~string](what Bytes) *SyntacticError {
	label := "escape sequence"
	if len(what) > 6 {
		label = "surrogate pair"
	}
	needEscape := strings.IndexFunc(string(what), func(r rune) bool {
		return r == '`' || r == utf8.RuneError || unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) >= 0
	if needEscape {
		return &SyntacticError{str: "invalid " + label + " " + strconv.Quote(string(what)) + " within string"}
	}
	return &SyntacticError{str: "invalid " + label + " `" + string(what) + "` within string"}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

var errInvalidUTF8 = errors.New(errorPrefix + "invalid UTF-8 within string")

// ioError wraps an I/O failure encountered while flushing an Encoder or
// refilling a Decoder, distinguishing it from a SyntacticError so that
// callers can tell a malformed document from an unreliable transport.
type ioError struct {
	action string // "read" or "write"
	err    error
}

func (e *ioError) Error() string {
	return errorPrefix + e.action + " error: " + e.err.Error()
}
func (e *ioError) Unwrap() error { return e.err }
func (e *ioError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.err, target)
}

// bufferStatistics holds buffer-utilization counters that Reset carries
// across Encoder/Decoder reuse. No code in this package updates them.
type bufferStatistics struct {
	strikes int
	prevLen int
}
