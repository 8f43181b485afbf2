// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonwire

import (
	"errors"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a string contains invalid UTF-8 and
// the caller did not ask for invalid bytes to be replaced.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 within string")

// ErrIncompleteValue indicates that the scanner reached the end of the
// buffer before it could disambiguate what follows. Callers that hold
// a possibly-incomplete input span should append more bytes and retry
// from the same starting position.
var ErrIncompleteValue = errors.New("unexpected end of JSON input")

// ValueFlags records facts discovered while scanning a string or number so
// that later stages (the writer's reformatter, the converter engine) do not
// need to rescan the bytes to learn them.
type ValueFlags uint8

const (
	stringNonVerbatim ValueFlags = 1 << iota // string contains an escape sequence
	stringNonCanonical
)

// IsVerbatim reports whether the string needed no unescaping.
func (f ValueFlags) IsVerbatim() bool { return f&stringNonVerbatim == 0 }

// IsCanonical reports whether the string used minimal (non-HTML) escaping.
func (f ValueFlags) IsCanonical() bool { return f&stringNonCanonical == 0 }

func (f *ValueFlags) join(f2 ValueFlags) { *f |= f2 }

// ConsumeWhitespace consumes any leading JSON whitespace (space, tab, CR, LF)
// and reports how many bytes were consumed. It never fails.
func ConsumeWhitespace(b []byte) int {
	var n int
	for len(b) > n && (b[n] == ' ' || b[n] == '\t' || b[n] == '\r' || b[n] == '\n') {
		n++
	}
	return n
}

// ConsumeNull consumes a literal "null" and returns the bytes consumed,
// or 0 if b does not start with an exact match.
func ConsumeNull(b []byte) int { return consumeLiteralFast(b, "null") }

// ConsumeFalse consumes a literal "false".
func ConsumeFalse(b []byte) int { return consumeLiteralFast(b, "false") }

// ConsumeTrue consumes a literal "true".
func ConsumeTrue(b []byte) int { return consumeLiteralFast(b, "true") }

func consumeLiteralFast(b []byte, lit string) int {
	if len(b) >= len(lit) && string(b[:len(lit)]) == lit {
		return len(lit)
	}
	return 0
}

// ConsumeLiteral consumes the named literal, returning a detailed error
// (including ErrIncompleteValue) when the fast path above could not match.
func ConsumeLiteral(b []byte, lit string) (int, error) {
	for i := 0; i < len(lit); i++ {
		if i >= len(b) {
			return i, ErrIncompleteValue
		}
		if b[i] != lit[i] {
			return i, newInvalidCharacterError(b[i:], "within literal "+lit)
		}
	}
	return len(lit), nil
}

// ConsumeSimpleString reports the length of a string that requires no
// unescaping and contains only canonical (non-HTML-sensitive) bytes, or 0
// if the string is empty, unterminated within b, or contains any byte that
// would require the slow path.
func ConsumeSimpleString(b []byte) int {
	if len(b) < 2 || b[0] != '"' {
		return 0
	}
	for i := 1; i < len(b); i++ {
		switch c := b[i]; {
		case c == '"':
			return i + 1
		case c < 0x20 || c == '\\' || c >= utf8.RuneSelf:
			return 0
		}
	}
	return 0
}

// ConsumeString consumes a double-quoted JSON string starting at b[0].
// It returns the number of bytes consumed and records in flags whether the
// string needed unescaping. An incomplete string at the end of b reports
// ErrIncompleteValue so that the caller can request more input and retry
// from the same offset; this is the C1 NeedMoreData signal.
func ConsumeString(flags *ValueFlags, b []byte, validateUTF8 bool) (int, error) {
	if len(b) == 0 {
		return 0, ErrIncompleteValue
	}
	if b[0] != '"' {
		return 0, newInvalidCharacterError(b, "at start of string")
	}
	n := 1
	for {
		if n >= len(b) {
			return n, ErrIncompleteValue
		}
		switch c := b[n]; {
		case c == '"':
			return n + 1, nil
		case c == '\\':
			flags.join(stringNonVerbatim | stringNonCanonical)
			nn, err := consumeEscape(b[n:], validateUTF8)
			if err != nil {
				return n, err
			}
			n += nn
		case c < 0x20:
			return n, newInvalidCharacterError(b[n:n+1], "within string (must be escaped)")
		case c >= utf8.RuneSelf:
			flags.join(stringNonCanonical)
			r, rn := utf8.DecodeRune(b[n:])
			if r == utf8.RuneError && rn == 1 {
				if !utf8.FullRune(b[n:]) {
					return n, ErrIncompleteValue
				}
				if validateUTF8 {
					return n, ErrInvalidUTF8
				}
			}
			n += rn
		default:
			n++
		}
	}
}

// consumeEscape validates and measures a single `\...` escape sequence
// starting at b[0] == '\\'. It returns the number of bytes in the sequence.
func consumeEscape(b []byte, validateUTF8 bool) (int, error) {
	if len(b) < 2 {
		return 0, ErrIncompleteValue
	}
	switch b[1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2, nil
	case 'u':
		if len(b) < 6 {
			return 0, ErrIncompleteValue
		}
		r1, ok := parseHex4(b[2:6])
		if !ok {
			return 0, newInvalidEscapeSequenceError(b[:6])
		}
		n := 6
		if utf16.IsSurrogate(rune(r1)) {
			if len(b) < 12 {
				return 0, ErrIncompleteValue
			}
			if b[6] != '\\' || b[7] != 'u' {
				return 0, newInvalidEscapeSequenceError(b[:6])
			}
			r2, ok := parseHex4(b[8:12])
			if !ok {
				return 0, newInvalidEscapeSequenceError(b[:12])
			}
			if rr := utf16.DecodeRune(rune(r1), rune(r2)); rr == utf8.RuneError {
				if validateUTF8 {
					return 0, newInvalidEscapeSequenceError(b[:12])
				}
			}
			n = 12
		}
		return n, nil
	default:
		return 0, newInvalidEscapeSequenceError(b[:2])
	}
}

func parseHex4(b []byte) (uint16, bool) {
	if len(b) < 4 {
		return 0, false
	}
	var v uint16
	for _, c := range b[:4] {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint16(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint16(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint16(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}

// ConsumeSimpleNumber reports the length of a number written as a plain
// integer (no fraction, no exponent), or 0 if it requires the slow path.
func ConsumeSimpleNumber(b []byte) int {
	n, err := ConsumeNumber(b)
	if err != nil {
		return 0
	}
	for _, c := range b[:n] {
		if c == '.' || c == 'e' || c == 'E' || c == '+' {
			return 0
		}
	}
	return n
}

// ConsumeNumber consumes a JSON number per RFC 8259 §6, per spec.md C1.
// It does not parse the number to a numeric value; that is done lazily by
// value accessors so that round-tripping unparsed digits remains possible.
func ConsumeNumber(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, ErrIncompleteValue
	}
	n := 0
	if b[n] == '-' {
		n++
	}
	if n >= len(b) {
		return n, ErrIncompleteValue
	}
	switch {
	case b[n] == '0':
		n++
	case b[n] >= '1' && b[n] <= '9':
		n++
		for n < len(b) && isDigit(b[n]) {
			n++
		}
	default:
		return n, newInvalidCharacterError(b[n:], "in number (expecting digit)")
	}
	if n < len(b) && b[n] == '.' {
		m := n + 1
		if m >= len(b) {
			return m, ErrIncompleteValue
		}
		if !isDigit(b[m]) {
			return m, newInvalidCharacterError(b[m:], "after decimal point in number")
		}
		for m < len(b) && isDigit(b[m]) {
			m++
		}
		n = m
	}
	if n < len(b) && (b[n] == 'e' || b[n] == 'E') {
		m := n + 1
		if m < len(b) && (b[m] == '+' || b[m] == '-') {
			m++
		}
		if m >= len(b) {
			return m, ErrIncompleteValue
		}
		if !isDigit(b[m]) {
			return m, newInvalidCharacterError(b[m:], "in exponent of number")
		}
		for m < len(b) && isDigit(b[m]) {
			m++
		}
		n = m
	}
	return n, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// AppendUnquote appends the unescaped content of a double-quoted JSON
// string (without the surrounding quotes in the output) to dst.
func AppendUnquote[Bytes ~[]byte | ~string](dst []byte, src Bytes) ([]byte, error) {
	s := []byte(string(src))
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return dst, errors.New("jsonwire: AppendUnquote requires a quoted string")
	}
	inner := s[1 : len(s)-1]
	if i := indexNeedsUnescape(inner); i < 0 {
		return append(dst, inner...), nil
	}
	return unescapeSlow(dst, inner)
}

// UnquoteMayCopy is like AppendUnquote but avoids copying when the string
// is already verbatim (isVerbatim is a hint the caller already computed).
func UnquoteMayCopy(quoted []byte, isVerbatim bool) []byte {
	inner := quoted[1 : len(quoted)-1]
	if isVerbatim {
		return inner
	}
	out, _ := unescapeSlow(nil, inner)
	return out
}

// indexNeedsUnescape returns the index of the first byte in b that
// triggers the unescape path (a backslash), or -1 if none.
func indexNeedsUnescape(b []byte) int {
	for i, c := range b {
		if c == '\\' {
			return i
		}
	}
	return -1
}

// unescapeSlow transcodes `\uXXXX` and short escapes in src to UTF-8,
// per spec.md C1 Unescape: pairs high/low surrogates and fails on lone
// surrogates rather than silently mangling them.
func unescapeSlow(dst, src []byte) ([]byte, error) {
	for len(src) > 0 {
		i := indexNeedsUnescape(src)
		if i < 0 {
			return append(dst, src...), nil
		}
		dst = append(dst, src[:i]...)
		src = src[i:]
		switch src[1] {
		case '"':
			dst = append(dst, '"')
		case '\\':
			dst = append(dst, '\\')
		case '/':
			dst = append(dst, '/')
		case 'b':
			dst = append(dst, '\b')
		case 'f':
			dst = append(dst, '\f')
		case 'n':
			dst = append(dst, '\n')
		case 'r':
			dst = append(dst, '\r')
		case 't':
			dst = append(dst, '\t')
		case 'u':
			r1, ok := parseHex4(src[2:6])
			if !ok {
				return dst, newInvalidEscapeSequenceError(src[:6])
			}
			n := 6
			r := rune(r1)
			if utf16.IsSurrogate(r) {
				if len(src) < 12 || src[6] != '\\' || src[7] != 'u' {
					return dst, newInvalidEscapeSequenceError(src[:6])
				}
				r2, ok := parseHex4(src[8:12])
				if !ok {
					return dst, newInvalidEscapeSequenceError(src[:12])
				}
				r = utf16.DecodeRune(r, rune(r2))
				if r == utf8.RuneError {
					return dst, newInvalidEscapeSequenceError(src[:12])
				}
				n = 12
			}
			dst = utf8.AppendRune(dst, r)
			src = src[n:]
			continue
		}
		src = src[2:]
	}
	return dst, nil
}

// NeedEscape reports whether b (the bytes between the quotes) contains any
// character that requires escaping under the canonical (ASCII-safe) policy.
func NeedEscape(b []byte) bool {
	for i := 0; i < len(b); {
		c := b[i]
		if c < utf8.RuneSelf {
			if escapeCanonical.needEscapeASCII(c) {
				return true
			}
			i++
			continue
		}
		r, n := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && n == 1 {
			return true
		}
		i += n
	}
	return false
}

// TrimSuffixWhitespace trims trailing JSON whitespace from b.
func TrimSuffixWhitespace(b []byte) []byte {
	n := len(b)
	for n > 0 {
		switch b[n-1] {
		case ' ', '\t', '\r', '\n':
			n--
			continue
		}
		break
	}
	return b[:n]
}

// TrimSuffixByte trims a single trailing c from b, if present.
func TrimSuffixByte(b []byte, c byte) []byte {
	if len(b) > 0 && b[len(b)-1] == c {
		return b[:len(b)-1]
	}
	return b
}

// TrimSuffixString trims a single trailing quoted JSON string from b.
func TrimSuffixString(b []byte) []byte {
	if len(b) == 0 || b[len(b)-1] != '"' {
		return b
	}
	for i := len(b) - 2; i >= 0; i-- {
		if b[i] == '"' {
			// Count preceding backslashes to determine if this quote is escaped.
			j := i - 1
			for j >= 0 && b[j] == '\\' {
				j--
			}
			if (i-1-j)%2 == 0 {
				return b[:i]
			}
		}
	}
	return b
}

func truncateMaxUTF8[Bytes ~[]byte | ~string](b Bytes) Bytes {
	if len(b) > utf8.UTFMax {
		return b[:utf8.UTFMax]
	}
	return b
}

func newInvalidCharacterError[Bytes ~[]byte | ~string](prefix Bytes, where string) error {
	r, n := utf8.DecodeRuneInString(string(truncateMaxUTF8(prefix)))
	if r == utf8.RuneError && n == 1 {
		return errors.New("invalid character '\\x" + strconv.FormatUint(uint64(prefix[0]), 16) + "' " + where)
	}
	return errors.New("invalid character " + strconv.QuoteRune(r) + " " + where)
}

func newInvalidEscapeSequenceError[Bytes ~[]byte | ~string](what Bytes) error {
	return errors.New("invalid escape sequence " + strconv.Quote(string(what)) + " within string")
}

// ParseFloat parses the floating-point value of a JSON number.
func ParseFloat(b []byte, bits int) (float64, error) {
	return strconv.ParseFloat(string(b), bits)
}

// ParseInt parses the signed integer value of a JSON number,
// rejecting any fractional or exponent component.
func ParseInt(b []byte, bits int) (int64, error) {
	return strconv.ParseInt(string(b), 10, bits)
}

// ParseUint parses the unsigned integer value of a JSON number.
func ParseUint(b []byte, bits int) (uint64, error) {
	return strconv.ParseUint(string(b), 10, bits)
}

// QuoteRune quotes the leading rune of s for use in error messages.
func QuoteRune(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && n <= 1 {
		if len(s) == 0 {
			return `""`
		}
		return `'\x` + strconv.FormatUint(uint64(s[0]), 16) + `'`
	}
	return strconv.QuoteRune(r)
}
