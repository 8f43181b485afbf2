// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"strconv"

	"github.com/spanjson/spanjson/internal/jsonwire"
)

// Pointer is a JSON Pointer (RFC 6901) that references a value within a
// JSON document, such as "/foo/bar/0". An empty Pointer references the
// whole document.
type Pointer string

// Tokens splits p into its reference tokens, unescaping "~1" to '/' and
// "~0" to '~' within each. An empty Pointer yields no tokens.
func (p Pointer) Tokens() []string {
	if p == "" {
		return nil
	}
	s := string(p)
	if s[0] == '/' {
		s = s[1:]
	}
	var toks []string
	for {
		i := indexByte(s, '/')
		var tok string
		if i < 0 {
			tok, s = s, ""
		} else {
			tok, s = s[:i], s[i+1:]
		}
		toks = append(toks, unescapePointerToken(tok))
		if i < 0 {
			return toks
		}
	}
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func unescapePointerToken(s string) string {
	if indexByte(s, '~') < 0 {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && i+1 < len(s) {
			switch s[i+1] {
			case '0':
				b = append(b, '~')
				i++
				continue
			case '1':
				b = append(b, '/')
				i++
				continue
			}
		}
		b = append(b, s[i])
	}
	return string(b)
}

func appendEscapedPointerToken(dst []byte, tok string) []byte {
	for i := 0; i < len(tok); i++ {
		switch tok[i] {
		case '~':
			dst = append(dst, '~', '0')
		case '/':
			dst = append(dst, '~', '1')
		default:
			dst = append(dst, tok[i])
		}
	}
	return dst
}

// appendStackPointer appends the JSON Pointer of the value currently being
// processed (the cursor of a resumed Encoder or Decoder) to dst. Object
// members are rendered using their tracked name when available (requires
// AllowDuplicateNames to be false), otherwise by their index within the
// object, mirroring how array elements are always rendered by index.
func (s *state) appendStackPointer(dst []byte) []byte {
	for i := 1; i < s.Tokens.Depth(); i++ {
		e := s.Tokens.index(i)
		dst = append(dst, '/')
		switch {
		case e.isArray():
			n := e.Length()
			if n > 0 {
				n--
			}
			dst = strconv.AppendInt(dst, n, 10)
		case e.isObject():
			if name := s.Names.lastQuotedName(); i == s.Tokens.Depth()-1 && len(name) > 0 {
				dst = appendEscapedPointerToken(dst, string(unquoteForPointer(name)))
			} else {
				dst = strconv.AppendInt(dst, (e.Length()-1)/2, 10)
			}
		}
	}
	return dst
}

func unquoteForPointer(quoted []byte) []byte {
	if len(quoted) < 2 || quoted[0] != '"' {
		return quoted
	}
	out, err := jsonwire.AppendUnquote(nil, quoted)
	if err != nil {
		return quoted[1 : len(quoted)-1]
	}
	return out
}
