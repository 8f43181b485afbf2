// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// errIgnoredMember signals that a Go struct field has no corresponding
// PropertyInfo and must be skipped entirely when building a ClassInfo.
var errIgnoredMember = errors.New("ignored member")

// memberTag is the parsed form of a `json` struct tag, consumed when
// building the PropertyInfo for a struct field (C5).
type memberTag struct {
	name      string
	nocase    bool
	inline    bool
	unknown   bool
	omitzero  bool
	omitempty bool
	string    bool
	format    string
}

// parseMemberTag parses the `json` tag on a Go struct field into a
// memberTag, which makeClassInfo uses to build each PropertyInfo
// (spec.md C5).
//
// It returns errIgnoredMember if the field has no corresponding member.
func parseMemberTag(sf reflect.StructField) (out memberTag, err error) {
	tag, hasTag := sf.Tag.Lookup("json")

	if tag == "-" {
		return memberTag{}, errIgnoredMember
	}
	if !sf.IsExported() {
		if sf.Anonymous {
			return memberTag{}, &ConfigurationError{Err: fmt.Errorf("embedded Go struct field %s of an unexported type must be explicitly ignored with a `json:\"-\"` tag", sf.Type.Name())}
		}
		if hasTag {
			return memberTag{}, &ConfigurationError{Err: fmt.Errorf("unexported Go struct field %s cannot have non-ignored `json:%q` tag", sf.Name, tag)}
		}
		return memberTag{}, errIgnoredMember
	}

	// The declared name may be given as a bare identifier or as a
	// single-quoted string admitting arbitrary characters.
	out.name = sf.Name
	if len(tag) > 0 && !strings.HasPrefix(tag, ",") {
		opt, n, perr := consumeTagOption(tag)
		if perr != nil {
			return memberTag{}, &ConfigurationError{Err: errors.Wrapf(perr, "Go struct field %s has malformed `json` tag", sf.Name)}
		}
		out.name = opt
		tag = tag[n:]
	}

	seen := make(map[string]bool)
	for len(tag) > 0 {
		if tag[0] != ',' {
			return memberTag{}, &ConfigurationError{Err: fmt.Errorf("Go struct field %s has malformed `json` tag: invalid character %q before next option (expecting ',')", sf.Name, tag[0])}
		}
		tag = tag[len(","):]

		opt, n, perr := consumeTagOption(tag)
		if perr != nil {
			return memberTag{}, &ConfigurationError{Err: errors.Wrapf(perr, "Go struct field %s has malformed `json` tag", sf.Name)}
		}
		rawOpt := tag[:n]
		tag = tag[n:]
		if strings.HasPrefix(rawOpt, "'") && strings.TrimFunc(opt, isTagIdentChar) == "" {
			return memberTag{}, &ConfigurationError{Err: fmt.Errorf("Go struct field %s has unnecessarily quoted appearance of `json` tag option %s; specify %s instead", sf.Name, rawOpt, opt)}
		}
		switch opt {
		case "nocase":
			out.nocase = true
		case "inline":
			out.inline = true
		case "unknown":
			out.unknown = true
			out.inline = true // data-extension members are always inlined
		case "omitzero":
			out.omitzero = true
		case "omitempty":
			out.omitempty = true
		case "string":
			out.string = true
		case "format":
			if !strings.HasPrefix(tag, ":") {
				return memberTag{}, &ConfigurationError{Err: fmt.Errorf("Go struct field %s is missing value for `json` tag option format", sf.Name)}
			}
			tag = tag[len(":"):]
			val, n, perr := consumeTagOption(tag)
			if perr != nil {
				return memberTag{}, &ConfigurationError{Err: errors.Wrapf(perr, "Go struct field %s has malformed value for `json` tag option format", sf.Name)}
			}
			tag = tag[n:]
			out.format = val
		default:
			// Catch mutant spellings of a known option ("omitEmpty", "omit_empty")
			// rather than silently treating them as forward-compatible noise.
			norm := strings.ReplaceAll(strings.ToLower(opt), "_", "")
			switch norm {
			case "nocase", "inline", "unknown", "omitzero", "omitempty", "string", "format":
				return memberTag{}, &ConfigurationError{Err: fmt.Errorf("Go struct field %s has invalid appearance of `json` tag option %s; specify %s instead", sf.Name, opt, norm)}
			}
		}

		if seen[opt] {
			return memberTag{}, &ConfigurationError{Err: fmt.Errorf("Go struct field %s has duplicate appearance of `json` tag option %s", sf.Name, rawOpt)}
		}
		seen[opt] = true
	}
	return out, nil
}

// consumeTagOption consumes one bare-identifier or single-quoted-string
// option token from the front of in, returning its decoded value and the
// number of bytes of in it occupied.
func consumeTagOption(in string) (string, int, error) {
	switch r, _ := utf8.DecodeRuneInString(in); {
	case r == '_' || unicode.IsLetter(r):
		n := len(in) - len(strings.TrimLeftFunc(in, isTagIdentChar))
		return in[:n], n, nil
	case r == '\'':
		// Single-quoted strings use the same escaping grammar as a Go
		// double-quoted literal; backtick and double-quote cannot appear
		// verbatim inside a struct tag, so translate before unquoting.
		var inEscape bool
		b := []byte{'"'}
		n := len(`'`)
		for len(in) > n {
			r, rn := utf8.DecodeRuneInString(in[n:])
			switch {
			case inEscape:
				if r == '\'' {
					b = b[:len(b)-1]
				}
				inEscape = false
			case r == '\\':
				inEscape = true
			case r == '"':
				b = append(b, '\\')
			case r == '\'':
				b = append(b, '"')
				n += len(`'`)
				out, err := strconv.Unquote(string(b))
				if err != nil {
					return "", 0, fmt.Errorf("invalid single-quoted string: %s", in[:n])
				}
				return out, n, nil
			}
			b = append(b, in[n:][:rn]...)
			n += rn
		}
		if n > 10 {
			n = 10
		}
		return "", 0, fmt.Errorf("single-quoted string not terminated: %s...", in[:n])
	case len(in) == 0:
		return "", 0, io.ErrUnexpectedEOF
	default:
		return "", 0, fmt.Errorf("invalid character %q at start of option (expecting Unicode letter or single quote)", r)
	}
}

func isTagIdentChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
