// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"bytes"
	"errors"
	"io"
	"path"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/spanjson/spanjson/internal/jsonwire"
)

// equalTokens reports whether two tokens are semantically equal,
// ignoring the underlying representation (raw vs exact).
func equalTokens(t1, t2 Token) bool {
	return t1.Kind() == t2.Kind() && t1.String() == t2.String()
}

// TestDecoder tests whether we can parse JSON with either tokens or raw values.
func TestDecoder(t *testing.T) {
	for _, td := range coderTestdata {
		for _, typeName := range []string{"Token", "Value"} {
			t.Run(path.Join(td.name, typeName), func(t *testing.T) {
				testDecoder(t, typeName, td)
			})
		}
	}
}
func testDecoder(t *testing.T, typeName string, td coderTestdataEntry) {
	dec := NewDecoder(strings.NewReader(td.in))
	switch typeName {
	case "Token":
		var toks []Token
		for {
			tok, err := dec.ReadToken()
			if err != nil {
				if err == io.EOF {
					break
				}
				t.Fatalf("%s: Decoder.ReadToken error: %v", td.name, err)
			}
			toks = append(toks, tok.Clone())
		}
		if len(toks) != len(td.tokens) {
			t.Fatalf("%s: got %d tokens, want %d", td.name, len(toks), len(td.tokens))
		}
		for i, tok := range toks {
			if !equalTokens(tok, td.tokens[i]) {
				t.Errorf("%s: token %d mismatch: got %v, want %v", td.name, i, tok, td.tokens[i])
			}
		}
	case "Value":
		val, err := dec.ReadValue()
		if err != nil {
			t.Fatalf("%s: Decoder.ReadValue error: %v", td.name, err)
		}
		if got := string(val); got != td.outCompacted {
			t.Errorf("%s: value mismatch:\ngot  %s\nwant %s", td.name, got, td.outCompacted)
		}
	}
}

// TestFaultyDecoder tests that temporary I/O errors are not fatal.
func TestFaultyDecoder(t *testing.T) {
	for _, td := range coderTestdata {
		for _, typeName := range []string{"Token", "Value"} {
			t.Run(path.Join(td.name, typeName), func(t *testing.T) {
				testFaultyDecoder(t, typeName, td)
			})
		}
	}
}
func testFaultyDecoder(t *testing.T, typeName string, td coderTestdataEntry) {
	b := &FaultyBuffer{B: []byte(td.in), MayError: io.ErrNoProgress}
	dec := NewDecoder(b)
	switch typeName {
	case "Token":
		var toks []Token
		for {
			tok, err := dec.ReadToken()
			if err != nil {
				if err == io.EOF {
					break
				}
				if errors.Is(err, io.ErrNoProgress) {
					continue
				}
				t.Fatalf("%s: Decoder.ReadToken error: %v", td.name, err)
			}
			toks = append(toks, tok.Clone())
		}
		if len(toks) != len(td.tokens) {
			t.Fatalf("%s: got %d tokens, want %d", td.name, len(toks), len(td.tokens))
		}
	case "Value":
		for {
			_, err := dec.ReadValue()
			if err == nil {
				return
			}
			if errors.Is(err, io.ErrNoProgress) {
				continue
			}
			t.Fatalf("%s: Decoder.ReadValue error: %v", td.name, err)
		}
	}
}

type decoderMethodCall struct {
	useToken bool // ReadToken if true, otherwise ReadValue
	wantErr  error
}

var decoderErrorTestdata = []struct {
	name  string
	in    string
	calls []decoderMethodCall
}{{
	name:  "InvalidStart",
	in:    `#`,
	calls: []decoderMethodCall{{false, newInvalidCharacterError("#", "at start of value")}},
}, {
	name:  "StreamN0",
	in:    ``,
	calls: []decoderMethodCall{{false, io.EOF}},
}, {
	name:  "StreamN1",
	in:    ` null `,
	calls: []decoderMethodCall{{false, nil}, {false, io.EOF}},
}, {
	name:  "StreamN2",
	in:    ` null null `,
	calls: []decoderMethodCall{{false, nil}, {false, nil}, {false, io.EOF}},
}, {
	name:  "TruncatedNull",
	in:    `nul`,
	calls: []decoderMethodCall{{false, io.ErrUnexpectedEOF}},
}, {
	name:  "InvalidNull",
	in:    `nulL`,
	calls: []decoderMethodCall{{false, errors.New(`invalid character 'L' within literal null`)}},
}, {
	name:  "TruncatedFalse",
	in:    `fals`,
	calls: []decoderMethodCall{{false, io.ErrUnexpectedEOF}},
}, {
	name:  "TruncatedTrue",
	in:    `tru`,
	calls: []decoderMethodCall{{false, io.ErrUnexpectedEOF}},
}, {
	name:  "TruncatedString",
	in:    `"star`,
	calls: []decoderMethodCall{{false, io.ErrUnexpectedEOF}},
}, {
	name:  "InvalidString",
	in:    "\"ok" + "\x00",
	calls: []decoderMethodCall{{false, errors.New(`invalid character '\x00' within string (must be escaped)`)}},
}, {
	name:  "InvalidString/RejectInvalidUTF8",
	in:    "\"living\xde\xad\xbe\xef\"",
	calls: []decoderMethodCall{{false, jsonwire.ErrInvalidUTF8}},
}, {
	name:  "TruncatedNumber",
	in:    `0.`,
	calls: []decoderMethodCall{{false, io.ErrUnexpectedEOF}},
}, {
	name:  "InvalidNumber",
	in:    `0.e`,
	calls: []decoderMethodCall{{false, errors.New(`invalid character 'e' after decimal point in number`)}},
}, {
	name:  "TruncatedObject/AfterStart",
	in:    `{`,
	calls: []decoderMethodCall{{true, nil}, {true, io.ErrUnexpectedEOF}},
}, {
	name:  "TruncatedObject/AfterName",
	in:    `{"0"`,
	calls: []decoderMethodCall{{true, nil}, {true, nil}, {true, io.ErrUnexpectedEOF}},
}, {
	name: "InvalidObject/MissingColon",
	in:   ` { "fizz" "buzz" } `,
	calls: []decoderMethodCall{
		{true, nil}, {true, nil},
		{true, errMissingColon.withOffset(len64(` { "fizz" `))},
	},
}, {
	name: "InvalidObject/MissingComma",
	in:   ` { "fizz" : "buzz" "gazz" } `,
	calls: []decoderMethodCall{
		{true, nil}, {true, nil}, {true, nil},
		{true, errMissingComma.withOffset(len64(` { "fizz" : "buzz" `))},
	},
}, {
	name: "InvalidObject/MismatchingDelim",
	in:   `{]`,
	calls: []decoderMethodCall{
		{true, nil},
		{true, errMismatchDelim.withOffset(len64(`{`))},
	},
}, {
	name: "InvalidObject/DuplicateNames",
	in:   `{"0":{},"0":0}`,
	calls: []decoderMethodCall{
		{true, nil}, {true, nil}, {true, nil}, {true, nil},
		{true, newDuplicateNameError(`"0"`).withOffset(len64(`{"0":{},`))},
	},
}, {
	name:  "TruncatedArray/AfterStart",
	in:    `[`,
	calls: []decoderMethodCall{{true, nil}, {true, io.ErrUnexpectedEOF}},
}, {
	name: "InvalidArray/MismatchingDelim",
	in:   `[}`,
	calls: []decoderMethodCall{
		{true, nil},
		{true, errMismatchDelim.withOffset(len64(`[`))},
	},
}, {
	name: "InvalidDelim/MissingCommaAfterArrayValue",
	in:   `[0 0]`,
	calls: []decoderMethodCall{
		{true, nil}, {true, nil},
		{true, errMissingComma.withOffset(len64(`[0 `))},
	},
}}

// TestDecoderErrors test that Decoder errors occur when we expect and
// leaves the Decoder in a consistent state.
func TestDecoderErrors(t *testing.T) {
	for _, td := range decoderErrorTestdata {
		t.Run(path.Join(td.name), func(t *testing.T) {
			testDecoderErrors(t, td.in, td.calls)
		})
	}
}
func testDecoderErrors(t *testing.T, in string, calls []decoderMethodCall) {
	dec := NewDecoder(strings.NewReader(in))
	for i, call := range calls {
		var gotErr error
		if call.useToken {
			_, gotErr = dec.ReadToken()
		} else {
			_, gotErr = dec.ReadValue()
		}
		if !reflect.DeepEqual(gotErr, call.wantErr) {
			t.Fatalf("%d: error mismatch:\ngot  %v\nwant %v", i, gotErr, call.wantErr)
		}
	}
}

// TestResumableDecoder tests that resume logic for parsing a JSON value
// properly works across every possible split point, even when the
// underlying reader only provides one byte at a time.
func TestResumableDecoder(t *testing.T) {
	for _, td := range coderTestdata {
		t.Run(td.name, func(t *testing.T) {
			dec := NewDecoder(iotest.OneByteReader(strings.NewReader(td.in)))
			got, err := dec.ReadValue()
			if err != nil {
				t.Fatalf("Decoder.ReadValue error: %v", err)
			}
			if string(got) != td.outCompacted {
				t.Fatalf("Decoder.ReadValue = %s, want %s", got, td.outCompacted)
			}
		})
	}
}

// TestBlockingDecoder verifies that a sequence of tokens forming a single
// top-level value can be synchronously sent and received over a blocking
// pipe without deadlock.
func TestBlockingDecoder(t *testing.T) {
	r, w := io.Pipe()
	defer r.Close()
	defer w.Close()

	dec := NewDecoder(r)
	enc := NewEncoder(w, OmitTopLevelNewline(true))

	errc := make(chan error, 1)
	go func() {
		for _, tok := range []Token{ObjectStart, String("name"), String("value"), ObjectEnd} {
			if err := enc.WriteToken(tok); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	var kinds []Kind
	for i := 0; i < 4; i++ {
		tok, err := dec.ReadToken()
		if err != nil {
			t.Fatalf("Decoder.ReadToken error: %v", err)
		}
		kinds = append(kinds, tok.Kind())
	}
	if err := <-errc; err != nil {
		t.Fatalf("Encoder.WriteToken error: %v", err)
	}
	want := []Kind{'{', '"', '"', '}'}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("token kinds mismatch:\ngot  %v\nwant %v", kinds, want)
	}
}

// TestPeekableDecoder verifies that PeekKind does not consume input and
// is consistent with the kind of the following ReadToken/ReadValue call.
func TestPeekableDecoder(t *testing.T) {
	in := `[null,false,true,"x",0,{"k":"v"},[1,2]]`
	dec := NewDecoder(bytes.NewReader([]byte(in)))

	var kinds []Kind
	for {
		k := dec.PeekKind()
		if k == invalidKind {
			break
		}
		kinds = append(kinds, k)
		switch k {
		case '{', '[', '}', ']':
			if _, err := dec.ReadToken(); err != nil {
				t.Fatalf("Decoder.ReadToken error: %v", err)
			}
		default:
			if _, err := dec.ReadValue(); err != nil {
				t.Fatalf("Decoder.ReadValue error: %v", err)
			}
		}
	}
	want := []Kind{'[', 'n', 'f', 't', '"', '0', '{', '"', '"', '}', '[', '0', '0', ']', ']'}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("peeked kinds mismatch:\ngot  %v\nwant %v", kinds, want)
	}
}
