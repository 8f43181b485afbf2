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
	"testing"

	"github.com/spanjson/spanjson/internal/jsonwire"
)

// TestEncoder tests whether we can produce JSON with either tokens or raw values.
func TestEncoder(t *testing.T) {
	for _, td := range coderTestdata {
		for _, formatName := range []string{"Compact", "Indented"} {
			for _, typeName := range []string{"Token", "Value"} {
				t.Run(path.Join(td.name, typeName, formatName), func(t *testing.T) {
					testEncoder(t, formatName, typeName, td)
				})
			}
		}
	}
}
func testEncoder(t *testing.T, formatName, typeName string, td coderTestdataEntry) {
	var opts []Options
	dst := new(bytes.Buffer)
	opts = append(opts, OmitTopLevelNewline(true))
	want := td.outCompacted
	switch formatName {
	case "Indented":
		opts = append(opts, WithIndentPrefix(""), WithIndent("    "))
		if td.outIndented != "" {
			want = td.outIndented
		}
	}
	enc := NewEncoder(dst, opts...)

	switch typeName {
	case "Token":
		for _, tok := range td.tokens {
			if err := enc.WriteToken(tok); err != nil {
				t.Fatalf("%s: Encoder.WriteToken error: %v", td.name, err)
			}
		}
	case "Value":
		if err := enc.WriteValue(Value(td.in)); err != nil {
			t.Fatalf("%s: Encoder.WriteValue error: %v", td.name, err)
		}
	}

	got := dst.String()
	if got != want {
		t.Errorf("%s: output mismatch:\ngot  %q\nwant %q", td.name, got, want)
	}
}

// TestFaultyEncoder tests that temporary I/O errors are not fatal.
func TestFaultyEncoder(t *testing.T) {
	for _, td := range coderTestdata {
		for _, typeName := range []string{"Token", "Value"} {
			t.Run(path.Join(td.name, typeName), func(t *testing.T) {
				testFaultyEncoder(t, typeName, td)
			})
		}
	}
}
func testFaultyEncoder(t *testing.T, typeName string, td coderTestdataEntry) {
	b := &FaultyBuffer{
		MaxBytes: 1,
		MayError: io.ErrShortWrite,
	}

	// Write all the tokens. Even if the underlying io.Writer may be faulty,
	// writing a valid token or value is guaranteed to be appended to the
	// internal buffer, so syntactic errors always occur before I/O errors.
	enc := NewEncoder(b, OmitTopLevelNewline(true))
	switch typeName {
	case "Token":
		for i, tok := range td.tokens {
			err := enc.WriteToken(tok)
			if err != nil && !errors.Is(err, io.ErrShortWrite) {
				t.Fatalf("%s: %d: Encoder.WriteToken error: %v", td.name, i, err)
			}
		}
	case "Value":
		err := enc.WriteValue(Value(td.in))
		if err != nil && !errors.Is(err, io.ErrShortWrite) {
			t.Fatalf("%s: Encoder.WriteValue error: %v", td.name, err)
		}
	}
	gotOutput := string(append(b.B, enc.s.unflushedBuffer()...))
	wantOutput := td.outCompacted
	if gotOutput != wantOutput {
		t.Fatalf("%s: output mismatch:\ngot  %s\nwant %s", td.name, gotOutput, wantOutput)
	}
}

type encoderMethodCall struct {
	in          tokOrVal
	wantErr     error
	wantPointer string
}

var encoderErrorTestdata = []struct {
	name    string
	opts    []Options
	calls   []encoderMethodCall
	wantOut string
}{{
	name: "InvalidToken",
	calls: []encoderMethodCall{
		{zeroToken, &SyntacticError{str: "invalid json.Token"}, ""},
	},
}, {
	name: "InvalidValue",
	calls: []encoderMethodCall{
		{Value(`#`), newInvalidCharacterError("#", "at start of value"), ""},
	},
}, {
	name: "TruncatedValue",
	calls: []encoderMethodCall{
		{zeroValue, io.ErrUnexpectedEOF, ""},
	},
}, {
	name: "TruncatedNull",
	calls: []encoderMethodCall{
		{Value(`nul`), jsonwire.ErrIncompleteValue, ""},
	},
}, {
	name: "InvalidNull",
	calls: []encoderMethodCall{
		{Value(`nulL`), errors.New(`invalid character 'L' within literal null`), ""},
	},
}, {
	name: "TruncatedString",
	calls: []encoderMethodCall{
		{Value(`"star`), jsonwire.ErrIncompleteValue, ""},
	},
}, {
	name: "InvalidString",
	calls: []encoderMethodCall{
		{Value(`"ok` + "\x00"), errors.New(`invalid character '\x00' within string (must be escaped)`), ""},
	},
}, {
	name: "ValidString/AllowInvalidUTF8/Token",
	opts: []Options{AllowInvalidUTF8(true)},
	calls: []encoderMethodCall{
		{String("living\xde\xad\xbe\xef"), nil, ""},
	},
	wantOut: "\"living\xde\xad��\"",
}, {
	name: "InvalidString/RejectInvalidUTF8",
	opts: []Options{AllowInvalidUTF8(false)},
	calls: []encoderMethodCall{
		{String("living\xde\xad\xbe\xef"), jsonwire.ErrInvalidUTF8, ""},
	},
}, {
	name: "TruncatedNumber",
	calls: []encoderMethodCall{
		{Value(`0.`), jsonwire.ErrIncompleteValue, ""},
	},
}, {
	name: "InvalidNumber",
	calls: []encoderMethodCall{
		{Value(`0.e`), errors.New(`invalid character 'e' after decimal point in number`), ""},
	},
}, {
	name: "TruncatedObject/AfterStart",
	calls: []encoderMethodCall{
		{Value(`{`), io.ErrUnexpectedEOF, ""},
	},
}, {
	name: "TruncatedObject/AfterName",
	calls: []encoderMethodCall{
		{Value(`{"0"`), io.ErrUnexpectedEOF, ""},
	},
}, {
	name: "InvalidObject/MissingColon",
	calls: []encoderMethodCall{
		{Value(` { "fizz" "buzz" } `), newInvalidCharacterError("\"", "after object name (expecting ':')").withOffset(len64(` { "fizz" `)), ""},
	},
}, {
	name: "InvalidObject/MissingComma",
	calls: []encoderMethodCall{
		{Value(` { "fizz" : "buzz" "gazz" } `), newInvalidCharacterError("\"", "after object value (expecting ',' or '}')").withOffset(len64(` { "fizz" : "buzz" `)), ""},
	},
}, {
	name: "InvalidObject/InvalidName",
	calls: []encoderMethodCall{
		{ObjectStart, nil, ""},
		{Null, errMissingName.withOffset(len64(`{`)), ""},
		{Uint(0), errMissingName.withOffset(len64(`{`)), ""},
		{ObjectEnd, nil, ""},
	},
	wantOut: "{}",
}, {
	name: "InvalidObject/MismatchingDelim",
	calls: []encoderMethodCall{
		{ObjectStart, nil, ""},
		{ArrayEnd, errMismatchDelim.withOffset(len64(`{`)), ""},
		{ObjectEnd, nil, ""},
	},
	wantOut: "{}",
}, {
	name: "ValidObject/UniqueNames",
	calls: []encoderMethodCall{
		{ObjectStart, nil, ""},
		{String("0"), nil, ""},
		{Uint(0), nil, ""},
		{String("1"), nil, ""},
		{Uint(1), nil, ""},
		{ObjectEnd, nil, ""},
	},
	wantOut: `{"0":0,"1":1}`,
}, {
	name: "ValidObject/DuplicateNames",
	opts: []Options{AllowDuplicateNames(true)},
	calls: []encoderMethodCall{
		{ObjectStart, nil, ""},
		{String("0"), nil, ""},
		{Uint(0), nil, ""},
		{String("0"), nil, ""},
		{Uint(0), nil, ""},
		{ObjectEnd, nil, ""},
	},
	wantOut: `{"0":0,"0":0}`,
}, {
	name: "InvalidObject/DuplicateNames",
	calls: []encoderMethodCall{
		{ObjectStart, nil, ""},
		{String("0"), nil, ""},
		{ObjectStart, nil, ""},
		{ObjectEnd, nil, ""},
		{String("0"), newDuplicateNameError(`"0"`).withOffset(len64(`{"0":{},`)), ""},
		{ObjectEnd, nil, ""},
	},
	wantOut: `{"0":{}}`,
}, {
	name: "TruncatedArray/AfterStart",
	calls: []encoderMethodCall{
		{Value(`[`), io.ErrUnexpectedEOF, ""},
	},
}, {
	name: "InvalidArray/MismatchingDelim",
	calls: []encoderMethodCall{
		{ArrayStart, nil, ""},
		{ObjectEnd, errMismatchDelim.withOffset(len64(`[`)), ""},
		{ArrayEnd, nil, ""},
	},
	wantOut: "[]",
}}

// TestEncoderErrors test that Encoder errors occur when we expect and
// leaves the Encoder in a consistent state.
func TestEncoderErrors(t *testing.T) {
	for _, td := range encoderErrorTestdata {
		t.Run(path.Join(td.name), func(t *testing.T) {
			testEncoderErrors(t, td.opts, td.calls, td.wantOut)
		})
	}
}
func testEncoderErrors(t *testing.T, opts []Options, calls []encoderMethodCall, wantOut string) {
	dst := new(bytes.Buffer)
	enc := NewEncoder(dst, append([]Options{OmitTopLevelNewline(true)}, opts...)...)
	for i, call := range calls {
		var gotErr error
		switch tokVal := call.in.(type) {
		case Token:
			gotErr = enc.WriteToken(tokVal)
		case Value:
			gotErr = enc.WriteValue(tokVal)
		}
		if !reflect.DeepEqual(gotErr, call.wantErr) {
			t.Fatalf("%d: error mismatch:\ngot  %v\nwant %v", i, gotErr, call.wantErr)
		}
		if call.wantPointer != "" {
			gotPointer := enc.StackPointer()
			if gotPointer != call.wantPointer {
				t.Fatalf("%d: Encoder.StackPointer = %s, want %s", i, gotPointer, call.wantPointer)
			}
		}
	}
	gotOut := dst.String() + string(enc.s.unflushedBuffer())
	if gotOut != wantOut {
		t.Fatalf("output mismatch:\ngot  %q\nwant %q", gotOut, wantOut)
	}
}
