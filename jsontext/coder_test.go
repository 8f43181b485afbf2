// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"io"
	"math/rand"
)

var (
	zeroToken Token
	zeroValue Value
)

// tokOrVal is either a Token or a Value.
type tokOrVal interface{ Kind() Kind }

// len64 avoids int64(len(s)) conversions cluttering test tables.
func len64(s string) int64 { return int64(len(s)) }

type coderTestdataEntry struct {
	name         string
	in           string
	outCompacted string
	outIndented  string // outCompacted if empty; uses "    " for indent and no prefix
	tokens       []Token
}

var coderTestdata = []coderTestdataEntry{{
	name:         "Null",
	in:           ` null `,
	outCompacted: `null`,
	tokens:       []Token{Null},
}, {
	name:         "False",
	in:           ` false `,
	outCompacted: `false`,
	tokens:       []Token{False},
}, {
	name:         "True",
	in:           ` true `,
	outCompacted: `true`,
	tokens:       []Token{True},
}, {
	name:         "EmptyString",
	in:           ` "" `,
	outCompacted: `""`,
	tokens:       []Token{String("")},
}, {
	name:         "SimpleString",
	in:           ` "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ" `,
	outCompacted: `"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"`,
	tokens:       []Token{String("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")},
}, {
	name:         "UnicodeString",
	in:           " \"Hello, 世界\" ",
	outCompacted: "\"Hello, 世界\"",
	tokens:       []Token{String("Hello, 世界")},
}, {
	name:         "ZeroNumber",
	in:           ` 0 `,
	outCompacted: `0`,
	tokens:       []Token{Uint(0)},
}, {
	name:         "SimpleNumber",
	in:           ` 123456789 `,
	outCompacted: `123456789`,
	tokens:       []Token{Uint(123456789)},
}, {
	name:         "NegativeNumber",
	in:           ` -123456789 `,
	outCompacted: `-123456789`,
	tokens:       []Token{Int(-123456789)},
}, {
	name:         "FractionalNumber",
	in:           " 0.123456789 ",
	outCompacted: `0.123456789`,
	tokens:       []Token{Float(0.123456789)},
}, {
	name:         "ExponentNumber",
	in:           " 0e12456789 ",
	outCompacted: `0e12456789`,
	tokens:       []Token{rawToken(`0e12456789`)},
}, {
	name:         "ObjectN0",
	in:           ` { } `,
	outCompacted: `{}`,
	tokens:       []Token{ObjectStart, ObjectEnd},
}, {
	name:         "ObjectN1",
	in:           ` { "0" : 0 } `,
	outCompacted: `{"0":0}`,
	outIndented: `{
    "0": 0
}`,
	tokens:   []Token{ObjectStart, String("0"), Uint(0), ObjectEnd},
}, {
	name:         "ObjectN2",
	in:           ` { "0" : 0 , "1" : 1 } `,
	outCompacted: `{"0":0,"1":1}`,
	outIndented: `{
    "0": 0,
    "1": 1
}`,
	tokens:   []Token{ObjectStart, String("0"), Uint(0), String("1"), Uint(1), ObjectEnd},
}, {
	name:         "ObjectNested",
	in:           ` { "0" : { "1" : { "2" : { } } } } `,
	outCompacted: `{"0":{"1":{"2":{}}}}`,
	outIndented: `{
    "0": {
        "1": {
            "2": {}
        }
    }
}`,
	tokens: []Token{ObjectStart, String("0"), ObjectStart, String("1"), ObjectStart, String("2"), ObjectStart, ObjectEnd, ObjectEnd, ObjectEnd, ObjectEnd},
}, {
	name:         "ArrayN0",
	in:           ` [ ] `,
	outCompacted: `[]`,
	tokens:       []Token{ArrayStart, ArrayEnd},
}, {
	name:         "ArrayN1",
	in:           ` [ 0 ] `,
	outCompacted: `[0]`,
	outIndented: `[
    0
]`,
	tokens:   []Token{ArrayStart, Uint(0), ArrayEnd},
}, {
	name:         "ArrayN2",
	in:           ` [ 0 , 1 ] `,
	outCompacted: `[0,1]`,
	outIndented: `[
    0,
    1
]`,
	tokens:   []Token{ArrayStart, Uint(0), Uint(1), ArrayEnd},
}, {
	name:         "ArrayNested",
	in:           ` [ [ [ ] ] ] `,
	outCompacted: `[[[]]]`,
	outIndented: `[
    [
        []
    ]
]`,
	tokens: []Token{ArrayStart, ArrayStart, ArrayStart, ArrayEnd, ArrayEnd, ArrayEnd},
}, {
	name: "Everything",
	in: ` {
		"literals" : [ null , false , true ],
		"string" : "Hello, 世界" ,
		"number" : 3.14159 ,
		"arrayN0" : [ ] ,
		"objectN1" : { "0" : 0 }
	} `,
	outCompacted: `{"literals":[null,false,true],"string":"Hello, 世界","number":3.14159,"arrayN0":[],"objectN1":{"0":0}}`,
	outIndented: `{
    "literals": [
        null,
        false,
        true
    ],
    "string": "Hello, 世界",
    "number": 3.14159,
    "arrayN0": [],
    "objectN1": {
        "0": 0
    }
}`,
	tokens: []Token{
		ObjectStart,
		String("literals"), ArrayStart, Null, False, True, ArrayEnd,
		String("string"), String("Hello, 世界"),
		String("number"), Float(3.14159),
		String("arrayN0"), ArrayStart, ArrayEnd,
		String("objectN1"), ObjectStart, String("0"), Uint(0), ObjectEnd,
		ObjectEnd,
	},
}}

// FaultyBuffer implements io.Reader and io.Writer.
// It may process fewer bytes than the provided buffer
// and may randomly return an error.
type FaultyBuffer struct {
	B []byte

	// MaxBytes is the maximum number of bytes read/written.
	// A non-positive value is treated as infinity.
	MaxBytes int

	// MayError specifies whether to randomly provide this error.
	// Even if an error is returned, no bytes are dropped.
	MayError error

	// Rand to use for pseudo-random behavior.
	// If nil, it will be initialized with rand.NewSource(0).
	Rand rand.Source
}

func (p *FaultyBuffer) Read(b []byte) (int, error) {
	b = b[:copy(b[:p.mayTruncate(len(b))], p.B)]
	p.B = p.B[len(b):]
	if len(p.B) == 0 && (len(b) == 0 || p.randN(2) == 0) {
		return len(b), io.EOF
	}
	return len(b), p.mayError()
}

func (p *FaultyBuffer) Write(b []byte) (int, error) {
	b2 := b[:p.mayTruncate(len(b))]
	p.B = append(p.B, b2...)
	if len(b2) < len(b) {
		return len(b2), io.ErrShortWrite
	}
	return len(b2), p.mayError()
}

// mayTruncate may return a value between [0, n].
func (p *FaultyBuffer) mayTruncate(n int) int {
	if p.MaxBytes > 0 {
		if n > p.MaxBytes {
			n = p.MaxBytes
		}
		return p.randN(n + 1)
	}
	return n
}

// mayError may return a non-nil error.
func (p *FaultyBuffer) mayError() error {
	if p.MayError != nil && p.randN(2) == 0 {
		return p.MayError
	}
	return nil
}

func (p *FaultyBuffer) randN(n int) int {
	if p.Rand == nil {
		p.Rand = rand.NewSource(0)
	}
	return int(p.Rand.Int63() % int64(n))
}
