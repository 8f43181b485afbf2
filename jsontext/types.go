// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

// nonComparable prevents a type from being comparable with ==, protecting
// Token and RawToken (whose zero-cost value sometimes embeds a raw byte
// offset into a shared decode buffer) from accidental pointer-identity
// comparisons that would be meaningless to a caller.
type nonComparable [0]func()

// requireKeyedLiterals forces struct literals of the embedding type to use
// keyed fields, so that adding a field later is not a breaking change.
type requireKeyedLiterals struct{}
