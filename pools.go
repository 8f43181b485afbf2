// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import "sync"

// TODO(https://golang.org/issue/47657): Use sync.PoolOf.

// arenaPool recycles the Frame slice backing a ReadStack/WriteStack's
// stackArena across calls, the same way the teacher's encoderPool/
// decoderPool recycled whole coder structs: the jsontext.Encoder/Decoder
// pair for one call is cheap to construct fresh (see arshal.go, which
// builds them directly off the caller's io.Writer/io.Reader), but the
// Frame arena is reused so a long-running server doing many small
// Marshal/Unmarshal calls doesn't re-allocate its nesting stack every time.
var arenaPool = sync.Pool{New: func() any { return new(pooledArena) }}

type pooledArena struct {
	frames  []Frame
	strikes int // number of times the arena was under-utilized
	prevCap int
}

const minArenaCap = 8

// getArena retrieves a zero-length Frame slice from the pool, sized from
// whatever depth the previous borrower reached.
func getArena() *pooledArena {
	a := arenaPool.Get().(*pooledArena)
	if a.frames == nil {
		n := a.prevCap
		if n < minArenaCap {
			n = minArenaCap
		}
		a.frames = make([]Frame, 0, n)
	}
	return a
}

// putArena returns a to the pool, applying an under-utilization strike
// heuristic measured in Frames: an arena that repeatedly grows far past
// what it actually uses gets discarded instead of pinning a large backing
// array alive indefinitely.
func putArena(a *pooledArena) {
	switch {
	case cap(a.frames) <= 64:
		a.strikes = 0
	case cap(a.frames)/4 <= len(a.frames):
		a.strikes = 0
	case a.strikes < 4:
		a.strikes++
	default:
		a.strikes = 0
		a.prevCap = len(a.frames)
		a.frames = nil
	}
	a.frames = a.frames[:0]
	arenaPool.Put(a)
}
