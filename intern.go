// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"github.com/cespare/xxhash/v2"
)

// stringCache interns the []byte->string conversions used when a decoded
// property name is looked up against a ClassInfo's PropertyInfo table, so
// that repeated short names (common in small objects) don't each force a
// fresh allocation.
type stringCache [256]string // 256*unsafe.Sizeof(string("")) => 4KiB

// make returns the string form of b, returning a cached string if one
// already occupies b's hash slot, else allocating, caching, and returning
// a new one.
func (c *stringCache) make(b []byte) string {
	const (
		minCachedLen = 2   // single byte strings are already interned by the runtime
		maxCachedLen = 256 // large enough for UUIDs, IPv6 addresses, SHA-256 checksums, etc.
	)
	if c == nil || len(b) < minCachedLen || len(b) > maxCachedLen {
		return string(b)
	}

	h := xxhash.Sum64(b)
	i := h % uint64(len(*c))
	if s := (*c)[i]; s == string(b) {
		return s
	}
	s := string(b)
	(*c)[i] = s
	return s
}

// nameHash hashes a UTF-8 property name for the C5 two-tier name cache
// (struct_options.go) and for the duplicate-name namespace set consulted
// while marshaling/unmarshaling a struct's members.
func nameHash(name []byte) uint64 {
	return xxhash.Sum64(name)
}

// globalNameCache interns decoded JSON object member names shared across
// every ClassInfo lookup in the process; struct_options.go's binary search
// needs a string to compare against PropertyInfo.Name, and most object
// shapes repeat a small set of member names across many values.
var globalNameCache stringCache

func internName(b []byte) string {
	return globalNameCache.make(b)
}
