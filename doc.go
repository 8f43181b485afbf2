// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spanjson implements a converter-based JSON marshaler/unmarshaler
// as specified in RFC 4627, RFC 7159, RFC 7493, RFC 8259, and RFC 8785.
//
// This package sits on top of jsontext, which handles the JSON grammar
// itself (tokens, values, the resumable reader/writer). spanjson resolves
// a Go type to a Converter (GetConverter, the ConverterRegistry), builds a
// per-type ClassInfo/PropertyInfo descriptor set by reflection, and drives
// conversion through a stack of Frames that bounds nesting depth and
// records the path reported in errors. Each composite converter calls its
// members' converters directly, so the Go call stack grows with the
// nesting depth of the value.
//
// # Terminology
//
// "Encode" and "decode" describe syntactic functionality that operates on
// the JSON grammar without reference to Go types (see jsontext). "Marshal"
// and "unmarshal" describe semantic functionality that determines the
// meaning of JSON values as Go values and vice versa.
//
// # Converters
//
// A Converter implements TryRead and TryWrite against a *jsontext.Decoder
// or *jsontext.Encoder and a ReadStack or WriteStack, and reports whether
// the value was fully converted; the built-in converters always report
// true and return failures as errors. GetConverter resolves a reflect.Type
// to a Converter by checking, in order: the registry's cache,
// runtime-registered converters whose CanConvert matches, the type's own
// MarshalJSON/UnmarshalJSON methods, built-in simple converters keyed by
// type, and finally the ordered list of built-in factory converters
// (nullable, enum, enumerable/dictionary, object-fallback).
//
// # Shared-resource policy
//
// A SerializerOptions freezes the first time it is used in a (de)serialize
// call: after that, RegisterConverter returns a ProgrammerError. Its
// exported fields are plain fields; a write to them after the freeze is
// not detected. Concurrent
// reads of the frozen state, and concurrent independent (de)serializes
// sharing one SerializerOptions, are safe.
package spanjson
