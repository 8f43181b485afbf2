// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"bytes"
	"io"
	"reflect"

	"github.com/spanjson/spanjson/jsontext"
)

// MarshalOptions configures one call to Marshal/MarshalFull: a call-scoped
// Marshalers override chain plus the small set of behaviors the spec ties
// to the call rather than to the shared SerializerOptions (C4's
// runtime-registered converters, by contrast, live on SerializerOptions and
// apply to every caller sharing it).
type MarshalOptions struct {
	// Marshalers overrides marshal behavior for specific types, consulted
	// before the SerializerOptions' registry. Only the top-level value is
	// looked up in it; nested values are not.
	Marshalers *Marshalers

	// StringifyNumbers serializes integer Go types as a JSON string
	// containing the equivalent JSON number, preserving precision that a
	// float64-based decoder on the other end would otherwise lose for
	// int64/uint64 values beyond 2^53. Floating-point values are written
	// as JSON numbers either way.
	StringifyNumbers bool

	formatDepth int
	format      string
}

// Marshal serializes in as JSON using the package-wide default
// SerializerOptions. It is a thin wrapper over MarshalOptions.Marshal.
func Marshal(in any) ([]byte, error) {
	return MarshalOptions{}.Marshal(defaultSerializerOptions, in)
}

// MarshalFull serializes in as JSON, streaming the encoded bytes to out as
// they are produced rather than buffering the whole result.
func MarshalFull(out io.Writer, in any) error {
	return MarshalOptions{}.MarshalFull(defaultSerializerOptions, out, in)
}

// Marshal serializes in as a []byte using opts, freezing opts on first use
// (see SerializerOptions.use).
func (mo MarshalOptions) Marshal(opts *SerializerOptions, in any) ([]byte, error) {
	opts.use()
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf, jsontext.OmitTopLevelNewline(true))
	if err := mo.marshalNext(opts, enc, in); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// MarshalFull serializes in as JSON directly to out using opts.
func (mo MarshalOptions) MarshalFull(opts *SerializerOptions, out io.Writer, in any) error {
	opts.use()
	enc := jsontext.NewEncoder(out, jsontext.OmitTopLevelNewline(true))
	return mo.marshalNext(opts, enc, in)
}

func (mo MarshalOptions) marshalNext(opts *SerializerOptions, enc *jsontext.Encoder, in any) error {
	v := reflect.ValueOf(in)
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return enc.WriteToken(jsontext.Null)
	}
	if v.Kind() != reflect.Pointer {
		v2 := reflect.New(v.Type())
		v2.Elem().Set(v)
		v = v2
	}
	va := addressableValue{v.Elem()}
	t := va.Type()

	stack := newWriteStack(enc, opts)
	defer stack.Release()
	stack.StringifyNumbers = mo.StringifyNumbers
	if data, matched, err := mo.Marshalers.lookup(va); matched {
		if err != nil {
			return attachWritePath(stack, &ConversionError{Action: "marshal", GoType: t, Err: err})
		}
		return enc.WriteValue(jsontext.Value(data))
	}
	conv, err := opts.registry.GetConverter(t)
	if err != nil {
		return attachWritePath(stack, err)
	}
	_, err = conv.TryWrite(stack, t, va)
	return err
}

// UnmarshalOptions configures one call to Unmarshal/UnmarshalFull.
type UnmarshalOptions struct {
	// Unmarshalers overrides unmarshal behavior for specific types. Only
	// the top-level value is looked up in it; nested values are not.
	Unmarshalers *Unmarshalers

	// StringifyNumbers accepts either a JSON number or a JSON string
	// holding a JSON number for a numeric Go type.
	StringifyNumbers bool

	// MatchCaseInsensitiveNames falls back to a case-insensitive member
	// match when no exact match exists.
	MatchCaseInsensitiveNames bool

	// RejectUnknownMembers rejects a JSON object member with no matching
	// PropertyInfo and no extension member. The returned error matches
	// ErrUnknownName.
	RejectUnknownMembers bool

	formatDepth int
	format      string
}

// Unmarshal deserializes in into out using the package-wide default
// SerializerOptions. out must be a non-nil pointer.
func Unmarshal(in []byte, out any) error {
	return UnmarshalOptions{}.Unmarshal(defaultSerializerOptions, in, out)
}

// UnmarshalFull deserializes the single JSON value read from in into out,
// consuming in until io.EOF.
func UnmarshalFull(in io.Reader, out any) error {
	return UnmarshalOptions{}.UnmarshalFull(defaultSerializerOptions, in, out)
}

// Unmarshal deserializes in into out using opts.
func (uo UnmarshalOptions) Unmarshal(opts *SerializerOptions, in []byte, out any) error {
	opts.use()
	dec := jsontext.NewDecoder(bytes.NewReader(in))
	return uo.unmarshalFull(opts, dec, out)
}

// UnmarshalFull deserializes out from in, consuming in until io.EOF.
func (uo UnmarshalOptions) UnmarshalFull(opts *SerializerOptions, in io.Reader, out any) error {
	opts.use()
	dec := jsontext.NewDecoder(in)
	return uo.unmarshalFull(opts, dec, out)
}

func (uo UnmarshalOptions) unmarshalFull(opts *SerializerOptions, dec *jsontext.Decoder, out any) error {
	switch err := uo.unmarshalNext(opts, dec, out); err {
	case nil:
		if _, err := dec.ReadToken(); err != io.EOF {
			if err == nil {
				return &StructuralError{Action: "unmarshal", Err: errTrailingData}
			}
			return err
		}
		return nil
	case io.EOF:
		return io.ErrUnexpectedEOF
	default:
		return err
	}
}

func (uo UnmarshalOptions) unmarshalNext(opts *SerializerOptions, dec *jsontext.Decoder, out any) error {
	v := reflect.ValueOf(out)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		var t reflect.Type
		if v.IsValid() {
			t = v.Type()
			if t.Kind() == reflect.Pointer {
				t = t.Elem()
			}
		}
		return &ProgrammerError{Err: errNonPointer(t)}
	}
	va := addressableValue{v.Elem()}
	t := va.Type()

	stack := newReadStack(dec, opts)
	defer stack.Release()
	uo.applyTo(stack)
	if uo.Unmarshalers != nil {
		data, err := dec.ReadValue()
		if err != nil {
			return attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		if matched, err := uo.Unmarshalers.lookup(va, data); matched {
			return attachReadPath(stack, err)
		}
		sub := newReadStack(jsontext.NewDecoder(bytes.NewReader(data)), opts)
		defer sub.Release()
		uo.applyTo(sub)
		conv, err := opts.registry.GetConverter(t)
		if err != nil {
			return attachReadPath(sub, err)
		}
		_, err = conv.TryRead(sub, t, va)
		return err
	}
	conv, err := opts.registry.GetConverter(t)
	if err != nil {
		return attachReadPath(stack, err)
	}
	_, err = conv.TryRead(stack, t, va)
	return err
}

// applyTo copies uo's call-scoped flags onto stack.
func (uo UnmarshalOptions) applyTo(stack *ReadStack) {
	stack.MatchCaseInsensitiveNames = uo.MatchCaseInsensitiveNames
	stack.RejectUnknownMembers = uo.RejectUnknownMembers
	stack.StringifyNumbers = uo.StringifyNumbers
}

// addressableValue is a reflect.Value guaranteed addressable, so Addr/Set
// never panic. There is no compiler-enforced guarantee of this; every
// construction site below is written to uphold it by hand.
type addressableValue struct{ reflect.Value }

func newAddressableValue(t reflect.Type) addressableValue {
	return addressableValue{reflect.New(t).Elem()}
}

func errNonPointer(t reflect.Type) error {
	msg := "spanjson: value must be passed as a non-nil pointer reference"
	if t != nil {
		msg += ", got " + t.String()
	}
	return &configErrString{msg}
}

var errTrailingData = &configErrString{"spanjson: unexpected data after top-level value"}
