// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/spanjson/spanjson/jsontext"
)

// registerTimeConverters installs the handful of standard-library and
// near-standard types that get a fixed wire representation regardless of
// struct tags: time.Time as RFC 3339, time.Duration as a Go duration
// string, and uuid.UUID as its canonical hyphenated form. These sit in the
// simple tier (keyed by exact type), which a caller-registered Converter
// and a type's own MarshalJSON/UnmarshalJSON methods both outrank per C4.
// time.Time has such methods, so the registry resolves it through the
// declarative tier and timeConverter is not reached for it.
func registerTimeConverters(r *ConverterRegistry) {
	r.registerSimple(reflect.TypeFor[time.Time](), timeConverter{})
	r.registerSimple(reflect.TypeFor[time.Duration](), durationConverter{})
	r.registerSimple(reflect.TypeFor[uuid.UUID](), uuidConverter{})
}

type timeConverter struct{}

func (timeConverter) CanConvert(t reflect.Type) bool { return t == reflect.TypeFor[time.Time]() }

func (timeConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	tm := in.Interface().(time.Time)
	text, err := tm.MarshalText()
	if err != nil {
		return true, attachWritePath(stack, &ConversionError{Action: "marshal", GoType: t, Err: err})
	}
	if err := stack.Encoder.WriteToken(jsontext.String(string(text))); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (timeConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.Set(reflect.ValueOf(time.Time{}))
	case '"':
		var tm time.Time
		if err := tm.UnmarshalText([]byte(tok.String())); err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.Set(reflect.ValueOf(tm))
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

type durationConverter struct{}

func (durationConverter) CanConvert(t reflect.Type) bool { return t == reflect.TypeFor[time.Duration]() }

func (durationConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	d := in.Interface().(time.Duration)
	if err := stack.Encoder.WriteToken(jsontext.String(d.String())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (durationConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.Set(reflect.ValueOf(time.Duration(0)))
	case '"':
		d, err := time.ParseDuration(tok.String())
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.Set(reflect.ValueOf(d))
	case '0':
		n, err := tok.Raw().ParseInt(64)
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.Set(reflect.ValueOf(time.Duration(n)))
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

type uuidConverter struct{}

func (uuidConverter) CanConvert(t reflect.Type) bool { return t == reflect.TypeFor[uuid.UUID]() }

func (uuidConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	id := in.Interface().(uuid.UUID)
	if err := stack.Encoder.WriteToken(jsontext.String(id.String())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (uuidConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.Set(reflect.ValueOf(uuid.UUID{}))
	case '"':
		id, err := uuid.Parse(tok.String())
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.Set(reflect.ValueOf(id))
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}
