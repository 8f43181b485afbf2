// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"reflect"

	"github.com/spanjson/spanjson/jsontext"
)

// SkipFunc may be returned by a function registered with NewMarshalers or
// NewUnmarshalers to decline handling a value and fall through to the next
// function in the chain (or, if none remain, to the registry's next tier).
const SkipFunc = spanjsonError("skip function")

// Marshaler is implemented by types that encode themselves to a single
// JSON value. This is the C4 "declarative type attribute" tier: the
// registry consults it after runtime-registered converters and before any
// built-in simple or factory converter.
type Marshaler interface {
	MarshalJSON() ([]byte, error)
}

// Unmarshaler is the decode counterpart of Marshaler.
type Unmarshaler interface {
	UnmarshalJSON([]byte) error
}

var (
	marshalerType   = reflect.TypeFor[Marshaler]()
	unmarshalerType = reflect.TypeFor[Unmarshaler]()
)

// declarativeConverter returns a Converter backed by t's own MarshalJSON/
// UnmarshalJSON methods (or its addressable pointer's), or nil if t
// implements neither.
func declarativeConverter(t reflect.Type) Converter {
	canMarshal := t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
	canUnmarshal := t.Implements(unmarshalerType) || reflect.PointerTo(t).Implements(unmarshalerType)
	if !canMarshal && !canUnmarshal {
		return nil
	}
	return &methodConverter{t: t, canMarshal: canMarshal, canUnmarshal: canUnmarshal}
}

type methodConverter struct {
	t                        reflect.Type
	canMarshal, canUnmarshal bool
}

func (c *methodConverter) CanConvert(t reflect.Type) bool { return t == c.t }

func (c *methodConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if !c.canMarshal {
		return fallbackConverter(t).TryWrite(stack, t, in)
	}
	m, ok := asInterface(in, marshalerType).(Marshaler)
	if !ok {
		return fallbackConverter(t).TryWrite(stack, t, in)
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return true, attachWritePath(stack, &ConversionError{Action: "marshal", GoType: t, Err: err})
	}
	if err := stack.Encoder.WriteValue(jsontext.Value(data)); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (c *methodConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	if !c.canUnmarshal {
		return fallbackConverter(t).TryRead(stack, t, out)
	}
	val, err := stack.Decoder.ReadValue()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	u, ok := asAddressableInterface(out, unmarshalerType).(Unmarshaler)
	if !ok {
		return true, attachReadPath(stack, &ConfigurationError{Err: errNotUnmarshaler(t)})
	}
	if err := u.UnmarshalJSON(val); err != nil {
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", GoType: t, Err: err})
	}
	return true, nil
}

func asInterface(v addressableValue, iface reflect.Type) any {
	if v.Type().Implements(iface) {
		return v.Interface()
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(iface) {
		return v.Addr().Interface()
	}
	return nil
}

func asAddressableInterface(v addressableValue, iface reflect.Type) any {
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(iface) {
		return v.Addr().Interface()
	}
	if v.Type().Implements(iface) {
		return v.Interface()
	}
	return nil
}

func errNotUnmarshaler(t reflect.Type) error {
	return &configErrString{"spanjson: " + t.String() + " value is not addressable for UnmarshalJSON"}
}

// Marshalers is an ordered, call-scoped list of functions that may override
// the marshal behavior for specific types, set via MarshalOptions.Marshalers.
// A nil *Marshalers is equivalent to an empty list. Unlike
// SerializerOptions.RegisterConverter (a process-lifetime tier consulted by
// every caller sharing that SerializerOptions), a Marshalers chain only
// applies to the one Marshal call it is attached to.
type Marshalers struct {
	fns []func(addressableValue) ([]byte, bool, error)
}

// NewMarshalers builds a Marshalers chain from functions of the form
// func(T) ([]byte, error). Each is tried in order for a value whose type
// is exactly T; returning SkipFunc falls through to the next entry, or (if
// none remain) to the registry.
func NewMarshalers(fns ...any) *Marshalers {
	m := &Marshalers{}
	for _, fn := range fns {
		if sub, ok := fn.(*Marshalers); ok {
			m.fns = append(m.fns, sub.fns...)
			continue
		}
		m.fns = append(m.fns, wrapMarshalFunc(fn))
	}
	return m
}

func wrapMarshalFunc(fn any) func(addressableValue) ([]byte, bool, error) {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.NumOut() != 2 {
		panic("spanjson: invalid marshal function signature")
	}
	argType := ft.In(0)
	return func(v addressableValue) ([]byte, bool, error) {
		if v.Type() != argType {
			return nil, false, nil
		}
		out := fv.Call([]reflect.Value{v.Value})
		data, _ := out[0].Interface().([]byte)
		err, _ := out[1].Interface().(error)
		if err == SkipFunc {
			return nil, false, nil
		}
		return data, true, err
	}
}

func (m *Marshalers) lookup(v addressableValue) ([]byte, bool, error) {
	if m == nil {
		return nil, false, nil
	}
	for _, fn := range m.fns {
		if data, matched, err := fn(v); matched {
			return data, true, err
		}
	}
	return nil, false, nil
}

// Unmarshalers is the decode counterpart of Marshalers.
type Unmarshalers struct {
	fns []func(addressableValue, []byte) (bool, error)
}

// NewUnmarshalers builds an Unmarshalers chain from functions of the form
// func([]byte, *T) error.
func NewUnmarshalers(fns ...any) *Unmarshalers {
	u := &Unmarshalers{}
	for _, fn := range fns {
		if sub, ok := fn.(*Unmarshalers); ok {
			u.fns = append(u.fns, sub.fns...)
			continue
		}
		u.fns = append(u.fns, wrapUnmarshalFunc(fn))
	}
	return u
}

func wrapUnmarshalFunc(fn any) func(addressableValue, []byte) (bool, error) {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 2 || ft.NumOut() != 1 {
		panic("spanjson: invalid unmarshal function signature")
	}
	ptrType := ft.In(1)
	return func(v addressableValue, data []byte) (bool, error) {
		if !v.CanAddr() || reflect.PointerTo(v.Type()) != ptrType {
			return false, nil
		}
		out := fv.Call([]reflect.Value{reflect.ValueOf(data), v.Addr()})
		err, _ := out[0].Interface().(error)
		if err == SkipFunc {
			return false, nil
		}
		return true, err
	}
}

func (u *Unmarshalers) lookup(v addressableValue, data []byte) (bool, error) {
	if u == nil {
		return false, nil
	}
	for _, fn := range u.fns {
		if matched, err := fn(v, data); matched {
			return true, err
		}
	}
	return false, nil
}
