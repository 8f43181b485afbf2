// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/spanjson/spanjson/jsontext"
)

// defaultFactories is the fixed-order list of built-in factory converters
// consulted after the declarative and simple tiers (spec.md C4):
// nullable, enum, enumerable/dictionary, object-fallback. This lineage has
// no dedicated "key-value-pair" shape distinct from dictionary (a Go map
// already is the key-value-pair representation), so that stage is folded
// into enumerableDictionary; see DESIGN.md.
var defaultFactories = []converterFactory{
	{name: "nullable", match: isNullableKind, build: buildNullableConverter},
	{name: "enum", match: isEnumCandidate, build: buildEnumConverter},
	{name: "enumerable/dictionary", match: isEnumerableKind, build: buildEnumerableConverter},
	{name: "object-fallback", match: isStructKind, build: buildStructConverter},
}

func isNullableKind(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface
}
func isEnumerableKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}
func isStructKind(t reflect.Type) bool { return t.Kind() == reflect.Struct }

var stringerType = reflect.TypeFor[fmt.Stringer]()

// isEnumCandidate recognizes a named (non-builtin) integer or string type
// that also implements fmt.Stringer -- the common "type Color int; func (c
// Color) String() string" enum shape. Plain named integers/strings without
// a String method fall through to the builtin-simple tier's underlying
// kind instead.
func isEnumCandidate(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return t.Implements(stringerType)
	}
	return false
}

// fallbackConverter resolves the built-in converter for t directly by
// Kind, bypassing the registry's declarative/user tiers. It backs
// methodConverter (arshal_funcs.go) when a type implements only one of
// Marshaler/Unmarshaler, so the other direction still has somewhere to go.
func fallbackConverter(t reflect.Type) Converter {
	if c, ok := builtinSimple[t]; ok {
		return c
	}
	for _, f := range defaultFactories {
		if f.match(t) {
			return f.build(t)
		}
	}
	return kindDefaultConverter(t)
}

// ---- built-in simple converters, keyed by exact type ----

var builtinSimple = map[reflect.Type]Converter{
	reflect.TypeFor[bool]():    boolConverter{},
	reflect.TypeFor[string]():  stringConverter{},
	reflect.TypeFor[int]():     intConverter{bits: 64},
	reflect.TypeFor[int8]():    intConverter{bits: 8},
	reflect.TypeFor[int16]():   intConverter{bits: 16},
	reflect.TypeFor[int32]():   intConverter{bits: 32},
	reflect.TypeFor[int64]():   intConverter{bits: 64},
	reflect.TypeFor[uint]():    uintConverter{bits: 64},
	reflect.TypeFor[uint8]():   uintConverter{bits: 8},
	reflect.TypeFor[uint16]():  uintConverter{bits: 16},
	reflect.TypeFor[uint32]():  uintConverter{bits: 32},
	reflect.TypeFor[uint64]():  uintConverter{bits: 64},
	reflect.TypeFor[float32](): floatConverter{bits: 32},
	reflect.TypeFor[float64](): floatConverter{bits: 64},
}

func registerConverterRegistryDefaults(r *ConverterRegistry) {
	for t, c := range builtinSimple {
		r.registerSimple(t, c)
	}
}

// kindDefaultConverter serves a named type whose underlying Kind is one of
// the basic scalar kinds but which isn't itself one of the builtinSimple
// exact types (e.g. type Celsius float64) and isn't an enum candidate.
func kindDefaultConverter(t reflect.Type) Converter {
	switch t.Kind() {
	case reflect.Bool:
		return boolConverter{}
	case reflect.String:
		return stringConverter{}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intConverter{bits: t.Bits()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintConverter{bits: t.Bits()}
	case reflect.Float32, reflect.Float64:
		return floatConverter{bits: t.Bits()}
	}
	return unsupportedConverter{t: t}
}

type unsupportedConverter struct{ t reflect.Type }

func (c unsupportedConverter) CanConvert(t reflect.Type) bool { return t == c.t }
func (c unsupportedConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	return true, attachWritePath(stack, &ConfigurationError{Err: errNoConverter(t)})
}
func (c unsupportedConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	return true, attachReadPath(stack, &ConfigurationError{Err: errNoConverter(t)})
}

type boolConverter struct{}

func (boolConverter) CanConvert(t reflect.Type) bool { return t.Kind() == reflect.Bool }
func (boolConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if err := stack.Encoder.WriteToken(jsontext.Bool(in.Bool())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}
func (boolConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.SetZero()
	case 't', 'f':
		out.SetBool(tok.Bool())
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

type stringConverter struct{}

func (stringConverter) CanConvert(t reflect.Type) bool { return t.Kind() == reflect.String }
func (stringConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if err := stack.Encoder.WriteToken(jsontext.String(in.String())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}
func (stringConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.SetZero()
	case '"':
		out.SetString(tok.String())
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

type intConverter struct{ bits int }

func (c intConverter) CanConvert(t reflect.Type) bool { return isIntKind(t.Kind()) }
func (c intConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if stack.StringifyNumbers {
		if err := stack.Encoder.WriteToken(jsontext.String(strconv.FormatInt(in.Int(), 10))); err != nil {
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		return true, nil
	}
	if err := stack.Encoder.WriteToken(jsontext.Int(in.Int())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}
func (c intConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.SetZero()
	case '0':
		n, err := tok.Raw().ParseInt(c.bits)
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.SetInt(n)
	case '"':
		if !stack.StringifyNumbers {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
		}
		n, err := strconv.ParseInt(tok.String(), 10, c.bits)
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.SetInt(n)
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

type uintConverter struct{ bits int }

func (c uintConverter) CanConvert(t reflect.Type) bool { return isUintKind(t.Kind()) }
func (c uintConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if stack.StringifyNumbers {
		if err := stack.Encoder.WriteToken(jsontext.String(strconv.FormatUint(in.Uint(), 10))); err != nil {
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		return true, nil
	}
	if err := stack.Encoder.WriteToken(jsontext.Uint(in.Uint())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}
func (c uintConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.SetZero()
	case '0':
		n, err := tok.Raw().ParseUint(c.bits)
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.SetUint(n)
	case '"':
		if !stack.StringifyNumbers {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
		}
		n, err := strconv.ParseUint(tok.String(), 10, c.bits)
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.SetUint(n)
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

type floatConverter struct{ bits int }

func (c floatConverter) CanConvert(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}
func (c floatConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if err := stack.Encoder.WriteToken(jsontext.Float(in.Float())); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}
func (c floatConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	tok, err := stack.Decoder.ReadToken()
	if err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	switch tok.Kind() {
	case 'n':
		out.SetZero()
	case '0', '"':
		n, err := tok.Raw().ParseFloat(c.bits)
		if err != nil {
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t, Err: err})
		}
		out.SetFloat(n)
	default:
		return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: tok.Kind(), GoType: t})
	}
	return true, nil
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// ---- enum converter: marshals via Stringer, delegates decode ----

type enumConverter struct {
	t        reflect.Type
	fallback Converter
}

func buildEnumConverter(t reflect.Type) Converter {
	return &enumConverter{t: t, fallback: kindDefaultConverter(t)}
}
func (c *enumConverter) CanConvert(t reflect.Type) bool { return t == c.t }
func (c *enumConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if s, ok := in.Interface().(fmt.Stringer); ok {
		if err := stack.Encoder.WriteToken(jsontext.String(s.String())); err != nil {
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		return true, nil
	}
	return c.fallback.TryWrite(stack, t, in)
}
func (c *enumConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	// No reverse name table is available purely from reflection; read the
	// underlying representation, honoring a JSON string only if the
	// underlying kind is itself string. See DESIGN.md for the scope note.
	return c.fallback.TryRead(stack, t, out)
}

// ---- nullable converter: pointer and interface ----

type nullableConverter struct{ t reflect.Type }

func buildNullableConverter(t reflect.Type) Converter { return &nullableConverter{t: t} }
func (c *nullableConverter) CanConvert(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface
}
func (c *nullableConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if in.IsNil() {
		if err := stack.Encoder.WriteToken(jsontext.Null); err != nil {
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		return true, nil
	}
	var elem addressableValue
	var elemType reflect.Type
	if t.Kind() == reflect.Pointer {
		elem = addressableValue{in.Elem()}
		elemType = t.Elem()
	} else {
		rv := reflect.ValueOf(in.Interface())
		ev := reflect.New(rv.Type()).Elem()
		ev.Set(rv)
		elem = addressableValue{ev}
		elemType = rv.Type()
	}
	conv, err := stack.Options.registry.GetConverter(elemType)
	if err != nil {
		return true, attachWritePath(stack, err)
	}
	return conv.TryWrite(stack, elemType, elem)
}
func (c *nullableConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	if stack.Decoder.PeekKind() == 'n' {
		if _, err := stack.Decoder.ReadToken(); err != nil {
			return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		out.SetZero()
		return true, nil
	}
	if t.Kind() == reflect.Interface {
		return readIntoEmptyInterface(stack, t, out)
	}
	if out.IsNil() {
		out.Set(reflect.New(t.Elem()))
	}
	elem := addressableValue{out.Elem()}
	conv, err := stack.Options.registry.GetConverter(t.Elem())
	if err != nil {
		return true, attachReadPath(stack, err)
	}
	return conv.TryRead(stack, t.Elem(), elem)
}

// readIntoEmptyInterface implements the spec's "object-fallback" style
// behavior for decoding into interface{}: map[string]any, []any, float64,
// string, bool, or nil, matching encoding/json's own untyped decode shape.
func readIntoEmptyInterface(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	if t.NumMethod() != 0 {
		return true, attachReadPath(stack, &ConfigurationError{Err: errNoConverter(t)})
	}
	v, err := decodeAny(stack)
	if err != nil {
		return true, err
	}
	out.Set(reflect.ValueOf(v))
	return true, nil
}

func decodeAny(stack *ReadStack) (any, error) {
	switch stack.Decoder.PeekKind() {
	case 'n':
		stack.Decoder.ReadToken()
		return nil, nil
	case 't', 'f':
		tok, err := stack.Decoder.ReadToken()
		if err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		return tok.Bool(), nil
	case '"':
		tok, err := stack.Decoder.ReadToken()
		if err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		return tok.String(), nil
	case '0':
		tok, err := stack.Decoder.ReadToken()
		if err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		f, ferr := tok.Raw().ParseFloat(64)
		if ferr != nil {
			return nil, attachReadPath(stack, &ConversionError{Action: "unmarshal", JSONKind: '0', Err: ferr})
		}
		return f, nil
	case '[':
		if _, err := stack.Decoder.ReadToken(); err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		out := []any{}
		for stack.Decoder.PeekKind() != ']' {
			v, err := decodeAny(stack)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if _, err := stack.Decoder.ReadToken(); err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		return out, nil
	case '{':
		if _, err := stack.Decoder.ReadToken(); err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		out := map[string]any{}
		for stack.Decoder.PeekKind() != '}' {
			nameTok, err := stack.Decoder.ReadToken()
			if err != nil {
				return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
			}
			v, err := decodeAny(stack)
			if err != nil {
				return nil, err
			}
			out[nameTok.String()] = v
		}
		if _, err := stack.Decoder.ReadToken(); err != nil {
			return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		return out, nil
	default:
		return nil, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: jsontext.ErrUnexpectedKind})
	}
}

// ---- enumerable/dictionary converter: slice, array, map ----

func buildEnumerableConverter(t reflect.Type) Converter {
	switch t.Kind() {
	case reflect.Map:
		return &mapConverter{t: t}
	default:
		return &sliceConverter{t: t}
	}
}

type sliceConverter struct{ t reflect.Type }

func (c *sliceConverter) CanConvert(t reflect.Type) bool { return t == c.t }

func (c *sliceConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if t.Kind() == reflect.Slice && in.IsNil() {
		if err := stack.Encoder.WriteToken(jsontext.Null); err != nil {
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		return true, nil
	}
	if err := stack.Encoder.WriteToken(jsontext.ArrayStart); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	elemType := t.Elem()
	conv, err := stack.Options.registry.GetConverter(elemType)
	if err != nil {
		return true, attachWritePath(stack, err)
	}
	f, err := stack.Push()
	if err != nil {
		return true, attachWritePath(stack, err)
	}
	f.currentProperty = nil
	for i := 0; i < in.Len(); i++ {
		f.currentIndex = i
		elem := addressableValue{in.Index(i)}
		if _, err := conv.TryWrite(stack, elemType, elem); err != nil {
			stack.Pop()
			return true, err
		}
	}
	stack.Pop()
	if err := stack.Encoder.WriteToken(jsontext.ArrayEnd); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (c *sliceConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	if stack.Decoder.PeekKind() == 'n' {
		stack.Decoder.ReadToken()
		out.Set(reflect.Zero(t))
		return true, nil
	}
	if _, err := stack.Decoder.ReadToken(); err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	elemType := t.Elem()
	conv, err := stack.Options.registry.GetConverter(elemType)
	if err != nil {
		return true, attachReadPath(stack, err)
	}
	if t.Kind() == reflect.Slice && out.IsNil() {
		out.Set(reflect.MakeSlice(t, 0, 0))
	}
	f, err := stack.Push()
	if err != nil {
		return true, attachReadPath(stack, err)
	}
	i := 0
	for stack.Decoder.PeekKind() != ']' {
		f.currentIndex = i
		var elem addressableValue
		switch t.Kind() {
		case reflect.Slice:
			out.Set(reflect.Append(out.Value, reflect.Zero(elemType)))
			elem = addressableValue{out.Index(i)}
		case reflect.Array:
			if i >= t.Len() {
				if err := stack.Decoder.SkipValue(); err != nil {
					stack.Pop()
					return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
				}
				i++
				continue
			}
			elem = addressableValue{out.Index(i)}
		}
		if _, err := conv.TryRead(stack, elemType, elem); err != nil {
			stack.Pop()
			return true, err
		}
		i++
	}
	stack.Pop()
	if _, err := stack.Decoder.ReadToken(); err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	return true, nil
}

type mapConverter struct{ t reflect.Type }

func (c *mapConverter) CanConvert(t reflect.Type) bool { return t == c.t }

func (c *mapConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if in.IsNil() {
		if err := stack.Encoder.WriteToken(jsontext.Null); err != nil {
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		return true, nil
	}
	if err := stack.Encoder.WriteToken(jsontext.ObjectStart); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	valType := t.Elem()
	conv, err := stack.Options.registry.GetConverter(valType)
	if err != nil {
		return true, attachWritePath(stack, err)
	}
	f, err := stack.Push()
	if err != nil {
		return true, attachWritePath(stack, err)
	}
	iter := in.MapRange()
	for iter.Next() {
		name := fmt.Sprint(iter.Key().Interface())
		f.currentProperty = &PropertyInfo{Name: name}
		if err := stack.Encoder.WriteToken(jsontext.String(name)); err != nil {
			stack.Pop()
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		val := newAddressableValue(valType)
		val.Set(iter.Value())
		if _, err := conv.TryWrite(stack, valType, val); err != nil {
			stack.Pop()
			return true, err
		}
	}
	stack.Pop()
	if err := stack.Encoder.WriteToken(jsontext.ObjectEnd); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (c *mapConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	if stack.Decoder.PeekKind() == 'n' {
		stack.Decoder.ReadToken()
		out.Set(reflect.Zero(t))
		return true, nil
	}
	if _, err := stack.Decoder.ReadToken(); err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	if out.IsNil() {
		out.Set(reflect.MakeMap(t))
	}
	keyType, valType := t.Key(), t.Elem()
	conv, err := stack.Options.registry.GetConverter(valType)
	if err != nil {
		return true, attachReadPath(stack, err)
	}
	f, err := stack.Push()
	if err != nil {
		return true, attachReadPath(stack, err)
	}
	for stack.Decoder.PeekKind() != '}' {
		nameTok, err := stack.Decoder.ReadToken()
		if err != nil {
			stack.Pop()
			return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		name := nameTok.String()
		f.currentProperty = &PropertyInfo{Name: name}
		key, err := parseMapKey(keyType, name)
		if err != nil {
			stack.Pop()
			return true, attachReadPath(stack, &ConversionError{Action: "unmarshal", GoType: keyType, Err: err})
		}
		val := newAddressableValue(valType)
		if _, err := conv.TryRead(stack, valType, val); err != nil {
			stack.Pop()
			return true, err
		}
		out.SetMapIndex(key, val.Value)
	}
	stack.Pop()
	if _, err := stack.Decoder.ReadToken(); err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	return true, nil
}

// parseMapKey converts a decoded JSON object member name into a map key of
// keyType, matching encoding/json's textual-key convention: string keys
// copy verbatim, integer-kind keys parse as base-10 text.
func parseMapKey(keyType reflect.Type, name string) (reflect.Value, error) {
	v := reflect.New(keyType).Elem()
	switch keyType.Kind() {
	case reflect.String:
		v.SetString(name)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		iv, err := strconv.ParseInt(name, 10, keyType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(iv)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		uv, err := strconv.ParseUint(name, 10, keyType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(uv)
	default:
		return reflect.Value{}, &configErrString{"spanjson: unsupported map key type " + keyType.String()}
	}
	return v, nil
}

// ---- object-fallback converter: struct via ClassInfo ----

type structConverter struct {
	t  reflect.Type
	ci *ClassInfo
}

func buildStructConverter(t reflect.Type) Converter {
	ci, err := getClassInfo(t)
	if err != nil {
		return unsupportedConverter{t: t}
	}
	return &structConverter{t: t, ci: ci}
}

func (c *structConverter) CanConvert(t reflect.Type) bool { return t == c.t }

func (c *structConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if err := stack.Encoder.WriteToken(jsontext.ObjectStart); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	f, err := stack.Push()
	if err != nil {
		return true, attachWritePath(stack, err)
	}
	f.classInfo = c.ci
	for _, p := range c.ci.Properties {
		f.currentProperty = p
		val := p.value(in)
		if (p.OmitEmpty && isEmptyValue(val.Value)) || (p.OmitZero && val.Value.IsZero()) {
			continue
		}
		conv := p.converter
		if conv == nil {
			conv, err = stack.Options.registry.GetConverter(p.Type)
			if err != nil {
				stack.Pop()
				return true, attachWritePath(stack, err)
			}
		}
		if err := stack.Encoder.WriteToken(jsontext.String(p.Name)); err != nil {
			stack.Pop()
			return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
		}
		if _, err := conv.TryWrite(stack, p.Type, val); err != nil {
			stack.Pop()
			return true, err
		}
	}
	if c.ci.extension != nil {
		ext := c.ci.extension.value(in)
		if ext.Kind() == reflect.Map && !ext.IsNil() {
			iter := ext.MapRange()
			for iter.Next() {
				f.currentProperty = &PropertyInfo{Name: fmt.Sprint(iter.Key().Interface())}
				if err := stack.Encoder.WriteToken(jsontext.String(f.currentProperty.Name)); err != nil {
					stack.Pop()
					return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
				}
				rv := iter.Value()
				raw, ok := extensionValueToRaw(rv)
				if !ok {
					stack.Pop()
					return true, attachWritePath(stack, &ConfigurationError{Err: errUnsupportedExtensionValue(ext.Type())})
				}
				if err := stack.Encoder.WriteValue(raw); err != nil {
					stack.Pop()
					return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
				}
			}
		}
	}
	stack.Pop()
	if err := stack.Encoder.WriteToken(jsontext.ObjectEnd); err != nil {
		return true, attachWritePath(stack, &StructuralError{Action: "marshal", Err: err})
	}
	return true, nil
}

func (c *structConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	if stack.Decoder.PeekKind() == 'n' {
		stack.Decoder.ReadToken()
		out.Set(reflect.Zero(t))
		return true, nil
	}
	if _, err := stack.Decoder.ReadToken(); err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	f, err := stack.Push()
	if err != nil {
		return true, attachReadPath(stack, err)
	}
	f.classInfo = c.ci
	f.seenNames = make(map[uint64]struct{})
	caseInsensitive := stack.MatchCaseInsensitiveNames
	for stack.Decoder.PeekKind() != '}' {
		nameTok, err := stack.Decoder.ReadToken()
		if err != nil {
			stack.Pop()
			return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
		}
		nameBytes := []byte(nameTok.String())
		h := nameHash(nameBytes)
		if _, dup := f.seenNames[h]; dup && !stack.AllowDuplicateNames {
			stack.Pop()
			return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: errDuplicateName(string(nameBytes))})
		}
		f.seenNames[h] = struct{}{}

		p := c.ci.Lookup(nameBytes, caseInsensitive)
		f.currentProperty = p
		if p == nil {
			if c.ci.extension != nil {
				if err := readIntoExtension(stack, c.ci.extension, out, string(nameBytes)); err != nil {
					stack.Pop()
					return true, err
				}
				continue
			}
			if stack.RejectUnknownMembers {
				stack.Pop()
				return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: ErrUnknownName})
			}
			if err := stack.Decoder.SkipValue(); err != nil {
				stack.Pop()
				return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
			}
			continue
		}
		val := p.value(out)
		conv := p.converter
		if conv == nil {
			conv, err = stack.Options.registry.GetConverter(p.Type)
			if err != nil {
				stack.Pop()
				return true, attachReadPath(stack, err)
			}
		}
		if _, err := conv.TryRead(stack, p.Type, val); err != nil {
			stack.Pop()
			return true, err
		}
	}
	stack.Pop()
	if _, err := stack.Decoder.ReadToken(); err != nil {
		return true, attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	return true, nil
}

func readIntoExtension(stack *ReadStack, ext *PropertyInfo, out addressableValue, name string) error {
	extVal := ext.value(out)
	if extVal.Kind() != reflect.Map {
		return stack.Decoder.SkipValue()
	}
	if extVal.IsNil() {
		extVal.Set(reflect.MakeMap(extVal.Type()))
	}
	raw, err := stack.Decoder.ReadValue()
	if err != nil {
		return attachReadPath(stack, &StructuralError{Action: "unmarshal", Err: err})
	}
	v, ok := rawToExtensionValue(extVal.Type().Elem(), raw.Clone())
	if !ok {
		return attachReadPath(stack, &ConfigurationError{Err: errUnsupportedExtensionValue(extVal.Type())})
	}
	extVal.SetMapIndex(reflect.ValueOf(name), v)
	return nil
}

// jsontextValueType and extensionValueToRaw/rawToExtensionValue let a
// data-extension member (spec.md C4's extension-member tier) hold either
// the raw jsontext.Value itself, or a plain string of the same raw JSON
// text -- whichever the Go struct declares as its map's value type.
var jsontextValueType = reflect.TypeFor[jsontext.Value]()

func extensionValueToRaw(rv reflect.Value) (jsontext.Value, bool) {
	switch {
	case rv.Type() == jsontextValueType:
		return rv.Interface().(jsontext.Value), true
	case rv.Kind() == reflect.String:
		return jsontext.Value(rv.String()), true
	default:
		return nil, false
	}
}

func rawToExtensionValue(valType reflect.Type, raw jsontext.Value) (reflect.Value, bool) {
	switch {
	case valType == jsontextValueType:
		return reflect.ValueOf(raw), true
	case valType.Kind() == reflect.String:
		return reflect.ValueOf(string(raw)).Convert(valType), true
	default:
		return reflect.Value{}, false
	}
}

func errUnsupportedExtensionValue(t reflect.Type) error {
	return &configErrString{"spanjson: unsupported data-extension map value type " + t.String()}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func errDuplicateName(name string) error {
	return &configErrString{"spanjson: duplicate name \"" + name + "\""}
}
