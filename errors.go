package spanjson

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/spanjson/spanjson/jsontext"
)

// Error matches every error returned by this package according to
// errors.Is, mirroring the single sentinel the jsontext coder exposes
// (jsontext.Error) for the layer below this one.
const Error = spanjsonError("spanjson error")

type spanjsonError string

func (e spanjsonError) Error() string { return string(e) }
func (e spanjsonError) Is(target error) bool {
	return e == target || target == Error
}

// ErrUnknownName is wrapped in a StructuralError when
// UnmarshalOptions.RejectUnknownMembers is set and the decoder encounters a
// property name with no matching PropertyInfo and no extension member.
const ErrUnknownName = spanjsonError("unknown name")

// StructuralError reports a malformed token stream: an unexpected token, a
// mismatched bracket, a duplicate property name under a strict namespace, a
// depth budget exceeded (C6's MaxDepth), or a scanning failure surfaced
// from jsontext (C1-C3).
type StructuralError struct {
	Action     string // "marshal" or "unmarshal"
	StackPath  string // JSON-Path-like cursor path such as $.a[1].b (C7)
	ByteOffset int64
	Err        error
}

func (e *StructuralError) Error() string {
	msg := "spanjson: structural error"
	if e.Action != "" {
		msg += " during " + e.Action
	}
	if e.StackPath != "" {
		msg += " at " + e.StackPath
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}
func (e *StructuralError) Unwrap() error { return e.Err }
func (e *StructuralError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.Err, target)
}

// ConversionError reports that a well-formed JSON value cannot be
// represented in (or extracted from) the target Go type: integer overflow,
// a malformed RFC 3339 timestamp, an invalid UUID, or an enum name that the
// target type's converter does not recognize.
type ConversionError struct {
	Action    string
	StackPath string
	JSONKind  jsontext.Kind
	GoType    reflect.Type
	Err       error
}

func (e *ConversionError) Error() string {
	msg := "spanjson: cannot " + actionVerb(e.Action)
	if e.JSONKind != 0 {
		msg += " JSON " + e.JSONKind.String()
	}
	if e.GoType != nil {
		msg += " into Go value of type " + e.GoType.String()
	}
	if e.StackPath != "" {
		msg += " at " + e.StackPath
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}
func (e *ConversionError) Unwrap() error { return e.Err }
func (e *ConversionError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.Err, target)
}

func actionVerb(action string) string {
	switch action {
	case "marshal":
		return "marshal"
	case "unmarshal":
		return "unmarshal"
	default:
		return "convert"
	}
}

// ConfigurationError reports a caller mistake discovered while building a
// ConverterRegistry or ClassInfo: conflicting options, a converter whose
// CanConvert never matches the type it was registered for, a struct missing
// an addressable constructor, or a duplicate declarative attribute on a
// member.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "spanjson: invalid configuration: " + e.Err.Error()
}
func (e *ConfigurationError) Unwrap() error { return e.Err }
func (e *ConfigurationError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.Err, target)
}

// ResourceError reports that a fixed-size resource was exhausted.
// Exceeding MaxDepth is reported as a StructuralError, not a ResourceError.
type ResourceError struct {
	Err error
}

func (e *ResourceError) Error() string {
	return "spanjson: resource exhausted: " + e.Err.Error()
}
func (e *ResourceError) Unwrap() error { return e.Err }
func (e *ResourceError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.Err, target)
}

// ProgrammerError reports invalid API usage that no amount of well-formed
// input could trigger: writing a property name where a value is expected,
// mutating a SerializerOptions after it has frozen, or passing a non-pointer
// to Unmarshal.
type ProgrammerError struct {
	Err error
}

func (e *ProgrammerError) Error() string {
	return "spanjson: programmer error: " + e.Err.Error()
}
func (e *ProgrammerError) Unwrap() error { return e.Err }
func (e *ProgrammerError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.Err, target)
}

// withPath annotates err with the cursor path current when the error
// surfaced, and otherwise wraps it with a captured stack trace via
// pkg/errors so the diagnostic survives a suspend/resume boundary (C6).
func withPath(err error, path string) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *StructuralError:
		if e.StackPath == "" {
			e.StackPath = path
		}
		return e
	case *ConversionError:
		if e.StackPath == "" {
			e.StackPath = path
		}
		return e
	default:
		return errors.WithStack(err)
	}
}
