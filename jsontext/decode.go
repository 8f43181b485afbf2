// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"bytes"
	"io"

	"github.com/spanjson/spanjson/internal/jsonflags"
	"github.com/spanjson/spanjson/internal/jsonopts"
	"github.com/spanjson/spanjson/internal/jsonwire"
)

// Decoder is a streaming decoder of raw JSON tokens and values.
// It is used to read a stream of top-level JSON values, each separated by
// optional whitespace.
//
// [Decoder.ReadToken] and [Decoder.ReadValue] calls may be interleaved.
// For example, the tokens and values extracted from:
//
//	{"name":"value","array":[null,false,true,3.14159],"object":{"k":"v"}}
//
// can be parsed with the following calls (ignoring errors for brevity):
//
//	d.ReadToken() // {
//	d.ReadToken() // "name"
//	d.ReadValue() // "value"
//	d.ReadToken() // "array"
//	d.ReadToken() // [
//	d.ReadToken() // null
//	d.ReadToken() // false
//	d.ReadValue() // true
//	d.ReadToken() // 3.14159
//	d.ReadToken() // ]
//	d.ReadValue() // "object"
//	d.ReadValue() // {"k":"v"}
//	d.ReadToken() // }
type Decoder struct {
	s decoderState
}

// decoderState is the low-level state of Decoder.
type decoderState struct {
	state
	decodeBuffer
	jsonopts.Struct
}

// decodeBuffer holds the bytes fetched so far from rd. prevStart and
// prevEnd demarcate the span of the most recently returned token or value;
// RawToken relies on this span staying put until the next Read call voids it.
type decodeBuffer struct {
	buf []byte
	rd  io.Reader

	prevStart int
	prevEnd   int

	baseOffset int64

	unusedCache []byte
	bufStats    bufferStatistics
}

func (d *decodeBuffer) previousBuffer() []byte     { return d.buf[d.prevStart:d.prevEnd] }
func (d *decodeBuffer) previousOffsetStart() int64 { return d.baseOffset + int64(d.prevStart) }
func (d *decodeBuffer) previousOffsetEnd() int64   { return d.baseOffset + int64(d.prevEnd) }
func (d *decodeBuffer) unreadBuffer() []byte       { return d.buf[d.prevEnd:] }

// fill reads more bytes from rd into buf, growing buf as needed.
// It returns io.EOF once rd is exhausted (or there is no rd at all).
func (d *decodeBuffer) fill() error {
	if d.rd == nil {
		return io.EOF
	}
	if len(d.buf) == cap(d.buf) {
		const growthSizeFactor = 2
		n := cap(d.buf) * growthSizeFactor
		if n == 0 {
			n = 4 << 10
		}
		buf := make([]byte, len(d.buf), n)
		copy(buf, d.buf)
		d.buf = buf
	}
	n, err := d.rd.Read(d.buf[len(d.buf):cap(d.buf)])
	d.buf = d.buf[:len(d.buf)+n]
	switch {
	case n > 0:
		return nil
	case err == io.EOF:
		return io.EOF
	case err != nil:
		return &ioError{action: "read", err: err}
	default:
		return io.ErrNoProgress
	}
}

// discard drops the already-consumed prefix of buf, shrinking memory use
// for long-lived streaming decoders. It never runs in fixed-buffer mode
// (rd == nil) since that buffer is not ours to mutate length-wise.
func (d *decodeBuffer) discard() {
	if d.rd == nil || d.prevStart == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.prevStart:])
	d.buf = d.buf[:n]
	d.baseOffset += int64(d.prevStart)
	d.prevEnd -= d.prevStart
	d.prevStart = 0
}

// NewDecoder constructs a new streaming decoder reading from r
// configured with the provided options.
//
// If r is a [bytes.Buffer], then the decoder reads directly from the
// buffer without copying the contents.
func NewDecoder(r io.Reader, opts ...Options) *Decoder {
	d := new(Decoder)
	d.Reset(r, opts...)
	return d
}

// Reset resets a decoder such that it is reading afresh from r and
// configured with the provided options.
func (d *Decoder) Reset(r io.Reader, opts ...Options) {
	switch {
	case d == nil:
		panic("jsontext: invalid nil Decoder")
	case r == nil:
		panic("jsontext: invalid nil io.Reader")
	}
	d.s.reset(nil, r, opts...)
}

func (d *decoderState) reset(b []byte, r io.Reader, opts ...Options) {
	d.state.reset()
	d.decodeBuffer = decodeBuffer{buf: b, rd: r, bufStats: d.bufStats}
	if bb, ok := r.(*bytes.Buffer); ok && bb != nil {
		d.buf = bb.Bytes()
	}
	d.Struct = jsonopts.Struct{}
	d.Struct.Join(opts...)
}

// skipWhitespace advances past any JSON whitespace starting at pos,
// refilling as necessary, and returns the offset of the first non-whitespace
// byte. If the input is exhausted, it returns the current offset along with
// the error from fill (io.EOF or an *ioError).
func (d *decoderState) skipWhitespace(pos int) (int, error) {
	for {
		pos += jsonwire.ConsumeWhitespace(d.buf[pos:])
		if pos < len(d.buf) {
			return pos, nil
		}
		if err := d.fill(); err != nil {
			return pos, err
		}
	}
}

// consumeWithFill repeatedly invokes consume against the growing buffer
// starting at pos, refilling and retrying from the same start whenever
// consume reports [jsonwire.ErrIncompleteValue] — the C1 NeedMoreData signal.
func (d *decoderState) consumeWithFill(pos int, consume func(b []byte) (int, error)) (int, error) {
	for {
		n, err := consume(d.buf[pos:])
		if err == jsonwire.ErrIncompleteValue {
			if ferr := d.fill(); ferr != nil {
				if ferr == io.EOF {
					return pos, io.ErrUnexpectedEOF
				}
				return pos, ferr
			}
			continue
		}
		if err != nil {
			return pos + n, err
		}
		return pos + n, nil
	}
}

// atEOF reports the right error for a premature end of input depending on
// whether we are at the top level (a clean end of stream) or nested deeper
// (a truncated document).
func (d *decoderState) atEOF(err error) error {
	if err == io.EOF {
		if d.Tokens.Depth() == 1 {
			return io.EOF
		}
		return io.ErrUnexpectedEOF
	}
	return err
}

// needDelim peeks the delimiter that must precede the next non-close token
// or value, consuming it (and any following whitespace) if present. It
// reports the offset of the actual next token/value to parse.
func (d *decoderState) needDelim(pos int) (int, error) {
	c := d.buf[pos]
	if c == '}' || c == ']' {
		return pos, nil // closing brackets never require a preceding delimiter
	}
	delim := d.Tokens.needDelim(invalidKind)
	if delim == 0 {
		return pos, nil
	}
	if c != delim {
		if delim == ':' {
			return pos, d.wrapErr(errMissingColon, pos)
		}
		return pos, d.wrapErr(errMissingComma, pos)
	}
	pos++
	pos, err := d.skipWhitespace(pos)
	if err == io.EOF {
		return pos, io.ErrUnexpectedEOF
	}
	return pos, err
}

func (d *decoderState) wrapErr(err error, pos int) error {
	if serr, ok := err.(*SyntacticError); ok {
		return serr.withOffset(d.baseOffset + int64(pos))
	}
	return err
}

// PeekKind reports the kind of the next token or value without consuming
// any input. It returns zero if the next byte cannot be buffered without
// blocking or the input is exhausted; the real error surfaces on the
// subsequent ReadToken/ReadValue call.
func (d *decoderState) PeekKind() Kind {
	pos, err := d.skipWhitespace(d.prevEnd)
	if err != nil {
		return invalidKind
	}
	pos, err = d.needDelim(pos)
	if err != nil {
		return invalidKind
	}
	return Kind(d.buf[pos]).normalize()
}

// PeekKind reports the kind of the next token or value without consuming it.
func (d *Decoder) PeekKind() Kind { return d.s.PeekKind() }

// ReadToken reads the next [Token], advancing the read offset.
// It returns [io.EOF] if there are no more tokens at the top level.
func (d *Decoder) ReadToken() (Token, error) {
	return d.s.ReadToken()
}

func (d *decoderState) ReadToken() (Token, error) {
	d.discard()
	pos, err := d.skipWhitespace(d.prevEnd)
	if err != nil {
		return Token{}, d.atEOF(err)
	}
	pos, err = d.needDelim(pos)
	if err != nil {
		return Token{}, err
	}
	c := d.buf[pos]
	switch {
	case c == '{':
		if err := d.Tokens.pushObject(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		if !d.Flags.Get(jsonflags.AllowDuplicateNames) {
			d.Names.push()
			d.Namespaces.push()
		}
		d.prevStart, d.prevEnd = pos, pos+1
		return ObjectStart, nil
	case c == '}':
		if err := d.Tokens.popObject(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		if !d.Flags.Get(jsonflags.AllowDuplicateNames) {
			d.Names.pop()
			d.Namespaces.pop()
		}
		d.prevStart, d.prevEnd = pos, pos+1
		return ObjectEnd, nil
	case c == '[':
		if err := d.Tokens.pushArray(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, pos+1
		return ArrayStart, nil
	case c == ']':
		if err := d.Tokens.popArray(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, pos+1
		return ArrayEnd, nil
	case c == 'n':
		end, err := d.consumeWithFill(pos, func(b []byte) (int, error) { return jsonwire.ConsumeLiteral(b, "null") })
		if err != nil {
			return Token{}, d.wrapErr(err, end)
		}
		if err := d.Tokens.appendLiteral(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, end
		return Null, nil
	case c == 'f':
		end, err := d.consumeWithFill(pos, func(b []byte) (int, error) { return jsonwire.ConsumeLiteral(b, "false") })
		if err != nil {
			return Token{}, d.wrapErr(err, end)
		}
		if err := d.Tokens.appendLiteral(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, end
		return False, nil
	case c == 't':
		end, err := d.consumeWithFill(pos, func(b []byte) (int, error) { return jsonwire.ConsumeLiteral(b, "true") })
		if err != nil {
			return Token{}, d.wrapErr(err, end)
		}
		if err := d.Tokens.appendLiteral(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, end
		return True, nil
	case c == '"':
		end, err := d.consumeString(pos)
		if err != nil {
			return Token{}, d.wrapErr(err, end)
		}
		if err := d.recordObjectName(pos, end); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		if err := d.Tokens.appendString(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, end
		return Token{raw: RawToken{dBuf: &d.decodeBuffer, num: uint64(d.baseOffset + int64(pos))}}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		end, err := d.consumeWithFill(pos, jsonwire.ConsumeNumber)
		if err != nil {
			return Token{}, d.wrapErr(err, end)
		}
		if err := d.Tokens.appendNumber(); err != nil {
			return Token{}, d.wrapErr(err, pos)
		}
		d.prevStart, d.prevEnd = pos, end
		return Token{raw: RawToken{dBuf: &d.decodeBuffer, num: uint64(d.baseOffset + int64(pos))}}, nil
	default:
		return Token{}, d.wrapErr(newInvalidCharacterError(d.buf[pos:pos+1], "at start of token"), pos)
	}
}

func (d *decoderState) consumeString(pos int) (int, error) {
	var flags jsonwire.ValueFlags
	return d.consumeWithFill(pos, func(b []byte) (int, error) {
		return jsonwire.ConsumeString(&flags, b, d.ValidateUTF8())
	})
}

// recordObjectName updates the duplicate-name namespace and the name-offset
// stack after a string token is read while an object name was expected.
func (d *decoderState) recordObjectName(start, end int) error {
	if d.Flags.Get(jsonflags.AllowDuplicateNames) || !d.Tokens.Last.NeedObjectName() {
		return nil
	}
	if !d.Tokens.Last.isValidNamespace() {
		return errInvalidNamespace
	}
	if d.Tokens.Last.isActiveNamespace() && !d.Namespaces.Last().insertQuoted(d.buf[start:end], false) {
		return newDuplicateNameError(d.buf[start:end])
	}
	d.Names.copyQuotedBuffer(d.buf)
	d.Names.ReplaceLastQuotedOffset(start)
	return nil
}

// ReadValue reads the next raw JSON [Value], advancing the read offset.
// It returns [io.EOF] if there are no more values at the top level.
func (d *Decoder) ReadValue() (Value, error) {
	return d.s.ReadValue()
}

func (d *decoderState) ReadValue() (Value, error) {
	d.discard()
	pos, err := d.skipWhitespace(d.prevEnd)
	if err != nil {
		return nil, d.atEOF(err)
	}
	pos, err = d.needDelim(pos)
	if err != nil {
		return nil, err
	}
	if c := d.buf[pos]; c == '}' || c == ']' {
		return nil, d.wrapErr(newInvalidCharacterError(d.buf[pos:pos+1], "at start of value"), pos)
	}
	start := pos
	end, err := d.consumeValue(start, d.Tokens.Depth())
	if err != nil {
		return nil, d.wrapErr(err, end)
	}

	var terr error
	switch k := Kind(d.buf[start]).normalize(); k {
	case 'n', 'f', 't':
		terr = d.Tokens.appendLiteral()
	case '"':
		if rerr := d.recordObjectName(start, end); rerr != nil {
			terr = rerr
			break
		}
		terr = d.Tokens.appendString()
	case '0':
		terr = d.Tokens.appendNumber()
	case '{':
		if terr = d.Tokens.pushObject(); terr == nil {
			terr = d.Tokens.popObject()
		}
	case '[':
		if terr = d.Tokens.pushArray(); terr == nil {
			terr = d.Tokens.popArray()
		}
	}
	if terr != nil {
		return nil, d.wrapErr(terr, start)
	}

	d.prevStart, d.prevEnd = start, end
	return Value(d.buf[start:end]), nil
}

// consumeValue measures the span of one complete JSON value starting at
// pos, refilling and restarting the scan from pos whenever more input is
// required. It does not mutate the persistent d.Tokens stack (the caller
// does that once, for the value as a whole); nested objects use a scratch
// push/pop on d.Namespaces for duplicate-name detection only.
func (d *decoderState) consumeValue(pos int, depth int) (int, error) {
	for {
		end, err := d.tryConsumeValue(pos, depth)
		if err == jsonwire.ErrIncompleteValue {
			if ferr := d.fill(); ferr != nil {
				if ferr == io.EOF {
					return pos, io.ErrUnexpectedEOF
				}
				return pos, ferr
			}
			continue
		}
		return end, err
	}
}

func (d *decoderState) tryConsumeValue(pos int, depth int) (int, error) {
	if pos >= len(d.buf) {
		return pos, jsonwire.ErrIncompleteValue
	}
	switch k := Kind(d.buf[pos]).normalize(); k {
	case 'n':
		return jsonwire.ConsumeLiteral(d.buf[pos:], "null")
	case 'f':
		return jsonwire.ConsumeLiteral(d.buf[pos:], "false")
	case 't':
		return jsonwire.ConsumeLiteral(d.buf[pos:], "true")
	case '"':
		var flags jsonwire.ValueFlags
		n, err := jsonwire.ConsumeString(&flags, d.buf[pos:], d.ValidateUTF8())
		return pos + n, err
	case '0':
		n, err := jsonwire.ConsumeNumber(d.buf[pos:])
		return pos + n, err
	case '{':
		return d.consumeObject(pos, depth)
	case '[':
		return d.consumeArray(pos, depth)
	default:
		return pos, newInvalidCharacterError(d.buf[pos:pos+1], "at start of value")
	}
}

func (d *decoderState) consumeObject(pos int, depth int) (int, error) {
	if depth == maxNestingDepth+1 {
		return pos, errMaxDepth
	}
	if d.buf[pos] != '{' {
		panic("BUG: consumeObject called without a leading '{'")
	}
	n := pos + 1

	if n >= len(d.buf) {
		return n, jsonwire.ErrIncompleteValue
	}
	n += jsonwire.ConsumeWhitespace(d.buf[n:])
	if n >= len(d.buf) {
		return n, jsonwire.ErrIncompleteValue
	}
	if d.buf[n] == '}' {
		return n + 1, nil
	}

	var names *objectNamespace
	if !d.Flags.Get(jsonflags.AllowDuplicateNames) {
		d.Namespaces.push()
		defer d.Namespaces.pop()
		names = d.Namespaces.Last()
	}
	depth++
	for {
		if n >= len(d.buf) {
			return n, jsonwire.ErrIncompleteValue
		}
		if d.buf[n] != '"' {
			return n, newInvalidCharacterError(d.buf[n:n+1], "at start of object name")
		}
		var flags jsonwire.ValueFlags
		m, err := jsonwire.ConsumeString(&flags, d.buf[n:], d.ValidateUTF8())
		if err != nil {
			return n + m, err
		}
		if !d.Flags.Get(jsonflags.AllowDuplicateNames) && !names.insertQuoted(d.buf[n:n+m], false) {
			return n, newDuplicateNameError(d.buf[n : n+m])
		}
		n += m

		n += jsonwire.ConsumeWhitespace(d.buf[n:])
		if n >= len(d.buf) {
			return n, jsonwire.ErrIncompleteValue
		}
		if d.buf[n] != ':' {
			return n, newInvalidCharacterError(d.buf[n:n+1], "after object name (expecting ':')")
		}
		n++
		n += jsonwire.ConsumeWhitespace(d.buf[n:])
		if n >= len(d.buf) {
			return n, jsonwire.ErrIncompleteValue
		}

		m, err = d.tryConsumeValue(n, depth)
		if err != nil {
			return m, err
		}
		n = m

		n += jsonwire.ConsumeWhitespace(d.buf[n:])
		if n >= len(d.buf) {
			return n, jsonwire.ErrIncompleteValue
		}
		switch d.buf[n] {
		case ',':
			n++
			n += jsonwire.ConsumeWhitespace(d.buf[n:])
			continue
		case '}':
			return n + 1, nil
		default:
			return n, newInvalidCharacterError(d.buf[n:n+1], "after object value (expecting ',' or '}')")
		}
	}
}

func (d *decoderState) consumeArray(pos int, depth int) (int, error) {
	if depth == maxNestingDepth+1 {
		return pos, errMaxDepth
	}
	if d.buf[pos] != '[' {
		panic("BUG: consumeArray called without a leading '['")
	}
	n := pos + 1

	if n >= len(d.buf) {
		return n, jsonwire.ErrIncompleteValue
	}
	n += jsonwire.ConsumeWhitespace(d.buf[n:])
	if n >= len(d.buf) {
		return n, jsonwire.ErrIncompleteValue
	}
	if d.buf[n] == ']' {
		return n + 1, nil
	}

	depth++
	for {
		m, err := d.tryConsumeValue(n, depth)
		if err != nil {
			return m, err
		}
		n = m

		n += jsonwire.ConsumeWhitespace(d.buf[n:])
		if n >= len(d.buf) {
			return n, jsonwire.ErrIncompleteValue
		}
		switch d.buf[n] {
		case ',':
			n++
			n += jsonwire.ConsumeWhitespace(d.buf[n:])
			continue
		case ']':
			return n + 1, nil
		default:
			return n, newInvalidCharacterError(d.buf[n:n+1], "after array value (expecting ',' or ']')")
		}
	}
}

// SkipValue is equivalent to calling [Decoder.ReadValue] and discarding the
// result, except that memory is not wasted copying the skipped value.
func (d *Decoder) SkipValue() error {
	switch d.PeekKind() {
	case '{', '[':
		// Read the start token to descend, then skip to the matching end.
		if _, err := d.ReadToken(); err != nil {
			return err
		}
		depth := d.s.Tokens.Depth()
		for d.s.Tokens.Depth() >= depth {
			if _, err := d.ReadToken(); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := d.ReadValue()
		return err
	}
}

// InputOffset returns the current input byte offset, which points to the
// byte immediately after the most recently returned token or value.
func (d *Decoder) InputOffset() int64 {
	return d.s.previousOffsetEnd()
}

// UnreadBuffer returns the data remaining in the unread buffer, which may
// be a subset of the data that remains in the underlying [io.Reader].
func (d *Decoder) UnreadBuffer() []byte {
	return d.s.unreadBuffer()
}

// StackDepth returns the depth of the state machine for read JSON data.
// It mirrors [Encoder.StackDepth].
func (d *Decoder) StackDepth() int {
	return d.s.Tokens.Depth() - 1
}

// StackIndex returns information about the specified stack level, mirroring
// [Encoder.StackIndex].
func (d *Decoder) StackIndex(i int) (Kind, int64) {
	switch s := d.s.Tokens.index(i); {
	case i > 0 && s.isObject():
		return '{', s.Length()
	case i > 0 && s.isArray():
		return '[', s.Length()
	default:
		return 0, s.Length()
	}
}

// StackPointer returns a JSON Pointer (RFC 6901) to the most recently read
// value, mirroring [Encoder.StackPointer].
func (d *Decoder) StackPointer() string {
	d.s.Names.copyQuotedBuffer(d.s.buf)
	return string(d.s.appendStackPointer(nil))
}
