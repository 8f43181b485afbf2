package spanjson

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/spanjson/spanjson/jsontext"
)

// DefaultMaxDepth bounds how many Frames a ReadStack/WriteStack may hold at
// once. Nesting beyond MaxDepth fails with a StructuralError when the
// converter for the too-deep value pushes its Frame; on the write side the
// opening '{' or '[' of that value has already been written by then.
const DefaultMaxDepth = 64

// progress names the stages of reading one object member: start, then per
// member read-name, name, read-value, value. The built-in converters do not
// set Frame.progress; it stays progressStart.
type progress uint8

const (
	progressStart progress = iota
	progressReadName
	progressName
	progressReadValue
	progressValue
)

// Frame is one level of nesting in a ReadStack or WriteStack: the state a
// composite converter (pointer, slice, map, struct) needs to resume
// iterating its members without the Go call stack recording that nesting
// level itself.
//
// NOTE on scope: a composite converter iterates its members in a loop and
// calls each member's converter directly, so the Go call stack grows by
// one converter call per nesting level; the Frame stack records that
// nesting for depth limiting and path reporting, bounded by MaxDepth. No
// converter suspends and resumes at a byte boundary inside a value: the
// jsontext Decoder/Encoder block on their io.Reader/io.Writer instead.
type Frame struct {
	classInfo    *ClassInfo
	declaredType reflect.Type
	runtimeType  reflect.Type
	value        addressableValue

	progress progress

	memberIndex int // next declaration-order PropertyInfo to visit (object)
	elemIndex   int // next element index to visit (array/slice)

	currentProperty *PropertyInfo // for path reporting and value dispatch
	currentIndex    int           // array/slice index, for path reporting

	mapIter   *reflect.MapIter // resumed map iteration (dictionary write)
	mapKeys   []reflect.Value  // decoded keys pending insertion (dictionary read uses Go map directly)
	seenNames map[uint64]struct{} // duplicate-name tracking for this frame's namespace

	polymorphic bool // declared type != runtime type at this frame
}

func (f *Frame) reset() {
	*f = Frame{}
}

// pathSegment renders the frame's current position as one segment of the
// JSON-Path-like form spec.md C7 describes ($.foo.bar[3].baz); path joins
// the segments of all open frames.
func (f *Frame) pathSegment() string {
	if f.currentProperty != nil {
		return "." + f.currentProperty.Name
	}
	if f.currentIndex >= 0 {
		return "[" + itoa(f.currentIndex) + "]"
	}
	return ""
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// stackArena is the shared backing array a ReadStack/WriteStack grows into,
// so that repeated (de)serialize calls reuse the same Frame allocations
// (pools.go pools one arena per goroutine-local user via sync.Pool).
type stackArena struct {
	frames []Frame
}

func (a *stackArena) push(maxDepth int) (*Frame, error) {
	if len(a.frames) >= maxDepth {
		return nil, &StructuralError{Err: errMaxDepth}
	}
	a.frames = append(a.frames, Frame{})
	f := &a.frames[len(a.frames)-1]
	f.currentIndex = -1
	debugf("stack: push", zap.Int("depth", len(a.frames)))
	return f, nil
}

func (a *stackArena) pop() {
	n := len(a.frames)
	debugf("stack: pop", zap.Int("depth", n))
	a.frames[n-1].reset()
	a.frames = a.frames[:n-1]
}

func (a *stackArena) current() *Frame {
	if len(a.frames) == 0 {
		return nil
	}
	return &a.frames[len(a.frames)-1]
}

func (a *stackArena) depth() int { return len(a.frames) }

func (a *stackArena) path() string {
	if len(a.frames) == 0 {
		return "$"
	}
	var sb []byte
	sb = append(sb, '$')
	for i := range a.frames {
		sb = append(sb, a.frames[i].pathSegment()...)
	}
	return string(sb)
}

// ReadStack is the Frame arena a Decoder-side Converter pushes one Frame
// onto per nested composite value (spec.md C6); see the scope note on Frame.
type ReadStack struct {
	stackArena
	Decoder  *jsontext.Decoder
	Options  *SerializerOptions
	MaxDepth int

	// Call-scoped flags copied from UnmarshalOptions at the start of one
	// Unmarshal/UnmarshalFull call; these never change for the lifetime of
	// this ReadStack.
	MatchCaseInsensitiveNames bool
	RejectUnknownMembers      bool
	AllowDuplicateNames       bool
	StringifyNumbers          bool

	arena *pooledArena
}

func newReadStack(dec *jsontext.Decoder, opts *SerializerOptions) *ReadStack {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	a := getArena()
	s := &ReadStack{Decoder: dec, Options: opts, MaxDepth: maxDepth, arena: a}
	s.stackArena.frames = a.frames
	return s
}

func (s *ReadStack) Push() (*Frame, error) { return s.stackArena.push(s.MaxDepth) }
func (s *ReadStack) Pop()                  { s.stackArena.pop() }
func (s *ReadStack) Current() *Frame       { return s.stackArena.current() }
func (s *ReadStack) Path() string          { return s.stackArena.path() }

// Release returns the stack's Frame arena to the shared pool. Callers that
// construct a ReadStack directly (every Unmarshal entry point) must defer
// this once the stack is no longer needed.
func (s *ReadStack) Release() {
	s.arena.frames = s.stackArena.frames
	putArena(s.arena)
	s.arena = nil
}

// WriteStack is the Encoder-side counterpart of ReadStack.
type WriteStack struct {
	stackArena
	Encoder  *jsontext.Encoder
	Options  *SerializerOptions
	MaxDepth int

	StringifyNumbers bool

	arena *pooledArena
}

func newWriteStack(enc *jsontext.Encoder, opts *SerializerOptions) *WriteStack {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	a := getArena()
	s := &WriteStack{Encoder: enc, Options: opts, MaxDepth: maxDepth, arena: a}
	s.stackArena.frames = a.frames
	return s
}

func (s *WriteStack) Push() (*Frame, error) { return s.stackArena.push(s.MaxDepth) }
func (s *WriteStack) Pop()                  { s.stackArena.pop() }
func (s *WriteStack) Current() *Frame       { return s.stackArena.current() }

// Release returns the stack's Frame arena to the shared pool.
func (s *WriteStack) Release() {
	s.arena.frames = s.stackArena.frames
	putArena(s.arena)
	s.arena = nil
}
func (s *WriteStack) Path() string          { return s.stackArena.path() }

var errMaxDepth = &depthError{}

type depthError struct{}

func (*depthError) Error() string { return "exceeded max depth" }
