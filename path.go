package spanjson

// Path mirrors spec.md C7: a JSON-Path-like string identifying the cursor
// position ($.foo.bar[3].baz) that is attached to an error the moment a
// converter or the driving loop fails, using whichever frames are still
// open on the stack at that instant.
//
// jsontext already exposes StackPointer/StackDepth/StackIndex as an RFC
// 6901 JSON Pointer over the lexical (token) nesting; Path reports the
// equivalent string over the *Go type* nesting a ReadStack/WriteStack
// tracks (property names rather than encoded member indices), which is
// what a consumer debugging a failed Unmarshal into their own struct wants
// to see.
func readPath(s *ReadStack) string  { return s.Path() }
func writePath(s *WriteStack) string { return s.Path() }

// attachReadPath wraps err (if non-nil) with the stack's current path.
func attachReadPath(s *ReadStack, err error) error {
	if err == nil {
		return nil
	}
	return withPath(err, readPath(s))
}

// attachWritePath wraps err (if non-nil) with the stack's current path.
func attachWritePath(s *WriteStack, err error) error {
	if err == nil {
		return nil
	}
	return withPath(err, writePath(s))
}
