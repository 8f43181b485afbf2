package spanjson

import "sync"

// ExtensionMemberConflict names a policy for a data-extension member (a
// `json:",unknown"` field) that already holds a key which a declared member
// of the same struct also claims. No converter consults it: Unmarshal
// always stores a name that matches a declared member in that member,
// never in the extension map, and leaves any entry already present in the
// extension map in place.
type ExtensionMemberConflict int

const (
	// ExtensionConflictKeepDeclared is the default value.
	ExtensionConflictKeepDeclared ExtensionMemberConflict = iota
	// ExtensionConflictKeepExtension is accepted but has the same effect
	// as ExtensionConflictKeepDeclared.
	ExtensionConflictKeepExtension
)

// SerializerOptions is the shared, possibly long-lived engine state behind
// one or more Marshal/Unmarshal calls: the ConverterRegistry, the process
// of resolving types to ClassInfo, and a handful of engine-wide knobs. It
// freezes the first time it participates in a (de)serialize call (spec.md
// §5's "shared-resource policy"): after that, RegisterConverter returns a
// ProgrammerError. The exported fields below are plain fields; a write to
// them after the freeze is not detected.
type SerializerOptions struct {
	mu     sync.Mutex
	frozen bool

	registry *ConverterRegistry

	// MaxDepth bounds nesting depth for both reading and writing. Zero
	// means DefaultMaxDepth.
	MaxDepth int

	// ExtensionMemberConflict records a declared-vs-extension member
	// collision policy (spec.md §9 Open Question 2); no converter reads it.
	ExtensionMemberConflict ExtensionMemberConflict
}

// NewSerializerOptions returns a fresh, unfrozen SerializerOptions with the
// built-in converter tiers installed.
func NewSerializerOptions() *SerializerOptions {
	return &SerializerOptions{registry: newConverterRegistry(), MaxDepth: DefaultMaxDepth}
}

// RegisterConverter adds a runtime-registered converter, checked (first
// CanConvert match wins, in registration order) before the declarative and
// built-in tiers the next time an unresolved type is seen. It fails with a
// ProgrammerError once o has frozen.
func (o *SerializerOptions) RegisterConverter(c Converter) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return &ProgrammerError{Err: errFrozenOptions}
	}
	return o.registry.RegisterConverter(c)
}

// use marks o (and its registry) frozen, idempotently. Every Marshal/
// Unmarshal entry point calls this before resolving any converter.
func (o *SerializerOptions) use() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.frozen {
		o.frozen = true
		o.registry.freeze()
	}
}

func (o *SerializerOptions) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

var errFrozenOptions = &configErrString{"cannot mutate a SerializerOptions after its first use"}

// defaultSerializerOptions is the process-lifetime singleton used by the
// package-level Marshal/Unmarshal convenience functions, matching spec.md's
// design note on global mutable state: a once-initialized, internally
// immutable-after-publication default.
var defaultSerializerOptions = NewSerializerOptions()
