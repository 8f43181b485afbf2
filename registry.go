package spanjson

import (
	"reflect"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Converter is the unit of (de)serialization dispatch (spec.md C4/C6). A
// Converter decides, for one reflect.Type, how to read a Go value back out
// of a *jsontext.Decoder and how to write one out to a *jsontext.Encoder.
//
// TryRead/TryWrite report whether the value was fully converted. Every
// built-in converter returns true and reports failures, including I/O
// errors from the underlying jsontext.Decoder/Encoder, through the error
// result; see the scope note on Frame in stack.go.
type Converter interface {
	CanConvert(t reflect.Type) bool
	TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error)
	TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error)
}

// converterFactory builds a Converter for types it recognizes, used for the
// built-in factory tier (nullable, enum, enumerable/dictionary,
// object-fallback) which must inspect a
// reflect.Type's Kind rather than match it exactly.
type converterFactory struct {
	name  string
	match func(t reflect.Type) bool
	build func(t reflect.Type) Converter
}

// ConverterRegistry resolves a reflect.Type to a Converter, implementing
// spec.md C4's precedence: cache, then runtime-registered user converters
// (first CanConvert match wins), then a type's declarative attribute (its
// own MarshalJSON/UnmarshalJSON-style methods, see arshal_funcs.go), then a
// built-in simple converter keyed by exact type, then the built-in factory
// converters in fixed order. Results are cached only once the registry has
// frozen (after the owning SerializerOptions' first use), since the
// runtime-registered converter list may still be mutated before then.
type ConverterRegistry struct {
	mu       sync.RWMutex
	frozen   bool
	user     []Converter
	simple   map[reflect.Type]Converter
	factory  []converterFactory
	cache    sync.Map            // reflect.Type -> Converter, populated only once frozen
	built    *lru.Cache[reflect.Type, Converter] // memo filled alongside cache once frozen, bounded in size
}

func newConverterRegistry() *ConverterRegistry {
	built, _ := lru.New[reflect.Type, Converter](1024)
	r := &ConverterRegistry{
		simple:  make(map[reflect.Type]Converter),
		built:   built,
		factory: defaultFactories,
	}
	registerConverterRegistryDefaults(r)
	registerTimeConverters(r)
	return r
}

// RegisterConverter adds a runtime user converter, checked (in
// registration order, before any declarative or built-in tier) the next
// time a type neither already cached nor previously resolved is seen.
func (r *ConverterRegistry) RegisterConverter(c Converter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return &ProgrammerError{Err: errFrozenRegistry}
	}
	r.user = append(r.user, c)
	return nil
}

// registerSimple installs a built-in converter keyed by an exact
// reflect.Type, consulted after the declarative tier and before the
// factory tier.
func (r *ConverterRegistry) registerSimple(t reflect.Type, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.simple[t] = c
}

func (r *ConverterRegistry) freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// GetConverter resolves t to a Converter following the C4 precedence order.
func (r *ConverterRegistry) GetConverter(t reflect.Type) (Converter, error) {
	if c, ok := r.cache.Load(t); ok {
		return c.(Converter), nil
	}
	r.mu.RLock()
	frozen := r.frozen
	if frozen {
		if c, ok := r.built.Get(t); ok {
			r.mu.RUnlock()
			return c, nil
		}
	}
	c, err := r.resolve(t)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if frozen {
		// Safe to cache now: the converter list cannot change anymore, so
		// every future caller resolving t will get the same answer.
		r.cache.Store(t, c)
		r.built.Add(t, c)
	}
	return c, nil
}

func (r *ConverterRegistry) resolve(t reflect.Type) (Converter, error) {
	debugf("registry: resolving converter", zap.Stringer("type", t))
	for _, c := range r.user {
		if c.CanConvert(t) {
			return c, nil
		}
	}
	if c := declarativeConverter(t); c != nil {
		return c, nil
	}
	if c, ok := r.simple[t]; ok {
		return c, nil
	}
	for _, f := range r.factory {
		if f.match(t) {
			return f.build(t), nil
		}
	}
	return nil, &ConfigurationError{Err: errNoConverter(t)}
}

func errNoConverter(t reflect.Type) error {
	return &configErrString{"no converter available for type " + t.String()}
}

type configErrString struct{ s string }

func (e *configErrString) Error() string { return e.s }

var errFrozenRegistry = &configErrString{"cannot register a converter after the owning SerializerOptions has been used"}
