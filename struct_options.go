package spanjson

import (
	"reflect"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// PropertyInfo is a per-member descriptor built once by reflection and
// cached process-wide on the owning ClassInfo (spec.md C5).
type PropertyInfo struct {
	Name      string
	nameBytes []byte // cached UTF-8 encoding of Name, without quotes
	nameHash  uint64

	index []int // reflect.Value.FieldByIndex path, supports inlined/embedded members
	Type  reflect.Type

	NoCase    bool
	Inline    bool
	Unknown   bool // data-extension member: holds unrecognized names
	OmitZero  bool
	OmitEmpty bool
	String    bool
	Format    string

	converter Converter // member-level override; beats every registry tier
}

func (p *PropertyInfo) value(va addressableValue) addressableValue {
	v := addressableValue{va.Value.FieldByIndex(p.index)}
	return v
}

// ClassInfo is the per-type member table spec.md C5 describes: a
// declaration-order list (used when marshaling, so field order in the
// output matches the Go struct), plus a name-sorted array built on demand
// for binary search, plus a small cache of the most recently matched
// names backed by golang-lru so repeated unmarshals of the same object
// shape skip the binary search entirely.
type ClassInfo struct {
	Type       reflect.Type
	Properties []*PropertyInfo // declaration order

	sortOnce sync.Once
	sorted   []*PropertyInfo // sorted by Name, built lazily

	extension *PropertyInfo // the inline,unknown data-extension member, if any

	recent *lru.Cache[uint64, *PropertyInfo] // two-tier name cache: recently-matched ring

	constructor func() addressableValue
}

const recentNameCacheSize = 8 // small ring: most structs have far fewer than 8 hot members

var classInfoCache sync.Map // reflect.Type -> *ClassInfo, built lazily, never mutated once published

// getClassInfo returns the ClassInfo for t, building and publishing it on
// first use. Concurrent callers racing to build the same ClassInfo is
// tolerated (LoadOrStore keeps whichever build won, both are equivalent).
func getClassInfo(t reflect.Type) (*ClassInfo, error) {
	if ci, ok := classInfoCache.Load(t); ok {
		return ci.(*ClassInfo), nil
	}
	debugf("struct_options: building ClassInfo", zap.Stringer("type", t))
	ci, err := makeClassInfo(t)
	if err != nil {
		return nil, err
	}
	actual, _ := classInfoCache.LoadOrStore(t, ci)
	return actual.(*ClassInfo), nil
}

func makeClassInfo(t reflect.Type) (*ClassInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, &ConfigurationError{Err: errNotStruct(t)}
	}
	recent, _ := lru.New[uint64, *PropertyInfo](recentNameCacheSize)
	ci := &ClassInfo{Type: t, recent: recent}

	var walk func(t reflect.Type, index []int) error
	walk = func(t reflect.Type, index []int) error {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			tag, err := parseMemberTag(sf)
			if err == errIgnoredMember {
				continue
			}
			if err != nil {
				return err
			}
			fieldIndex := append(append([]int(nil), index...), i)

			if tag.inline && sf.Type.Kind() == reflect.Struct && tag.name == sf.Name {
				// An `inline`-tagged struct field without its own declared
				// name contributes its members directly to this ClassInfo
				// instead of becoming one PropertyInfo itself.
				if err := walk(sf.Type, fieldIndex); err != nil {
					return err
				}
				continue
			}

			p := &PropertyInfo{
				Name:      tag.name,
				index:     fieldIndex,
				Type:      sf.Type,
				NoCase:    tag.nocase,
				Inline:    tag.inline,
				Unknown:   tag.unknown,
				OmitZero:  tag.omitzero,
				OmitEmpty: tag.omitempty,
				String:    tag.string,
				Format:    tag.format,
			}
			p.nameBytes = []byte(p.Name)
			p.nameHash = nameHash(p.nameBytes)

			if tag.unknown {
				if ci.extension != nil {
					return &ConfigurationError{Err: errDuplicateExtension(t)}
				}
				ci.extension = p
				continue
			}
			ci.Properties = append(ci.Properties, p)
		}
		return nil
	}
	if err := walk(t, nil); err != nil {
		return nil, err
	}

	ci.constructor = func() addressableValue {
		return addressableValue{reflect.New(t).Elem()}
	}
	return ci, nil
}

// sortedProperties returns Properties sorted by Name, building the sort
// the first time it's needed (most ClassInfos are built once and then used
// for many unmarshals, so the sort cost is amortized).
func (ci *ClassInfo) sortedProperties() []*PropertyInfo {
	ci.sortOnce.Do(func() {
		ci.sorted = append([]*PropertyInfo(nil), ci.Properties...)
		sort.Slice(ci.sorted, func(i, j int) bool { return ci.sorted[i].Name < ci.sorted[j].Name })
	})
	return ci.sorted
}

// Lookup resolves a decoded (unescaped) UTF-8 property name to its
// PropertyInfo, consulting the two-tier cache before falling back to a
// binary search of the sorted member array, per spec.md C5. nocase
// honors case-insensitive matching when either the member or the caller
// requested it.
func (ci *ClassInfo) Lookup(name []byte, caseInsensitive bool) *PropertyInfo {
	h := nameHash(name)
	if p, ok := ci.recent.Get(h); ok && matchPropertyName(p, name, caseInsensitive) {
		return p
	}
	sorted := ci.sortedProperties()
	if p := binarySearchProperty(sorted, name, caseInsensitive); p != nil {
		ci.recent.Add(h, p)
		return p
	}
	return nil
}

func matchPropertyName(p *PropertyInfo, name []byte, caseInsensitive bool) bool {
	if caseInsensitive || p.NoCase {
		return len(p.nameBytes) == len(name) && equalFold(p.nameBytes, name)
	}
	return string(p.nameBytes) == string(name)
}

func binarySearchProperty(sorted []*PropertyInfo, name []byte, caseInsensitive bool) *PropertyInfo {
	s := internName(name)
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Name >= s })
	if i < len(sorted) && sorted[i].Name == s {
		return sorted[i]
	}
	if caseInsensitive {
		for _, p := range sorted {
			if matchPropertyName(p, name, true) {
				return p
			}
		}
	} else {
		// A member explicitly tagged `nocase` still matches regardless of
		// the caller's own MatchCaseInsensitiveNames setting.
		for _, p := range sorted {
			if p.NoCase && matchPropertyName(p, name, true) {
				return p
			}
		}
	}
	return nil
}

func equalFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func errNotStruct(t reflect.Type) error {
	return &configErrString{"spanjson: " + t.String() + " is not a struct type"}
}
func errDuplicateExtension(t reflect.Type) error {
	return &configErrString{"spanjson: " + t.String() + " declares more than one `json:\",unknown\"` data-extension member"}
}
