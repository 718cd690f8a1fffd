package store

import (
	"bytes"
	"math"
	"sort"
)

// Kind names the native shape of a Primitive.
type Kind string

const (
	KindBool  Kind = "bool"
	KindInt   Kind = "int"
	KindFloat Kind = "float"
	KindText  Kind = "text"
	KindData  Kind = "data"
	KindList  Kind = "list"
	KindMap   Kind = "map"
)

// Primitive is a sealed interface over the shapes a backing store understands.
// Only Bool, Int, Float, Text, Data, List and Map implement it.
type Primitive interface {
	Kind() Kind
	primitive()
}

// Bool is a boolean primitive.
type Bool bool

// Int is a signed 64-bit integer primitive.
type Int int64

// Float is a 64-bit floating point primitive.
type Float float64

// Text is a UTF-8 string primitive.
type Text string

// Data is an opaque binary primitive.
type Data []byte

// List is an ordered sequence of primitives.
type List []Primitive

// Map is a text-keyed mapping of primitives.
type Map map[string]Primitive

func (Bool) Kind() Kind  { return KindBool }
func (Int) Kind() Kind   { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (Text) Kind() Kind  { return KindText }
func (Data) Kind() Kind  { return KindData }
func (List) Kind() Kind  { return KindList }
func (Map) Kind() Kind   { return KindMap }

func (Bool) primitive()  {}
func (Int) primitive()   {}
func (Float) primitive() {}
func (Text) primitive()  {}
func (Data) primitive()  {}
func (List) primitive()  {}
func (Map) primitive()   {}

// SortedKeys returns the map keys in ascending order.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of p so callers never share backing arrays or maps
// with a store.
func Clone(p Primitive) Primitive {
	switch v := p.(type) {
	case nil:
		return nil
	case Data:
		if v == nil {
			return Data(nil)
		}
		out := make(Data, len(v))
		copy(out, v)
		return out
	case List:
		if v == nil {
			return List(nil)
		}
		out := make(List, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	case Map:
		if v == nil {
			return Map(nil)
		}
		out := make(Map, len(v))
		for key, item := range v {
			out[key] = Clone(item)
		}
		return out
	default:
		return p
	}
}

// Equal reports structural equality. Floats compare by bit pattern, so NaN
// equals NaN and negative zero differs from positive zero.
func Equal(a, b Primitive) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		return math.Float64bits(float64(av)) == math.Float64bits(float64(b.(Float)))
	case Text:
		return av == b.(Text)
	case Data:
		return bytes.Equal(av, b.(Data))
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for key, item := range av {
			other, ok := bv[key]
			if !ok || !Equal(item, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
