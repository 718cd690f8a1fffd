package prefs

import "github.com/goliatone/go-prefs/pkg/store"

// Raw lists the primitive types an enumeration can be backed by.
type Raw interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~string
}

// Enum returns a marshaller for a closed set of named values, each backed by a
// raw primitive. The raw value is what gets stored. Reading a raw value that
// maps to no member of values is absent; list reads drop such elements.
//
// When two values share a raw value the first one wins on read.
func Enum[T comparable, R Raw](raw func(T) R, values ...T) Marshaller[T] {
	rawCodec := Default[R]()
	byRaw := make(map[R]T, len(values))
	for _, value := range values {
		r := raw(value)
		if _, exists := byRaw[r]; exists {
			continue
		}
		byRaw[r] = value
	}
	return codec[T]{
		encode: func(value T) (store.Primitive, bool) {
			r := raw(value)
			if _, ok := byRaw[r]; !ok {
				return nil, false
			}
			return rawCodec.Encode(r)
		},
		decode: func(p store.Primitive) (T, bool) {
			var zero T
			r, ok := rawCodec.Decode(p)
			if !ok {
				return zero, false
			}
			value, ok := byRaw[r]
			if !ok {
				return zero, false
			}
			return value, true
		},
		lenient: true,
	}
}

// StringEnum is Enum for types whose underlying type is string.
func StringEnum[T ~string](values ...T) Marshaller[T] {
	return Enum(func(v T) string { return string(v) }, values...)
}

// IntEnum is Enum for types whose underlying type is int.
func IntEnum[T ~int](values ...T) Marshaller[T] {
	return Enum(func(v T) int { return int(v) }, values...)
}
