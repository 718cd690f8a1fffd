package prefs

import (
	"reflect"
	"time"

	"github.com/goliatone/go-prefs/pkg/store"
)

// Basic lists the types Default passes straight through to a primitive.
// Named types over these kinds are accepted too.
type Basic interface {
	~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 |
		~string | ~[]byte |
		time.Time
}

// Default returns the pass-through marshaller for T:
//
//	bool                Bool
//	signed integers     Int
//	unsigned integers   Int (uint64 keeps its bit pattern)
//	floats              Float
//	string              Text
//	[]byte              Data
//	time.Time           Text in RFC 3339 with nanoseconds
//
// Times keep their instant and UTC offset but not their *time.Location or
// monotonic clock reading: a read yields a fixed zone without the original
// name. Compare decoded times with Time.Equal, not ==.
//
// A primitive of any other shape, or an integer that overflows T, reads as
// absent. A list read fails entirely when any element mismatches.
func Default[T Basic]() Marshaller[T] {
	return codec[T]{encode: encodeBasic[T], decode: decodeBasic[T]}
}

func encodeBasic[T Basic](value T) (store.Primitive, bool) {
	if t, ok := any(value).(time.Time); ok {
		return store.Text(t.Format(time.RFC3339Nano)), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return store.Bool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return store.Int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return store.Int(int64(rv.Uint())), true
	case reflect.Float32, reflect.Float64:
		return store.Float(rv.Float()), true
	case reflect.String:
		return store.Text(rv.String()), true
	case reflect.Slice:
		if rv.IsNil() {
			return store.Data{}, true
		}
		data := make(store.Data, rv.Len())
		copy(data, rv.Bytes())
		return data, true
	default:
		return nil, false
	}
}

func decodeBasic[T Basic](p store.Primitive) (T, bool) {
	var out T
	if _, ok := any(out).(time.Time); ok {
		text, ok := p.(store.Text)
		if !ok {
			return out, false
		}
		t, err := time.Parse(time.RFC3339Nano, string(text))
		if err != nil {
			return out, false
		}
		return any(t).(T), true
	}

	rv := reflect.ValueOf(&out).Elem()
	switch rv.Kind() {
	case reflect.Bool:
		v, ok := p.(store.Bool)
		if !ok {
			return out, false
		}
		rv.SetBool(bool(v))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, ok := p.(store.Int)
		if !ok || rv.OverflowInt(int64(v)) {
			return out, false
		}
		rv.SetInt(int64(v))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, ok := p.(store.Int)
		if !ok {
			return out, false
		}
		u := uint64(v)
		// 64-bit unsigned values are stored by bit pattern.
		if rv.Type().Size() < 8 && (v < 0 || rv.OverflowUint(u)) {
			return out, false
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		v, ok := p.(store.Float)
		if !ok {
			return out, false
		}
		rv.SetFloat(float64(v))
	case reflect.String:
		v, ok := p.(store.Text)
		if !ok {
			return out, false
		}
		rv.SetString(string(v))
	case reflect.Slice:
		v, ok := p.(store.Data)
		if !ok {
			return out, false
		}
		data := make([]byte, len(v))
		copy(data, v)
		rv.SetBytes(data)
	default:
		return out, false
	}
	return out, true
}
