package prefs

import "reflect"

// Pure is the identity transform every entry starts with.
func Pure[T any](value T) T {
	return value
}

// IsAbsent reports whether value is a nil pointer, slice, map, interface, func
// or channel. Values of any other kind are never absent.
func IsAbsent[T any](value T) bool {
	rv := reflect.ValueOf(any(value))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// IsEmpty reports whether value is absent or, after following pointers, a
// string, slice, map or array of length zero.
func IsEmpty[T any](value T) bool {
	if IsAbsent(value) {
		return true
	}
	rv := reflect.ValueOf(any(value))
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}

// Ptr returns a pointer to a copy of value, for Optional entries.
func Ptr[T any](value T) *T {
	return &value
}

// Constant returns a fallback supplier that always yields value. Each call
// returns a fresh copy, so callers may mutate slices, maps or pointees of
// the result without affecting later reads.
func Constant[T any](value T) func() T {
	value = copyOf(value)
	return func() T { return copyOf(value) }
}

// Deref returns *value, or the zero value when value is nil.
func Deref[T any](value *T) T {
	if value == nil {
		var zero T
		return zero
	}
	return *value
}

// copyOf returns value with its pointer, slice, map, array and interface
// storage duplicated. Struct fields are copied by value.
func copyOf[T any](value T) T {
	rv := reflect.ValueOf(&value).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Array, reflect.Interface:
	default:
		return value
	}
	out := reflect.New(rv.Type()).Elem()
	out.Set(deepCopy(rv))
	return *out.Addr().Interface().(*T)
}

func deepCopy(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(deepCopy(rv.Elem()))
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(deepCopy(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := range rv.Len() {
			out.Index(i).Set(deepCopy(rv.Index(i)))
		}
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(deepCopy(rv.Elem()))
		return out
	default:
		return rv
	}
}
