package prefs

import "github.com/goliatone/go-prefs/pkg/store"

// Storable maps a value type onto the primitive shapes a store understands.
// Reads that fail for any reason report false; writes of nil remove the key.
type Storable[T any] interface {
	Get(s store.Store, key string) (T, bool)
	GetList(s store.Store, key string) ([]T, bool)
	Set(s store.Store, key string, value *T)
	SetList(s store.Store, key string, values *[]T)
}

// Marshaller is a Storable that can also convert a single value to and from a
// primitive without touching a store. Custom, SliceOf and MapOf compose over
// it.
type Marshaller[T any] interface {
	Storable[T]
	Encode(value T) (store.Primitive, bool)
	Decode(p store.Primitive) (T, bool)
}

// codec implements Marshaller from an element encode/decode pair. A list is
// stored as a store.List of encoded elements. When lenient is set, list reads
// skip elements that fail to decode; otherwise one bad element fails the read.
//
// An element that fails to encode removes the key, so the next read is absent.
type codec[T any] struct {
	encode  func(T) (store.Primitive, bool)
	decode  func(store.Primitive) (T, bool)
	lenient bool
}

func (c codec[T]) Encode(value T) (store.Primitive, bool) { return c.encode(value) }

func (c codec[T]) Decode(p store.Primitive) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return c.decode(p)
}

func (c codec[T]) Get(s store.Store, key string) (T, bool) {
	p, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return c.Decode(p)
}

func (c codec[T]) GetList(s store.Store, key string) ([]T, bool) {
	p, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	return decodeList(p, c.Decode, c.lenient)
}

func (c codec[T]) Set(s store.Store, key string, value *T) {
	if value == nil {
		s.Remove(key)
		return
	}
	p, ok := c.encode(*value)
	if !ok {
		s.Remove(key)
		return
	}
	s.Set(key, p)
}

func (c codec[T]) SetList(s store.Store, key string, values *[]T) {
	if values == nil {
		s.Remove(key)
		return
	}
	p, ok := encodeList(*values, c.encode)
	if !ok {
		s.Remove(key)
		return
	}
	s.Set(key, p)
}

func decodeList[T any](p store.Primitive, decode func(store.Primitive) (T, bool), lenient bool) ([]T, bool) {
	list, ok := p.(store.List)
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(list))
	for _, item := range list {
		value, ok := decode(item)
		if !ok {
			if lenient {
				continue
			}
			return nil, false
		}
		out = append(out, value)
	}
	return out, true
}

func encodeList[T any](values []T, encode func(T) (store.Primitive, bool)) (store.List, bool) {
	out := make(store.List, len(values))
	for i, value := range values {
		p, ok := encode(value)
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}
