package prefs

import (
	"bytes"
	"encoding/gob"

	"github.com/goliatone/go-prefs/pkg/store"
)

// Archived returns a marshaller that stores T as a gob archive in a Data
// primitive. A list is archived as one blob rather than one blob per element.
// A blob that fails to decode as T reads as absent.
//
// Types that carry interface fields must be registered with gob.Register.
func Archived[T any]() Marshaller[T] {
	return archived[T]{}
}

type archived[T any] struct{}

func (archived[T]) Encode(value T) (store.Primitive, bool) {
	return archive(value)
}

func (archived[T]) Decode(p store.Primitive) (T, bool) {
	var out T
	ok := unarchive(p, &out)
	return out, ok
}

func (a archived[T]) Get(s store.Store, key string) (T, bool) {
	p, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return a.Decode(p)
}

func (archived[T]) GetList(s store.Store, key string) ([]T, bool) {
	p, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	var out []T
	if !unarchive(p, &out) {
		return nil, false
	}
	if out == nil {
		out = []T{}
	}
	return out, true
}

func (archived[T]) Set(s store.Store, key string, value *T) {
	if value == nil {
		s.Remove(key)
		return
	}
	writeArchive(s, key, *value)
}

func (archived[T]) SetList(s store.Store, key string, values *[]T) {
	if values == nil {
		s.Remove(key)
		return
	}
	writeArchive(s, key, *values)
}

func writeArchive(s store.Store, key string, value any) {
	p, ok := archive(value)
	if !ok {
		s.Remove(key)
		return
	}
	s.Set(key, p)
}

func archive(value any) (store.Primitive, bool) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, false
	}
	return store.Data(buf.Bytes()), true
}

func unarchive(p store.Primitive, target any) bool {
	data, ok := p.(store.Data)
	if !ok {
		return false
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(target) == nil
}
