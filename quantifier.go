package prefs

import "github.com/goliatone/go-prefs/pkg/store"

// Quantifier fixes whether an entry holds one value or an ordered list of
// values. The only implementations are Single and List.
type Quantifier[V any] interface {
	// Shape reports "single" or "list".
	Shape() string

	read(s store.Store, key string) (V, bool)
	write(s store.Store, key string, value *V)
}

// Single selects the single-value path of m.
func Single[T any](m Storable[T]) Quantifier[T] {
	return single[T]{m: m}
}

// List selects the list path of m; the logical value is []T.
func List[T any](m Storable[T]) Quantifier[[]T] {
	return list[T]{m: m}
}

type single[T any] struct {
	m Storable[T]
}

func (single[T]) Shape() string { return "single" }

func (q single[T]) read(s store.Store, key string) (T, bool) {
	return q.m.Get(s, key)
}

func (q single[T]) write(s store.Store, key string, value *T) {
	q.m.Set(s, key, value)
}

type list[T any] struct {
	m Storable[T]
}

func (list[T]) Shape() string { return "list" }

func (q list[T]) read(s store.Store, key string) ([]T, bool) {
	return q.m.GetList(s, key)
}

func (q list[T]) write(s store.Store, key string, values *[]T) {
	q.m.SetList(s, key, values)
}
