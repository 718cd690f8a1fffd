package prefs

import "github.com/goliatone/go-prefs/pkg/store"

// Entry is a typed accessor bound to one key in one store. It is a small
// immutable value: Ensure, WhenNil, EnsureRule and DidSet return new entries
// that share the key and the store, and the receiver is left unchanged.
//
// Change callbacks read the value before a mutation and again after it. None
// of this is atomic: if something else writes the same key between those
// steps, the reported old/new pair can be stale. Use a store with its own
// locking if entries are shared across goroutines, and accept that the pair
// is a best-effort view.
type Entry[V, R any] struct {
	key        string
	store      store.Store
	quantifier Quantifier[V]
	strategy   Strategy[V, R]
}

// Aliases for the four quantifier and strategy combinations.
type (
	OptionalEntry[T any]     = Entry[T, *T]
	OptionalListEntry[T any] = Entry[[]T, *[]T]
	EnsuredEntry[T any]      = Entry[T, T]
	EnsuredListEntry[T any]  = Entry[[]T, []T]
)

// NewEntry binds key in s to a quantifier and a strategy. Most callers use the
// Value constructors on Defaults instead.
func NewEntry[V, R any](key string, s store.Store, quantifier Quantifier[V], strategy Strategy[V, R]) Entry[V, R] {
	return Entry[V, R]{
		key:        key,
		store:      s,
		quantifier: quantifier,
		strategy:   strategy,
	}
}

// Key returns the store key.
func (e Entry[V, R]) Key() string {
	return e.key
}

// Store returns the backing store.
func (e Entry[V, R]) Store() store.Store {
	return e.store
}

// Strategy returns the resolution strategy, including the transform chain.
func (e Entry[V, R]) Strategy() Strategy[V, R] {
	return e.strategy
}

// Value reads the key and resolves it through the strategy and the transform
// chain.
func (e Entry[V, R]) Value() R {
	stored, ok := e.quantifier.read(e.store, e.key)
	return e.strategy.Resolve(stored, ok)
}

// SetValue passes value through the transform chain and writes the result.
// An Optional entry whose transformed value is nil removes the key.
func (e Entry[V, R]) SetValue(value R) {
	e.withDidSet(func() {
		lowered, ok := e.strategy.lower(e.strategy.Transform(value))
		if !ok {
			e.quantifier.write(e.store, e.key, nil)
			return
		}
		e.quantifier.write(e.store, e.key, &lowered)
	})
}

// Clear removes the raw key without consulting the transform chain. The
// change callback still sees the value a read now returns, which for an
// Ensured entry is the transformed fallback.
func (e Entry[V, R]) Clear() {
	e.withDidSet(func() {
		e.store.Remove(e.key)
	})
}

// Reset removes the key.
//
// Deprecated: use Clear.
func (e Entry[V, R]) Reset() {
	e.Clear()
}

// Ensure returns an entry whose transform first applies the current chain and
// then substitutes use whenever when matches the result. Rules run in the
// order they were added.
func (e Entry[V, R]) Ensure(when func(R) bool, use R) Entry[V, R] {
	if when == nil {
		return e
	}
	e.strategy = e.strategy.withRule(when, use)
	return e
}

// WhenNil is Ensure(IsAbsent[R], use).
func (e Entry[V, R]) WhenNil(use R) Entry[V, R] {
	return e.Ensure(IsAbsent[R], use)
}

// DidSet returns an entry that reports every SetValue and Clear to callback
// as (new, old). It replaces any callback set earlier; nil detaches it.
func (e Entry[V, R]) DidSet(callback func(newValue, oldValue R)) Entry[V, R] {
	e.strategy = e.strategy.withDidSet(callback)
	return e
}

func (e Entry[V, R]) withDidSet(mutate func()) {
	callback := e.strategy.didSet
	if callback == nil {
		mutate()
		return
	}
	oldValue := e.Value()
	mutate()
	callback(e.Value(), oldValue)
}
