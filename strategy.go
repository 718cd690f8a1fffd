package prefs

// Strategy decides what a read yields when the store holds nothing for a key,
// and carries the transform chain and change callback of an entry. V is the
// stored shape picked by the quantifier; R is what callers see.
//
// Build one with Optional or Ensured. Chaining methods on Entry return copies
// with a wrapped transform or a replaced callback; a Strategy is never
// mutated in place.
type Strategy[V, R any] struct {
	ensured   bool
	lift      func(stored V, ok bool) R
	lower     func(value R) (V, bool)
	transform func(R) R
	didSet    func(newValue, oldValue R)
}

// Optional keeps absence visible: R is *V and a missing key reads as nil.
func Optional[V any]() Strategy[V, *V] {
	return Strategy[V, *V]{
		lift: func(stored V, ok bool) *V {
			if !ok {
				return nil
			}
			return &stored
		},
		lower: func(value *V) (V, bool) {
			if value == nil {
				var zero V
				return zero, false
			}
			return *value, true
		},
		transform: Pure[*V],
	}
}

// Ensured never reads as absent: a missing key resolves to fallback(), which
// is called again on every read. A nil fallback yields the zero value.
func Ensured[V any](fallback func() V) Strategy[V, V] {
	if fallback == nil {
		fallback = func() V {
			var zero V
			return zero
		}
	}
	return Strategy[V, V]{
		ensured: true,
		lift: func(stored V, ok bool) V {
			if !ok {
				return fallback()
			}
			return stored
		},
		lower: func(value V) (V, bool) {
			return value, true
		},
		transform: Pure[V],
	}
}

// IsEnsured reports whether reads fall back instead of surfacing absence.
func (s Strategy[V, R]) IsEnsured() bool {
	return s.ensured
}

// Resolve turns a store read into the caller-visible value: the stored value
// or the strategy's absent value, passed through the transform chain.
func (s Strategy[V, R]) Resolve(stored V, ok bool) R {
	return s.transform(s.lift(stored, ok))
}

// Transform applies the accumulated transform chain.
func (s Strategy[V, R]) Transform(value R) R {
	return s.transform(value)
}

// HasDidSet reports whether a change callback is attached.
func (s Strategy[V, R]) HasDidSet() bool {
	return s.didSet != nil
}

// withRule hands out a copy of use on every substitution so a caller that
// mutates one result cannot change what the rule yields next.
func (s Strategy[V, R]) withRule(when func(R) bool, use R) Strategy[V, R] {
	prior := s.transform
	use = copyOf(use)
	s.transform = func(value R) R {
		resolved := prior(value)
		if when(resolved) {
			return copyOf(use)
		}
		return resolved
	}
	return s
}

func (s Strategy[V, R]) withDidSet(callback func(newValue, oldValue R)) Strategy[V, R] {
	s.didSet = callback
	return s
}
