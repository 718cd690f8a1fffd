package prefs

import (
	"github.com/goliatone/go-prefs/pkg/store"
	"github.com/goliatone/go-prefs/pkg/store/layered"
)

// RegisterDefaults stacks s over a read-only registration layer seeded with
// defaults. Reads fall through to the registered value when s lacks a key;
// writes and removals only touch s, so clearing an entry exposes its
// registered default again. A nil s is replaced by a MemoryStore.
func RegisterDefaults(s store.Store, defaults map[string]store.Primitive, opts ...layered.Option) (*layered.Store, error) {
	if s == nil {
		s = store.NewMemoryStore()
	}
	return layered.New([]layered.Layer{
		layered.NewLayer(layered.NewScope("app", layered.PriorityApp, layered.WithScopeLabel("Application")), s),
		layered.Registration(defaults),
	}, opts...)
}
