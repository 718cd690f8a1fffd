// Package layered implements a search-list store: reads walk named layers from
// the strongest priority to the weakest and return the first hit, while
// writes land in the strongest writable layer. A key removed from the
// writable layer shows through to weaker layers again.
package layered

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/goliatone/go-prefs/pkg/store"
)

// Option configures a layered Store.
type Option func(*Store)

// WithLogger sets the logger used for dropped writes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is an immutable stack of layers. The stack is fixed at construction;
// the layer stores themselves stay mutable.
type Store struct {
	layers []Layer
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Lister   = (*Store)(nil)
	_ store.Healther = (*Store)(nil)
)

// New validates and orders layers strongest first.
func New(layers []Layer, opts ...Option) (*Store, error) {
	ordered, err := sortLayers(layers)
	if err != nil {
		return nil, err
	}
	s := &Store{layers: ordered, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Layers returns a copy of the layers, strongest first.
func (s *Store) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	for i, layer := range s.layers {
		layer.Scope = layer.Scope.clone()
		out[i] = layer
	}
	return out
}

// Len returns the number of layers.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Get returns the value from the strongest layer holding key.
func (s *Store) Get(key string) (store.Primitive, bool) {
	for _, layer := range s.layers {
		if value, ok := layer.Store.Get(key); ok {
			return value, true
		}
	}
	return nil, false
}

// Set writes to the strongest writable layer.
func (s *Store) Set(key string, value store.Primitive) {
	layer, ok := s.writable("set", key)
	if !ok {
		return
	}
	layer.Store.Set(key, value)
}

// Remove deletes key from the strongest writable layer only.
func (s *Store) Remove(key string) {
	layer, ok := s.writable("remove", key)
	if !ok {
		return
	}
	layer.Store.Remove(key)
}

// Keys returns the union of keys across layers that can list them.
func (s *Store) Keys() []string {
	seen := map[string]struct{}{}
	for _, layer := range s.layers {
		lister, ok := layer.Store.(store.Lister)
		if !ok {
			continue
		}
		for _, key := range lister.Keys() {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns the effective value of every listable key.
func (s *Store) Snapshot() map[string]store.Primitive {
	out := map[string]store.Primitive{}
	for _, key := range s.Keys() {
		if value, ok := s.Get(key); ok {
			out[key] = value
		}
	}
	return out
}

// Err returns the last dropped write, or the first error retained by a layer
// store.
func (s *Store) Err() error {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, layer := range s.layers {
		if healther, ok := layer.Store.(store.Healther); ok {
			if err := healther.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) writable(op, key string) (Layer, bool) {
	for _, layer := range s.layers {
		if !layer.ReadOnly {
			return layer, true
		}
	}
	s.mu.Lock()
	s.err = ErrNoWritableLayer
	s.mu.Unlock()
	s.logger.Warn("layered store dropped write", slog.String("op", op), slog.String("key", key))
	return Layer{}, false
}
