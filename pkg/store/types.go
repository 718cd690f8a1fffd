package store

import "errors"

// ErrClosed is returned by durable stores used after Close.
var ErrClosed = errors.New("store: closed")

// Store is the minimal key-value contract entries read and write through.
// Implementations are synchronous and process-local; a missing key reads as
// (nil, false). Implementations provide their own consistency for individual
// calls but nothing spans more than one call.
type Store interface {
	Get(key string) (Primitive, bool)
	Set(key string, value Primitive)
	Remove(key string)
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys() []string
}

// Healther is implemented by durable stores that retain the last persistence
// failure. The Store contract itself never reports errors.
type Healther interface {
	Err() error
}
