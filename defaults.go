package prefs

import (
	"log/slog"
	"sync"

	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/goliatone/go-prefs/pkg/store"
)

// Defaults is the shared handle entries are declared against: one backing
// store plus logging, rule and activity configuration. Defaults never closes
// or reconfigures its store.
type Defaults struct {
	store   store.Store
	cfg     config
	emitter *activity.Emitter

	evalMu sync.Mutex
}

// New wraps s. A nil store is replaced by an empty MemoryStore.
func New(s store.Store, opts ...Option) *Defaults {
	if s == nil {
		s = store.NewMemoryStore()
	}
	cfg := applyOptions(opts)
	return &Defaults{
		store:   s,
		cfg:     cfg,
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
	}
}

var (
	standardMu sync.RWMutex
	standard   = New(store.NewMemoryStore())
)

// Standard returns the process-wide Defaults. It starts out backed by a
// MemoryStore.
func Standard() *Defaults {
	standardMu.RLock()
	defer standardMu.RUnlock()
	return standard
}

// SetStandard replaces the process-wide Defaults and returns the previous
// one. A nil d is ignored.
func SetStandard(d *Defaults) *Defaults {
	standardMu.Lock()
	defer standardMu.Unlock()
	previous := standard
	if d != nil {
		standard = d
	}
	return previous
}

func resolve(d *Defaults) *Defaults {
	if d == nil {
		return Standard()
	}
	return d
}

// Store returns the backing store.
func (d *Defaults) Store() store.Store {
	return resolve(d).store
}

// Logger returns the configured structured logger.
func (d *Defaults) Logger() *slog.Logger {
	return resolve(d).cfg.logger
}

// Remove deletes key from the backing store without notifying any entry.
func (d *Defaults) Remove(key string) {
	resolve(d).store.Remove(key)
}

// Keys lists the stored keys when the backing store can enumerate them.
func (d *Defaults) Keys() ([]string, bool) {
	lister, ok := resolve(d).store.(store.Lister)
	if !ok {
		return nil, false
	}
	return lister.Keys(), true
}

// Has reports whether key holds any primitive.
func (d *Defaults) Has(key string) bool {
	_, ok := resolve(d).store.Get(key)
	return ok
}

// Value declares an optional entry of a basic type.
func Value[T Basic](d *Defaults, key string) OptionalEntry[T] {
	return ValueOf(d, key, Default[T]())
}

// ValueOf declares an optional entry using m.
func ValueOf[T any](d *Defaults, key string, m Storable[T]) OptionalEntry[T] {
	return NewEntry(key, resolve(d).store, Single(m), Optional[T]())
}

// ListValue declares an optional list entry of a basic type.
func ListValue[T Basic](d *Defaults, key string) OptionalListEntry[T] {
	return ListValueOf(d, key, Default[T]())
}

// ListValueOf declares an optional list entry using m.
func ListValueOf[T any](d *Defaults, key string, m Storable[T]) OptionalListEntry[T] {
	return NewEntry(key, resolve(d).store, List(m), Optional[[]T]())
}

// EnsuredValue declares an entry of a basic type that reads as fallback()
// when absent.
func EnsuredValue[T Basic](d *Defaults, key string, fallback func() T) EnsuredEntry[T] {
	return EnsuredValueOf(d, key, Default[T](), fallback)
}

// EnsuredValueOf declares an ensured entry using m.
func EnsuredValueOf[T any](d *Defaults, key string, m Storable[T], fallback func() T) EnsuredEntry[T] {
	return NewEntry(key, resolve(d).store, Single(m), Ensured(fallback))
}

// EnsuredListValue declares a list entry of a basic type that reads as
// fallback() when absent.
func EnsuredListValue[T Basic](d *Defaults, key string, fallback func() []T) EnsuredListEntry[T] {
	return EnsuredListValueOf(d, key, Default[T](), fallback)
}

// EnsuredListValueOf declares an ensured list entry using m.
func EnsuredListValueOf[T any](d *Defaults, key string, m Storable[T], fallback func() []T) EnsuredListEntry[T] {
	return NewEntry(key, resolve(d).store, List(m), Ensured(fallback))
}

// ActivityHooks returns a copy of the configured activity hooks.
func (d *Defaults) ActivityHooks() activity.Hooks {
	return cloneActivityHooks(resolve(d).cfg.activityHooks)
}
