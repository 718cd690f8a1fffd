package layered

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-prefs/pkg/store"
)

// Recommended priorities. Higher numbers win.
const (
	PriorityRegistration = 100
	PriorityGlobal       = 200
	PriorityApp          = 300
	PriorityArgument     = 400
)

// Scope models a named precedence bucket (registration, app, argument, ...).
// Higher priority values represent stronger layers.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches metadata to the scope. The map is copied.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to New so callers can
// assemble scopes before deciding precedence.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

func (s Scope) clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

// Layer pairs a scope with the store holding its values.
type Layer struct {
	Scope    Scope
	Store    store.Store
	ReadOnly bool
}

// LayerOption configures a layer.
type LayerOption func(*Layer)

// WithReadOnly keeps writes and removals away from the layer.
func WithReadOnly() LayerOption {
	return func(layer *Layer) {
		layer.ReadOnly = true
	}
}

// NewLayer constructs a Layer over s.
func NewLayer(scope Scope, s store.Store, opts ...LayerOption) Layer {
	layer := Layer{
		Scope: scope.clone(),
		Store: s,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&layer)
	}
	return layer
}

// Registration builds the read-only layer of fallback values consulted when
// no stronger layer has a key.
func Registration(defaults map[string]store.Primitive) Layer {
	return NewLayer(
		NewScope("registration", PriorityRegistration, WithScopeLabel("Registered Defaults")),
		store.NewMemoryStoreFrom(defaults),
		WithReadOnly(),
	)
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("layered: scope name must be provided")
	// ErrDuplicateScopeName indicates multiple layers share a scope name.
	ErrDuplicateScopeName = errors.New("layered: scope names must be unique")
	// ErrPriorityOrder indicates duplicate priorities.
	ErrPriorityOrder = errors.New("layered: priorities must be strictly ordered")
	// ErrNilStore indicates a layer without a store.
	ErrNilStore = errors.New("layered: layer store must not be nil")
	// ErrNoWritableLayer is retained when a write finds only read-only layers.
	ErrNoWritableLayer = errors.New("layered: no writable layer")
)

// sortLayers validates and orders layers strongest first.
func sortLayers(layers []Layer) ([]Layer, error) {
	seenNames := make(map[string]struct{}, len(layers))
	copied := make([]Layer, len(layers))
	for i, layer := range layers {
		layer.Scope = layer.Scope.clone()
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if layer.Store == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilStore, layer.Scope.Name)
		}
		if _, ok := seenNames[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seenNames[layer.Scope.Name] = struct{}{}
		copied[i] = layer
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return copied, nil
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
