package layered

import (
	"encoding/json"

	"github.com/goliatone/go-prefs/internal/wire"
	"github.com/goliatone/go-prefs/pkg/store"
)

// Trace captures how each layer answered a key lookup, strongest first.
type Trace struct {
	Key    string       `json:"key"`
	Layers []Provenance `json:"layers"`
}

// Provenance details one layer's answer for a traced key.
type Provenance struct {
	Scope    Scope           `json:"scope"`
	ReadOnly bool            `json:"read_only,omitempty"`
	Value    store.Primitive `json:"-"`
	Found    bool            `json:"found"`
}

// Trace reports every layer's value for key, not just the winner.
func (s *Store) Trace(key string) Trace {
	trace := Trace{Key: key, Layers: make([]Provenance, 0, len(s.layers))}
	for _, layer := range s.layers {
		value, ok := layer.Store.Get(key)
		trace.Layers = append(trace.Layers, Provenance{
			Scope:    layer.Scope.clone(),
			ReadOnly: layer.ReadOnly,
			Value:    value,
			Found:    ok,
		})
	}
	return trace
}

// Winner returns the provenance that Get would answer from.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

type provenanceJSON struct {
	Scope    Scope       `json:"scope"`
	ReadOnly bool        `json:"read_only,omitempty"`
	Value    *wire.Value `json:"value,omitempty"`
	Found    bool        `json:"found"`
}

type traceJSON struct {
	Key    string           `json:"key"`
	Layers []provenanceJSON `json:"layers"`
}

// ToJSON serialises the trace, values included, for logging or tooling.
func (t Trace) ToJSON() ([]byte, error) {
	out := traceJSON{Key: t.Key, Layers: make([]provenanceJSON, len(t.Layers))}
	for i, layer := range t.Layers {
		entry := provenanceJSON{Scope: layer.Scope, ReadOnly: layer.ReadOnly, Found: layer.Found}
		if layer.Value != nil {
			value, err := wire.Encode(layer.Value)
			if err != nil {
				return nil, err
			}
			entry.Value = &value
		}
		out.Layers[i] = entry
	}
	return json.Marshal(out)
}

// TraceFromJSON parses a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	var in traceJSON
	if err := json.Unmarshal(payload, &in); err != nil {
		return Trace{}, err
	}
	trace := Trace{Key: in.Key, Layers: make([]Provenance, len(in.Layers))}
	for i, layer := range in.Layers {
		entry := Provenance{Scope: layer.Scope, ReadOnly: layer.ReadOnly, Found: layer.Found}
		if layer.Value != nil {
			value, err := wire.Decode(*layer.Value)
			if err != nil {
				return Trace{}, err
			}
			entry.Value = value
		}
		trace.Layers[i] = entry
	}
	return trace, nil
}
