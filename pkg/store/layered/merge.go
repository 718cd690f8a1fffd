package layered

import "github.com/goliatone/go-prefs/pkg/store"

// MergePrimitives composes values ordered strongest to weakest. Map values
// are merged key by key, recursively, so stronger layers keep their explicit
// entries while weaker layers fill the gaps. Any other shape is taken whole
// from the strongest value present. Nil entries are skipped.
func MergePrimitives(values ...store.Primitive) store.Primitive {
	var merged store.Primitive
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] == nil {
			continue
		}
		merged = mergePrimitive(values[i], merged)
	}
	return merged
}

func mergePrimitive(strong, weak store.Primitive) store.Primitive {
	strongMap, ok := strong.(store.Map)
	if !ok {
		return store.Clone(strong)
	}
	weakMap, ok := weak.(store.Map)
	if !ok {
		return store.Clone(strong)
	}

	result := make(store.Map, len(weakMap)+len(strongMap))
	for key, value := range weakMap {
		result[key] = store.Clone(value)
	}
	for key, value := range strongMap {
		if existing, ok := result[key]; ok {
			result[key] = mergePrimitive(value, existing)
			continue
		}
		result[key] = store.Clone(value)
	}
	return result
}

// Merged returns key merged across every layer that holds it. Unlike Get,
// map values from weaker layers contribute entries the stronger map lacks.
func (s *Store) Merged(key string) (store.Primitive, bool) {
	values := make([]store.Primitive, 0, len(s.layers))
	for _, layer := range s.layers {
		if value, ok := layer.Store.Get(key); ok {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return nil, false
	}
	return MergePrimitives(values...), true
}
