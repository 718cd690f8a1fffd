package prefs

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/goliatone/go-prefs/internal/hydrate"
	"github.com/goliatone/go-prefs/pkg/store"
)

// Custom derives a marshaller for T from an intermediate marshaller. to maps a
// value into the intermediate shape; from maps it back and reports false when
// the intermediate does not describe a valid T. List reads drop elements that
// fail either the intermediate decode or from.
func Custom[T, I any](inner Marshaller[I], to func(T) I, from func(I) (T, bool)) Marshaller[T] {
	return codec[T]{
		encode: func(value T) (store.Primitive, bool) {
			return inner.Encode(to(value))
		},
		decode: func(p store.Primitive) (T, bool) {
			intermediate, ok := inner.Decode(p)
			if !ok {
				var zero T
				return zero, false
			}
			return from(intermediate)
		},
		lenient: true,
	}
}

// SliceOf stores a []T as a List of encoded elements, for entries whose value
// is itself a collection. Any element failing to decode fails the whole value.
func SliceOf[T any](elem Marshaller[T]) Marshaller[[]T] {
	return codec[[]T]{
		encode: func(values []T) (store.Primitive, bool) {
			return encodeList(values, elem.Encode)
		},
		decode: func(p store.Primitive) ([]T, bool) {
			return decodeList(p, elem.Decode, false)
		},
	}
}

// MapOf stores a map[string]T as a Map of encoded elements. Any element
// failing to decode fails the whole value.
func MapOf[T any](elem Marshaller[T]) Marshaller[map[string]T] {
	return codec[map[string]T]{
		encode: func(values map[string]T) (store.Primitive, bool) {
			out := make(store.Map, len(values))
			for key, value := range values {
				p, ok := elem.Encode(value)
				if !ok {
					return nil, false
				}
				out[key] = p
			}
			return out, true
		},
		decode: func(p store.Primitive) (map[string]T, bool) {
			m, ok := p.(store.Map)
			if !ok {
				return nil, false
			}
			out := make(map[string]T, len(m))
			for key, item := range m {
				value, ok := elem.Decode(item)
				if !ok {
					return nil, false
				}
				out[key] = value
			}
			return out, true
		},
	}
}

// RecordOption configures Record.
type RecordOption[T any] func(*recordConfig[T])

type recordConfig[T any] struct {
	decoderOpts []hydrate.DecoderOption[T]
}

// WithRecordValidation runs validate after every decode. A failing record
// reads as absent.
func WithRecordValidation[T any](validate func(*T) error) RecordOption[T] {
	return func(cfg *recordConfig[T]) {
		if validate == nil {
			return
		}
		cfg.decoderOpts = append(cfg.decoderOpts, hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return validate(value)
		}))
	}
}

// WithRecordMigration rewrites the generic payload before it is decoded, so
// records written under an older layout can still be read.
func WithRecordMigration[T any](migrate func(map[string]any) (map[string]any, error)) RecordOption[T] {
	return func(cfg *recordConfig[T]) {
		if migrate == nil {
			return
		}
		cfg.decoderOpts = append(cfg.decoderOpts, hydrate.WithPreHook[T](func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
			return migrate(payload)
		}))
	}
}

// WithStrictFields makes records carrying fields T does not declare read as
// absent.
func WithStrictFields[T any]() RecordOption[T] {
	return func(cfg *recordConfig[T]) {
		cfg.decoderOpts = append(cfg.decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
}

// Record stores a struct as a Map primitive through its JSON field layout.
// It is Custom over a map intermediate: JSON tags name the map keys, integers
// keep full int64 precision, and []byte fields are carried as base64 text.
// Null fields are omitted. Values that do not marshal to a JSON object, or
// that contain non-finite floats, cannot be stored.
func Record[T any](opts ...RecordOption[T]) Marshaller[T] {
	cfg := recordConfig[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	var zero T
	ctx := hydrate.Context{Name: fmt.Sprintf("%T", zero)}
	decoder := hydrate.NewDecoder[T](cfg.decoderOpts...)

	return Custom(recordMapCodec(),
		func(value T) map[string]any {
			payload, err := hydrate.Flatten(value)
			if err != nil {
				return nil
			}
			return payload
		},
		func(payload map[string]any) (T, bool) {
			out, err := decoder.Decode(ctx, payload)
			if err != nil {
				var zero T
				return zero, false
			}
			return out, true
		},
	)
}

// recordMapCodec converts generic JSON payloads to and from Map primitives.
func recordMapCodec() Marshaller[map[string]any] {
	return codec[map[string]any]{
		encode: func(payload map[string]any) (store.Primitive, bool) {
			if payload == nil {
				return nil, false
			}
			return genericToPrimitive(payload)
		},
		decode: func(p store.Primitive) (map[string]any, bool) {
			m, ok := p.(store.Map)
			if !ok {
				return nil, false
			}
			out, ok := primitiveToGeneric(m).(map[string]any)
			return out, ok
		},
	}
}

func genericToPrimitive(value any) (store.Primitive, bool) {
	switch v := value.(type) {
	case bool:
		return store.Bool(v), true
	case string:
		return store.Text(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return store.Int(i), true
		}
		f, err := v.Float64()
		if err != nil {
			return nil, false
		}
		return store.Float(f), true
	case []any:
		out := make(store.List, 0, len(v))
		for _, item := range v {
			p, ok := genericToPrimitive(item)
			if !ok {
				return nil, false
			}
			out = append(out, p)
		}
		return out, true
	case map[string]any:
		out := make(store.Map, len(v))
		for key, item := range v {
			if item == nil {
				continue
			}
			p, ok := genericToPrimitive(item)
			if !ok {
				return nil, false
			}
			out[key] = p
		}
		return out, true
	default:
		return nil, false
	}
}

func primitiveToGeneric(p store.Primitive) any {
	switch v := p.(type) {
	case store.Bool:
		return bool(v)
	case store.Int:
		return int64(v)
	case store.Float:
		f := float64(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		return f
	case store.Text:
		return string(v)
	case store.Data:
		return []byte(v)
	case store.List:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = primitiveToGeneric(item)
		}
		return out
	case store.Map:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = primitiveToGeneric(item)
		}
		return out
	default:
		return nil
	}
}
