// Package wire encodes store primitives into a tagged envelope that survives
// JSON, YAML, TOML and DynamoDB attribute maps without losing shape. Scalars
// are carried as text, so int64 extremes, non-finite floats, signed zero and
// binary payloads come back bit-for-bit. Text that is not valid UTF-8 is
// carried base64-encoded under the base64 encoding tag.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/goliatone/go-prefs/pkg/store"
)

var (
	// ErrUnknownType is returned when an envelope carries an unrecognised tag.
	ErrUnknownType = errors.New("wire: unknown value type")
	// ErrNilPrimitive is returned when encoding a nil primitive.
	ErrNilPrimitive = errors.New("wire: nil primitive")
	// ErrUnknownEncoding is returned when an envelope names an unrecognised
	// scalar encoding.
	ErrUnknownEncoding = errors.New("wire: unknown encoding")
	// ErrInvalidKey is returned for map or record keys that are not valid
	// UTF-8, which JSON, YAML and TOML cannot carry unchanged.
	ErrInvalidKey = errors.New("wire: key is not valid UTF-8")
)

// EncodingBase64 marks a text value stored as base64 because it is not valid
// UTF-8.
const EncodingBase64 = "base64"

// Value is the tagged envelope for a single primitive.
type Value struct {
	Type     string           `json:"type" yaml:"type" toml:"type" dynamodbav:"type"`
	Value    string           `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty" dynamodbav:"value,omitempty"`
	Encoding string           `json:"encoding,omitempty" yaml:"encoding,omitempty" toml:"encoding,omitempty" dynamodbav:"encoding,omitempty"`
	Items    []Value          `json:"items,omitempty" yaml:"items,omitempty" toml:"items,omitempty" dynamodbav:"items,omitempty"`
	Entries  map[string]Value `json:"entries,omitempty" yaml:"entries,omitempty" toml:"entries,omitempty" dynamodbav:"entries,omitempty"`
}

// Encode converts p into its envelope.
func Encode(p store.Primitive) (Value, error) {
	switch v := p.(type) {
	case nil:
		return Value{}, ErrNilPrimitive
	case store.Bool:
		return Value{Type: string(store.KindBool), Value: strconv.FormatBool(bool(v))}, nil
	case store.Int:
		return Value{Type: string(store.KindInt), Value: strconv.FormatInt(int64(v), 10)}, nil
	case store.Float:
		return Value{Type: string(store.KindFloat), Value: strconv.FormatFloat(float64(v), 'g', -1, 64)}, nil
	case store.Text:
		if !utf8.ValidString(string(v)) {
			return Value{
				Type:     string(store.KindText),
				Value:    base64.StdEncoding.EncodeToString([]byte(v)),
				Encoding: EncodingBase64,
			}, nil
		}
		return Value{Type: string(store.KindText), Value: string(v)}, nil
	case store.Data:
		return Value{Type: string(store.KindData), Value: base64.StdEncoding.EncodeToString(v)}, nil
	case store.List:
		out := Value{Type: string(store.KindList)}
		if len(v) > 0 {
			out.Items = make([]Value, len(v))
		}
		for i, item := range v {
			encoded, err := Encode(item)
			if err != nil {
				return Value{}, fmt.Errorf("wire: list item %d: %w", i, err)
			}
			out.Items[i] = encoded
		}
		return out, nil
	case store.Map:
		out := Value{Type: string(store.KindMap)}
		if len(v) > 0 {
			out.Entries = make(map[string]Value, len(v))
		}
		for key, item := range v {
			if !utf8.ValidString(key) {
				return Value{}, fmt.Errorf("%w: map entry %q", ErrInvalidKey, key)
			}
			encoded, err := Encode(item)
			if err != nil {
				return Value{}, fmt.Errorf("wire: map entry %q: %w", key, err)
			}
			out.Entries[key] = encoded
		}
		return out, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnknownType, p)
	}
}

// Decode converts an envelope back into a primitive.
func Decode(v Value) (store.Primitive, error) {
	switch store.Kind(v.Type) {
	case store.KindBool:
		b, err := strconv.ParseBool(v.Value)
		if err != nil {
			return nil, fmt.Errorf("wire: bool: %w", err)
		}
		return store.Bool(b), nil
	case store.KindInt:
		i, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("wire: int: %w", err)
		}
		return store.Int(i), nil
	case store.KindFloat:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("wire: float: %w", err)
		}
		return store.Float(f), nil
	case store.KindText:
		switch v.Encoding {
		case "":
			return store.Text(v.Value), nil
		case EncodingBase64:
			raw, err := base64.StdEncoding.DecodeString(v.Value)
			if err != nil {
				return nil, fmt.Errorf("wire: text: %w", err)
			}
			return store.Text(raw), nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, v.Encoding)
		}
	case store.KindData:
		data, err := base64.StdEncoding.DecodeString(v.Value)
		if err != nil {
			return nil, fmt.Errorf("wire: data: %w", err)
		}
		return store.Data(data), nil
	case store.KindList:
		out := make(store.List, len(v.Items))
		for i, item := range v.Items {
			decoded, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("wire: list item %d: %w", i, err)
			}
			out[i] = decoded
		}
		return out, nil
	case store.KindMap:
		out := make(store.Map, len(v.Entries))
		for key, item := range v.Entries {
			decoded, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("wire: map entry %q: %w", key, err)
			}
			out[key] = decoded
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, v.Type)
	}
}

// Marshal encodes p as envelope JSON.
func Marshal(p store.Primitive) ([]byte, error) {
	v, err := Encode(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Unmarshal decodes envelope JSON produced by Marshal.
func Unmarshal(data []byte) (store.Primitive, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("wire: unmarshal: %w", err)
	}
	return Decode(v)
}

// EncodeAll converts a record set into envelopes.
func EncodeAll(records map[string]store.Primitive) (map[string]Value, error) {
	out := make(map[string]Value, len(records))
	for key, p := range records {
		if !utf8.ValidString(key) {
			return nil, fmt.Errorf("%w: key %q", ErrInvalidKey, key)
		}
		v, err := Encode(p)
		if err != nil {
			return nil, fmt.Errorf("wire: key %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// DecodeAll converts envelopes back into a record set.
func DecodeAll(values map[string]Value) (map[string]store.Primitive, error) {
	out := make(map[string]store.Primitive, len(values))
	for key, v := range values {
		p, err := Decode(v)
		if err != nil {
			return nil, fmt.Errorf("wire: key %q: %w", key, err)
		}
		out[key] = p
	}
	return out, nil
}
