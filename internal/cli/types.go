package cli

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	prefs "github.com/goliatone/go-prefs"
)

// valueType reads and writes one key through a typed entry.
type valueType interface {
	get(d *prefs.Defaults, key string, list bool) (any, bool)
	set(d *prefs.Defaults, key string, args []string, list bool) error
	match(d *prefs.Defaults, key, expression string, list bool) (bool, error)
}

type basicType[T prefs.Basic] struct {
	parse  func(string) (T, error)
	format func(T) any
}

func (b basicType[T]) get(d *prefs.Defaults, key string, list bool) (any, bool) {
	if list {
		values := prefs.ListValue[T](d, key).Value()
		if values == nil {
			return nil, false
		}
		out := make([]any, len(*values))
		for i, value := range *values {
			out[i] = b.format(value)
		}
		return out, true
	}
	value := prefs.Value[T](d, key).Value()
	if value == nil {
		return nil, false
	}
	return b.format(*value), true
}

func (b basicType[T]) set(d *prefs.Defaults, key string, args []string, list bool) error {
	if !list && len(args) != 1 {
		return fmt.Errorf("expected exactly one value, got %d", len(args))
	}
	parsed := make([]T, len(args))
	for i, arg := range args {
		value, err := b.parse(arg)
		if err != nil {
			return fmt.Errorf("parse %q: %w", arg, err)
		}
		parsed[i] = value
	}
	if list {
		prefs.ListValue[T](d, key).Observed(d).SetValue(&parsed)
		return nil
	}
	prefs.Value[T](d, key).Observed(d).SetValue(&parsed[0])
	return nil
}

func (b basicType[T]) match(d *prefs.Defaults, key, expression string, list bool) (bool, error) {
	if list {
		rule, err := prefs.NewRule[*[]T](d, expression)
		if err != nil {
			return false, err
		}
		return rule.Eval(key, prefs.ListValue[T](d, key).Value())
	}
	rule, err := prefs.NewRule[*T](d, expression)
	if err != nil {
		return false, err
	}
	return rule.Eval(key, prefs.Value[T](d, key).Value())
}

func identity[T any](value T) any {
	return value
}

var valueTypes = map[string]valueType{
	"bool": basicType[bool]{parse: strconv.ParseBool, format: identity[bool]},
	"int": basicType[int64]{
		parse:  func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		format: identity[int64],
	},
	"uint": basicType[uint64]{
		parse:  func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) },
		format: identity[uint64],
	},
	"float": basicType[float64]{
		parse:  func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		format: identity[float64],
	},
	"string": basicType[string]{
		parse:  func(s string) (string, error) { return s, nil },
		format: identity[string],
	},
	"data": basicType[[]byte]{
		parse:  base64.StdEncoding.DecodeString,
		format: func(b []byte) any { return base64.StdEncoding.EncodeToString(b) },
	},
	"time": basicType[time.Time]{
		parse:  func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) },
		format: func(t time.Time) any { return t.Format(time.RFC3339Nano) },
	},
}

// TypeNames lists the accepted --type values.
func TypeNames() []string {
	names := make([]string, 0, len(valueTypes))
	for name := range valueTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupType(name string) (valueType, error) {
	vt, ok := valueTypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown type %q: must be one of %s", name, strings.Join(TypeNames(), ", "))
	}
	return vt, nil
}
