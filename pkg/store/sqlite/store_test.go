package sqlite

import (
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-prefs/pkg/store"
)

func openMemory(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s, err := Open(Memory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetRemove(t *testing.T) {
	s := openMemory(t)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("count", store.Int(42))
	value, ok := s.Get("count")
	require.True(t, ok)
	assert.Equal(t, store.Int(42), value)

	s.Set("count", store.Int(43))
	value, _ = s.Get("count")
	assert.Equal(t, store.Int(43), value)

	s.Remove("count")
	_, ok = s.Get("count")
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestStore_NilSetRemoves(t *testing.T) {
	s := openMemory(t)
	s.Set("k", store.Text("v"))
	s.Set("k", nil)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_PreservesExtremes(t *testing.T) {
	s := openMemory(t)
	records := map[string]store.Primitive{
		"max":   store.Int(math.MaxInt64),
		"min":   store.Int(math.MinInt64),
		"inf":   store.Float(math.Inf(1)),
		"nan":   store.Float(math.NaN()),
		"zero":  store.Float(math.Copysign(0, -1)),
		"blob":  store.Data{0, 1, 254, 255},
		"text":  store.Text("quote ' and \"double\""),
		"list":  store.List{store.Bool(true), store.List{}},
		"map":   store.Map{"a": store.Map{"b": store.Int(-1)}},
		"empty": store.Text(""),
		"raw":   store.Text("a\xffb"),
	}
	for key, value := range records {
		s.Set(key, value)
	}
	require.NoError(t, s.Err())

	for key, want := range records {
		got, ok := s.Get(key)
		require.True(t, ok, key)
		assert.True(t, store.Equal(want, got), "%s: want %#v got %#v", key, want, got)
	}
}

func TestStore_KeysSorted(t *testing.T) {
	s := openMemory(t)
	assert.Empty(t, s.Keys())

	s.Set("b", store.Int(2))
	s.Set("a", store.Int(1))
	s.Set("c", store.Int(3))
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
}

func TestStore_UpdatedAtUsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)
	s := openMemory(t, WithClock(func() time.Time { return fixed }))

	s.Set("k", store.Bool(true))
	stamp, ok := s.UpdatedAt("k")
	require.True(t, ok)
	assert.True(t, fixed.Equal(stamp))

	_, ok = s.UpdatedAt("missing")
	assert.False(t, ok)
}

func TestStore_FilePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prefs.db")

	s, err := Open(path)
	require.NoError(t, err)
	s.Set("theme", store.Text("dark"))
	s.Set("tags", store.List{store.Text("a"), store.Text("b")})
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok := reopened.Get("theme")
	require.True(t, ok)
	assert.Equal(t, store.Text("dark"), value)
	assert.Equal(t, []string{"tags", "theme"}, reopened.Keys())
}

func TestStore_UseAfterClose(t *testing.T) {
	s, err := Open(Memory, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s.Set("k", store.Int(1))
	assert.ErrorIs(t, s.Err(), store.ErrClosed)

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.Nil(t, s.Keys())
}
