// Package sqlite implements a store.Store over a single SQLite table. Each
// key holds one row whose value column is the JSON envelope from
// internal/wire.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-prefs/internal/wire"
	"github.com/goliatone/go-prefs/pkg/store"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

const schema = `CREATE TABLE IF NOT EXISTS prefs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

type config struct {
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Option configures Open.
type Option func(*config)

// WithLogger sets the logger used for query failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithTimeout bounds every statement. Defaults to five seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClock overrides the updated_at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Store is a SQLite-backed store.Store.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	err    error
	closed bool
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Lister   = (*Store)(nil)
	_ store.Healther = (*Store)(nil)
)

// Open opens (or creates) the database at path and ensures the prefs table.
// Pass Memory for an in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{logger: slog.Default(), timeout: 5 * time.Second, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// A single connection keeps :memory: databases shared and avoids
	// "database is locked" on files.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: busy timeout: %w", err)
	}
	if path != Memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: journal mode: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create table: %w", err)
	}

	return &Store{
		db:      db,
		logger:  cfg.logger,
		timeout: cfg.timeout,
		now:     cfg.now,
	}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection. Later calls record store.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) usable(op, key string) bool {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		s.fail(op, key, store.ErrClosed)
		return false
	}
	return true
}

func (s *Store) Get(key string) (store.Primitive, bool) {
	if !s.usable("get", key) {
		return nil, false
	}
	ctx, cancel := s.context()
	defer cancel()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM prefs WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.fail("get", key, err)
		return nil, false
	}
	value, err := wire.Unmarshal([]byte(payload))
	if err != nil {
		s.fail("decode", key, err)
		return nil, false
	}
	return value, true
}

func (s *Store) Set(key string, value store.Primitive) {
	if value == nil {
		s.Remove(key)
		return
	}
	if !s.usable("set", key) {
		return
	}
	payload, err := wire.Marshal(value)
	if err != nil {
		s.fail("encode", key, err)
		return
	}

	ctx, cancel := s.context()
	defer cancel()

	_, err = s.db.ExecContext(ctx, `INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(payload), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.fail("set", key, err)
		return
	}
	s.clear()
}

func (s *Store) Remove(key string) {
	if !s.usable("remove", key) {
		return
	}
	ctx, cancel := s.context()
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM prefs WHERE key = ?", key); err != nil {
		s.fail("remove", key, err)
		return
	}
	s.clear()
}

// Keys returns every stored key in ascending order.
func (s *Store) Keys() []string {
	if !s.usable("keys", "") {
		return nil
	}
	ctx, cancel := s.context()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM prefs ORDER BY key")
	if err != nil {
		s.fail("keys", "", err)
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			s.fail("keys", "", err)
			return nil
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		s.fail("keys", "", err)
		return nil
	}
	return keys
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(key string) (time.Time, bool) {
	ctx, cancel := s.context()
	defer cancel()

	var stamp string
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM prefs WHERE key = ?", key).Scan(&stamp)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail("updated_at", key, err)
		}
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Err returns the last query failure, cleared by the next successful write.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) fail(op, key string, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Warn("sqlite store operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err),
	)
}

func (s *Store) clear() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}
