// Package file implements a durable store kept in a single JSON, YAML or TOML
// document. The whole document is loaded at open and rewritten through a
// temp file and rename on every mutation.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-prefs/internal/wire"
	"github.com/goliatone/go-prefs/pkg/store"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned when the format cannot be derived from the
// file extension and none was given.
var ErrUnknownFormat = errors.New("file: unknown format")

// FormatFromPath maps .json, .yaml, .yml and .toml to a Format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

type config struct {
	format Format
	logger *slog.Logger
	perm   os.FileMode
}

// Option configures Open.
type Option func(*config)

// WithFormat overrides extension-based format detection.
func WithFormat(format Format) Option {
	return func(cfg *config) {
		cfg.format = format
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithPermissions sets the mode of the written file. Defaults to 0600.
func WithPermissions(perm os.FileMode) Option {
	return func(cfg *config) {
		cfg.perm = perm
	}
}

// Store is a file-backed store.Store. Reads are served from memory.
type Store struct {
	mu      sync.RWMutex
	path    string
	format  Format
	perm    os.FileMode
	logger  *slog.Logger
	records map[string]store.Primitive
	err     error
	closed  bool
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Lister   = (*Store)(nil)
	_ store.Healther = (*Store)(nil)
)

// Open loads path, creating its directory when needed. A missing file starts
// an empty store; it is created on the first mutation.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{logger: slog.Default(), perm: 0o600}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.format == "" {
		format, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		cfg.format = format
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("file: create directory: %w", err)
	}

	s := &Store{
		path:    path,
		format:  cfg.format,
		perm:    cfg.perm,
		logger:  cfg.logger,
		records: map[string]store.Primitive{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Format returns the document encoding.
func (s *Store) Format() Format {
	return s.format
}

func (s *Store) Get(key string) (store.Primitive, bool) {
	s.mu.RLock()
	value, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return store.Clone(value), true
}

func (s *Store) Set(key string, value store.Primitive) {
	if value == nil {
		s.Remove(key)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectClosed("set", key) {
		return
	}
	if s.rejectUnencodable(key, value) {
		return
	}
	s.records[key] = store.Clone(value)
	s.persist("set", key)
}

func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectClosed("remove", key) {
		return
	}
	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	s.persist("remove", key)
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Err returns the last persistence failure, cleared by the next successful
// write.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close stops accepting mutations. Reads keep serving the last state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.err
}

func (s *Store) rejectClosed(op, key string) bool {
	if !s.closed {
		return false
	}
	s.err = store.ErrClosed
	s.logger.Warn("file store used after close",
		slog.String("path", s.path),
		slog.String("op", op),
		slog.String("key", key),
	)
	return true
}

// rejectUnencodable keeps values the document cannot carry out of the
// in-memory state, so one bad write does not fail every later one.
func (s *Store) rejectUnencodable(key string, value store.Primitive) bool {
	_, err := wire.EncodeAll(map[string]store.Primitive{key: value})
	if err == nil {
		return false
	}
	s.err = err
	s.logger.Warn("file store rejected value",
		slog.String("path", s.path),
		slog.String("key", key),
		slog.Any("error", err),
	)
	return true
}

// Reload replaces the in-memory state with the file contents.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = map[string]store.Primitive{}
			return nil
		}
		return fmt.Errorf("file: read %s: %w", s.path, err)
	}
	envelopes, err := decodeDocument(s.format, data)
	if err != nil {
		return fmt.Errorf("file: parse %s: %w", s.path, err)
	}
	records, err := wire.DecodeAll(envelopes)
	if err != nil {
		return fmt.Errorf("file: decode %s: %w", s.path, err)
	}
	s.records = records
	return nil
}

// persist writes the document; caller must hold the write lock.
func (s *Store) persist(op, key string) {
	if err := s.writeLocked(); err != nil {
		s.err = err
		s.logger.Warn("file store write failed",
			slog.String("path", s.path),
			slog.String("op", op),
			slog.String("key", key),
			slog.Any("error", err),
		)
		return
	}
	s.err = nil
}

func (s *Store) writeLocked() error {
	envelopes, err := wire.EncodeAll(s.records)
	if err != nil {
		return err
	}
	data, err := encodeDocument(s.format, envelopes)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file: write temp: %w", err)
	}
	if err := tmp.Chmod(s.perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file: chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("file: rename: %w", err)
	}
	return nil
}

func encodeDocument(format Format, envelopes map[string]wire.Value) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(envelopes, "", "  ")
	case FormatYAML:
		return yaml.Marshal(envelopes)
	case FormatTOML:
		return toml.Marshal(envelopes)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func decodeDocument(format Format, data []byte) (map[string]wire.Value, error) {
	envelopes := map[string]wire.Value{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return envelopes, nil
	}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &envelopes)
	case FormatYAML:
		err = yaml.Unmarshal(data, &envelopes)
	case FormatTOML:
		err = toml.Unmarshal(data, &envelopes)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return envelopes, nil
}
