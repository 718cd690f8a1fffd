package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	prefs "github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/goliatone/go-prefs/pkg/store"
	"github.com/goliatone/go-prefs/pkg/store/file"
	"github.com/goliatone/go-prefs/pkg/store/layered"
	"github.com/goliatone/go-prefs/pkg/store/sqlite"
)

// Store URI schemes.
const (
	SchemeMemory = "memory"
	SchemeFile   = "file"
	SchemeSQLite = "sqlite"
)

// ErrUnknownStore is returned for URIs that name no known backend.
var ErrUnknownStore = errors.New("cli: unknown store")

// StoreURI is a parsed --store value.
type StoreURI struct {
	Scheme string
	Path   string
}

func (u StoreURI) String() string {
	return u.Scheme + ":" + u.Path
}

// ParseStoreURI accepts memory:, file:PATH, sqlite:PATH or a bare path whose
// extension selects the backend.
func ParseStoreURI(raw string) (StoreURI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == SchemeMemory+":" {
		return StoreURI{Scheme: SchemeMemory}, nil
	}
	for _, scheme := range []string{SchemeFile, SchemeSQLite} {
		if path, ok := strings.CutPrefix(raw, scheme+":"); ok {
			if path == "" {
				return StoreURI{}, fmt.Errorf("%w: %q has no path", ErrUnknownStore, raw)
			}
			return StoreURI{Scheme: scheme, Path: path}, nil
		}
	}
	switch strings.ToLower(filepath.Ext(raw)) {
	case ".json", ".yaml", ".yml", ".toml":
		return StoreURI{Scheme: SchemeFile, Path: raw}, nil
	case ".db", ".sqlite", ".sqlite3":
		return StoreURI{Scheme: SchemeSQLite, Path: raw}, nil
	}
	return StoreURI{}, fmt.Errorf("%w: %q", ErrUnknownStore, raw)
}

// session is an opened store stack with its facade.
type session struct {
	uri      StoreURI
	stack    *layered.Store
	defaults *prefs.Defaults
	closers  []func() error
}

func openSession(opts *RootOptions, errOut io.Writer) (*session, error) {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	uri, err := ParseStoreURI(opts.Store)
	if err != nil {
		return nil, err
	}

	s := &session{uri: uri}
	primary, closer, err := openStore(uri, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	layers := []layered.Layer{
		layered.NewLayer(layered.NewScope(uri.Scheme, layered.PriorityApp, layered.WithScopeLabel(uri.String())), primary),
	}
	if opts.Defaults != "" {
		registered, err := file.Open(opts.Defaults, file.WithLogger(logger))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open defaults: %w", err)
		}
		layers = append(layers, layered.NewLayer(
			layered.NewScope("registration", layered.PriorityRegistration, layered.WithScopeLabel(opts.Defaults)),
			registered,
			layered.WithReadOnly(),
		))
	}

	stack, err := layered.New(layers, layered.WithLogger(logger))
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.stack = stack

	prefsOpts := []prefs.Option{
		prefs.WithLogger(logger),
		prefs.WithStoreName(uri.String()),
	}
	if opts.Verbose {
		prefsOpts = append(prefsOpts, prefs.WithActivityHooks(activity.Hooks{
			activity.HookFunc(func(_ context.Context, event activity.Event) error {
				logger.Info("activity",
					slog.String("verb", event.Verb),
					slog.String("key", event.ObjectID),
					slog.Any("metadata", event.Metadata),
				)
				return nil
			}),
		}))
	}
	s.defaults = prefs.New(stack, prefsOpts...)
	return s, nil
}

func openStore(uri StoreURI, logger *slog.Logger) (store.Store, func() error, error) {
	switch uri.Scheme {
	case SchemeMemory:
		return store.NewMemoryStore(), nil, nil
	case SchemeFile:
		fs, err := file.Open(uri.Path, file.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	case SchemeSQLite:
		db, err := sqlite.Open(uri.Path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStore, uri.Scheme)
	}
}

// Err reports the last persistence failure of any layer.
func (s *session) Err() error {
	return s.stack.Err()
}

// Close releases every opened backend.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
