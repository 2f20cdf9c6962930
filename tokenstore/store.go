// Package tokenstore persists the client session: the access token, the
// refresh token and the cached user profile. Reads are synchronous and the
// last write wins.
package tokenstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/rs/zerolog"
)

type Key string

const (
	AccessToken  Key = "access_token"
	RefreshToken Key = "refresh_token"
	User         Key = "user" // JSON encoded users.Profile
)

// Keys lists every key the session owns. Clearing a session deletes all of them.
var Keys = []Key{AccessToken, RefreshToken, User}

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Store is a durable key/value store. A missing key reads as "" with no error.
type Store interface {
	Get(key Key) (string, error)
	// SetMany writes all values together.
	SetMany(values map[Key]string) error
	Delete(keys ...Key) error
	Close() error
}

// Set writes a single key.
func Set(s Store, key Key, value string) error {
	return s.SetMany(map[Key]string{key: value})
}

// Clear deletes every session key.
func Clear(s Store) error {
	return s.Delete(Keys...)
}

// New opens the store selected by the configured driver. A sqlite store that
// cannot be opened falls back to a JSON file next to the requested path.
func New(cfg config.TokenStoreConfig, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(cfg.GetTokenStoreDriver())
	path := cfg.GetTokenStorePath()

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile, "":
		return NewFileStore(path)
	case DriverSQLite:
		s, err := NewSQLiteStore(path)
		if err == nil {
			return s, nil
		}
		fallback := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		log.Warn().Err(err).Str("path", fallback).Msg("tokenstore.sqlite.fallback")
		fs, fileErr := NewFileStore(fallback)
		if fileErr != nil {
			return nil, fmt.Errorf("all token stores failed - sqlite: %w, file: %v", err, fileErr)
		}
		return fs, nil
	default:
		return nil, errors.Wrapf(errors.ErrUnsupported, "token store driver %q", driver)
	}
}
