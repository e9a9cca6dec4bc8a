// Package storage is the local persistent key/value area the identity backend
// caches tokens in. The session manager treats its schema as opaque; on
// logout it only removes keys that look like backend session entries.
package storage

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrEmptyKey is returned when a key is blank.
var ErrEmptyKey = errors.New("key is required")

// Store is a flat string key/value store.
type Store interface {
	Keys() ([]string, error)
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Markers identify keys owned by the identity backend.
type Markers struct {
	Prefixes   []string
	Substrings []string
}

// Matches reports whether key is a backend session key.
func (m Markers) Matches(key string) bool {
	for _, p := range m.Prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return true
		}
	}
	for _, s := range m.Substrings {
		if s != "" && strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// Purge removes every key in store matched by markers. Storage errors are
// logged and swallowed; the number of removed keys is returned.
func Purge(store Store, markers Markers, logger zerolog.Logger) int {
	if store == nil {
		return 0
	}
	keys, err := store.Keys()
	if err != nil {
		logger.Warn().Err(err).Msg("storage purge: unable to list keys")
		return 0
	}
	removed := 0
	for _, key := range keys {
		if !markers.Matches(key) {
			continue
		}
		if err := store.Remove(key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("storage purge: unable to remove key")
			continue
		}
		removed++
	}
	logger.Debug().Int("removed", removed).Msg("storage purge complete")
	return removed
}
