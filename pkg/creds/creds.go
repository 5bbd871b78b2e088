// Package creds resolves the Gemini API key. The local store is
// checked first so a saved key wins over the environment, matching how
// the key is entered once and reused across runs.
package creds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar is the environment fallback for the API key.
const EnvVar = "GEMINI_API_KEY"

// ErrMissing is returned when no key is configured anywhere. The
// message tells the user how to fix it.
var ErrMissing = errors.New("no Gemini API key configured: run 'mahir set-key' or set " + EnvVar)

const keyFile = "api_key"

// Store persists the API key under a config directory.
type Store struct {
	dir string
}

// DefaultStore keeps the key under the user config directory.
func DefaultStore() *Store {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return &Store{dir: filepath.Join(base, "mahir")}
}

// NewStore uses dir instead of the default location.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Lookup returns the stored key, falling back to the environment.
// Returns ErrMissing when neither is set.
func (s *Store) Lookup() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			return key, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read stored key: %w", err)
	}

	if key := strings.TrimSpace(os.Getenv(EnvVar)); key != "" {
		return key, nil
	}
	return "", ErrMissing
}

// Save writes the key with owner-only permissions.
func (s *Store) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, keyFile), []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	return nil
}

// Clear removes the stored key. Clearing an absent key is not an
// error.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, keyFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stored key: %w", err)
	}
	return nil
}
