// Package store persists small named settings blobs (corner positions,
// colour sample positions) by key.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// ErrNotFound is returned by Load when nothing has been saved under a key.
var ErrNotFound = errors.New("store: key not found")

// Store loads and saves JSON-encodable values by key.
type Store interface {
	Load(key string, v any) error
	Save(key string, v any) error
	Close() error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("store: invalid key %q", key)
	}
	return nil
}

// FileStore keeps one indented JSON file per key in a directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// DefaultDir returns ~/.config/grid-decoder (or the platform equivalent).
func DefaultDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "grid-decoder")
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load decodes the value saved under key into v.
func (s *FileStore) Load(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	data, err := os.ReadFile(s.Path(key))
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Save encodes v and writes it under key, replacing any previous value.
func (s *FileStore) Save(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp := s.Path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path(key))
}

// Close is a no-op for file stores.
func (s *FileStore) Close() error {
	return nil
}
