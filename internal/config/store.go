package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"multi-transcriber/internal/domain"
)

// Store defines persistence operations for user preferences.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists preferences in a single JSON file on disk.
type JSONStore struct {
	path     string
	defaults domain.Settings
}

// NewJSONStore creates a JSON-backed store that falls back to defaults.
func NewJSONStore(path string, defaults domain.Settings) *JSONStore {
	return &JSONStore{path: path, defaults: defaults}
}

// Load reads preferences from disk or returns defaults when missing.
// Fields absent from the file keep their default values.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.defaults, nil
		}

		return domain.Settings{}, err
	}

	cfg := s.defaults
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, err
	}

	return cfg, nil
}

// Save writes preferences as indented JSON through a temp file renamed
// over the target, creating parent directories as needed.
func (s *JSONStore) Save(cfg domain.Settings) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
