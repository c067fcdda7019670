package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ytget/dit/internal/model"
	"github.com/ytget/dit/internal/platform"
)

// SessionStore persists session state as a JSON object. Keys it does not know
// about are preserved across saves.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store at path, or at the default dotfile when empty
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		path = platform.DefaultSessionPath()
	}
	return &SessionStore{path: path}
}

// Path returns the backing file path
func (s *SessionStore) Path() string {
	return s.path
}

// Load returns the stored object, or an empty one when the file is absent
func (s *SessionStore) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	stored := map[string]any{}
	if len(data) == 0 {
		return stored, nil
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSession, s.path, err)
	}
	return stored, nil
}

// LoadSession decodes the stored object into a SessionConfig
func (s *SessionStore) LoadSession() (model.SessionConfig, error) {
	stored, err := s.Load()
	if err != nil {
		return model.SessionConfig{}, err
	}
	return decodeSession(stored)
}

// Save merges cfg onto the stored object, drops falsy fields and writes the
// result with owner-only permissions.
func (s *SessionStore) Save(cfg model.SessionConfig) error {
	stored, err := s.Load()
	if err != nil {
		return err
	}

	update, err := encodeSession(cfg)
	if err != nil {
		return err
	}
	for k, v := range update {
		stored[k] = v
	}
	dropFalsy(stored)

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			return fmt.Errorf("prepare session directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, platform.PrivateFilePermissions); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(s.path, platform.PrivateFilePermissions); err != nil {
		return fmt.Errorf("restrict session file: %w", err)
	}
	return nil
}

func encodeSession(cfg model.SessionConfig) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return out, nil
}

func decodeSession(stored map[string]any) (model.SessionConfig, error) {
	var cfg model.SessionConfig
	data, err := json.Marshal(stored)
	if err != nil {
		return cfg, fmt.Errorf("decode session: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.SessionConfig{}, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return cfg, nil
}

// dropFalsy removes nulls, empty strings, false and zero numbers
func dropFalsy(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case string:
			if val == "" {
				delete(m, k)
			}
		case bool:
			if !val {
				delete(m, k)
			}
		case float64:
			if val == 0 {
				delete(m, k)
			}
		}
	}
}
