package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore keeps one session document in a YAML file
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes doc, replacing the previous session
func (s *FileStore) Save(doc Document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("error creating session directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the saved session
func (s *FileStore) Load() (Document, error) {
	var doc Document

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, ErrNoSession
	}
	if err != nil {
		return doc, fmt.Errorf("error reading session file: %w", err)
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("error parsing session file: %w", err)
	}
	return doc, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
