package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/kotyarick/ttgt-schedule-api/pkg/errors"
	"github.com/kotyarick/ttgt-schedule-api/pkg/storage"
)

// FileStore keeps each key as a JSON file under a local storage directory.
type FileStore struct {
	fs *storage.LocalStorage
}

// NewFileStore wraps the provided local storage.
func NewFileStore(localFS *storage.LocalStorage) *FileStore {
	return &FileStore{fs: localFS}
}

// Get reads and unmarshals the file backing the key.
func (s *FileStore) Get(_ context.Context, key string, dest interface{}) error {
	data, err := s.fs.Load(fileName(key))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.ErrCacheMiss
		}
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal stored value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the value and writes it to the file backing the key.
func (s *FileStore) Set(_ context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}
	if _, err := s.fs.Save(fileName(key), payload); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Delete removes the file backing the key if present.
func (s *FileStore) Delete(_ context.Context, key string) error {
	return s.fs.Delete(fileName(key))
}

func fileName(key string) string {
	return strings.ReplaceAll(key, ":", "_") + ".json"
}
