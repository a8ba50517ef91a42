package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/fentz26/tasklet/internal/snapshot"
	"github.com/rs/zerolog/log"
)

// FileStore persists the task list as one pretty-printed JSON snapshot.
type FileStore struct {
	path string
}

// NewFile returns a file-backed store writing to path.
func NewFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the snapshot file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the snapshot. A missing or unparseable file yields an empty list.
func (f *FileStore) Load(_ context.Context) (models.TaskList, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.TaskList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	list, err := snapshot.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("ignoring unreadable tasks file")
		return models.TaskList{}, nil
	}
	return list, nil
}

// Save atomically overwrites the snapshot file.
func (f *FileStore) Save(_ context.Context, list models.TaskList) error {
	data, err := snapshot.Encode(list, snapshot.FormatJSON)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace tasks file: %w", err)
	}
	return nil
}

// Close is a no-op; it lets FileStore share the SQLite store's lifecycle.
func (f *FileStore) Close() error {
	return nil
}
