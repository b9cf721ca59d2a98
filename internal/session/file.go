package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileBackend stores values as a JSON object in a single file.
// Every write replaces the file atomically before returning.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend creates a backend persisting to path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the session file location
func (b *FileBackend) Path() string {
	return b.path
}

// Get returns the value stored under key
func (b *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// Set stores value under key
func (b *FileBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return err
	}
	values[key] = value
	return b.write(values)
}

// Delete removes keys
func (b *FileBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(values, key)
	}
	return b.write(values)
}

func (b *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, errors.Wrap(err, "failed to read session file")
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session file")
	}
	return values, nil
}

func (b *FileBackend) write(values map[string]string) error {
	// Create directory if needed
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp session file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to set session file permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write session file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close session file")
	}

	return errors.Wrap(os.Rename(tmpName, b.path), "failed to replace session file")
}
