package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the session in a JSON document. The document is read once
// when the store is opened and rewritten atomically on every change.
type FileStore struct {
	path   string
	values map[Key]string
	lock   sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token store directory: %w", err)
	}

	fs := &FileStore{path: path, values: make(map[Key]string)}
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &fs.values); err != nil {
			return nil, fmt.Errorf("failed to decode token store %s: %w", path, err)
		}
	}
	return fs, nil
}

func (f *FileStore) Get(key Key) (string, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.values[key], nil
}

func (f *FileStore) SetMany(values map[Key]string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	for k, v := range values {
		f.values[k] = v
	}
	return f.flush()
}

func (f *FileStore) Delete(keys ...Key) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return f.flush()
}

func (f *FileStore) Close() error {
	return nil
}

// flush must be called with the write lock held.
func (f *FileStore) flush() error {
	b, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace token store: %w", err)
	}
	return nil
}
