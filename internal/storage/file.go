package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a JSON-file-backed KV, the default backend for single-device
// use. The whole map is rewritten on every mutation; a corrupt file is
// treated as empty rather than refusing to start.
type File struct {
	path    string
	mu      sync.RWMutex
	entries map[string]string
}

var _ KV = (*File)(nil)

func NewFile(path string) (*File, error) {
	f := &File{
		path:    path,
		entries: make(map[string]string),
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read store: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &f.entries); err != nil {
				f.entries = make(map[string]string)
			}
		}
	}

	return f, nil
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return f.persist()
}

func (f *File) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return f.persist()
}

func (f *File) Keys(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.entries))
	for k := range f.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *File) RemoveMany(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.entries, k)
	}
	return f.persist()
}

// persist writes the map to disk. Callers must hold the write lock.
func (f *File) persist() error {
	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	return os.WriteFile(f.path, data, 0644)
}
