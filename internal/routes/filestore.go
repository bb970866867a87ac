package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists route collection snapshots to a JSON file on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store writing to path. The file is created on first Save.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("routes: file path required")
	}
	return &FileStore{path: path}, nil
}

// Path reports the snapshot location.
func (f *FileStore) Path() string { return f.path }

// Load reads the snapshot. A missing or empty file yields an empty collection.
func (f *FileStore) Load(context.Context) ([]Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Route{}, nil
		}
		return nil, fmt.Errorf("routes: read file: %w", err)
	}
	if len(data) == 0 {
		return []Route{}, nil
	}

	var routes []Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("routes: decode file: %w", err)
	}
	return routes, nil
}

// Save atomically replaces the snapshot on disk.
func (f *FileStore) Save(_ context.Context, routes []Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("routes: ensure directory: %w", err)
	}
	if routes == nil {
		routes = []Route{}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "routes-*.json")
	if err != nil {
		return fmt.Errorf("routes: create temp file: %w", err)
	}
	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(routes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("routes: encode file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("routes: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("routes: replace file: %w", err)
	}
	return nil
}
