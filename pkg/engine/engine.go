// Package engine defines the port datavol uses to talk to the data engine
// that owns the storage directory, and a storage-backed adapter for it.
package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cuemby/datavol/pkg/storage"
)

// Engine is the data engine's view of its own storage.
type Engine interface {
	// ConfiguredPath returns the directory the engine currently reads and
	// writes, or "" when none has been configured yet.
	ConfiguredPath() (string, error)

	// MovableExtensions returns the file name suffixes that belong to the
	// engine's data set and must travel with it on migration.
	MovableExtensions() []string

	// SetConfiguredPath commits a new storage directory.
	SetConfiguredPath(path string) error
}

// StoreEngine implements Engine over a storage.Store and a fixed extension set.
type StoreEngine struct {
	store      storage.Store
	extensions []string

	mu sync.RWMutex
}

// NewStoreEngine creates an engine adapter. Extensions are copied.
func NewStoreEngine(store storage.Store, extensions []string) (*StoreEngine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext = strings.TrimSpace(ext); ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("at least one movable extension is required")
	}
	return &StoreEngine{store: store, extensions: exts}, nil
}

func (e *StoreEngine) ConfiguredPath() (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	path, err := e.store.GetConfiguredPath()
	if err != nil {
		return "", fmt.Errorf("failed to read configured path: %w", err)
	}
	return path, nil
}

func (e *StoreEngine) MovableExtensions() []string {
	return append([]string(nil), e.extensions...)
}

func (e *StoreEngine) SetConfiguredPath(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.SetConfiguredPath(path); err != nil {
		return fmt.Errorf("failed to commit configured path %s: %w", path, err)
	}
	return nil
}
