// Package kvstore provides the persistent key-value area used for credentials,
// the default list handle and the cached task snapshot.
//
// Values are opaque strings; structured values are JSON-encoded by callers.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"todosync/internal/config"
)

// Well-known keys.
const (
	KeyAccessToken   = "google_access_token"
	KeyUserInfo      = "user_info"
	KeyDefaultListID = "default_tasklist_id"
	KeyTodosCache    = "google_todos_cache"
	KeyOAuthState    = "oauth_state"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("key not found")

// Store is a persistent string key-value area.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

// Open returns the store selected by cfg.Store.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		return OpenSQLite(cfg.SQLitePath())
	case config.StoreFile, "":
		return NewFileStore(cfg.StorePath()), nil
	default:
		return nil, fmt.Errorf("unknown store: %s", cfg.Store)
	}
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

// Get implements Store.
func (m *MemStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (m *MemStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close implements Store.
func (m *MemStore) Close() error { return nil }

// Len returns the number of stored keys.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
