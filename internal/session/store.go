// Package session holds the single bearer credential of the client.
//
// The store is injected rather than read from ambient global state so tests
// can substitute the in-memory implementation.
package session

import "sync"

// Store is the process-wide credential store. Exactly one token is live at
// a time. Get returns an empty string (not an error) when no token exists;
// callers that require authentication convert absence into a precondition
// failure before any network call.
type Store interface {
	Set(token string) error
	Get() (string, error)
	Clear() error
}

// MemStore is the in-memory Store used in tests and for ephemeral sessions.
type MemStore struct {
	mu    sync.Mutex
	token string
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
