// ABOUTME: In-memory Store implementation for tests and ephemeral runs
// ABOUTME: Copies sessions on read/write so callers never share state

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with a mutex-guarded map. Sessions are
// copied on Get and Put so mutations outside the store don't leak in.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SwapSession
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*SwapSession),
	}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*SwapSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *SwapSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = time.Now()
	m.sessions[s.UserID] = copySession(s)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copySession(s *SwapSession) *SwapSession {
	c := *s
	if s.PendingRoute != nil {
		c.PendingRoute = append([]byte(nil), s.PendingRoute...)
	}
	return &c
}
