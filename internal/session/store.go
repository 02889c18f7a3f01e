// ABOUTME: Store interface for swap session persistence
// ABOUTME: Sessions are keyed by user id and survive process restarts

package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no session exists for a user.
var ErrNotFound = errors.New("session not found")

// Store persists swap sessions keyed by user id. Implementations must be
// safe for concurrent use by different users; the dispatcher guarantees
// that a single user's session is never accessed concurrently.
type Store interface {
	// Get returns the session for userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (*SwapSession, error)

	// Put inserts or replaces the session.
	Put(ctx context.Context, s *SwapSession) error

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, userID string) error

	// Close releases any resources held by the store.
	Close() error
}
