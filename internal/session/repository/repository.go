package repository

import (
	"context"

	"authcore/internal/session/domain"
)

// Repository is the session store consumed by the session service.
type Repository interface {
	// Create persists the session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListActiveByUser returns the user's active sessions, newest first.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// Deactivate flips one session to inactive. Idempotent.
	Deactivate(ctx context.Context, id string) error
	// DeactivateAllByUser flips all of the user's active sessions to inactive
	// and returns how many changed.
	DeactivateAllByUser(ctx context.Context, userID string) (int64, error)
	// DeactivateExpired flips every active session past its expiry to
	// inactive. One conditional update: idempotent and safe to run
	// concurrently from multiple instances.
	DeactivateExpired(ctx context.Context) (int64, error)
	// TouchMostRecent updates last_used_at on the user's newest active session.
	TouchMostRecent(ctx context.Context, userID string) error
}
