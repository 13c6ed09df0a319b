package repository

import (
	"context"

	"authcore/internal/user/domain"
)

// Repository is the user store consumed by the auth core.
type Repository interface {
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns the user for email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create persists a new user.
	Create(ctx context.Context, u *domain.User) error
	// IncrementTokenVersion bumps the user's revocation epoch by exactly one
	// and returns the new value. The bump happens in the database so the
	// epoch stays monotonic across instances.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
	// ChangePassword updates the password hash, bumps the token version, and
	// appends the replaced hash to password history in a single transaction.
	ChangePassword(ctx context.Context, id, newHash string) error
}
