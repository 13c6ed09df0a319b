package repository

import (
	"context"

	"authcore/internal/audit/domain"
)

// Repository persists audit events.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
}
