package repository

import (
	"context"

	"authcore/internal/twofactor/domain"
)

// Repository is the two-factor credential store.
type Repository interface {
	// GetByUserID returns the user's credential, or nil if not enrolled.
	GetByUserID(ctx context.Context, userID string) (*domain.Credential, error)
	// SaveEnrollment writes the credential and its full recovery code set in
	// one transaction. A partial enrollment must never be visible: enabled
	// two-factor always comes with its codes.
	SaveEnrollment(ctx context.Context, c *domain.Credential, codes []domain.RecoveryCode) error
	// Delete removes the credential and all recovery codes.
	Delete(ctx context.Context, userID string) error
	// ListRecoveryCodes returns the user's remaining stored codes.
	ListRecoveryCodes(ctx context.Context, userID string) ([]domain.RecoveryCode, error)
	// ConsumeRecoveryCode deletes the code row matching codeHash and reports
	// whether a row was deleted. The delete is the consumption: under
	// concurrent attempts exactly one caller can win the row.
	ConsumeRecoveryCode(ctx context.Context, userID, codeHash string) (bool, error)
}
