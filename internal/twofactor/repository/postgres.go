package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/twofactor/domain"
)

// PostgresRepository implements Repository over a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a two-factor repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Credential, error) {
	var c domain.Credential
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, encrypted_secret, enabled, verified_at, created_at, updated_at
		FROM two_factor_credentials
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.EncryptedSecret, &c.Enabled, &c.VerifiedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) SaveEnrollment(ctx context.Context, c *domain.Credential, codes []domain.RecoveryCode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO two_factor_credentials (user_id, encrypted_secret, enabled, verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			encrypted_secret = EXCLUDED.encrypted_secret,
			enabled = EXCLUDED.enabled,
			verified_at = EXCLUDED.verified_at,
			updated_at = EXCLUDED.updated_at
	`, c.UserID, c.EncryptedSecret, c.Enabled, c.VerifiedAt, c.CreatedAt, c.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM two_factor_recovery_codes WHERE user_id = $1`, c.UserID); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, code := range codes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO two_factor_recovery_codes (user_id, code_hash, encrypted_code, created_at)
			VALUES ($1, $2, $3, $4)
		`, c.UserID, code.CodeHash, code.EncryptedCode, now); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM two_factor_recovery_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM two_factor_credentials WHERE user_id = $1`, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) ListRecoveryCodes(ctx context.Context, userID string) ([]domain.RecoveryCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code_hash, encrypted_code
		FROM two_factor_recovery_codes
		WHERE user_id = $1
		ORDER BY created_at, code_hash
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecoveryCode
	for rows.Next() {
		var c domain.RecoveryCode
		if err := rows.Scan(&c.CodeHash, &c.EncryptedCode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConsumeRecoveryCode deletes at most one row. The primary key on
// (user_id, code_hash) makes the delete a compare-and-swap: concurrent
// attempts race on the same row and only one sees RowsAffected = 1.
func (r *PostgresRepository) ConsumeRecoveryCode(ctx context.Context, userID, codeHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM two_factor_recovery_codes
		WHERE user_id = $1 AND code_hash = $2
	`, userID, codeHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
