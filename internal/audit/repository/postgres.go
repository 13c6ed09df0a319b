package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/audit/domain"
)

// PostgresRepository persists audit events to the audit_log table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, user_id, action, ip_address, metadata, created_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Action, e.IP, e.Metadata, e.CreatedAt,
	)
	return err
}
