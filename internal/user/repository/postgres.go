package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/user/domain"
)

// PostgresRepository implements Repository over a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, email, password_hash, role, token_version, is_active, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) getBy(ctx context.Context, query, arg string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role,
		&u.TokenVersion, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, token_version, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.PasswordHash, u.Role, u.TokenVersion, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *PostgresRepository) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	var version int64
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET token_version = token_version + 1, updated_at = $2
		WHERE id = $1
		RETURNING token_version
	`, id, time.Now().UTC()).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user %s not found", id)
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// ChangePassword runs the password update, epoch bump, and history append in
// one transaction. A partial failure must not leave a history row with a
// mismatched current hash.
func (r *PostgresRepository) ChangePassword(ctx context.Context, id, newHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	var oldHash string
	err = tx.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&oldHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user %s not found", id)
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, token_version = token_version + 1, updated_at = $3
		WHERE id = $1
	`, id, newHash, now); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO password_history (id, user_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), id, oldHash, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
