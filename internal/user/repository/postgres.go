package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"neo-auth/backend/internal/user/domain"
)

// PostgresRepository implements Repository against the users table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password_hash, role, failed_attempts, blocked_until`

// GetByUsername returns the user, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// RecordFailure bumps the failed-login counter; a non-nil blockedUntil also
// opens a lockout window.
func (r *PostgresRepository) RecordFailure(ctx context.Context, username string, blockedUntil *time.Time) error {
	var until sql.NullTime
	if blockedUntil != nil {
		until = sql.NullTime{Time: *blockedUntil, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_attempts = failed_attempts + 1,
		    blocked_until = COALESCE($1, blocked_until)
		WHERE username = $2`,
		until, username)
	return err
}

// ResetFailures clears the counter and lockout after a successful login.
func (r *PostgresRepository) ResetFailures(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_attempts = 0, blocked_until = NULL
		WHERE username = $1`, username)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var blockedUntil sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FailedAttempts, &blockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if blockedUntil.Valid {
		u.BlockedUntil = &blockedUntil.Time
	}
	return &u, nil
}
