package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"neo-auth/backend/internal/session/domain"
)

// PostgresRepository implements Repository against the active_sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, device_id, ip_address, browser, os, login_at, last_refresh_at, refresh_token, is_revoked, revoked_at, reason, status`

// Get returns the session for (user_id, device_id), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, userID, deviceID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM active_sessions WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID)
	return scanSession(row)
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO active_sessions (id, user_id, device_id, ip_address, browser, os, login_at, last_refresh_at, refresh_token, is_revoked, revoked_at, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.UserID, s.DeviceID, s.IPAddress, s.Browser, s.OS, s.LoginAt, s.LastRefreshAt,
		s.RefreshToken, s.IsRevoked, timeToNull(s.RevokedAt), s.Reason, s.Status)
	return err
}

// Touch reactivates the session after a login or rotation: clears revocation,
// bumps last_refresh_at, and repoints the denormalized refresh token.
func (r *PostgresRepository) Touch(ctx context.Context, userID, deviceID, refreshToken, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE active_sessions
		SET is_revoked = FALSE, revoked_at = NULL, last_refresh_at = $1,
		    refresh_token = $2, reason = $3, status = $4
		WHERE user_id = $5 AND device_id = $6`,
		time.Now().UTC(), refreshToken, reason, domain.StatusActive, userID, deviceID)
	return err
}

// UpdateContext records drifted network context observed on a request.
func (r *PostgresRepository) UpdateContext(ctx context.Context, userID, deviceID, ipAddress, browser, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE active_sessions
		SET ip_address = $1, browser = $2, last_refresh_at = $3, reason = $4
		WHERE user_id = $5 AND device_id = $6`,
		ipAddress, browser, time.Now().UTC(), reason, userID, deviceID)
	return err
}

// Revoke soft-closes the session. The row is never deleted.
func (r *PostgresRepository) Revoke(ctx context.Context, userID, deviceID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE active_sessions
		SET is_revoked = TRUE, revoked_at = $1, reason = $2, status = $3
		WHERE user_id = $4 AND device_id = $5`,
		time.Now().UTC(), reason, domain.StatusRevoked, userID, deviceID)
	return err
}

// List returns non-admin session views joined with users, newest login first.
func (r *PostgresRepository) List(ctx context.Context, status string) ([]*domain.View, error) {
	query := `
		SELECT s.id, s.user_id, s.device_id, s.ip_address, s.browser, s.os, s.login_at,
		       s.last_refresh_at, s.refresh_token, s.is_revoked, s.revoked_at, s.reason, s.status,
		       u.username, u.role
		FROM active_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE u.role <> 'Admin'`
	args := []interface{}{}
	if status != "" {
		query += ` AND s.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY s.login_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.View
	for rows.Next() {
		var v domain.View
		var revokedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.UserID, &v.DeviceID, &v.IPAddress, &v.Browser, &v.OS,
			&v.LoginAt, &v.LastRefreshAt, &v.RefreshToken, &v.IsRevoked, &revokedAt,
			&v.Reason, &v.Status, &v.Username, &v.Role); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			v.RevokedAt = &revokedAt.Time
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var revokedAt sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.IPAddress, &s.Browser, &s.OS,
		&s.LoginAt, &s.LastRefreshAt, &s.RefreshToken, &s.IsRevoked, &revokedAt,
		&s.Reason, &s.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return &s, nil
}

func timeToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
