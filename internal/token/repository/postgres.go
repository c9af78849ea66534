package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"neo-auth/backend/internal/token/domain"
)

// PostgresStore implements Store against the refresh_tokens table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `username, device_id, jti, refresh_token, role, created_at, updated_at, expires_at, revoked_at, used_at, attempts, ip_address, browser, os`

// Upsert creates or replaces the record for (username, device_id). The
// conflict target is the table's unique pair key, so the one-record-per-pair
// invariant is enforced by the store, not by convention.
func (s *PostgresStore) Upsert(ctx context.Context, p UpsertParams) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (username, device_id, jti, refresh_token, role, created_at, updated_at, expires_at, revoked_at, used_at, attempts, ip_address, browser, os)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7, NULL, NULL, $8, $9, $10, $11)
		ON CONFLICT (username, device_id) DO UPDATE SET
			jti = EXCLUDED.jti,
			refresh_token = EXCLUDED.refresh_token,
			role = EXCLUDED.role,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = NULL,
			used_at = NULL,
			attempts = EXCLUDED.attempts,
			ip_address = EXCLUDED.ip_address,
			browser = EXCLUDED.browser,
			os = EXCLUDED.os`,
		p.Username, p.DeviceID, p.FamilyID, p.RefreshToken, p.Role, now, p.ExpiresAt,
		p.Attempts, p.IPAddress, p.Browser, p.OS)
	return err
}

// MarkUsed consumes the record only if the full prior snapshot still matches
// and the record is not already consumed or revoked. Only the first of two
// racing rotation attempts can match.
func (s *PostgresStore) MarkUsed(ctx context.Context, p MarkUsedParams) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET used_at = $1, revoked_at = $1, updated_at = $1
		WHERE username = $2 AND device_id = $3 AND jti = $4 AND refresh_token = $5
		  AND created_at = $6 AND expires_at = $7
		  AND used_at IS NULL AND revoked_at IS NULL`,
		now, p.Username, p.DeviceID, p.FamilyID, p.RefreshToken, p.CreatedAt, p.ExpiresAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Revoke revokes the live record matching the exact (username, device, token) triple.
func (s *PostgresStore) Revoke(ctx context.Context, username, deviceID, token string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $1, updated_at = $1
		WHERE username = $2 AND device_id = $3 AND refresh_token = $4 AND revoked_at IS NULL`,
		time.Now().UTC(), username, deviceID, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForUser revokes every live record of the user. Used by replay
// detection to burn the whole family set.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, username string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $1, updated_at = $1
		WHERE username = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeByDevice revokes every live record bound to the device.
func (s *PostgresStore) RevokeByDevice(ctx context.Context, deviceID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $1, updated_at = $1
		WHERE device_id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), deviceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeByFamily revokes every live record of the token family.
func (s *PostgresStore) RevokeByFamily(ctx context.Context, familyID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $1, updated_at = $1
		WHERE jti = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), familyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindByToken returns the record holding the token string, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM refresh_tokens WHERE refresh_token = $1`, token)
	return scanRecord(row)
}

// FindActive returns the record for the pair if it is unrevoked and unexpired, or nil.
func (s *PostgresStore) FindActive(ctx context.Context, username, deviceID string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM refresh_tokens
		WHERE username = $1 AND device_id = $2 AND revoked_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`,
		username, deviceID, time.Now().UTC())
	return scanRecord(row)
}

// InUseByUser returns the newest unrevoked record for the user across all
// devices, or nil. The caller decides between the conflict, replace-stale,
// and reuse branches from the record's device and expiry.
func (s *PostgresStore) InUseByUser(ctx context.Context, username string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM refresh_tokens
		WHERE username = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`,
		username)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*domain.Record, error) {
	var r domain.Record
	var revokedAt, usedAt sql.NullTime
	var ip, browser, osName sql.NullString
	err := row.Scan(&r.Username, &r.DeviceID, &r.FamilyID, &r.RefreshToken, &r.Role,
		&r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt, &revokedAt, &usedAt, &r.Attempts,
		&ip, &browser, &osName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		r.RevokedAt = &revokedAt.Time
	}
	if usedAt.Valid {
		r.UsedAt = &usedAt.Time
	}
	r.IPAddress = ip.String
	r.Browser = browser.String
	r.OS = osName.String
	return &r, nil
}
