package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresServiceTokenStore persists the single shared service token in the
// service_tokens table. The table holds one row; the upsert keeps replicas
// agreeing on the same credential.
type PostgresServiceTokenStore struct {
	db *sql.DB
}

// NewPostgresServiceTokenStore returns a store backed by db.
func NewPostgresServiceTokenStore(db *sql.DB) *PostgresServiceTokenStore {
	return &PostgresServiceTokenStore{db: db}
}

// Current returns the stored token and expiry, or "" when none exists.
func (s *PostgresServiceTokenStore) Current(ctx context.Context) (string, time.Time, error) {
	var token string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT token, expires_at FROM service_tokens WHERE id = 1`).Scan(&token, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Put replaces the stored token. Only a newer expiry wins, so two replicas
// minting concurrently converge on one credential.
func (s *PostgresServiceTokenStore) Put(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_tokens (id, token, created_at, expires_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET token = EXCLUDED.token, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE service_tokens.expires_at < EXCLUDED.expires_at`,
		token, time.Now().UTC(), expiresAt)
	return err
}
