package repository

import (
	"context"

	"neo-auth/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Sessions are keyed
// (user_id, device_id); a user-level index serves the admin listing.
type Repository interface {
	// Get returns the session for the pair, or nil.
	Get(ctx context.Context, userID, deviceID string) (*domain.Session, error)
	// Create persists a new session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// Touch reactivates the session and records the new refresh token and reason.
	Touch(ctx context.Context, userID, deviceID, refreshToken, reason string) error
	// UpdateContext records drifted network context on the session.
	UpdateContext(ctx context.Context, userID, deviceID, ipAddress, browser, reason string) error
	// Revoke soft-closes the session with the given reason.
	Revoke(ctx context.Context, userID, deviceID, reason string) error
	// List returns session views joined with user data, newest login first.
	// status filters by lifecycle status when non-empty; admins are excluded.
	List(ctx context.Context, status string) ([]*domain.View, error)
}
