package repository

import (
	"context"
	"time"

	"neo-auth/backend/internal/user/domain"
)

// Repository defines the read-mostly persistence this service needs for
// users. Account provisioning lives elsewhere; only the lockout bookkeeping
// is written here.
type Repository interface {
	// GetByUsername returns the user, or nil if unknown.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// RecordFailure increments the failed-login counter and, when blockedUntil
	// is non-nil, starts a lockout window ending at that instant.
	RecordFailure(ctx context.Context, username string, blockedUntil *time.Time) error
	// ResetFailures clears the counter and any lockout after a successful login.
	ResetFailures(ctx context.Context, username string) error
}
