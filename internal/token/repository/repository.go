package repository

import (
	"context"
	"time"

	"neo-auth/backend/internal/token/domain"
)

// UpsertParams is the full replacement state for a rotation record.
type UpsertParams struct {
	Username     string
	DeviceID     string
	FamilyID     string
	RefreshToken string
	Role         string
	ExpiresAt    time.Time
	Attempts     int
	IPAddress    string
	Browser      string
	OS           string
}

// MarkUsedParams is the exact prior snapshot a consume must match. A
// concurrent rotation that already replaced the record makes the match fail
// with zero matched rows; the loser must surface a conflict, not retry.
type MarkUsedParams struct {
	Username     string
	DeviceID     string
	FamilyID     string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store persists one rotation record per (username, device_id) pair. All
// writes are single-statement conditional updates; correctness under
// concurrent rotation rests on the store's atomicity, not on locks.
type Store interface {
	// Upsert creates or replaces the record for (username, device_id).
	// Idempotent: applying the same logical rotation twice yields one state.
	Upsert(ctx context.Context, p UpsertParams) error
	// MarkUsed transitions the matched record to consumed (used_at and
	// revoked_at set) and returns the matched count. Zero means the prior
	// snapshot no longer exists.
	MarkUsed(ctx context.Context, p MarkUsedParams) (int64, error)
	// Revoke revokes the not-yet-revoked record matching the exact triple.
	Revoke(ctx context.Context, username, deviceID, token string) (int64, error)
	// RevokeAllForUser revokes every live record of the user.
	RevokeAllForUser(ctx context.Context, username string) (int64, error)
	// RevokeByDevice revokes every live record bound to the device.
	RevokeByDevice(ctx context.Context, deviceID string) (int64, error)
	// RevokeByFamily revokes every live record of the token family.
	RevokeByFamily(ctx context.Context, familyID string) (int64, error)
	// FindByToken returns the record holding the token string, or nil.
	FindByToken(ctx context.Context, token string) (*domain.Record, error)
	// FindActive returns the active record for the pair, or nil.
	FindActive(ctx context.Context, username, deviceID string) (*domain.Record, error)
	// InUseByUser returns the newest unrevoked record of the user across all
	// devices, or nil. Drives the single-active-device login check.
	InUseByUser(ctx context.Context, username string) (*domain.Record, error)
}
