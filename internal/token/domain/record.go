package domain

import "time"

// MaxRotationAttempts caps the rotation chain length of one token family.
// Reaching the cap forces a full re-login.
const MaxRotationAttempts = 3

// Record is one rotation record, unique per (username, device_id). It is
// replaced in place on every successful rotation; used_at marks the instant
// the token was presented for rotation, revoked_at ends its life.
type Record struct {
	Username     string
	DeviceID     string
	FamilyID     string // jti shared by the access/refresh pair and preserved across rotations
	RefreshToken string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	UsedAt       *time.Time
	Attempts     int // rotation attempts within the family, 0..MaxRotationAttempts
	IPAddress    string
	Browser      string
	OS           string
}

// Active reports whether the record is usable at the given instant.
func (r *Record) Active(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// Consumed reports whether the token has already been presented for rotation.
// A second presentation of a consumed token is a replay signal.
func (r *Record) Consumed() bool {
	return r.UsedAt != nil
}
