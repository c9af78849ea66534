package domain

import "time"

// User is the identity record. It is owned by an external user-management
// system; this service reads it and only ever writes the failed-login
// counter and lockout timestamp.
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	Role           string
	FailedAttempts int
	BlockedUntil   *time.Time
}

// BlockedNow reports whether the account is inside a temporary lockout window.
func (u *User) BlockedNow(now time.Time) bool {
	return u.BlockedUntil != nil && u.BlockedUntil.After(now)
}
