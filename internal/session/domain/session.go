package domain

import "time"

// Session status values. Sessions are never hard-deleted; lifecycle is soft.
const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
	StatusExpired = "expired"
)

// Reasons recorded on session transitions and audit entries.
const (
	ReasonLogin            = "login"
	ReasonRefreshToken     = "refresh_token"
	ReasonLogout           = "logout"
	ReasonIPChange         = "ip_change"
	ReasonUserAgentChange  = "user_agent_change"
	ReasonRevoked          = "revoked"
	ReasonMultipleAttempts = "multiple_attempts"
	ReasonExpiration       = "expiration"
)

// Session is one logical session per (user_id, device_id), tracking the last
// known network/device context and lifecycle status.
type Session struct {
	ID            string
	UserID        string
	DeviceID      string
	IPAddress     string
	Browser       string
	OS            string
	LoginAt       time.Time
	LastRefreshAt time.Time
	RefreshToken  string // denormalized pointer to the current token string
	IsRevoked     bool
	RevokedAt     *time.Time
	Reason        string
	Status        string
}

// View is a session joined with its user for the admin listing.
type View struct {
	Session
	Username string
	Role     string
}
