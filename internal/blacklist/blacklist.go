// Package blacklist invalidates access tokens before their natural expiry.
// Access tokens are stateless, so logout and forced revocation park the exact
// token string in Redis until the signature would have expired anyway.
package blacklist

import (
	"context"
	"time"
)

// Entry describes why and when a token was blacklisted.
type Entry struct {
	Username  string
	DeviceID  string
	Reason    string
	RevokedAt time.Time
}

// Store is the token blacklist consulted on every authenticated request.
type Store interface {
	// Revoke blacklists the token. Revoking an already blacklisted token is a
	// no-op; the original entry and its expiry are preserved.
	Revoke(ctx context.Context, token string, e Entry) error
	// IsRevoked reports whether the token is currently blacklisted.
	IsRevoked(ctx context.Context, token string) (bool, error)
}
