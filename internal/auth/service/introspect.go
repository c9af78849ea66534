package service

import (
	"context"
	"time"

	"neo-auth/backend/internal/security"
)

// TokenStatus is the introspection result handed to sibling services that
// cannot (or should not) verify access tokens themselves.
type TokenStatus struct {
	Active    bool
	Username  string
	DeviceID  string
	Role      string
	FamilyID  string
	ExpiresAt time.Time
}

// Introspect reports whether an access token is currently good: validly
// signed, unexpired, and not blacklisted. Verification failures are an
// inactive result, not an error; only a store failure is an error.
func (s *AuthService) Introspect(ctx context.Context, token string) (*TokenStatus, error) {
	claims, err := s.codec.Verify(token, security.TokenTypeAccess)
	if err != nil {
		return &TokenStatus{}, nil
	}
	revoked, err := s.blacklist.IsRevoked(ctx, token)
	if err != nil {
		return nil, storeErr("blacklist check failed", err)
	}
	if revoked {
		return &TokenStatus{}, nil
	}
	status := &TokenStatus{
		Active:   true,
		Username: claims.Subject,
		DeviceID: claims.DeviceID,
		Role:     claims.Role,
		FamilyID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		status.ExpiresAt = claims.ExpiresAt.Time
	}
	return status, nil
}
