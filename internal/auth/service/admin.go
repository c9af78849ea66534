package service

import (
	"context"
	"strings"

	"neo-auth/backend/internal/audit"
	auditdomain "neo-auth/backend/internal/audit/domain"
	"neo-auth/backend/internal/security"
	sessiondomain "neo-auth/backend/internal/session/domain"
)

// ForceRevokeParams identifies the session an admin is revoking.
type ForceRevokeParams struct {
	SessionID    string
	Username     string
	DeviceID     string
	RefreshToken string
}

// ForceRevoke revokes another user's credentials and session. The actor must
// be an admin, may not target their own session or device, and may not
// target a peer of their own role. The push notification to the affected
// client is advisory; the store mutation is the authoritative change.
func (s *AuthService) ForceRevoke(ctx context.Context, actor *security.Claims, p ForceRevokeParams, reqCtx audit.RequestContext) error {
	if actor == nil || actor.Role != security.RoleAdmin {
		return ErrForbidden
	}
	if strings.TrimSpace(p.Username) == "" || strings.TrimSpace(p.DeviceID) == "" {
		return ErrMissingFields
	}
	if actor.Subject == p.Username || actor.DeviceID == p.DeviceID {
		return ErrSelfRevoke
	}

	target, err := s.users.GetByUsername(ctx, p.Username)
	if err != nil {
		return storeErr("user lookup failed", err)
	}
	if target == nil {
		return ErrUnknownTarget
	}
	if target.Role == actor.Role {
		return ErrSelfRevoke
	}

	if p.RefreshToken != "" {
		if _, err := s.tokens.Revoke(ctx, p.Username, p.DeviceID, p.RefreshToken); err != nil {
			return stepErr(ErrRevokeFailed, err)
		}
	} else {
		if _, err := s.tokens.RevokeByDevice(ctx, p.DeviceID); err != nil {
			return stepErr(ErrRevokeFailed, err)
		}
	}

	sess, err := s.sessions.Get(ctx, target.ID, p.DeviceID)
	if err != nil {
		return stepErr(ErrSessionUpdateFailed, err)
	}
	if err := s.sessions.Revoke(ctx, target.ID, p.DeviceID, sessiondomain.ReasonRevoked); err != nil {
		return stepErr(ErrSessionUpdateFailed, err)
	}

	sessionID := p.SessionID
	if sessionID == "" && sess != nil {
		sessionID = sess.ID
	}
	s.audit.RecordEvent(ctx, sessionID, target.ID, sessiondomain.ReasonRevoked, "", actor.Subject, reqCtx)

	if s.notifier != nil {
		s.notifier.Notify(ctx, p.Username, "session_revoked", map[string]string{
			"device_id": p.DeviceID,
			"reason":    sessiondomain.ReasonRevoked,
		})
	}
	s.metrics.ForcedRevoke(ctx)
	return nil
}

// ListSessions returns non-admin session views, optionally filtered by
// lifecycle status.
func (s *AuthService) ListSessions(ctx context.Context, status string) ([]*sessiondomain.View, error) {
	views, err := s.sessions.List(ctx, status)
	if err != nil {
		return nil, storeErr("session listing failed", err)
	}
	return views, nil
}

// AuditLog returns matching audit entries newest-first with a total count
// for pagination.
func (s *AuthService) AuditLog(ctx context.Context, f auditdomain.Filter, page, limit int) ([]*auditdomain.Entry, int64, error) {
	entries, total, err := s.audit.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, storeErr("audit query failed", err)
	}
	return entries, total, nil
}
