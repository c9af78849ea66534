// Package service implements the rotation protocol: login, refresh, logout,
// and the admin override, orchestrated over the token store, session
// registry, audit trail, and blacklist.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"neo-auth/backend/internal/audit"
	"neo-auth/backend/internal/blacklist"
	"neo-auth/backend/internal/notify"
	"neo-auth/backend/internal/security"
	sessiondomain "neo-auth/backend/internal/session/domain"
	sessionrepo "neo-auth/backend/internal/session/repository"
	otelx "neo-auth/backend/internal/telemetry/otel"
	tokendomain "neo-auth/backend/internal/token/domain"
	tokenrepo "neo-auth/backend/internal/token/repository"
	userdomain "neo-auth/backend/internal/user/domain"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	RecordFailure(ctx context.Context, username string, blockedUntil *time.Time) error
	ResetFailures(ctx context.Context, username string) error
}

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	Username         string
	DeviceID         string
	Role             string
	FamilyID         string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthService implements the rotation protocol. All store writes are
// single-statement conditional updates; correctness under concurrent refresh
// rests on the token store's optimistic match, not on locks, and ambiguous
// failures are never retried here.
type AuthService struct {
	users     UserRepo
	tokens    tokenrepo.Store
	sessions  sessionrepo.Repository
	audit     *audit.Recorder
	blacklist blacklist.Store
	hasher    *security.Hasher
	codec     *security.Codec
	notifier  notify.Notifier
	metrics   *otelx.AuthMetrics

	maxLoginFailures int
	lockoutWindow    time.Duration
	now              func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// notifier and metrics may be nil.
func NewAuthService(
	users UserRepo,
	tokens tokenrepo.Store,
	sessions sessionrepo.Repository,
	auditRecorder *audit.Recorder,
	blacklistStore blacklist.Store,
	hasher *security.Hasher,
	codec *security.Codec,
	notifier notify.Notifier,
	metrics *otelx.AuthMetrics,
	maxLoginFailures int,
	lockoutWindow time.Duration,
) *AuthService {
	if maxLoginFailures <= 0 {
		maxLoginFailures = 3
	}
	if lockoutWindow <= 0 {
		lockoutWindow = 120 * time.Second
	}
	return &AuthService{
		users:            users,
		tokens:           tokens,
		sessions:         sessions,
		audit:            auditRecorder,
		blacklist:        blacklistStore,
		hasher:           hasher,
		codec:            codec,
		notifier:         notifier,
		metrics:          metrics,
		maxLoginFailures: maxLoginFailures,
		lockoutWindow:    lockoutWindow,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates the user and issues credentials for the device.
//
// A user holds at most one active token family across all devices: a valid
// family on another device rejects the login, a valid family on the same
// device is reused with a fresh access token only, anything stale is
// replaced by a new family.
func (s *AuthService) Login(ctx context.Context, username, password, deviceID string, reqCtx audit.RequestContext) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("user lookup failed", err)
	}
	if user == nil {
		s.metrics.LoginFailure(ctx, "unknown_user")
		return nil, ErrBadCredentials
	}
	now := s.now()
	if user.BlockedNow(now) {
		s.metrics.LoginFailure(ctx, "locked")
		return nil, ErrUserLocked
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		var blockedUntil *time.Time
		if user.FailedAttempts+1 >= s.maxLoginFailures {
			t := now.Add(s.lockoutWindow)
			blockedUntil = &t
		}
		if err := s.users.RecordFailure(ctx, username, blockedUntil); err != nil {
			return nil, storeErr("failure counter update failed", err)
		}
		s.metrics.LoginFailure(ctx, "bad_password")
		return nil, ErrBadCredentials
	}
	if err := s.users.ResetFailures(ctx, username); err != nil {
		return nil, storeErr("failure counter reset failed", err)
	}

	existing, err := s.tokens.InUseByUser(ctx, username)
	if err != nil {
		return nil, storeErr("token lookup failed", err)
	}
	if existing != nil && existing.Active(now) {
		if existing.DeviceID != deviceID {
			s.metrics.LoginFailure(ctx, "device_conflict")
			return nil, ErrDeviceConflict
		}
		if !existing.Consumed() {
			return s.loginReuseFamily(ctx, user, existing, reqCtx)
		}
	}

	return s.loginNewFamily(ctx, user, deviceID, reqCtx)
}

// loginReuseFamily is the cheap re-auth path: a still-valid refresh token
// exists for the same device, so only a new access token is minted.
func (s *AuthService) loginReuseFamily(ctx context.Context, user *userdomain.User, rec *tokendomain.Record, reqCtx audit.RequestContext) (*AuthResult, error) {
	access, accessExp, err := s.codec.IssueAccess(user.Username, rec.DeviceID, user.Role, rec.FamilyID)
	if err != nil {
		return nil, storeErr("access token issuance failed", err)
	}
	if err := s.ensureSession(ctx, user, rec.DeviceID, rec.RefreshToken, reqCtx); err != nil {
		return nil, err
	}
	s.metrics.Login(ctx, user.Role)
	return &AuthResult{
		AccessToken:      access,
		RefreshToken:     rec.RefreshToken,
		Username:         user.Username,
		DeviceID:         rec.DeviceID,
		Role:             user.Role,
		FamilyID:         rec.FamilyID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *AuthService) loginNewFamily(ctx context.Context, user *userdomain.User, deviceID string, reqCtx audit.RequestContext) (*AuthResult, error) {
	pair, err := s.codec.IssuePair(user.Username, deviceID, user.Role, "")
	if err != nil {
		return nil, storeErr("token issuance failed", err)
	}
	if err := s.tokens.Upsert(ctx, tokenrepo.UpsertParams{
		Username:     user.Username,
		DeviceID:     deviceID,
		FamilyID:     pair.FamilyID,
		RefreshToken: pair.RefreshToken,
		Role:         user.Role,
		ExpiresAt:    pair.RefreshExpiresAt,
		Attempts:     0,
		IPAddress:    reqCtx.IPAddress,
		Browser:      reqCtx.Browser,
		OS:           reqCtx.OS,
	}); err != nil {
		return nil, storeErr("token record write failed", err)
	}
	if err := s.ensureSession(ctx, user, deviceID, pair.RefreshToken, reqCtx); err != nil {
		return nil, err
	}
	s.metrics.Login(ctx, user.Role)
	return &AuthResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		Username:         user.Username,
		DeviceID:         deviceID,
		Role:             user.Role,
		FamilyID:         pair.FamilyID,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

func (s *AuthService) ensureSession(ctx context.Context, user *userdomain.User, deviceID, refreshToken string, reqCtx audit.RequestContext) error {
	sess, err := s.sessions.Get(ctx, user.ID, deviceID)
	if err != nil {
		return storeErr("session lookup failed", err)
	}
	now := s.now()
	if sess == nil {
		sess = &sessiondomain.Session{
			ID:            uuid.New().String(),
			UserID:        user.ID,
			DeviceID:      deviceID,
			IPAddress:     reqCtx.IPAddress,
			Browser:       reqCtx.Browser,
			OS:            reqCtx.OS,
			LoginAt:       now,
			LastRefreshAt: now,
			RefreshToken:  refreshToken,
			Reason:        sessiondomain.ReasonLogin,
			Status:        sessiondomain.StatusActive,
		}
		if err := s.sessions.Create(ctx, sess); err != nil {
			return storeErr("session create failed", err)
		}
	} else {
		if err := s.sessions.Touch(ctx, user.ID, deviceID, refreshToken, sessiondomain.ReasonLogin); err != nil {
			return storeErr("session touch failed", err)
		}
	}
	s.audit.RecordEvent(ctx, sess.ID, user.ID, sessiondomain.ReasonLogin, "", "", reqCtx)
	return nil
}

// Refresh rotates the presented refresh token. A refresh token is single-use:
// presenting an already-consumed token burns the whole family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID string, reqCtx audit.RequestContext) (*AuthResult, error) {
	if refreshToken == "" || strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingFields
	}

	rec, err := s.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, storeErr("token lookup failed", err)
	}
	if rec == nil {
		// A validly signed, unexpired refresh token with no backing record
		// was rotated away: the presenter holds a consumed predecessor.
		claims, verr := s.codec.Verify(refreshToken, security.TokenTypeRefresh)
		if verr != nil {
			return nil, ErrInvalidToken
		}
		return nil, s.burnFamily(ctx, claims.Subject, claims.DeviceID, claims.ID, reqCtx)
	}
	if rec.Consumed() {
		return nil, s.burnFamily(ctx, rec.Username, rec.DeviceID, rec.FamilyID, reqCtx)
	}
	if rec.DeviceID != deviceID {
		return nil, ErrDeviceMismatch
	}
	if rec.RevokedAt != nil {
		return nil, ErrRevokedToken
	}
	if rec.Attempts >= tokendomain.MaxRotationAttempts {
		return nil, s.closeExhaustedFamily(ctx, rec, refreshToken)
	}
	if _, err := s.codec.Verify(refreshToken, security.TokenTypeRefresh); err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, stepErr(ErrTokenExpired, err)
		}
		return nil, stepErr(ErrInvalidToken, err)
	}

	// Optimistic consume: only the first of two racing rotations matches the
	// full prior snapshot. The loser observes zero matched rows and must
	// surface a conflict, never retry.
	matched, err := s.tokens.MarkUsed(ctx, tokenrepo.MarkUsedParams{
		Username:     rec.Username,
		DeviceID:     rec.DeviceID,
		FamilyID:     rec.FamilyID,
		RefreshToken: rec.RefreshToken,
		CreatedAt:    rec.CreatedAt,
		ExpiresAt:    rec.ExpiresAt,
	})
	if err != nil {
		return nil, storeErr("token consume failed", err)
	}
	if matched == 0 {
		return nil, ErrRotationConflict
	}
	// Consumed records must be unusable even if a later bug skips the
	// used_at check.
	if _, err := s.tokens.Revoke(ctx, rec.Username, rec.DeviceID, refreshToken); err != nil {
		return nil, stepErr(ErrRevokeFailed, err)
	}

	pair, err := s.codec.IssuePair(rec.Username, deviceID, rec.Role, rec.FamilyID)
	if err != nil {
		return nil, storeErr("token issuance failed", err)
	}
	if err := s.tokens.Upsert(ctx, tokenrepo.UpsertParams{
		Username:     rec.Username,
		DeviceID:     deviceID,
		FamilyID:     rec.FamilyID,
		RefreshToken: pair.RefreshToken,
		Role:         rec.Role,
		ExpiresAt:    pair.RefreshExpiresAt,
		Attempts:     rec.Attempts + 1,
		IPAddress:    reqCtx.IPAddress,
		Browser:      reqCtx.Browser,
		OS:           reqCtx.OS,
	}); err != nil {
		return nil, storeErr("token record write failed", err)
	}

	user, err := s.users.GetByUsername(ctx, rec.Username)
	if err != nil {
		return nil, storeErr("user lookup failed", err)
	}
	if user != nil {
		s.audit.RecordDrift(ctx, user.ID, deviceID, reqCtx)
		if err := s.sessions.Touch(ctx, user.ID, deviceID, pair.RefreshToken, sessiondomain.ReasonRefreshToken); err != nil {
			return nil, stepErr(ErrSessionUpdateFailed, err)
		}
	}

	s.metrics.Rotation(ctx)
	return &AuthResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		Username:         rec.Username,
		DeviceID:         deviceID,
		Role:             rec.Role,
		FamilyID:         rec.FamilyID,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// burnFamily is the replay response: a consumed or rotated-away token was
// presented again, so every record of the user, device, and family is
// revoked before the error is surfaced. The revocation is the point; the
// error is just the report.
func (s *AuthService) burnFamily(ctx context.Context, username, deviceID, familyID string, reqCtx audit.RequestContext) error {
	if _, err := s.tokens.RevokeAllForUser(ctx, username); err != nil {
		return stepErr(ErrRevokeFailed, err)
	}
	if _, err := s.tokens.RevokeByDevice(ctx, deviceID); err != nil {
		return stepErr(ErrRevokeFailed, err)
	}
	if _, err := s.tokens.RevokeByFamily(ctx, familyID); err != nil {
		return stepErr(ErrRevokeFailed, err)
	}
	if user, err := s.users.GetByUsername(ctx, username); err == nil && user != nil {
		if sess, err := s.sessions.Get(ctx, user.ID, deviceID); err == nil && sess != nil {
			_ = s.sessions.Revoke(ctx, user.ID, deviceID, sessiondomain.ReasonRevoked)
			s.audit.RecordEvent(ctx, sess.ID, user.ID, sessiondomain.ReasonRevoked, "", "", reqCtx)
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, username, "token_reuse_detected", map[string]string{"device_id": deviceID})
	}
	s.metrics.ReuseDetected(ctx)
	return ErrReuseDetected
}

// closeExhaustedFamily revokes a family whose rotation chain hit the cap and
// forces a full re-login.
func (s *AuthService) closeExhaustedFamily(ctx context.Context, rec *tokendomain.Record, refreshToken string) error {
	if _, err := s.tokens.Revoke(ctx, rec.Username, rec.DeviceID, refreshToken); err != nil {
		return stepErr(ErrRevokeFailed, err)
	}
	if user, err := s.users.GetByUsername(ctx, rec.Username); err == nil && user != nil {
		_ = s.sessions.Revoke(ctx, user.ID, rec.DeviceID, sessiondomain.ReasonMultipleAttempts)
	}
	return ErrMaxAttempts
}

// Logout revokes the refresh record, blacklists the access token, and closes
// the session. The writes are not atomic; each sub-step fails with its own
// code so the caller knows which write did not land, and the irreversible
// token revocation always happens first.
func (s *AuthService) Logout(ctx context.Context, username, deviceID, accessToken, refreshToken, reason string, reqCtx audit.RequestContext) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(deviceID) == "" {
		return ErrMissingFields
	}
	if reason == "" {
		reason = sessiondomain.ReasonLogout
	}

	matched, err := s.tokens.Revoke(ctx, username, deviceID, refreshToken)
	if err != nil {
		return stepErr(ErrRevokeFailed, err)
	}
	if matched == 0 {
		return stepErr(ErrRevokeFailed, errors.New("no live record matched"))
	}

	if accessToken != "" {
		if err := s.blacklist.Revoke(ctx, accessToken, blacklist.Entry{
			Username:  username,
			DeviceID:  deviceID,
			Reason:    reason,
			RevokedAt: s.now(),
		}); err != nil {
			return stepErr(ErrBlacklistFailed, err)
		}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return stepErr(ErrSessionUpdateFailed, err)
	}
	sess, err := s.sessions.Get(ctx, user.ID, deviceID)
	if err != nil {
		return stepErr(ErrSessionUpdateFailed, err)
	}
	if err := s.sessions.Revoke(ctx, user.ID, deviceID, reason); err != nil {
		return stepErr(ErrSessionUpdateFailed, err)
	}
	if sess != nil {
		s.audit.RecordEvent(ctx, sess.ID, user.ID, reason, "", "", reqCtx)
	}
	return nil
}
