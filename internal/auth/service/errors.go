package service

import "fmt"

// Kind classifies an auth error. The HTTP boundary maps kinds to status
// codes; the domain never carries transport concerns.
type Kind int

const (
	// KindAuthentication covers bad credentials and locked accounts.
	KindAuthentication Kind = iota
	// KindValidation covers missing or malformed request fields, rejected
	// before touching any store.
	KindValidation
	// KindToken covers expired, malformed, revoked, or mistyped tokens.
	KindToken
	// KindConflict covers device mismatch, concurrent-rotation loss, and
	// another-device-already-active.
	KindConflict
	// KindReuseDetected is the replay security event. Mass revocation has
	// already happened by the time the caller sees it.
	KindReuseDetected
	// KindStore covers persistence failures. Details are logged, the caller
	// gets a generic internal-error code.
	KindStore
)

// Error is a classified auth failure with a machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values on Kind and Code so sentinel comparison via
// errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Sentinel failures. Handlers branch on these with errors.Is.
var (
	ErrBadCredentials = &Error{Kind: KindAuthentication, Code: "invalid_credentials", Message: "invalid username or password"}
	ErrUserLocked     = &Error{Kind: KindAuthentication, Code: "account_locked", Message: "account temporarily locked"}
	ErrForbidden      = &Error{Kind: KindAuthentication, Code: "forbidden", Message: "insufficient privileges"}

	ErrMissingFields = &Error{Kind: KindValidation, Code: "missing_fields", Message: "required fields missing"}
	ErrSelfRevoke    = &Error{Kind: KindValidation, Code: "self_revoke", Message: "cannot revoke own session or role"}
	ErrUnknownTarget = &Error{Kind: KindValidation, Code: "unknown_target", Message: "target user not found"}

	ErrInvalidToken = &Error{Kind: KindToken, Code: "invalid_token", Message: "invalid refresh token"}
	ErrTokenExpired = &Error{Kind: KindToken, Code: "token_expired", Message: "refresh token expired"}
	ErrRevokedToken = &Error{Kind: KindToken, Code: "token_revoked", Message: "refresh token revoked"}
	ErrMaxAttempts  = &Error{Kind: KindToken, Code: "max_attempts_exceeded", Message: "rotation limit reached, full login required"}

	ErrDeviceConflict   = &Error{Kind: KindConflict, Code: "device_conflict", Message: "another device already holds an active session"}
	ErrDeviceMismatch   = &Error{Kind: KindConflict, Code: "device_mismatch", Message: "token is bound to a different device"}
	ErrRotationConflict = &Error{Kind: KindConflict, Code: "rotation_conflict", Message: "concurrent rotation already consumed this token"}

	ErrReuseDetected = &Error{Kind: KindReuseDetected, Code: "token_reuse_detected", Message: "refresh token reuse detected, all sessions revoked"}
)

// Logout and forced revocation are multi-write flows that are not atomic;
// each sub-step fails with its own code so the caller knows which write needs
// repair.
var (
	ErrRevokeFailed        = &Error{Kind: KindStore, Code: "revoke_failed", Message: "refresh token revocation failed"}
	ErrBlacklistFailed     = &Error{Kind: KindStore, Code: "blacklist_failed", Message: "access token blacklisting failed"}
	ErrSessionUpdateFailed = &Error{Kind: KindStore, Code: "session_update_failed", Message: "session state update failed"}
)

func storeErr(op string, err error) *Error {
	return &Error{Kind: KindStore, Code: "store_failure", Message: op, Err: err}
}

func stepErr(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Err: err}
}
