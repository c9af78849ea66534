// Package audit generates and stores the append-only audit trail: lifecycle
// events and identity-context drift (IP or User-Agent changes) observed
// between two authenticated requests of one session.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	auditdomain "neo-auth/backend/internal/audit/domain"
	auditrepo "neo-auth/backend/internal/audit/repository"
	sessiondomain "neo-auth/backend/internal/session/domain"
	sessionrepo "neo-auth/backend/internal/session/repository"
)

// RequestContext is the identity context observed on the incoming request.
type RequestContext struct {
	IPAddress string
	Browser   string
	OS        string
}

// Recorder writes audit entries for context drift and session lifecycle
// transitions. Drift writes are best-effort: by the time drift is recorded
// the irreversible token-state change has already happened, so a failed
// entry is logged, never propagated.
type Recorder struct {
	entries  auditrepo.Repository
	sessions sessionrepo.Repository
	now      func() time.Time
}

// NewRecorder returns a Recorder over the given repositories.
func NewRecorder(entries auditrepo.Repository, sessions sessionrepo.Repository) *Recorder {
	return &Recorder{
		entries:  entries,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordDrift compares the session's last known context against the incoming
// one. A pending refresh marker not yet audited is emitted as its own entry
// first, then one entry per drifted field (IP, then User-Agent). If anything
// drifted, the session context is updated with the new values.
func (r *Recorder) RecordDrift(ctx context.Context, userID, deviceID string, incoming RequestContext) {
	sess, err := r.sessions.Get(ctx, userID, deviceID)
	if err != nil {
		log.Printf("audit: load session %s/%s: %v", userID, deviceID, err)
		return
	}
	if sess == nil {
		return
	}

	// Only the refresh marker is flushed here: it is the one reason written
	// without its own entry. Every other transition (login, logout, revoked,
	// drift) is audited at the moment the session is written, and flushing it
	// again would duplicate the event.
	flushed := false
	if sess.Reason == sessiondomain.ReasonRefreshToken {
		r.append(ctx, sess, sess.Reason, "", "", incoming)
		flushed = true
	}

	reason := ""
	if incoming.IPAddress != "" && sess.IPAddress != incoming.IPAddress {
		r.append(ctx, sess, sessiondomain.ReasonIPChange, sess.IPAddress, incoming.IPAddress, incoming)
		reason = sessiondomain.ReasonIPChange
	}
	if incoming.Browser != "" && sess.Browser != incoming.Browser {
		r.append(ctx, sess, sessiondomain.ReasonUserAgentChange, sess.Browser, incoming.Browser, incoming)
		reason = sessiondomain.ReasonUserAgentChange
	}

	if reason == "" && !flushed {
		return
	}
	// The stored reason is replaced by the drift reason, or cleared once
	// flushed, so the same lifecycle event is never audited twice.
	ip, browser := incoming.IPAddress, incoming.Browser
	if ip == "" {
		ip = sess.IPAddress
	}
	if browser == "" {
		browser = sess.Browser
	}
	if err := r.sessions.UpdateContext(ctx, userID, deviceID, ip, browser, reason); err != nil {
		log.Printf("audit: update session context %s/%s: %v", userID, deviceID, err)
	}
}

// RecordEvent appends one lifecycle entry (login, logout, revoked, ...).
func (r *Recorder) RecordEvent(ctx context.Context, sessionID, userID, eventType, oldValue, newValue string, incoming RequestContext) {
	e := &auditdomain.Entry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		EventType: eventType,
		OldValue:  oldValue,
		NewValue:  newValue,
		IPAddress: incoming.IPAddress,
		UserAgent: incoming.Browser,
		Timestamp: r.now(),
	}
	if err := r.entries.Create(ctx, e); err != nil {
		log.Printf("audit: append %s for %s: %v", eventType, userID, err)
	}
}

// List returns matching entries newest-first with a consistent total count.
func (r *Recorder) List(ctx context.Context, f auditdomain.Filter, page, limit int) ([]*auditdomain.Entry, int64, error) {
	return r.entries.List(ctx, f, page, limit)
}

func (r *Recorder) append(ctx context.Context, sess *sessiondomain.Session, eventType, oldValue, newValue string, incoming RequestContext) {
	r.RecordEvent(ctx, sess.ID, sess.UserID, eventType, oldValue, newValue, incoming)
}
