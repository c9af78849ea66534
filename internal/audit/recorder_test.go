package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	auditdomain "neo-auth/backend/internal/audit/domain"
	sessiondomain "neo-auth/backend/internal/session/domain"
)

type memEntries struct {
	mu      sync.Mutex
	entries []*auditdomain.Entry
}

func (r *memEntries) Create(ctx context.Context, e *auditdomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e2 := *e
	r.entries = append(r.entries, &e2)
	return nil
}

func (r *memEntries) List(ctx context.Context, f auditdomain.Filter, page, limit int) ([]*auditdomain.Entry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*auditdomain.Entry, len(r.entries))
	copy(out, r.entries)
	return out, int64(len(out)), nil
}

func (r *memEntries) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		out = append(out, e.EventType)
	}
	return out
}

type memSessions struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func sessKey(userID, deviceID string) string { return userID + "|" + deviceID }

func (r *memSessions) Get(ctx context.Context, userID, deviceID string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[sessKey(userID, deviceID)]
	if !ok {
		return nil, nil
	}
	s2 := *s
	return &s2, nil
}

func (r *memSessions) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[sessKey(s.UserID, s.DeviceID)] = &s2
	return nil
}

func (r *memSessions) Touch(ctx context.Context, userID, deviceID, refreshToken, reason string) error {
	return nil
}

func (r *memSessions) UpdateContext(ctx context.Context, userID, deviceID, ipAddress, browser, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessKey(userID, deviceID)]; ok {
		s.IPAddress = ipAddress
		s.Browser = browser
		s.Reason = reason
	}
	return nil
}

func (r *memSessions) Revoke(ctx context.Context, userID, deviceID, reason string) error {
	return nil
}

func (r *memSessions) List(ctx context.Context, status string) ([]*sessiondomain.View, error) {
	return nil, nil
}

func newDriftFixture(reason string) (*Recorder, *memEntries, *memSessions) {
	entries := &memEntries{}
	sessions := &memSessions{m: map[string]*sessiondomain.Session{}}
	_ = sessions.Create(context.Background(), &sessiondomain.Session{
		ID:        "s1",
		UserID:    "u1",
		DeviceID:  "d1",
		IPAddress: "10.0.0.1",
		Browser:   "firefox",
		OS:        "linux",
		Reason:    reason,
		Status:    sessiondomain.StatusActive,
	})
	return NewRecorder(entries, sessions), entries, sessions
}

func TestRecordDriftNoChange(t *testing.T) {
	rec, entries, _ := newDriftFixture("")
	rec.RecordDrift(context.Background(), "u1", "d1", RequestContext{
		IPAddress: "10.0.0.1", Browser: "firefox", OS: "linux",
	})
	if len(entries.events()) != 0 {
		t.Fatalf("entries = %v, want none", entries.events())
	}
}

func TestRecordDriftIPChange(t *testing.T) {
	rec, entries, sessions := newDriftFixture("")
	ctx := context.Background()

	rec.RecordDrift(ctx, "u1", "d1", RequestContext{
		IPAddress: "172.16.0.9", Browser: "firefox", OS: "linux",
	})

	evs := entries.events()
	if len(evs) != 1 || evs[0] != sessiondomain.ReasonIPChange {
		t.Fatalf("events = %v, want [ip_change]", evs)
	}
	e := entries.entries[0]
	if e.OldValue != "10.0.0.1" || e.NewValue != "172.16.0.9" {
		t.Fatalf("old/new = %s/%s", e.OldValue, e.NewValue)
	}
	if e.SessionID != "s1" || e.UserID != "u1" {
		t.Fatalf("entry ids = %s/%s", e.SessionID, e.UserID)
	}

	sess, _ := sessions.Get(ctx, "u1", "d1")
	if sess.IPAddress != "172.16.0.9" || sess.Reason != sessiondomain.ReasonIPChange {
		t.Fatalf("session ip/reason = %s/%s", sess.IPAddress, sess.Reason)
	}
}

func TestRecordDriftUserAgentChange(t *testing.T) {
	rec, entries, _ := newDriftFixture("")
	rec.RecordDrift(context.Background(), "u1", "d1", RequestContext{
		IPAddress: "10.0.0.1", Browser: "chrome", OS: "linux",
	})
	evs := entries.events()
	if len(evs) != 1 || evs[0] != sessiondomain.ReasonUserAgentChange {
		t.Fatalf("events = %v, want [user_agent_change]", evs)
	}
}

func TestRecordDriftFlushesRefreshMarkerFirst(t *testing.T) {
	rec, entries, sessions := newDriftFixture(sessiondomain.ReasonRefreshToken)
	ctx := context.Background()

	rec.RecordDrift(ctx, "u1", "d1", RequestContext{
		IPAddress: "172.16.0.9", Browser: "firefox", OS: "linux",
	})

	evs := entries.events()
	if len(evs) != 2 || evs[0] != sessiondomain.ReasonRefreshToken || evs[1] != sessiondomain.ReasonIPChange {
		t.Fatalf("events = %v, want [refresh_token ip_change]", evs)
	}

	// The flushed marker must not repeat on the next observation.
	rec.RecordDrift(ctx, "u1", "d1", RequestContext{
		IPAddress: "172.16.0.9", Browser: "firefox", OS: "linux",
	})
	if got := len(entries.events()); got != 2 {
		t.Fatalf("entries after second drift = %d (%v), want 2", got, entries.events())
	}
	sess, _ := sessions.Get(ctx, "u1", "d1")
	if sess.Reason == sessiondomain.ReasonRefreshToken {
		t.Fatalf("session reason = %q, want marker replaced", sess.Reason)
	}
}

func TestRecordDriftFlushesRefreshMarkerWithoutDrift(t *testing.T) {
	rec, entries, sessions := newDriftFixture(sessiondomain.ReasonRefreshToken)
	ctx := context.Background()

	rec.RecordDrift(ctx, "u1", "d1", RequestContext{
		IPAddress: "10.0.0.1", Browser: "firefox", OS: "linux",
	})

	evs := entries.events()
	if len(evs) != 1 || evs[0] != sessiondomain.ReasonRefreshToken {
		t.Fatalf("events = %v, want [refresh_token]", evs)
	}
	sess, _ := sessions.Get(ctx, "u1", "d1")
	if sess.Reason != "" {
		t.Fatalf("session reason = %q, want cleared", sess.Reason)
	}
}

func TestRecordDriftSkipsAlreadyAuditedReason(t *testing.T) {
	rec, entries, sessions := newDriftFixture(sessiondomain.ReasonLogin)
	ctx := context.Background()

	// A reason audited at write time (login) must not be replayed by the
	// drift check.
	rec.RecordDrift(ctx, "u1", "d1", RequestContext{
		IPAddress: "10.0.0.1", Browser: "firefox", OS: "linux",
	})
	if len(entries.events()) != 0 {
		t.Fatalf("events = %v, want none", entries.events())
	}

	rec.RecordDrift(ctx, "u1", "d1", RequestContext{
		IPAddress: "172.16.0.9", Browser: "firefox", OS: "linux",
	})
	evs := entries.events()
	if len(evs) != 1 || evs[0] != sessiondomain.ReasonIPChange {
		t.Fatalf("events = %v, want [ip_change]", evs)
	}
	sess, _ := sessions.Get(ctx, "u1", "d1")
	if sess.Reason != sessiondomain.ReasonIPChange {
		t.Fatalf("session reason = %q, want ip_change", sess.Reason)
	}
}

func TestRecordDriftUnknownSession(t *testing.T) {
	rec, entries, _ := newDriftFixture("")
	rec.RecordDrift(context.Background(), "ghost", "d1", RequestContext{IPAddress: "1.2.3.4"})
	if len(entries.events()) != 0 {
		t.Fatal("drift recorded for unknown session")
	}
}

func TestRecordEvent(t *testing.T) {
	rec, entries, _ := newDriftFixture("")
	before := time.Now().UTC().Add(-time.Second)
	rec.RecordEvent(context.Background(), "s1", "u1", sessiondomain.ReasonLogout, "", "", RequestContext{
		IPAddress: "10.0.0.1", Browser: "firefox",
	})
	if len(entries.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries.entries))
	}
	e := entries.entries[0]
	if e.ID == "" {
		t.Fatal("entry has no id")
	}
	if e.EventType != sessiondomain.ReasonLogout || e.IPAddress != "10.0.0.1" || e.UserAgent != "firefox" {
		t.Fatalf("entry = %+v", e)
	}
	if e.Timestamp.Before(before) {
		t.Fatalf("timestamp %v not current", e.Timestamp)
	}
}
