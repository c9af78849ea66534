package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"neo-auth/backend/internal/audit"
	auditdomain "neo-auth/backend/internal/audit/domain"
	"neo-auth/backend/internal/auth/service"
	"neo-auth/backend/internal/blacklist"
	"neo-auth/backend/internal/security"
	"neo-auth/backend/internal/server/middleware"
	sessiondomain "neo-auth/backend/internal/session/domain"
	tokendomain "neo-auth/backend/internal/token/domain"
	tokenrepo "neo-auth/backend/internal/token/repository"
	userdomain "neo-auth/backend/internal/user/domain"
)

func pairKey(a, b string) string { return a + "|" + b }

type stubUsers struct {
	mu         sync.Mutex
	byID       map[string]*userdomain.User
	byUsername map[string]*userdomain.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: map[string]*userdomain.User{}, byUsername: map[string]*userdomain.User{}}
}

func (r *stubUsers) add(u *userdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u
}

func (r *stubUsers) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byUsername[username]; ok {
		u2 := *u
		return &u2, nil
	}
	return nil, nil
}

func (r *stubUsers) RecordFailure(ctx context.Context, username string, blockedUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byUsername[username]; ok {
		u.FailedAttempts++
		if blockedUntil != nil {
			u.BlockedUntil = blockedUntil
		}
	}
	return nil
}

func (r *stubUsers) ResetFailures(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byUsername[username]; ok {
		u.FailedAttempts = 0
		u.BlockedUntil = nil
	}
	return nil
}

type stubTokens struct {
	mu   sync.Mutex
	recs map[string]*tokendomain.Record
}

func newStubTokens() *stubTokens { return &stubTokens{recs: map[string]*tokendomain.Record{}} }

func (s *stubTokens) Upsert(ctx context.Context, p tokenrepo.UpsertParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.recs[pairKey(p.Username, p.DeviceID)] = &tokendomain.Record{
		Username:     p.Username,
		DeviceID:     p.DeviceID,
		FamilyID:     p.FamilyID,
		RefreshToken: p.RefreshToken,
		Role:         p.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    p.ExpiresAt,
		Attempts:     p.Attempts,
		IPAddress:    p.IPAddress,
		Browser:      p.Browser,
		OS:           p.OS,
	}
	return nil
}

func (s *stubTokens) MarkUsed(ctx context.Context, p tokenrepo.MarkUsedParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[pairKey(p.Username, p.DeviceID)]
	if !ok || rec.FamilyID != p.FamilyID || rec.RefreshToken != p.RefreshToken ||
		!rec.CreatedAt.Equal(p.CreatedAt) || !rec.ExpiresAt.Equal(p.ExpiresAt) ||
		rec.UsedAt != nil || rec.RevokedAt != nil {
		return 0, nil
	}
	now := time.Now().UTC()
	rec.UsedAt = &now
	rec.RevokedAt = &now
	return 1, nil
}

func (s *stubTokens) Revoke(ctx context.Context, username, deviceID, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[pairKey(username, deviceID)]
	if !ok || rec.RefreshToken != token || rec.RevokedAt != nil {
		return 0, nil
	}
	now := time.Now().UTC()
	rec.RevokedAt = &now
	return 1, nil
}

func (s *stubTokens) RevokeAllForUser(ctx context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, rec := range s.recs {
		if rec.Username == username && rec.RevokedAt == nil {
			rec.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *stubTokens) RevokeByDevice(ctx context.Context, deviceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, rec := range s.recs {
		if rec.DeviceID == deviceID && rec.RevokedAt == nil {
			rec.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *stubTokens) RevokeByFamily(ctx context.Context, familyID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, rec := range s.recs {
		if rec.FamilyID == familyID && rec.RevokedAt == nil {
			rec.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *stubTokens) FindByToken(ctx context.Context, token string) (*tokendomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.RefreshToken == token {
			r2 := *rec
			return &r2, nil
		}
	}
	return nil, nil
}

func (s *stubTokens) FindActive(ctx context.Context, username, deviceID string) (*tokendomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[pairKey(username, deviceID)]
	if !ok || !rec.Active(time.Now().UTC()) {
		return nil, nil
	}
	r2 := *rec
	return &r2, nil
}

func (s *stubTokens) InUseByUser(ctx context.Context, username string) (*tokendomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *tokendomain.Record
	for _, rec := range s.recs {
		if rec.Username != username || rec.RevokedAt != nil {
			continue
		}
		if newest == nil || rec.CreatedAt.After(newest.CreatedAt) {
			newest = rec
		}
	}
	if newest == nil {
		return nil, nil
	}
	r2 := *newest
	return &r2, nil
}

type stubSessions struct {
	mu    sync.Mutex
	m     map[string]*sessiondomain.Session
	users *stubUsers
}

func newStubSessions(users *stubUsers) *stubSessions {
	return &stubSessions{m: map[string]*sessiondomain.Session{}, users: users}
}

func (r *stubSessions) Get(ctx context.Context, userID, deviceID string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[pairKey(userID, deviceID)]; ok {
		s2 := *s
		return &s2, nil
	}
	return nil, nil
}

func (r *stubSessions) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[pairKey(s.UserID, s.DeviceID)] = &s2
	return nil
}

func (r *stubSessions) Touch(ctx context.Context, userID, deviceID, refreshToken, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[pairKey(userID, deviceID)]; ok {
		s.IsRevoked = false
		s.RevokedAt = nil
		s.LastRefreshAt = time.Now().UTC()
		s.RefreshToken = refreshToken
		s.Reason = reason
		s.Status = sessiondomain.StatusActive
	}
	return nil
}

func (r *stubSessions) UpdateContext(ctx context.Context, userID, deviceID, ipAddress, browser, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[pairKey(userID, deviceID)]; ok {
		s.IPAddress = ipAddress
		s.Browser = browser
		s.Reason = reason
	}
	return nil
}

func (r *stubSessions) Revoke(ctx context.Context, userID, deviceID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[pairKey(userID, deviceID)]; ok {
		now := time.Now().UTC()
		s.IsRevoked = true
		s.RevokedAt = &now
		s.Reason = reason
		s.Status = sessiondomain.StatusRevoked
	}
	return nil
}

func (r *stubSessions) List(ctx context.Context, status string) ([]*sessiondomain.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.View
	for _, s := range r.m {
		u := r.users.byID[s.UserID]
		if u == nil || u.Role == security.RoleAdmin {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, &sessiondomain.View{Session: *s, Username: u.Username, Role: u.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginAt.After(out[j].LoginAt) })
	return out, nil
}

type stubAudit struct {
	mu      sync.Mutex
	entries []*auditdomain.Entry
}

func (r *stubAudit) Create(ctx context.Context, e *auditdomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e2 := *e
	r.entries = append(r.entries, &e2)
	return nil
}

func (r *stubAudit) List(ctx context.Context, f auditdomain.Filter, page, limit int) ([]*auditdomain.Entry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*auditdomain.Entry
	for _, e := range r.entries {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		e2 := *e
		matched = append(matched, &e2)
	}
	return matched, int64(len(matched)), nil
}

type stubBlacklist struct {
	mu sync.Mutex
	m  map[string]blacklist.Entry
}

func newStubBlacklist() *stubBlacklist { return &stubBlacklist{m: map[string]blacklist.Entry{}} }

func (b *stubBlacklist) Revoke(ctx context.Context, token string, e blacklist.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.m[token]; !ok {
		b.m[token] = e
	}
	return nil
}

func (b *stubBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.m[token]
	return ok, nil
}

type webFixture struct {
	srv    *httptest.Server
	users  *stubUsers
	hasher *security.Hasher
	codec  *security.Codec
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	codec, err := security.NewTestCodec()
	if err != nil {
		t.Fatalf("test codec: %v", err)
	}
	users := newStubUsers()
	tokens := newStubTokens()
	sessions := newStubSessions(users)
	auditLog := &stubAudit{}
	bl := newStubBlacklist()
	hasher := security.NewHasher(bcrypt.MinCost)
	recorder := audit.NewRecorder(auditLog, sessions)
	svc := service.NewAuthService(users, tokens, sessions, recorder, bl, hasher, codec, nil, nil, 3, 120*time.Second)
	cache := service.NewServiceTokenCache(codec, nil)

	handler := NewHandler(svc, cache)
	router := NewRouter(handler, middleware.NewAuth(codec, bl))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &webFixture{srv: srv, users: users, hasher: hasher, codec: codec}
}

func (f *webFixture) addUser(t *testing.T, id, username, password, role string) {
	t.Helper()
	hash, err := f.hasher.Hash([]byte(password))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f.users.add(&userdomain.User{ID: id, Username: username, PasswordHash: hash, Role: role})
}

func (f *webFixture) post(t *testing.T, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return f.do(t, req)
}

func (f *webFixture) get(t *testing.T, path, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return f.do(t, req)
}

func (f *webFixture) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f *webFixture) login(t *testing.T, username, password, deviceID string) map[string]any {
	t.Helper()
	resp, body := f.post(t, "/auth/login", "", map[string]string{
		"username": username, "password": password, "device_id": deviceID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %v", resp.StatusCode, body)
	}
	return body
}

func str(t *testing.T, body map[string]any, key string) string {
	t.Helper()
	v, ok := body[key].(string)
	if !ok {
		t.Fatalf("missing %q in %v", key, body)
	}
	return v
}

func TestLoginRefreshLogoutFlow(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")

	body := f.login(t, "alice", "sekrit", "dev-1")
	access := str(t, body, "access_token")
	refresh := str(t, body, "refresh_token")
	if str(t, body, "role") != "User" {
		t.Fatalf("role = %v", body["role"])
	}

	resp, body := f.post(t, "/auth/refresh", "", map[string]string{
		"refresh_token": refresh, "device_id": "dev-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, body %v", resp.StatusCode, body)
	}
	rotated := str(t, body, "refresh_token")
	if rotated == refresh {
		t.Fatal("refresh token not rotated")
	}

	resp, body = f.post(t, "/auth/logout", access, map[string]string{"refresh_token": rotated})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, body %v", resp.StatusCode, body)
	}

	// The blacklisted access token no longer authenticates.
	resp, _ = f.post(t, "/auth/logout", access, map[string]string{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reused access token status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")

	resp, body := f.post(t, "/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong", "device_id": "dev-1",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body["error"] != "invalid_credentials" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	f := newWebFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/auth/login", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, body := f.do(t, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %v", resp.StatusCode, body)
	}
}

func TestRefreshReplayReturnsForbidden(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")

	body := f.login(t, "alice", "sekrit", "dev-1")
	refresh := str(t, body, "refresh_token")

	resp, _ := f.post(t, "/auth/refresh", "", map[string]string{
		"refresh_token": refresh, "device_id": "dev-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first refresh status = %d", resp.StatusCode)
	}

	resp, body = f.post(t, "/auth/refresh", "", map[string]string{
		"refresh_token": refresh, "device_id": "dev-1",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("replay status = %d, want 403, body %v", resp.StatusCode, body)
	}
	if body["error"] != "token_reuse_detected" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestSecondDeviceLoginConflicts(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")
	f.login(t, "alice", "sekrit", "dev-1")

	resp, body := f.post(t, "/auth/login", "", map[string]string{
		"username": "alice", "password": "sekrit", "device_id": "dev-2",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body %v", resp.StatusCode, body)
	}
	if body["error"] != "device_conflict" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestLogoutRequiresBearer(t *testing.T) {
	f := newWebFixture(t)

	resp, _ := f.post(t, "/auth/logout", "", map[string]string{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminEndpointsRejectNonAdmins(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")

	body := f.login(t, "alice", "sekrit", "dev-1")
	access := str(t, body, "access_token")

	resp, _ := f.get(t, "/auth/admin/sessions", access)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("sessions status = %d, want 403", resp.StatusCode)
	}
	resp, _ = f.post(t, "/auth/admin/revoke", access, map[string]string{"username": "bob", "device_id": "dev-9"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("revoke status = %d, want 403", resp.StatusCode)
	}
	resp, _ = f.get(t, "/auth/admin/audit", access)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("audit status = %d, want 403", resp.StatusCode)
	}
}

func TestAdminForceRevokeFlow(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")
	f.addUser(t, "a1", "root", "toor", security.RoleAdmin)

	userBody := f.login(t, "alice", "sekrit", "dev-1")
	userRefresh := str(t, userBody, "refresh_token")

	adminBody := f.login(t, "root", "toor", "admin-dev")
	adminAccess := str(t, adminBody, "access_token")

	resp, body := f.post(t, "/auth/admin/revoke", adminAccess, map[string]string{
		"username": "alice", "device_id": "dev-1", "refresh_token": userRefresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke status = %d, body %v", resp.StatusCode, body)
	}

	resp, body = f.post(t, "/auth/refresh", "", map[string]string{
		"refresh_token": userRefresh, "device_id": "dev-1",
	})
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("revoked token still rotates: %v", body)
	}

	resp, body = f.get(t, "/auth/admin/sessions?status=revoked", adminAccess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions status = %d", resp.StatusCode)
	}
	sessions, _ := body["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("revoked sessions = %d, want 1", len(sessions))
	}
}

func TestAdminAuditLog(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")
	f.addUser(t, "a1", "root", "toor", security.RoleAdmin)
	f.login(t, "alice", "sekrit", "dev-1")

	adminBody := f.login(t, "root", "toor", "admin-dev")
	adminAccess := str(t, adminBody, "access_token")

	resp, body := f.get(t, "/auth/admin/audit?user_id=u1&event_type=login", adminAccess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	entries, _ := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	resp, _ = f.get(t, "/auth/admin/audit?start=yesterday", adminAccess)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad start status = %d, want 400", resp.StatusCode)
	}
}

func TestServiceTokenEndpoint(t *testing.T) {
	f := newWebFixture(t)

	resp, body := f.get(t, "/auth/service-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	token := str(t, body, "service_token")
	if _, err := f.codec.VerifyServiceToken(token); err != nil {
		t.Fatalf("verify service token: %v", err)
	}
}

func TestIntrospect(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "u1", "alice", "sekrit", "User")

	body := f.login(t, "alice", "sekrit", "dev-1")
	access := str(t, body, "access_token")

	resp, _ := f.post(t, "/auth/introspect", "", map[string]string{"token": access})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("without service token status = %d, want 401", resp.StatusCode)
	}

	resp, tokenBody := f.get(t, "/auth/service-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("service token status = %d", resp.StatusCode)
	}
	serviceToken := str(t, tokenBody, "service_token")

	resp, body = f.post(t, "/auth/introspect", serviceToken, map[string]string{"token": access})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("introspect status = %d, body %v", resp.StatusCode, body)
	}
	if body["active"] != true || body["username"] != "alice" || body["device_id"] != "dev-1" {
		t.Fatalf("body = %v", body)
	}

	resp, body = f.post(t, "/auth/introspect", serviceToken, map[string]string{"token": "garbage"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("garbage introspect status = %d", resp.StatusCode)
	}
	if body["active"] != false {
		t.Fatalf("garbage token reported active: %v", body)
	}
}

func TestHealth(t *testing.T) {
	f := newWebFixture(t)

	resp, body := f.get(t, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestStatusForMapping(t *testing.T) {
	cases := []struct {
		name string
		err  *service.Error
		want int
	}{
		{"bad credentials", service.ErrBadCredentials, http.StatusUnauthorized},
		{"locked account", service.ErrUserLocked, http.StatusForbidden},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"missing fields", service.ErrMissingFields, http.StatusBadRequest},
		{"unknown target", service.ErrUnknownTarget, http.StatusNotFound},
		{"invalid token", service.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", service.ErrTokenExpired, http.StatusUnauthorized},
		{"max attempts", service.ErrMaxAttempts, http.StatusUnauthorized},
		{"device conflict", service.ErrDeviceConflict, http.StatusConflict},
		{"rotation conflict", service.ErrRotationConflict, http.StatusConflict},
		{"reuse detected", service.ErrReuseDetected, http.StatusForbidden},
		{"revoke failed", service.ErrRevokeFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Fatalf("statusFor(%s) = %d, want %d", tc.err.Code, got, tc.want)
			}
		})
	}
}
