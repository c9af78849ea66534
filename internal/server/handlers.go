package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	auditdomain "neo-auth/backend/internal/audit/domain"
	"neo-auth/backend/internal/auth/service"
	"neo-auth/backend/internal/server/middleware"
	sessiondomain "neo-auth/backend/internal/session/domain"
)

// Handler holds the HTTP handlers for the auth API.
type Handler struct {
	auth          *service.AuthService
	serviceTokens *service.ServiceTokenCache
}

// NewHandler returns the HTTP handler set. serviceTokens may be nil, which
// disables the service-token endpoint.
func NewHandler(auth *service.AuthService, serviceTokens *service.ServiceTokenCache) *Handler {
	return &Handler{auth: auth, serviceTokens: serviceTokens}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	Reason       string `json:"reason"`
}

type revokeRequest struct {
	SessionID    string `json:"session_id"`
	Username     string `json:"username"`
	DeviceID     string `json:"device_id"`
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	Username         string    `json:"username"`
	DeviceID         string    `json:"device_id"`
	Role             string    `json:"role"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func toAuthResponse(r *service.AuthResult) authResponse {
	return authResponse{
		AccessToken:      r.AccessToken,
		RefreshToken:     r.RefreshToken,
		Username:         r.Username,
		DeviceID:         r.DeviceID,
		Role:             r.Role,
		AccessExpiresAt:  r.AccessExpiresAt,
		RefreshExpiresAt: r.RefreshExpiresAt,
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	res, err := h.auth.Login(r.Context(), req.Username, req.Password, req.DeviceID, middleware.RequestContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

// Refresh handles POST /auth/refresh. The refresh token authenticates the
// request by itself; no access token is required.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken, req.DeviceID, middleware.RequestContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

// Logout handles POST /auth/logout. Identity comes from the verified access
// token, not the body, so a caller can only end its own session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	accessToken, _ := middleware.AccessTokenFrom(r.Context())

	var req logoutRequest
	if r.Body != nil {
		// Body is optional; a bare logout still revokes by (user, device).
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	err := h.auth.Logout(r.Context(), claims.Subject, claims.DeviceID, accessToken, req.RefreshToken, req.Reason, middleware.RequestContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ForceRevoke handles POST /auth/admin/revoke.
func (h *Handler) ForceRevoke(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	params := service.ForceRevokeParams{
		SessionID:    req.SessionID,
		Username:     req.Username,
		DeviceID:     req.DeviceID,
		RefreshToken: req.RefreshToken,
	}
	if err := h.auth.ForceRevoke(r.Context(), claims, params, middleware.RequestContext(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type sessionView struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	UserID        string     `json:"user_id"`
	DeviceID      string     `json:"device_id"`
	IPAddress     string     `json:"ip_address"`
	Browser       string     `json:"browser"`
	OS            string     `json:"os"`
	LoginAt       time.Time  `json:"login_at"`
	LastRefreshAt time.Time  `json:"last_refresh_at"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

func toSessionView(s *sessiondomain.View) sessionView {
	return sessionView{
		ID:            s.ID,
		Username:      s.Username,
		UserID:        s.UserID,
		DeviceID:      s.DeviceID,
		IPAddress:     s.IPAddress,
		Browser:       s.Browser,
		OS:            s.OS,
		LoginAt:       s.LoginAt,
		LastRefreshAt: s.LastRefreshAt,
		Status:        s.Status,
		Reason:        s.Reason,
		RevokedAt:     s.RevokedAt,
	}
}

// ListSessions handles GET /auth/admin/sessions. Admin sessions themselves
// are excluded from the listing.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.auth.ListSessions(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views, "count": len(views)})
}

type auditEntryView struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditLog handles GET /auth/admin/audit with optional user_id, event_type,
// start, end (RFC 3339), page, and limit query parameters.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := auditdomain.Filter{
		UserID:    q.Get("user_id"),
		EventType: q.Get("event_type"),
	}
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "start must be RFC 3339"})
			return
		}
		f.Start = t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "end must be RFC 3339"})
			return
		}
		f.End = t
	}

	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), 50)

	entries, total, err := h.auth.AuditLog(r.Context(), f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]auditEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, auditEntryView{
			ID:        e.ID,
			SessionID: e.SessionID,
			UserID:    e.UserID,
			EventType: e.EventType,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Timestamp: e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": views,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active    bool   `json:"active"`
	Username  string `json:"username,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Introspect handles POST /auth/introspect, the service-to-service check
// for access tokens. Guarded by the shared service token.
func (h *Handler) Introspect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	status, err := h.auth.Introspect(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := introspectResponse{
		Active:   status.Active,
		Username: status.Username,
		DeviceID: status.DeviceID,
		Role:     status.Role,
	}
	if !status.ExpiresAt.IsZero() {
		resp.ExpiresAt = status.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ServiceToken handles GET /auth/service-token, returning the shared
// service credential for public, unauthenticated surfaces.
func (h *Handler) ServiceToken(w http.ResponseWriter, r *http.Request) {
	if h.serviceTokens == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
		return
	}
	token, err := h.serviceTokens.GetOrIssue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"service_token": token})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
