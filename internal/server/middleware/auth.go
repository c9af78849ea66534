package middleware

import (
	"log"
	"net/http"
	"strings"

	"neo-auth/backend/internal/blacklist"
	"neo-auth/backend/internal/security"
)

// Auth verifies bearer credentials and enforces role requirements.
type Auth struct {
	codec     *security.Codec
	blacklist blacklist.Store
}

// NewAuth returns the authentication middleware. blacklist may be nil, which
// disables the revocation check (tests, tools).
func NewAuth(codec *security.Codec, bl blacklist.Store) *Auth {
	return &Auth{codec: codec, blacklist: bl}
}

// RequireAccess authenticates the request with a bearer access token. A
// correctly signed, unexpired token is still rejected when blacklisted.
// On success the verified claims and raw token are placed on the context.
func (a *Auth) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "missing bearer token")
			return
		}
		claims, err := a.codec.Verify(token, security.TokenTypeAccess)
		if err != nil {
			unauthorized(w, "invalid access token")
			return
		}
		if a.blacklist != nil {
			revoked, err := a.blacklist.IsRevoked(r.Context(), token)
			if err != nil {
				// Fail closed: an unreachable blacklist must not let
				// possibly-revoked tokens through.
				log.Printf("middleware: blacklist check: %v", err)
				http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
				return
			}
			if revoked {
				unauthorized(w, "token revoked")
				return
			}
		}
		ctx := WithClaims(r.Context(), claims)
		ctx = WithAccessToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only admin-role claims through. Must run after
// RequireAccess.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok || claims.Role != security.RoleAdmin {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireService authenticates with the shared service token, used by
// unauthenticated public endpoints.
func (a *Auth) RequireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "missing bearer token")
			return
		}
		claims, err := a.codec.VerifyServiceToken(token)
		if err != nil {
			unauthorized(w, "invalid service token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Chain applies the middlewares right-to-left, so the first listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"forbidden"}`))
}
