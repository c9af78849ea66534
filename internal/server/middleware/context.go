// Package middleware holds the HTTP middleware chain: bearer-token
// authentication, role guards, and identity-context extraction. Guards are
// composed explicitly at route registration, not wrapped around handlers ad
// hoc.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"neo-auth/backend/internal/audit"
	"neo-auth/backend/internal/security"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	accessTokenKey
)

// WithClaims returns a context carrying the verified access-token claims.
func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the verified claims set by RequireAccess, if any.
func ClaimsFrom(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.Claims)
	return claims, ok
}

// WithAccessToken returns a context carrying the raw bearer token, so logout
// can blacklist the exact credential that authorized it.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessTokenFrom returns the raw bearer token set by RequireAccess, if any.
func AccessTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok
}

// RequestContext extracts the identity context (client IP, browser, OS)
// observed on the request, for session tracking and drift audit.
func RequestContext(r *http.Request) audit.RequestContext {
	ua := r.UserAgent()
	return audit.RequestContext{
		IPAddress: clientIP(r),
		Browser:   browserFamily(ua),
		OS:        osFamily(ua),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// browserFamily reduces a User-Agent string to a coarse browser family. The
// audit trail only needs to notice a change, not fingerprint the client.
func browserFamily(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "edg/"):
		return "edge"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	default:
		return "other"
	}
}

func osFamily(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "ios"
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "mac os"):
		return "macos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "other"
	}
}
