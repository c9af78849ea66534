package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"neo-auth/backend/internal/server/middleware"
)

// NewRouter registers the auth API routes. Guard chains are composed here,
// per route, so the protection of every endpoint is visible in one place.
func NewRouter(h *Handler, auth *middleware.Auth) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(h.Health)).Methods(http.MethodGet)

	api := r.PathPrefix("/auth").Subrouter()

	api.Handle("/login", http.HandlerFunc(h.Login)).Methods(http.MethodPost)
	api.Handle("/refresh", http.HandlerFunc(h.Refresh)).Methods(http.MethodPost)
	api.Handle("/logout", middleware.Chain(
		http.HandlerFunc(h.Logout),
		auth.RequireAccess,
	)).Methods(http.MethodPost)
	api.Handle("/service-token", http.HandlerFunc(h.ServiceToken)).Methods(http.MethodGet)
	api.Handle("/introspect", middleware.Chain(
		http.HandlerFunc(h.Introspect),
		auth.RequireService,
	)).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/revoke", middleware.Chain(
		http.HandlerFunc(h.ForceRevoke),
		auth.RequireAccess,
		auth.RequireAdmin,
	)).Methods(http.MethodPost)
	admin.Handle("/sessions", middleware.Chain(
		http.HandlerFunc(h.ListSessions),
		auth.RequireAccess,
		auth.RequireAdmin,
	)).Methods(http.MethodGet)
	admin.Handle("/audit", middleware.Chain(
		http.HandlerFunc(h.AuditLog),
		auth.RequireAccess,
		auth.RequireAdmin,
	)).Methods(http.MethodGet)

	return r
}
