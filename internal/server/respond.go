// Package server exposes the rotation protocol over HTTP. Handlers decode
// requests, call the auth service, and translate typed error kinds into
// status codes; no protocol decision lives here.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"neo-auth/backend/internal/auth/service"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

// writeError maps a service error to an HTTP status. Store failures are
// logged with their cause and reported with a generic code; everything else
// carries its machine-readable code through.
func writeError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		log.Printf("server: unclassified error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
		return
	}

	status := statusFor(svcErr)
	if svcErr.Kind == service.KindStore {
		log.Printf("server: store failure (%s): %v", svcErr.Code, err)
		writeJSON(w, status, errorBody{Error: "internal_error"})
		return
	}
	writeJSON(w, status, errorBody{Error: svcErr.Code, Message: svcErr.Message})
}

func statusFor(e *service.Error) int {
	switch e.Kind {
	case service.KindAuthentication:
		if e.Code == "forbidden" || e.Code == "account_locked" {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case service.KindValidation:
		if e.Code == "unknown_target" {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case service.KindToken:
		return http.StatusUnauthorized
	case service.KindConflict:
		return http.StatusConflict
	case service.KindReuseDetected:
		return http.StatusForbidden
	case service.KindStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
