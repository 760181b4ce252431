// Package httpapi exposes the Data Service over HTTP JSON. The surface
// is identical no matter which storage backend is active. Success
// bodies are wrapped as {"data": ...}; failures as {"error": "..."}.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/logging"
	"github.com/dmitrijs2005/datavault/internal/server/service"
)

type Router struct {
	svc    *service.Service
	logger logging.Logger
}

func NewRouter(svc *service.Service, logger logging.Logger) http.Handler {
	r := &Router{svc: svc, logger: logger.With("module", "httpapi")}

	mux := chi.NewRouter()

	mux.Get("/api/health", r.handleHealth)
	mux.Post("/api/auth/login", r.handleLogin)
	mux.Post("/api/auth/logout", r.handleLogout)
	mux.Get("/api/auth/session", r.handleSession)

	mux.Get("/api/backend", r.handleBackendState)
	mux.Post("/api/backend/reprobe", r.handleReprobe)

	mux.Group(func(pr chi.Router) {
		pr.Use(r.authMiddleware)
		pr.Get("/api/data", r.handleFetchItems)
		pr.Post("/api/data", r.handleCreateItem)
		pr.Put("/api/data/{id}", r.handleUpdateItem)
		pr.Delete("/api/data/{id}", r.handleDeleteItem)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps v in the {"data": ...} success envelope.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFromError maps the shared error taxonomy onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) fail(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		// internal detail stays out of the response body
		writeError(w, status, common.ErrorInternal.Error())
		return
	}
	writeError(w, status, err.Error())
}
