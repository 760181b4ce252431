package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	sess, err := r.svc.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		r.fail(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"session": sess})
}

// handleLogout always succeeds: revoking a missing or unknown token is
// a no-op.
func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.Logout(req.Context(), bearerToken(req)); err != nil {
		r.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// handleSession reports the session for an optional bearer token; a
// missing or unknown token yields a null session, not an error.
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	sess, err := r.svc.Session(req.Context(), bearerToken(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"session": sess})
}

func (r *Router) handleBackendState(w http.ResponseWriter, req *http.Request) {
	name, state := r.svc.BackendState()
	writeData(w, http.StatusOK, map[string]string{
		"backend": name,
		"state":   state.String(),
	})
}

func (r *Router) handleReprobe(w http.ResponseWriter, req *http.Request) {
	name, state := r.svc.Reprobe(req.Context())
	r.logger.Info(req.Context(), "manual backend reprobe", "backend", name, "state", state.String())
	writeData(w, http.StatusOK, map[string]string{
		"backend": name,
		"state":   state.String(),
	})
}
