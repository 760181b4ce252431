package httpapi

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const tokenContextKey contextKey = "token"

// bearerToken extracts the token from the Authorization header, or ""
// when no bearer credential is present.
func bearerToken(req *http.Request) string {
	authz := req.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authz, "Bearer ")
}

// authMiddleware requires a bearer token and a live session for it.
// The raw token is put on the context; the Data Service re-resolves it
// per operation.
func (r *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := bearerToken(req)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		sess, err := r.svc.Session(req.Context(), token)
		if err != nil {
			r.fail(w, err)
			return
		}
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(req.Context(), tokenContextKey, token)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func tokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenContextKey).(string); ok {
		return v
	}
	return ""
}
