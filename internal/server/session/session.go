// Package session implements the backend-agnostic token model. Tokens
// are opaque strings tagged with a backend-identifying prefix; the
// manager validates them uniformly no matter which backend issued them.
package session

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// prefixes of tokens this deployment can ever issue
var knownPrefixes = []string{"relational_", "kv_", "local_"}

// Recognized reports whether the token carries a known backend prefix.
func Recognized(token string) bool {
	for _, p := range knownPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

// UserID extracts the user id from tokens that embed it directly
// (local and kv backends). Relational tokens are random identifiers
// resolved server-side, so they report false, as does any unrecognized
// prefix.
func UserID(token string) (string, bool) {
	for _, p := range []string{"kv_", "local_"} {
		if strings.HasPrefix(token, p) {
			return strings.TrimPrefix(token, p), true
		}
	}
	return "", false
}

// Manager validates and revokes tokens against whichever backend is
// currently active.
type Manager struct {
	active func() backend.Backend
}

// NewManager wires the manager to a read accessor for the active
// backend. The accessor is consulted on every call, so selection
// changes between requests are picked up automatically.
func NewManager(active func() backend.Backend) *Manager {
	return &Manager{active: active}
}

// Resolve returns the session bound to token, or nil when there is
// none. An unrecognized prefix is "no session", never an error. An
// empty token asks the backend for its first viable session.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token != "" && !Recognized(token) {
		return nil, nil
	}
	return m.active().Session(ctx, token)
}

// Logout revokes the token. Revoking a token that does not exist
// succeeds silently.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token != "" && !Recognized(token) {
		return nil
	}
	return m.active().SignOut(ctx, token)
}
