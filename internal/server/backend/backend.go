// Package backend defines the storage contract every concrete backend
// satisfies. The uniform contract lets the selector swap
// implementations with zero caller-visible change and lets the same
// test suite run against all backends.
package backend

import (
	"context"

	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// Backend is the shared persistence contract.
//
// Error conventions (matched with errors.Is against internal/common):
//   - SignIn fails with ErrorUnauthorized on bad credentials.
//   - SignOut is idempotent and succeeds for unknown tokens.
//   - Session returns (nil, nil) when no session matches; "no session"
//     is never an error. An empty token asks for the first viable
//     session, which only the reference backend honors.
//   - CreateItem fails with ErrorValidation when required fields are
//     absent.
//   - UpdateItem and DeleteItem fail with ErrorNotFound for unknown ids.
//   - HealthCheck never returns an error; unavailability is a false.
type Backend interface {
	// Name returns the backend tag, which is also the token prefix
	// ("local", "kv", "relational").
	Name() string

	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (*models.Session, error)

	// FetchItems returns the user's items ordered newest CreatedAt
	// first.
	FetchItems(ctx context.Context, userID string) ([]models.DataItem, error)
	CreateItem(ctx context.Context, userID string, payload models.ItemPayload) (*models.DataItem, error)
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.DataItem, error)
	DeleteItem(ctx context.Context, id string) error

	HealthCheck(ctx context.Context) bool
	Close() error
}

// Token builds an opaque bearer token from a backend tag and the rest
// of the credential (a user id for local backends, a random identifier
// for the relational one).
func Token(name, rest string) string {
	return name + "_" + rest
}
