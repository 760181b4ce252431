// Package models defines the entities shared by every storage backend:
// users, data items, partial item updates, and sessions. The JSON tags
// double as the wire shape of the HTTP API.
package models

import "time"

// User is created once when a backend seeds itself and never mutated.
// Password is compared verbatim; real deployments must substitute a
// salted-hash comparison.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DataItem is the unit of user data. ID and both timestamps are
// backend-assigned; UpdatedAt is refreshed on every successful update
// and is never earlier than CreatedAt.
type DataItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Category    string    `json:"category,omitempty"`
	Quantity    float64   `json:"quantity,omitempty"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemPayload carries the caller-supplied fields for item creation.
// Name is required; Status defaults to "active" when empty.
type ItemPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Category    string  `json:"category,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
}

// ItemPatch is a partial update. Nil means "field not provided"; only
// non-nil fields overwrite the stored record. ID and CreatedAt can
// never be patched.
type ItemPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
}

// Empty reports whether the patch carries no fields at all.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil &&
		p.Category == nil && p.Quantity == nil
}

// Apply merges the patch onto item, leaving ID, UserID, and CreatedAt
// untouched. The caller is responsible for refreshing UpdatedAt.
func (p ItemPatch) Apply(item *DataItem) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
}

// SessionUser is the identity snapshot embedded in a session.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session wraps whatever identity a backend's sign-in returns into an
// opaque bearer token. ExpiresAt is set only by backends that enforce
// expiry server-side.
type Session struct {
	AccessToken string     `json:"access_token"`
	User        SessionUser `json:"user"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
