// Package memory implements the reference backend: in-process
// collections persisted as a single JSON snapshot. It is the backend of
// last resort and must never fail due to unavailability.
package memory

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

const name = "local"

// snapshot is the persisted layout: one serialized record holding both
// collections under a single named storage slot.
type snapshot struct {
	Users     []models.User     `json:"users"`
	DataItems []models.DataItem `json:"dataItems"`
}

// Backend holds users and items as plain slices guarded by a mutex.
// Every mutation rewrites the snapshot file; the file is reloaded at
// construction. Sessions live only in process memory.
type Backend struct {
	mu       sync.Mutex
	path     string
	users    []models.User
	items    []models.DataItem
	sessions map[string]models.Session

	latencyMin time.Duration
	latencyMax time.Duration
}

type Option func(*Backend)

// WithLatency overrides the artificial latency range. Pass zeros to
// disable delays entirely (tests).
func WithLatency(min, max time.Duration) Option {
	return func(b *Backend) {
		b.latencyMin = min
		b.latencyMax = max
	}
}

// New constructs the reference backend, reloading the snapshot at path
// when one exists. An empty path keeps the backend purely volatile.
/// Construction cannot fail: an unreadable or corrupt snapshot is
// discarded and the backend starts fresh with seed data.
func New(path string, opts ...Option) *Backend {
	b := &Backend{
		path:     path,
		sessions: make(map[string]models.Session),

		// deliberate artificial latency to mimic network behavior
		latencyMin: 100 * time.Millisecond,
		latencyMax: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.load()

	if len(b.users) == 0 {
		user, items := backend.Seed(time.Now().UTC())
		b.users = []models.User{user}
		b.items = items
		b.persist()
	}

	return b
}

func (b *Backend) Name() string { return name }

func (b *Backend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := b.delay(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range b.users {
		if u.Email == email && u.Password == password {
			session := models.Session{
				AccessToken: backend.Token(name, u.ID),
				User:        models.SessionUser{ID: u.ID, Email: u.Email},
			}
			b.sessions[session.AccessToken] = session
			return &session, nil
		}
	}

	return nil, common.ErrorUnauthorized
}

func (b *Backend) SignOut(ctx context.Context, token string) error {
	if err := b.delay(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.sessions, token)
	return nil
}

func (b *Backend) Session(ctx context.Context, token string) (*models.Session, error) {
	if err := b.delay(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// reference behavior: no token means "whatever session is live"
	if token == "" {
		for _, s := range b.sessions {
			session := s
			return &session, nil
		}
		return nil, nil
	}

	if s, ok := b.sessions[token]; ok {
		session := s
		return &session, nil
	}
	return nil, nil
}

func (b *Backend) FetchItems(ctx context.Context, userID string) ([]models.DataItem, error) {
	if err := b.delay(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var result []models.DataItem
	for _, item := range b.items {
		if item.UserID == userID {
			result = append(result, item)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (b *Backend) CreateItem(ctx context.Context, userID string, payload models.ItemPayload) (*models.DataItem, error) {
	if err := b.delay(ctx); err != nil {
		return nil, err
	}

	if payload.Name == "" {
		return nil, common.ErrorValidation
	}
	if payload.Status == "" {
		payload.Status = "active"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	item := models.DataItem{
		ID:          uuid.NewString(),
		Name:        payload.Name,
		Description: payload.Description,
		Status:      payload.Status,
		Category:    payload.Category,
		Quantity:    payload.Quantity,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	b.items = append(b.items, item)
	b.persist()

	return &item, nil
}

func (b *Backend) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.DataItem, error) {
	if err := b.delay(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		if b.items[i].ID != id {
			continue
		}
		patch.Apply(&b.items[i])
		b.items[i].UpdatedAt = time.Now().UTC()
		b.persist()

		item := b.items[i]
		return &item, nil
	}

	return nil, common.ErrorNotFound
}

func (b *Backend) DeleteItem(ctx context.Context, id string) error {
	if err := b.delay(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			b.persist()
			return nil
		}
	}

	return common.ErrorNotFound
}

// HealthCheck always reports healthy: the reference backend cannot be
// unavailable.
func (b *Backend) HealthCheck(ctx context.Context) bool { return true }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persist()
	return nil
}

// delay sleeps for a random duration within the configured latency
// range, honoring context cancellation.
func (b *Backend) delay(ctx context.Context) error {
	if b.latencyMax <= 0 {
		return ctx.Err()
	}

	d := b.latencyMin
	if span := b.latencyMax - b.latencyMin; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Backend) load() {
	if b.path == "" {
		return
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// corrupt snapshot: start fresh rather than fail
		return
	}

	b.users = snap.Users
	b.items = snap.DataItems
}

// persist rewrites the snapshot file. Write failures are swallowed:
// the in-process state stays authoritative and this backend must not
// start failing because the disk did. Callers hold b.mu.
func (b *Backend) persist() {
	if b.path == "" {
		return
	}

	snap := snapshot{Users: b.users, DataItems: b.items}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = os.WriteFile(b.path, data, 0o600)
}
