package selector

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/datavault/internal/logging"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// stubBackend satisfies backend.Backend with canned health and a
// close counter.
type stubBackend struct {
	name    string
	healthy bool
	closed  int
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return nil, errors.New("not implemented")
}
func (s *stubBackend) SignOut(ctx context.Context, token string) error { return nil }
func (s *stubBackend) Session(ctx context.Context, token string) (*models.Session, error) {
	return nil, nil
}
func (s *stubBackend) FetchItems(ctx context.Context, userID string) ([]models.DataItem, error) {
	return nil, nil
}
func (s *stubBackend) CreateItem(ctx context.Context, userID string, payload models.ItemPayload) (*models.DataItem, error) {
	return nil, errors.New("not implemented")
}
func (s *stubBackend) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.DataItem, error) {
	return nil, errors.New("not implemented")
}
func (s *stubBackend) DeleteItem(ctx context.Context, id string) error { return nil }
func (s *stubBackend) HealthCheck(ctx context.Context) bool            { return s.healthy }
func (s *stubBackend) Close() error {
	s.closed++
	return nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func okFactory(b backend.Backend) Factory {
	return func(ctx context.Context) (backend.Backend, error) { return b, nil }
}

func failFactory() Factory {
	return func(ctx context.Context) (backend.Backend, error) {
		return nil, errors.New("connect refused")
	}
}

func TestProbe_PrefersRelational(t *testing.T) {
	rel := &stubBackend{name: "relational", healthy: true}
	kv := &stubBackend{name: "kv", healthy: true}
	ref := &stubBackend{name: "local", healthy: true}

	s := New(okFactory(rel), okFactory(kv), ref, testLogger())
	require.Equal(t, Unprobed, s.State())

	state := s.Probe(context.Background())
	assert.Equal(t, RelationalActive, state)
	assert.Same(t, backend.Backend(rel), s.Active())
}

func TestProbe_FallsBackToKV(t *testing.T) {
	kv := &stubBackend{name: "kv", healthy: true}
	ref := &stubBackend{name: "local", healthy: true}

	s := New(failFactory(), okFactory(kv), ref, testLogger())

	state := s.Probe(context.Background())
	assert.Equal(t, KVActive, state)
	assert.Same(t, backend.Backend(kv), s.Active())
}

func TestProbe_UnhealthyRelationalFallsThrough(t *testing.T) {
	rel := &stubBackend{name: "relational", healthy: false}
	kv := &stubBackend{name: "kv", healthy: true}
	ref := &stubBackend{name: "local", healthy: true}

	s := New(okFactory(rel), okFactory(kv), ref, testLogger())

	state := s.Probe(context.Background())
	assert.Equal(t, KVActive, state)
}

func TestProbe_ReferenceIsTerminalFallback(t *testing.T) {
	ref := &stubBackend{name: "local", healthy: true}

	s := New(failFactory(), failFactory(), ref, testLogger())

	state := s.Probe(context.Background())
	assert.Equal(t, ReferenceActive, state)
	assert.Same(t, backend.Backend(ref), s.Active())
}

func TestProbe_UnconfiguredSlotsAreSkipped(t *testing.T) {
	ref := &stubBackend{name: "local", healthy: true}

	s := New(nil, nil, ref, testLogger())

	state := s.Probe(context.Background())
	assert.Equal(t, ReferenceActive, state)
}

func TestReprobe_SwitchesAndClosesPrevious(t *testing.T) {
	kv := &stubBackend{name: "kv", healthy: true}
	rel := &stubBackend{name: "relational", healthy: true}
	ref := &stubBackend{name: "local", healthy: true}

	relationalUp := false
	relFactory := func(ctx context.Context) (backend.Backend, error) {
		if !relationalUp {
			return nil, errors.New("connect refused")
		}
		return rel, nil
	}

	s := New(relFactory, okFactory(kv), ref, testLogger())

	require.Equal(t, KVActive, s.Probe(context.Background()))

	// operator fixes the database and reprobes
	relationalUp = true
	state := s.Reprobe(context.Background())
	assert.Equal(t, RelationalActive, state)
	assert.Same(t, backend.Backend(rel), s.Active())
	assert.Equal(t, 1, kv.closed, "previous non-reference backend must be closed")
	assert.Equal(t, 0, ref.closed, "reference backend lives for the whole process")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unprobed", Unprobed.String())
	assert.Equal(t, "probing", Probing.String())
	assert.Equal(t, "relational_active", RelationalActive.String())
	assert.Equal(t, "kv_active", KVActive.String())
	assert.Equal(t, "reference_active", ReferenceActive.String())
}
