// Package selector owns the "active backend" designation. Selection
// happens once at startup and is only repeated on an explicit reprobe;
// request handlers read the active backend and never mutate it.
package selector

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/datavault/internal/logging"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
)

// State is the selector's position in the fallback chain.
type State int

const (
	Unprobed State = iota
	Probing
	RelationalActive
	KVActive
	ReferenceActive
)

func (s State) String() string {
	switch s {
	case Unprobed:
		return "unprobed"
	case Probing:
		return "probing"
	case RelationalActive:
		return "relational_active"
	case KVActive:
		return "kv_active"
	case ReferenceActive:
		return "reference_active"
	default:
		return "unknown"
	}
}

// Factory constructs a candidate backend. A nil Factory marks the slot
// as unconfigured, which skips it during probing.
type Factory func(ctx context.Context) (backend.Backend, error)

// Selector probes the relational backend first, then the KV backend,
// and terminally falls back to the reference backend, which cannot
// fail.
type Selector struct {
	mu         sync.RWMutex
	state      State
	active     backend.Backend
	relational Factory
	kv         Factory
	reference  backend.Backend
	logger     logging.Logger
}

func New(relational, kv Factory, reference backend.Backend, logger logging.Logger) *Selector {
	return &Selector{
		state:      Unprobed,
		relational: relational,
		kv:         kv,
		reference:  reference,
		active:     reference,
		logger:     logger.With("module", "selector"),
	}
}

// Probe walks the fallback chain and designates the first healthy
// backend as active. It always lands in a terminal state.
func (s *Selector) Probe(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Probing

	if s.relational != nil {
		if b, err := s.relational(ctx); err == nil && b.HealthCheck(ctx) {
			s.logger.Info(ctx, "backend selected", "backend", b.Name())
			s.setActive(b, RelationalActive)
			return s.state
		} else if err != nil {
			s.logger.Warn(ctx, "relational backend unavailable", "error", err.Error())
		}
	}

	if s.kv != nil {
		if b, err := s.kv(ctx); err == nil && b.HealthCheck(ctx) {
			s.logger.Info(ctx, "backend selected", "backend", b.Name())
			s.setActive(b, KVActive)
			return s.state
		} else if err != nil {
			s.logger.Warn(ctx, "kv backend unavailable", "error", err.Error())
		}
	}

	s.logger.Info(ctx, "backend selected", "backend", s.reference.Name())
	s.setActive(s.reference, ReferenceActive)
	return s.state
}

// Reprobe re-runs selection on operator request. There is no periodic
// automatic reprobe.
func (s *Selector) Reprobe(ctx context.Context) State {
	return s.Probe(ctx)
}

// Active returns the currently selected backend. Callers must not
// cache it beyond one logical request.
func (s *Selector) Active() backend.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// State returns the selector's current state.
func (s *Selector) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// setActive swaps the active backend, closing the previous one unless
// it is the reference backend, which lives for the whole process.
// Callers hold s.mu.
func (s *Selector) setActive(b backend.Backend, state State) {
	if s.active != nil && s.active != s.reference && s.active != b {
		_ = s.active.Close()
	}
	s.active = b
	s.state = state
}
