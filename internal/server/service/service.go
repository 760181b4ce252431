// Package service implements the Data Service: the single entry point
// callers use for login, session, and item operations. Every operation
// optionally tries a remote transport first and falls back to the
// currently selected local backend on any transport failure, so callers
// never observe a transport failure as an error.
package service

import (
	"context"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/logging"
	"github.com/dmitrijs2005/datavault/internal/server/models"
	"github.com/dmitrijs2005/datavault/internal/server/selector"
	"github.com/dmitrijs2005/datavault/internal/server/session"
)

type Service struct {
	selector *selector.Selector
	sessions *session.Manager
	remote   *Remote // nil when no remote endpoint is configured
	logger   logging.Logger
}

// New constructs the Data Service. remote may be nil.
func New(sel *selector.Selector, sessions *session.Manager, remote *Remote, logger logging.Logger) *Service {
	return &Service{
		selector: sel,
		sessions: sessions,
		remote:   remote,
		logger:   logger.With("module", "service"),
	}
}

// Login authenticates against the remote endpoint when configured,
// otherwise (or on transport failure) against the active local backend.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	if s.remote != nil {
		sess, err := s.remote.Login(ctx, email, password)
		if err == nil {
			return sess, nil
		}
		s.logger.Warn(ctx, "remote login failed, falling back", "error", err.Error())
	}

	return s.selector.Active().SignIn(ctx, email, password)
}

// Logout revokes the token. It is idempotent and succeeds for unknown
// tokens.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.remote != nil {
		if err := s.remote.Logout(ctx, token); err == nil {
			return nil
		} else {
			s.logger.Warn(ctx, "remote logout failed, falling back", "error", err.Error())
		}
	}

	return s.sessions.Logout(ctx, token)
}

// Session resolves the bearer token into a session, or nil when there
// is none.
func (s *Service) Session(ctx context.Context, token string) (*models.Session, error) {
	if s.remote != nil {
		sess, err := s.remote.Session(ctx, token)
		if err == nil {
			return sess, nil
		}
		s.logger.Warn(ctx, "remote session check failed, falling back", "error", err.Error())
	}

	return s.sessions.Resolve(ctx, token)
}

// FetchItems lists the authenticated user's items, newest first.
func (s *Service) FetchItems(ctx context.Context, token string) ([]models.DataItem, error) {
	if s.remote != nil {
		items, err := s.remote.FetchItems(ctx, token)
		if err == nil {
			return items, nil
		}
		s.logger.Warn(ctx, "remote fetch failed, falling back", "error", err.Error())
	}

	sess, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.selector.Active().FetchItems(ctx, sess.User.ID)
}

// CreateItem adds an item owned by the authenticated user.
func (s *Service) CreateItem(ctx context.Context, token string, payload models.ItemPayload) (*models.DataItem, error) {
	if s.remote != nil {
		item, err := s.remote.CreateItem(ctx, token, payload)
		if err == nil {
			return item, nil
		}
		s.logger.Warn(ctx, "remote create failed, falling back", "error", err.Error())
	}

	sess, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.selector.Active().CreateItem(ctx, sess.User.ID, payload)
}

// UpdateItem applies a partial patch to an existing item.
func (s *Service) UpdateItem(ctx context.Context, token, id string, patch models.ItemPatch) (*models.DataItem, error) {
	if s.remote != nil {
		item, err := s.remote.UpdateItem(ctx, token, id, patch)
		if err == nil {
			return item, nil
		}
		s.logger.Warn(ctx, "remote update failed, falling back", "error", err.Error())
	}

	if _, err := s.authorize(ctx, token); err != nil {
		return nil, err
	}
	return s.selector.Active().UpdateItem(ctx, id, patch)
}

// DeleteItem removes an item and returns its last state.
func (s *Service) DeleteItem(ctx context.Context, token, id string) (*models.DataItem, error) {
	if s.remote != nil {
		item, err := s.remote.DeleteItem(ctx, token, id)
		if err == nil {
			return item, nil
		}
		s.logger.Warn(ctx, "remote delete failed, falling back", "error", err.Error())
	}

	sess, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}

	b := s.selector.Active()

	// capture the record before the hard delete so callers get it back
	items, err := b.FetchItems(ctx, sess.User.ID)
	if err != nil {
		return nil, err
	}
	var deleted *models.DataItem
	for i := range items {
		if items[i].ID == id {
			deleted = &items[i]
			break
		}
	}
	if deleted == nil {
		return nil, common.ErrorNotFound
	}

	if err := b.DeleteItem(ctx, id); err != nil {
		return nil, err
	}
	return deleted, nil
}

// BackendState reports the selector's current backend and state for the
// operator surface.
func (s *Service) BackendState() (string, selector.State) {
	return s.selector.Active().Name(), s.selector.State()
}

// Reprobe re-runs backend selection on operator request.
func (s *Service) Reprobe(ctx context.Context) (string, selector.State) {
	state := s.selector.Reprobe(ctx)
	return s.selector.Active().Name(), state
}

// authorize resolves the token locally and converts "no session" into
// ErrorUnauthorized for mutating and listing operations.
func (s *Service) authorize(ctx context.Context, token string) (*models.Session, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, common.ErrorUnauthorized
	}
	return sess, nil
}
