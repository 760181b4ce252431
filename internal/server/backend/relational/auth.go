package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// SignIn verifies credentials, mints a random relational token, and
// records the session server-side with an expiry.
func (b *Backend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT id, email, password FROM users WHERE email = %s`, b.ph(1))

	var user models.User
	err := b.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.Password != password {
		return nil, common.ErrorUnauthorized
	}

	rest, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	token := backend.Token(name, rest)
	expires := time.Now().UTC().Add(b.sessionTTL)

	insert := fmt.Sprintf(
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (%s, %s, %s)`,
		b.ph(1), b.ph(2), b.ph(3))
	if _, err := b.db.ExecContext(ctx, insert, token, user.ID, expires); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &models.Session{
		AccessToken: token,
		User:        models.SessionUser{ID: user.ID, Email: user.Email},
		ExpiresAt:   &expires,
	}, nil
}

// SignOut removes the session row. Unknown tokens are fine: zero rows
// affected is still a success.
func (b *Backend) SignOut(ctx context.Context, token string) error {
	query := fmt.Sprintf(`DELETE FROM sessions WHERE token = %s`, b.ph(1))
	if _, err := b.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Session resolves the token against the sessions table. Expired rows
// are evicted and treated as absent.
func (b *Backend) Session(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT s.user_id, s.expires_at, u.email
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token = %s`, b.ph(1))

	var (
		userID  string
		expires time.Time
		email   string
	)
	err := b.db.QueryRowContext(ctx, query, token).Scan(&userID, &expires, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if expires.Before(time.Now().UTC()) {
		if err := b.SignOut(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &models.Session{
		AccessToken: token,
		User:        models.SessionUser{ID: userID, Email: email},
		ExpiresAt:   &expires,
	}, nil
}
