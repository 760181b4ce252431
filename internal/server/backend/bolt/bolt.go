// Package bolt implements the embedded key-value backend over bbolt.
// Records are JSON-encoded into id-keyed buckets; lookups by email or
// user go through secondary index buckets rather than linear scans.
// Every mutating operation runs inside a single bbolt update
// transaction, so partial writes are never observable by readers.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

const name = "kv"

const (
	bucketUsers       = "users"
	bucketUsersEmail  = "users_email"   // email -> user id
	bucketItems       = "data_items"
	bucketItemsByUser = "items_by_user" // "<user id>/<item id>" -> item id
	bucketSessions    = "sessions"     // token -> session
)

// Backend stores users, items, and sessions in a single bbolt file.
type Backend struct {
	db *bbolt.DB
}

// Open opens (or creates) the bbolt file at path, ensures all buckets
// exist, and seeds the store when it holds no users yet.
func Open(path string) (*Backend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kv storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open kv db: %w", err)
	}

	b := &Backend{db: db}
	if err := b.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := b.seed(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

func (b *Backend) Name() string { return name }

func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session *models.Session
	err := b.db.Update(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(bucketUsersEmail)).Get([]byte(email))
		if id == nil {
			return common.ErrorUnauthorized
		}

		var user models.User
		payload := tx.Bucket([]byte(bucketUsers)).Get(id)
		if payload == nil {
			return common.ErrorUnauthorized
		}
		if err := json.Unmarshal(payload, &user); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		if user.Password != password {
			return common.ErrorUnauthorized
		}

		s := models.Session{
			AccessToken: backend.Token(name, user.ID),
			User:        models.SessionUser{ID: user.ID, Email: user.Email},
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		if err := tx.Bucket([]byte(bucketSessions)).Put([]byte(s.AccessToken), raw); err != nil {
			return err
		}

		session = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (b *Backend) SignOut(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// deleting an absent token is a no-op, so sign-out stays idempotent
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Delete([]byte(token))
	})
}

func (b *Backend) Session(ctx context.Context, token string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	var session *models.Session
	err := b.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(bucketSessions)).Get([]byte(token))
		if payload == nil {
			return nil
		}
		var s models.Session
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		session = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (b *Backend) FetchItems(ctx context.Context, userID string) ([]models.DataItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []models.DataItem
	err := b.db.View(func(tx *bbolt.Tx) error {
		items := tx.Bucket([]byte(bucketItems))
		cursor := tx.Bucket([]byte(bucketItemsByUser)).Cursor()
		prefix := indexKey(userID, "")

		for k, id := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = cursor.Next() {
			payload := items.Get(id)
			if payload == nil {
				continue
			}
			var item models.DataItem
			if err := json.Unmarshal(payload, &item); err != nil {
				return fmt.Errorf("unmarshal item: %w", err)
			}
			result = append(result, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (b *Backend) CreateItem(ctx context.Context, userID string, payload models.ItemPayload) (*models.DataItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if payload.Name == "" {
		return nil, common.ErrorValidation
	}
	if payload.Status == "" {
		payload.Status = "active"
	}

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

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return putItem(tx, item)
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (b *Backend) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.DataItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *models.DataItem
	err := b.db.Update(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(bucketItems)).Get([]byte(id))
		if payload == nil {
			return common.ErrorNotFound
		}

		var item models.DataItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return fmt.Errorf("unmarshal item: %w", err)
		}

		patch.Apply(&item)
		item.UpdatedAt = time.Now().UTC()

		if err := putItem(tx, item); err != nil {
			return err
		}
		updated = &item
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (b *Backend) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		items := tx.Bucket([]byte(bucketItems))
		payload := items.Get([]byte(id))
		if payload == nil {
			return common.ErrorNotFound
		}

		var item models.DataItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return fmt.Errorf("unmarshal item: %w", err)
		}

		if err := items.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketItemsByUser)).Delete(indexKey(item.UserID, item.ID))
	})
}

// HealthCheck reports whether the store is readable. It never returns
// an error.
func (b *Backend) HealthCheck(ctx context.Context) bool {
	if b == nil || b.db == nil || ctx.Err() != nil {
		return false
	}
	err := b.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bucketUsers)) == nil {
			return fmt.Errorf("users bucket is missing")
		}
		return nil
	})
	return err == nil
}

func (b *Backend) ensureBuckets() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketUsers, bucketUsersEmail, bucketItems, bucketItemsByUser, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// seed inserts the test user and starter items when the users bucket is
// empty. Runs in one transaction so a half-seeded store is impossible.
func (b *Backend) seed() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket([]byte(bucketUsers))
		if k, _ := users.Cursor().First(); k != nil {
			return nil
		}

		user, items := backend.Seed(time.Now().UTC())

		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		if err := users.Put([]byte(user.ID), raw); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketUsersEmail)).Put([]byte(user.Email), []byte(user.ID)); err != nil {
			return err
		}

		for _, item := range items {
			if err := putItem(tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// putItem writes an item and its user-index entry inside tx.
func putItem(tx *bbolt.Tx, item models.DataItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if err := tx.Bucket([]byte(bucketItems)).Put([]byte(item.ID), raw); err != nil {
		return err
	}
	return tx.Bucket([]byte(bucketItemsByUser)).Put(indexKey(item.UserID, item.ID), []byte(item.ID))
}

func indexKey(userID, itemID string) []byte {
	return []byte(userID + "/" + itemID)
}
