// Package backendtest runs the shared storage-contract suite against a
// concrete backend. Every backend must pass the exact same assertions;
// that is what makes them swappable behind the selector.
package backendtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// Factory returns a freshly seeded backend for one subtest.
type Factory func(t *testing.T) backend.Backend

// Run executes the contract suite against backends produced by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("SignInRoundTrip", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()

		sess, err := b.SignIn(ctx, backend.SeedEmail, backend.SeedPassword)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, backend.SeedEmail, sess.User.Email)
		assert.NotEmpty(t, sess.User.ID)
		assert.Contains(t, sess.AccessToken, b.Name()+"_")

		got, err := b.Session(ctx, sess.AccessToken)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sess.User.ID, got.User.ID)
	})

	t.Run("SignInInvalidCredentials", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()

		_, err := b.SignIn(ctx, backend.SeedEmail, "wrong")
		require.ErrorIs(t, err, common.ErrorUnauthorized)

		_, err = b.SignIn(ctx, "nobody@example.com", backend.SeedPassword)
		require.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("SignOutIdempotent", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()

		sess, err := b.SignIn(ctx, backend.SeedEmail, backend.SeedPassword)
		require.NoError(t, err)

		require.NoError(t, b.SignOut(ctx, sess.AccessToken))
		require.NoError(t, b.SignOut(ctx, sess.AccessToken), "second sign-out must also succeed")

		got, err := b.Session(ctx, sess.AccessToken)
		require.NoError(t, err)
		assert.Nil(t, got, "session must be gone after sign-out")
	})

	t.Run("UnknownTokenIsNoSession", func(t *testing.T) {
		b := factory(t)

		got, err := b.Session(context.Background(), b.Name()+"_does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CreateFetchRoundTrip", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()
		userID := seedUserID(t, b)

		payload := models.ItemPayload{
			Name:        "X",
			Description: "Y",
			Status:      "active",
			Category:    "tools",
			Quantity:    3,
		}
		created, err := b.CreateItem(ctx, userID, payload)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, userID, created.UserID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.Before(created.CreatedAt))

		items, err := b.FetchItems(ctx, userID)
		require.NoError(t, err)

		var matches []models.DataItem
		for _, item := range items {
			if item.ID == created.ID {
				matches = append(matches, item)
			}
		}
		require.Len(t, matches, 1)
		assert.Equal(t, payload.Name, matches[0].Name)
		assert.Equal(t, payload.Description, matches[0].Description)
		assert.Equal(t, payload.Status, matches[0].Status)
		assert.Equal(t, payload.Category, matches[0].Category)
		assert.Equal(t, payload.Quantity, matches[0].Quantity)
	})

	t.Run("CreateRequiresName", func(t *testing.T) {
		b := factory(t)

		_, err := b.CreateItem(context.Background(), seedUserID(t, b), models.ItemPayload{Description: "no name"})
		require.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("UpdateMergeLaw", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()
		userID := seedUserID(t, b)

		created, err := b.CreateItem(ctx, userID, models.ItemPayload{
			Name:        "before",
			Description: "desc",
			Status:      "active",
			Category:    "general",
			Quantity:    7,
		})
		require.NoError(t, err)

		status := "completed"
		updated, err := b.UpdateItem(ctx, created.ID, models.ItemPatch{Status: &status})
		require.NoError(t, err)

		assert.Equal(t, "completed", updated.Status)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, created.Name, updated.Name)
		assert.Equal(t, created.Description, updated.Description)
		assert.Equal(t, created.Category, updated.Category)
		assert.Equal(t, created.Quantity, updated.Quantity)
		assert.Equal(t, created.UserID, updated.UserID)
		assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond,
			"created_at is immutable (modulo driver timestamp precision)")
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt), "updated_at must move forward")
	})

	t.Run("UpdateUnknownIDNotFound", func(t *testing.T) {
		b := factory(t)

		name := "x"
		_, err := b.UpdateItem(context.Background(), "missing-id", models.ItemPatch{Name: &name})
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("FetchOrderedNewestFirst", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()
		userID := seedUserID(t, b)

		var ids []string
		for _, name := range []string{"first", "second", "third"} {
			item, err := b.CreateItem(ctx, userID, models.ItemPayload{Name: name, Status: "active"})
			require.NoError(t, err)
			ids = append(ids, item.ID)
			time.Sleep(2 * time.Millisecond)
		}

		items, err := b.FetchItems(ctx, userID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(items), 3)

		// the three new items precede the seeded ones
		assert.Equal(t, ids[2], items[0].ID)
		assert.Equal(t, ids[1], items[1].ID)
		assert.Equal(t, ids[0], items[2].ID)

		for i := 1; i < len(items); i++ {
			assert.False(t, items[i-1].CreatedAt.Before(items[i].CreatedAt),
				"items must be sorted by created_at descending")
		}
	})

	t.Run("DeleteThenFetch", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()
		userID := seedUserID(t, b)

		created, err := b.CreateItem(ctx, userID, models.ItemPayload{Name: "doomed", Status: "active"})
		require.NoError(t, err)

		require.NoError(t, b.DeleteItem(ctx, created.ID))

		items, err := b.FetchItems(ctx, userID)
		require.NoError(t, err)
		for _, item := range items {
			assert.NotEqual(t, created.ID, item.ID)
		}

		require.ErrorIs(t, b.DeleteItem(ctx, created.ID), common.ErrorNotFound)
	})

	t.Run("SeededItems", func(t *testing.T) {
		b := factory(t)
		ctx := context.Background()

		items, err := b.FetchItems(ctx, seedUserID(t, b))
		require.NoError(t, err)
		assert.Len(t, items, 2, "fresh store must hold exactly the two seeded items")
	})

	t.Run("HealthCheck", func(t *testing.T) {
		b := factory(t)
		assert.True(t, b.HealthCheck(context.Background()))
	})
}

func seedUserID(t *testing.T, b backend.Backend) string {
	t.Helper()
	sess, err := b.SignIn(context.Background(), backend.SeedEmail, backend.SeedPassword)
	require.NoError(t, err)
	return sess.User.ID
}
