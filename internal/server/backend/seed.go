package backend

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// Every backend seeds the same test user and two items on first run,
// so the fallback chain always has working credentials.
const (
	SeedEmail    = "test@example.com"
	SeedPassword = "password123"
)

// Seed returns a freshly generated seed user and its two starter items.
// IDs are random per backend; timestamps are staggered so item ordering
// is well defined from the start.
func Seed(now time.Time) (models.User, []models.DataItem) {
	user := models.User{
		ID:        uuid.NewString(),
		Email:     SeedEmail,
		Password:  SeedPassword,
		CreatedAt: now,
	}

	items := []models.DataItem{
		{
			ID:          uuid.NewString(),
			Name:        "Sample Item One",
			Description: "First sample item created on initial seed",
			Status:      "active",
			Category:    "general",
			Quantity:    10,
			UserID:      user.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Sample Item Two",
			Description: "Second sample item created on initial seed",
			Status:      "pending",
			Category:    "general",
			Quantity:    5,
			UserID:      user.ID,
			CreatedAt:   now.Add(time.Millisecond),
			UpdatedAt:   now.Add(time.Millisecond),
		},
	}

	return user, items
}
