package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/server/models"
)

const itemColumns = `id, name, description, status, category, quantity, user_id, created_at, updated_at`

// FetchItems returns the user's items newest first.
func (b *Backend) FetchItems(ctx context.Context, userID string) ([]models.DataItem, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM data_items WHERE user_id = %s ORDER BY created_at DESC`,
		itemColumns, b.ph(1))

	rows, err := b.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []models.DataItem
	for rows.Next() {
		var item models.DataItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.Status, &item.Category,
			&item.Quantity, &item.UserID, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// SQLite stores timestamps as text, where lexicographic ORDER BY
	// can disagree with chronological order on fractional seconds;
	// re-sort so ordering is exact on both drivers.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// CreateItem inserts a new row with server-assigned id and timestamps.
func (b *Backend) CreateItem(ctx context.Context, userID string, payload models.ItemPayload) (*models.DataItem, error) {
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

	query := fmt.Sprintf(
		`INSERT INTO data_items (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		itemColumns,
		b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5), b.ph(6), b.ph(7), b.ph(8), b.ph(9))

	if _, err := b.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, item.Status, item.Category,
		item.Quantity, item.UserID, item.CreatedAt, item.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &item, nil
}

// UpdateItem builds the SET clause dynamically from the provided patch
// fields only. id, created_at, and updated_at can never be set by the
// caller; updated_at is always refreshed. An empty patch is a
// validation error.
func (b *Backend) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.DataItem, error) {
	var (
		sets []string
		args []any
	)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", column, b.ph(len(args))))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}

	if len(sets) == 0 {
		return nil, common.ErrorValidation
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE data_items SET %s WHERE id = %s RETURNING %s`,
		strings.Join(sets, ", "), b.ph(len(args)), itemColumns)

	var item models.DataItem
	err := b.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID, &item.Name, &item.Description, &item.Status, &item.Category,
		&item.Quantity, &item.UserID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &item, nil
}

// DeleteItem hard-deletes the row, failing with ErrorNotFound when the
// id does not resolve.
func (b *Backend) DeleteItem(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM data_items WHERE id = %s`, b.ph(1))

	res, err := b.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
