package sqlite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// updatableItemColumns is the whitelist for UpdateWorkItemFields. The ID and
// created_at are immutable; is_active changes only through SoftDeleteWorkItems
// or history replay.
var updatableItemColumns = map[string]bool{
	"parent_work_item_id": true,
	"name":                true,
	"shortname":           true,
	"description":         true,
	"status":              true,
	"priority":            true,
	"order_key":           true,
	"due_date":            true,
}

// CreateWorkItem inserts a work item and its initial dependency links.
func (tx *sqliteTx) CreateWorkItem(ctx context.Context, item *types.WorkItem, deps []*types.Dependency) error {
	if err := item.Validate(); err != nil {
		return storage.Validationf("invalid work item: %v", err)
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO work_items (work_item_id, parent_work_item_id, name, shortname,
			description, status, priority, order_key, due_date,
			created_at, updated_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, nullStr(item.ParentID), item.Name, nullStr(item.Shortname),
		nullStr(item.Description), string(item.Status), string(item.Priority),
		nullStr(item.OrderKey), item.DueDate,
		item.CreatedAt, item.UpdatedAt, item.IsActive,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.Validationf("work item %s already exists", item.ID)
		}
		return wrapDBError("create work item", err)
	}

	if len(deps) > 0 {
		return tx.UpsertDependencies(ctx, item.ID, deps)
	}
	return nil
}

// UpdateWorkItemFields applies the given column values to the row and returns
// the updated item. updated_at is always refreshed. Unknown columns are a
// programming error.
func (tx *sqliteTx) UpdateWorkItemFields(ctx context.Context, id string, fields map[string]any) (*types.WorkItem, error) {
	if len(fields) == 0 {
		return tx.GetWorkItem(ctx, id, types.ActiveAny)
	}

	// Deterministic column order keeps the SQL stable across calls.
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableItemColumns[col] {
			return nil, fmt.Errorf("column %q is not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	query := "UPDATE work_items SET "
	args := make([]any, 0, len(cols)+2)
	for _, col := range cols {
		query += col + " = ?, "
		args = append(args, fields[col])
	}
	// Live updates only touch active rows; replay goes through ApplyRowState.
	query += "updated_at = ? WHERE work_item_id = ? AND is_active = 1"
	args = append(args, time.Now().UTC(), id)

	result, err := tx.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("update work item", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, wrapDBError("update work item", err)
	}
	if n == 0 {
		return nil, storage.NotFoundf("no active work item %s", id)
	}
	return tx.GetWorkItem(ctx, id, types.ActiveAny)
}

// SoftDeleteWorkItems deactivates the given rows and returns how many rows
// changed state. Already-inactive rows are left untouched so the count
// reflects real transitions.
func (tx *sqliteTx) SoftDeleteWorkItems(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	result, err := tx.q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE work_items
		SET is_active = 0, updated_at = ?
		WHERE work_item_id IN (%s) AND is_active = 1`, placeholders(len(ids))),
		args...,
	)
	if err != nil {
		return 0, wrapDBError("soft delete work items", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapDBError("soft delete work items", err)
	}
	return n, nil
}
