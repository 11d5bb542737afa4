package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// siblingScope returns the WHERE fragment and args selecting active siblings
// under parentID (nil selects roots).
func siblingScope(parentID *string) (string, []any) {
	if parentID == nil {
		return "parent_work_item_id IS NULL AND is_active = 1", nil
	}
	return "parent_work_item_id = ? AND is_active = 1", []any{*parentID}
}

// SiblingEdgeOrderKey returns the order key at one end of the active sibling
// ordering under parentID, or nil when no sibling exists there.
func (tx *sqliteTx) SiblingEdgeOrderKey(ctx context.Context, parentID *string, edge storage.Edge) (*string, error) {
	scope, args := siblingScope(parentID)
	dir := "ASC"
	if edge == storage.EdgeLast {
		dir = "DESC"
	}
	query := "SELECT order_key FROM work_items WHERE " + scope +
		" AND order_key IS NOT NULL ORDER BY order_key " + dir + " LIMIT 1"

	var key string
	err := tx.q.QueryRowContext(ctx, query, args...).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("sibling edge order key", err)
	}
	return &key, nil
}

// NeighborOrderKeys returns the order keys bounding the insertion slot next
// to pivotID on the given side: before the pivot, the slot is bounded by the
// preceding sibling's key and the pivot's key; after it, by the pivot's key
// and the following sibling's key. A nil bound means the slot is open at that
// end.
func (tx *sqliteTx) NeighborOrderKeys(ctx context.Context, parentID *string, pivotID string, side storage.Side) (*string, *string, error) {
	pivot, err := tx.GetWorkItem(ctx, pivotID, types.ActiveOnly)
	if err != nil {
		return nil, nil, err
	}
	if pivot.OrderKey == nil {
		return nil, nil, storage.Validationf("work item %s has no order key", pivotID)
	}

	scope, args := siblingScope(parentID)
	var (
		query    string
		neighbor sql.NullString
	)
	if side == storage.SideAfter {
		query = "SELECT order_key FROM work_items WHERE " + scope +
			" AND order_key > ? ORDER BY order_key ASC LIMIT 1"
	} else {
		query = "SELECT order_key FROM work_items WHERE " + scope +
			" AND order_key < ? ORDER BY order_key DESC LIMIT 1"
	}
	args = append(args, *pivot.OrderKey)

	err = tx.q.QueryRowContext(ctx, query, args...).Scan(&neighbor)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, wrapDBError("neighbor order keys", err)
	}

	if side == storage.SideAfter {
		return pivot.OrderKey, strPtr(neighbor), nil
	}
	return strPtr(neighbor), pivot.OrderKey, nil
}
