package sqlite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/loomworks/loom/internal/types"
)

// Replay column whitelists. Unlike live updates, replay may restore any
// recorded column, timestamps included, so the row comes back exactly as
// captured.
var (
	replayItemColumns = map[string]bool{
		"parent_work_item_id": true,
		"name":                true,
		"shortname":           true,
		"description":         true,
		"status":              true,
		"priority":            true,
		"order_key":           true,
		"due_date":            true,
		"created_at":          true,
		"updated_at":          true,
		"is_active":           true,
	}
	replayDepColumns = map[string]bool{
		"dependency_type": true,
		"created_at":      true,
		"updated_at":      true,
		"is_active":       true,
	}
	datetimeColumns = map[string]bool{
		"due_date":   true,
		"created_at": true,
		"updated_at": true,
	}
)

// ApplyRowState restores the row identified by recordID to the captured
// state. Key columns inside data are ignored; the record ID is authoritative.
// A row that no longer matches is logged and skipped so replay of the
// remaining steps can proceed.
func (tx *sqliteTx) ApplyRowState(ctx context.Context, table, recordID string, data types.RowData) error {
	var (
		allowed   map[string]bool
		where     string
		whereArgs []any
	)
	switch table {
	case types.TableWorkItems:
		allowed = replayItemColumns
		where = "work_item_id = ?"
		whereArgs = []any{recordID}
	case types.TableDependencies:
		key, err := types.ParseDependencyRecordID(recordID)
		if err != nil {
			return err
		}
		allowed = replayDepColumns
		where = "work_item_id = ? AND depends_on_work_item_id = ?"
		whereArgs = []any{key.WorkItemID, key.DependsOnID}
	default:
		return fmt.Errorf("unknown replay table %q", table)
	}

	cols := make([]string, 0, len(data))
	for col := range data {
		if allowed[col] {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	// Work item restores that omit updated_at still bump it, so the restored
	// row is visibly newer than its surroundings.
	if table == types.TableWorkItems && !data.Has("updated_at") {
		data = data.Clone()
		data["updated_at"] = types.FormatInstant(time.Now())
		cols = append(cols, "updated_at")
	}
	sort.Strings(cols)

	query := "UPDATE " + table + " SET "
	args := make([]any, 0, len(cols)+len(whereArgs))
	for i, col := range cols {
		if i > 0 {
			query += ", "
		}
		query += col + " = ?"
		val, err := replayValue(col, data[col])
		if err != nil {
			return fmt.Errorf("failed to restore %s.%s: %w", table, col, err)
		}
		args = append(args, val)
	}
	query += " WHERE " + where
	args = append(args, whereArgs...)

	result, err := tx.q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapDBError("apply row state", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("apply row state", err)
	}
	if n == 0 {
		tx.log.Warn("replay target row missing, skipping step",
			"table", table, "record_id", recordID)
	}
	return nil
}

// replayValue converts a JSON-decoded row data value back to what the driver
// expects for the column.
func replayValue(col string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if datetimeColumns[col] {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string instant, got %T", v)
		}
		return types.ParseInstant(s)
	}
	return v, nil
}
