package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

const actionColumns = `action_id, timestamp, action_type, work_item_id,
	description, is_undone, undone_at_action_id`

func scanAction(row interface{ Scan(...any) error }) (*types.Action, error) {
	var (
		action               types.Action
		actionType           string
		workItemID, undoneAt sql.NullString
	)
	err := row.Scan(&action.ID, &action.Timestamp, &actionType,
		&workItemID, &action.Description, &action.IsUndone, &undoneAt)
	if err != nil {
		return nil, err
	}
	action.Type = types.ActionType(actionType)
	action.WorkItemID = strPtr(workItemID)
	action.UndoneAtActionID = strPtr(undoneAt)
	action.Timestamp = action.Timestamp.UTC()
	return &action, nil
}

func (q *queries) queryActions(ctx context.Context, query string, args ...any) ([]*types.Action, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*types.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// FindActionByID retrieves a single action history entry.
func (q *queries) FindActionByID(ctx context.Context, id string) (*types.Action, error) {
	query := "SELECT " + actionColumns + " FROM action_history WHERE action_id = ?"
	action, err := scanAction(q.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapDBError("find action", err)
	}
	return action, nil
}

// FindUndoSteps returns the steps recorded for an action in ascending
// step order.
func (q *queries) FindUndoSteps(ctx context.Context, actionID string) ([]*types.UndoStep, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT undo_step_id, action_id, step_order, step_type, table_name,
			record_id, old_data, new_data
		FROM undo_steps
		WHERE action_id = ?
		ORDER BY step_order ASC`, actionID)
	if err != nil {
		return nil, wrapDBError("find undo steps", err)
	}
	defer rows.Close()

	var steps []*types.UndoStep
	for rows.Next() {
		var (
			step             types.UndoStep
			stepType         string
			oldData, newData string
		)
		err := rows.Scan(&step.ID, &step.ActionID, &step.StepOrder, &stepType,
			&step.TableName, &step.RecordID, &oldData, &newData)
		if err != nil {
			return nil, wrapDBError("find undo steps", err)
		}
		step.StepType = types.StepType(stepType)
		if step.OldData, err = types.UnmarshalRowData(oldData); err != nil {
			return nil, fmt.Errorf("failed to decode undo step %s: %w", step.ID, err)
		}
		if step.NewData, err = types.UnmarshalRowData(newData); err != nil {
			return nil, fmt.Errorf("failed to decode undo step %s: %w", step.ID, err)
		}
		steps = append(steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("find undo steps", err)
	}
	return steps, nil
}

// ListRecentActions returns history entries newest-first.
func (q *queries) ListRecentActions(ctx context.Context, filter types.ActionFilter) ([]*types.Action, error) {
	var conds []string
	var args []any
	if filter.WorkItemID != nil {
		conds = append(conds, "work_item_id = ?")
		args = append(args, *filter.WorkItemID)
	}
	query := "SELECT " + actionColumns + " FROM action_history" + whereClause(conds) +
		" ORDER BY timestamp DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	actions, err := q.queryActions(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list recent actions", err)
	}
	return actions, nil
}

// CreateAction records a history entry. ID and timestamp are assigned when
// the caller leaves them zero.
func (tx *sqliteTx) CreateAction(ctx context.Context, action *types.Action) error {
	if !action.Type.IsValid() {
		return storage.Validationf("invalid action type: %s", action.Type)
	}
	if action.ID == "" {
		action.ID = types.NewID()
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now().UTC()
	}
	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO action_history (action_id, timestamp, action_type,
			work_item_id, description, is_undone, undone_at_action_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		action.ID, action.Timestamp, string(action.Type),
		nullStr(action.WorkItemID), action.Description,
		action.IsUndone, nullStr(action.UndoneAtActionID),
	)
	if err != nil {
		return wrapDBError("create action", err)
	}
	return nil
}

// CreateUndoStep records one reversible step under its action.
func (tx *sqliteTx) CreateUndoStep(ctx context.Context, step *types.UndoStep) error {
	if step.ID == "" {
		step.ID = types.NewID()
	}
	if step.StepType == "" {
		step.StepType = types.StepUpdate
	}
	oldData, err := step.OldData.Marshal()
	if err != nil {
		return err
	}
	newData, err := step.NewData.Marshal()
	if err != nil {
		return err
	}
	_, err = tx.q.ExecContext(ctx, `
		INSERT INTO undo_steps (undo_step_id, action_id, step_order, step_type,
			table_name, record_id, old_data, new_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.ActionID, step.StepOrder, string(step.StepType),
		step.TableName, step.RecordID, oldData, newData,
	)
	if err != nil {
		return wrapDBError("create undo step", err)
	}
	return nil
}

// FindLastOriginalAction returns the most recent forward mutation that has
// not been undone. This is the action Undo targets.
func (tx *sqliteTx) FindLastOriginalAction(ctx context.Context) (*types.Action, error) {
	query := "SELECT " + actionColumns + ` FROM action_history
		WHERE action_type NOT IN (?, ?) AND is_undone = 0
		ORDER BY timestamp DESC, rowid DESC LIMIT 1`
	action, err := scanAction(tx.q.QueryRowContext(ctx, query,
		string(types.ActionUndo), string(types.ActionRedo)))
	if err != nil {
		return nil, wrapDBError("find last original action", err)
	}
	return action, nil
}

// FindLastUndoAction returns the most recent UNDO entry that has not been
// redone or invalidated. This is the action Redo targets.
func (tx *sqliteTx) FindLastUndoAction(ctx context.Context) (*types.Action, error) {
	query := "SELECT " + actionColumns + ` FROM action_history
		WHERE action_type = ? AND is_undone = 0
		ORDER BY timestamp DESC, rowid DESC LIMIT 1`
	action, err := scanAction(tx.q.QueryRowContext(ctx, query, string(types.ActionUndo)))
	if err != nil {
		return nil, wrapDBError("find last undo action", err)
	}
	return action, nil
}

// FindRecentUnredoneUndoActions returns open UNDO entries newest-first, up to
// limit (0 = all). These form the redo stack.
func (tx *sqliteTx) FindRecentUnredoneUndoActions(ctx context.Context, limit int) ([]*types.Action, error) {
	query := "SELECT " + actionColumns + ` FROM action_history
		WHERE action_type = ? AND is_undone = 0
		ORDER BY timestamp DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	actions, err := tx.queryActions(ctx, query, string(types.ActionUndo))
	if err != nil {
		return nil, wrapDBError("find unredone undo actions", err)
	}
	return actions, nil
}

// FindActionLinkedByUndo returns the original action that the given UNDO
// entry reversed, via the original's undone_at_action_id back-reference.
func (tx *sqliteTx) FindActionLinkedByUndo(ctx context.Context, undoActionID string) (*types.Action, error) {
	query := "SELECT " + actionColumns + ` FROM action_history
		WHERE undone_at_action_id = ? AND is_undone = 1 AND action_type NOT IN (?, ?)
		ORDER BY timestamp DESC LIMIT 1`
	action, err := scanAction(tx.q.QueryRowContext(ctx, query, undoActionID,
		string(types.ActionUndo), string(types.ActionRedo)))
	if err != nil {
		return nil, wrapDBError("find action linked by undo", err)
	}
	return action, nil
}

// MarkActionUndone flags an original action as reversed by undoActionID.
func (tx *sqliteTx) MarkActionUndone(ctx context.Context, actionID, undoActionID string) error {
	return tx.markAction(ctx, actionID, true, &undoActionID)
}

// MarkActionNotUndone reopens an original action after a redo.
func (tx *sqliteTx) MarkActionNotUndone(ctx context.Context, actionID string) error {
	return tx.markAction(ctx, actionID, false, nil)
}

// MarkUndoRedoneOrInvalidated closes an UNDO entry, either because it was
// redone or because a newer forward mutation invalidated the redo stack.
func (tx *sqliteTx) MarkUndoRedoneOrInvalidated(ctx context.Context, undoActionID string, byActionID *string) error {
	return tx.markAction(ctx, undoActionID, true, byActionID)
}

func (tx *sqliteTx) markAction(ctx context.Context, actionID string, undone bool, byActionID *string) error {
	result, err := tx.q.ExecContext(ctx, `
		UPDATE action_history
		SET is_undone = ?, undone_at_action_id = ?
		WHERE action_id = ?`,
		undone, nullStr(byActionID), actionID,
	)
	if err != nil {
		return wrapDBError("mark action", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("mark action", err)
	}
	if n == 0 {
		tx.log.Warn("mark target action missing, skipping", "action_id", actionID)
	}
	return nil
}

// InvalidateRedoStack closes every open UNDO entry other than newActionID,
// marking it invalidated by the new forward mutation. Returns the number of
// entries closed.
func (tx *sqliteTx) InvalidateRedoStack(ctx context.Context, newActionID string) (int64, error) {
	result, err := tx.q.ExecContext(ctx, `
		UPDATE action_history
		SET is_undone = 1, undone_at_action_id = ?
		WHERE action_type = ? AND is_undone = 0 AND action_id <> ?`,
		newActionID, string(types.ActionUndo), newActionID,
	)
	if err != nil {
		return 0, wrapDBError("invalidate redo stack", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapDBError("invalidate redo stack", err)
	}
	return n, nil
}
