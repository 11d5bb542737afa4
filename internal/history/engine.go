// Package history records reversible mutations and replays them for undo
// and redo. Every forward mutation registers an action with ordered undo
// steps; undo restores each step's old state in reverse, redo restores the
// new state in order.
package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// Engine drives action recording and undo/redo replay. All methods operate
// inside a caller-owned transaction so a mutation and its history entry
// commit or roll back together.
type Engine struct {
	log *slog.Logger
}

// New creates a history engine.
func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Step describes one reversible row change to record under an action.
// Order of the slice passed to Record becomes the step order.
type Step struct {
	TableName string
	RecordID  string
	OldData   types.RowData
	NewData   types.RowData
}

// Record writes the action and its steps, then closes the redo stack: any
// undo that was still awaiting a redo is invalidated by this new mutation.
// The action's ID and timestamp are assigned by the store when zero. Returns
// the number of invalidated redos.
func (e *Engine) Record(ctx context.Context, tx storage.Tx, action *types.Action, steps []Step) (int64, error) {
	if err := tx.CreateAction(ctx, action); err != nil {
		return 0, fmt.Errorf("failed to record action: %w", err)
	}
	for i, s := range steps {
		err := tx.CreateUndoStep(ctx, &types.UndoStep{
			ActionID:  action.ID,
			StepOrder: i + 1,
			StepType:  types.StepUpdate,
			TableName: s.TableName,
			RecordID:  s.RecordID,
			OldData:   s.OldData,
			NewData:   s.NewData,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to record undo step %d: %w", i+1, err)
		}
	}
	n, err := tx.InvalidateRedoStack(ctx, action.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate redo stack: %w", err)
	}
	if n > 0 {
		e.log.Debug("redo stack invalidated", "action_id", action.ID, "invalidated", n)
	}
	return n, nil
}

// Result reports what an undo or redo did: the original action that was
// replayed and the mirror entry appended to the history.
type Result struct {
	Original *types.Action
	Mirror   *types.Action
}

// Undo reverses the most recent forward mutation that has not been undone.
// Steps replay their old state in descending step order, then a mirror entry
// is appended and the original is marked undone by it.
func (e *Engine) Undo(ctx context.Context, tx storage.Tx) (*Result, error) {
	original, err := tx.FindLastOriginalAction(ctx)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, storage.ErrNothingToUndo
		}
		return nil, fmt.Errorf("failed to find action to undo: %w", err)
	}

	steps, err := tx.FindUndoSteps(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load undo steps: %w", err)
	}
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if err := tx.ApplyRowState(ctx, s.TableName, s.RecordID, s.OldData); err != nil {
			return nil, fmt.Errorf("failed to replay step %d of action %s: %w", s.StepOrder, original.ID, err)
		}
	}

	desc := fmt.Sprintf("Undid action: %q", original.Description)
	if len(steps) == 0 {
		// The action is still consumed so the next undo moves past it.
		desc = fmt.Sprintf("Undid action: %q (no undo steps were recorded)", original.Description)
		e.log.Warn("undoing action with no recorded steps", "action_id", original.ID, "action_type", original.Type)
	}
	mirror := &types.Action{
		Type:        types.ActionUndo,
		WorkItemID:  original.WorkItemID,
		Description: desc,
	}
	if err := tx.CreateAction(ctx, mirror); err != nil {
		return nil, fmt.Errorf("failed to record undo action: %w", err)
	}
	if err := tx.MarkActionUndone(ctx, original.ID, mirror.ID); err != nil {
		return nil, fmt.Errorf("failed to mark action undone: %w", err)
	}

	e.log.Info("undid action", "action_id", original.ID, "action_type", original.Type, "steps", len(steps))
	return &Result{Original: original, Mirror: mirror}, nil
}

// Redo re-applies the mutation reversed by the most recent open undo. Steps
// replay their new state in ascending step order, the original is reopened,
// and the undo entry is closed by the redo mirror.
//
// A (nil, nil) return means the most recent open undo had no surviving
// linked action; it has been marked invalidated and the transaction should
// still commit. Callers treat it the same as ErrNothingToRedo.
func (e *Engine) Redo(ctx context.Context, tx storage.Tx) (*Result, error) {
	undo, err := tx.FindLastUndoAction(ctx)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, storage.ErrNothingToRedo
		}
		return nil, fmt.Errorf("failed to find undo to redo: %w", err)
	}

	original, err := tx.FindActionLinkedByUndo(ctx, undo.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			// Dangling undo: close it without a backlink so it stops
			// shadowing the redo stack.
			e.log.Warn("undo has no linked action, invalidating", "undo_action_id", undo.ID)
			if markErr := tx.MarkUndoRedoneOrInvalidated(ctx, undo.ID, nil); markErr != nil {
				return nil, fmt.Errorf("failed to invalidate dangling undo: %w", markErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find action for redo: %w", err)
	}

	steps, err := tx.FindUndoSteps(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load undo steps: %w", err)
	}
	for _, s := range steps {
		if err := tx.ApplyRowState(ctx, s.TableName, s.RecordID, s.NewData); err != nil {
			return nil, fmt.Errorf("failed to replay step %d of action %s: %w", s.StepOrder, original.ID, err)
		}
	}

	desc := fmt.Sprintf("Redid action: %q", original.Description)
	if len(steps) == 0 {
		desc = fmt.Sprintf("Redid action: %q (no undo steps were recorded)", original.Description)
		e.log.Warn("redoing action with no recorded steps", "action_id", original.ID, "action_type", original.Type)
	}
	mirror := &types.Action{
		Type:        types.ActionRedo,
		WorkItemID:  original.WorkItemID,
		Description: desc,
	}
	if err := tx.CreateAction(ctx, mirror); err != nil {
		return nil, fmt.Errorf("failed to record redo action: %w", err)
	}
	if err := tx.MarkActionNotUndone(ctx, original.ID); err != nil {
		return nil, fmt.Errorf("failed to reopen action: %w", err)
	}
	if err := tx.MarkUndoRedoneOrInvalidated(ctx, undo.ID, &mirror.ID); err != nil {
		return nil, fmt.Errorf("failed to close undo: %w", err)
	}

	e.log.Info("redid action", "action_id", original.ID, "action_type", original.Type, "steps", len(steps))
	return &Result{Original: original, Mirror: mirror}, nil
}
