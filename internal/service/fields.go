package service

import (
	"context"
	"fmt"
	"time"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// fieldService owns the SET_<FIELD> action types. Each setter updates one
// column; setting the current value is a no-op with no write and no history.
type fieldService struct {
	core *core
}

// fieldChange describes one single-column update after no-op detection.
type fieldChange struct {
	column     string
	actionType types.ActionType
	oldValue   any // row data encoding (nil for NULL)
	newValue   any
	dbValue    any // driver encoding passed to the update
	describe   string
}

// SetName renames the item.
func (s *fieldService) SetName(ctx context.Context, id, name string) (*types.WorkItemView, error) {
	if name == "" {
		return nil, storage.Validationf("name is required")
	}
	return s.set(ctx, id, func(before *types.WorkItem) *fieldChange {
		if before.Name == name {
			return nil
		}
		return &fieldChange{
			column:     "name",
			actionType: types.ActionSetName,
			oldValue:   before.Name,
			newValue:   name,
			dbValue:    name,
			describe:   fmt.Sprintf("Renamed %q to %q", before.Name, name),
		}
	})
}

// SetDescription sets or clears the description.
func (s *fieldService) SetDescription(ctx context.Context, id string, description *string) (*types.WorkItemView, error) {
	return s.set(ctx, id, func(before *types.WorkItem) *fieldChange {
		if strPtrEqual(before.Description, description) {
			return nil
		}
		return &fieldChange{
			column:     "description",
			actionType: types.ActionSetDescription,
			oldValue:   ptrAny(before.Description),
			newValue:   ptrAny(description),
			dbValue:    ptrAny(description),
			describe:   fmt.Sprintf("Set description of %q", before.Name),
		}
	})
}

// SetStatus moves the item to a new status.
func (s *fieldService) SetStatus(ctx context.Context, id string, status types.Status) (*types.WorkItemView, error) {
	if !status.IsValid() {
		return nil, storage.Validationf("invalid status: %s", status)
	}
	return s.set(ctx, id, func(before *types.WorkItem) *fieldChange {
		if before.Status == status {
			return nil
		}
		return &fieldChange{
			column:     "status",
			actionType: types.ActionSetStatus,
			oldValue:   string(before.Status),
			newValue:   string(status),
			dbValue:    string(status),
			describe:   fmt.Sprintf("Set status of %q to %s", before.Name, status),
		}
	})
}

// SetPriority changes the item priority.
func (s *fieldService) SetPriority(ctx context.Context, id string, priority types.Priority) (*types.WorkItemView, error) {
	if !priority.IsValid() {
		return nil, storage.Validationf("invalid priority: %s", priority)
	}
	return s.set(ctx, id, func(before *types.WorkItem) *fieldChange {
		if before.Priority == priority {
			return nil
		}
		return &fieldChange{
			column:     "priority",
			actionType: types.ActionSetPriority,
			oldValue:   string(before.Priority),
			newValue:   string(priority),
			dbValue:    string(priority),
			describe:   fmt.Sprintf("Set priority of %q to %s", before.Name, priority),
		}
	})
}

// SetDueDate sets or clears the due date. Equality compares normalized
// instants, so the same moment in different zones is still a no-op.
func (s *fieldService) SetDueDate(ctx context.Context, id string, due *time.Time) (*types.WorkItemView, error) {
	return s.set(ctx, id, func(before *types.WorkItem) *fieldChange {
		if instantsEqual(before.DueDate, due) {
			return nil
		}
		change := &fieldChange{
			column:     "due_date",
			actionType: types.ActionSetDueDate,
			describe:   fmt.Sprintf("Set due date of %q", before.Name),
		}
		if before.DueDate != nil {
			change.oldValue = types.FormatInstant(*before.DueDate)
		}
		if due != nil {
			utc := due.UTC()
			change.newValue = types.FormatInstant(utc)
			change.dbValue = utc
		}
		return change
	})
}

// set runs the shared single-field contract: read before state, detect
// no-op, write, read after state, record one step keyed by the column.
func (s *fieldService) set(ctx context.Context, id string, diff func(before *types.WorkItem) *fieldChange) (*types.WorkItemView, error) {
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		before, err := requireActiveItem(ctx, tx, id)
		if err != nil {
			return err
		}
		change := diff(before)
		if change == nil {
			s.core.log.Debug("no effective change", "work_item_id", id)
			return nil
		}

		after, err := tx.UpdateWorkItemFields(ctx, id, map[string]any{change.column: change.dbValue})
		if err != nil {
			return err
		}

		step := history.Step{
			TableName: types.TableWorkItems,
			RecordID:  id,
			OldData: types.RowData{
				change.column: change.oldValue,
				"updated_at":  types.FormatInstant(before.UpdatedAt),
			},
			NewData: types.RowData{
				change.column: change.newValue,
				"updated_at":  types.FormatInstant(after.UpdatedAt),
			},
		}
		return s.core.record(ctx, tx, &types.Action{
			Type:        change.actionType,
			WorkItemID:  &id,
			Description: change.describe,
		}, []history.Step{step})
	})
	if err != nil {
		return nil, err
	}
	return s.core.reader.GetWorkItem(ctx, id, types.ActiveOnly)
}

func ptrAny(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func instantsEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
