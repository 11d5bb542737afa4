package service

import (
	"context"
	"fmt"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/orderkey"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// positionService owns SET_ORDER_KEY. Moves change only the order key; the
// parent never changes here.
type positionService struct {
	core *core
}

// MoveToStart places the item before its first active sibling.
func (s *positionService) MoveToStart(ctx context.Context, id string) (*types.WorkItemView, error) {
	return s.move(ctx, id, "Moved work item to start", func(ctx context.Context, tx storage.Tx, item *types.WorkItem) (string, bool, error) {
		first, err := tx.SiblingEdgeOrderKey(ctx, item.ParentID, storage.EdgeFirst)
		if err != nil {
			return "", false, err
		}
		if first == nil || (item.OrderKey != nil && *first == *item.OrderKey) {
			return "", false, nil // already first
		}
		key, err := orderkey.Between("", *first)
		return key, true, err
	})
}

// MoveToEnd places the item after its last active sibling.
func (s *positionService) MoveToEnd(ctx context.Context, id string) (*types.WorkItemView, error) {
	return s.move(ctx, id, "Moved work item to end", func(ctx context.Context, tx storage.Tx, item *types.WorkItem) (string, bool, error) {
		last, err := tx.SiblingEdgeOrderKey(ctx, item.ParentID, storage.EdgeLast)
		if err != nil {
			return "", false, err
		}
		if last == nil || (item.OrderKey != nil && *last == *item.OrderKey) {
			return "", false, nil // already last
		}
		key, err := orderkey.Between(*last, "")
		return key, true, err
	})
}

// MoveAfter places the item directly after a sibling.
func (s *positionService) MoveAfter(ctx context.Context, id, siblingID string) (*types.WorkItemView, error) {
	return s.moveRelative(ctx, id, siblingID, storage.SideAfter)
}

// MoveBefore places the item directly before a sibling.
func (s *positionService) MoveBefore(ctx context.Context, id, siblingID string) (*types.WorkItemView, error) {
	return s.moveRelative(ctx, id, siblingID, storage.SideBefore)
}

func (s *positionService) moveRelative(ctx context.Context, id, siblingID string, side storage.Side) (*types.WorkItemView, error) {
	if id == siblingID {
		return nil, storage.Validationf("cannot move a work item relative to itself")
	}
	if err := types.ValidateID(siblingID); err != nil {
		return nil, storage.Validationf("%v", err)
	}
	desc := fmt.Sprintf("Moved work item %s %s", side, siblingID)
	return s.move(ctx, id, desc, func(ctx context.Context, tx storage.Tx, item *types.WorkItem) (string, bool, error) {
		sibling, err := requireActiveItem(ctx, tx, siblingID)
		if err != nil {
			return "", false, err
		}
		if !strPtrEqual(item.ParentID, sibling.ParentID) {
			return "", false, storage.Validationf("work items %s and %s are not siblings", item.ID, sibling.ID)
		}

		before, after, err := tx.NeighborOrderKeys(ctx, item.ParentID, siblingID, side)
		if err != nil {
			return "", false, err
		}
		// The slot next to the pivot may already be filled by the item
		// itself; that position is a no-op.
		if item.OrderKey != nil {
			if (before != nil && *before == *item.OrderKey) || (after != nil && *after == *item.OrderKey) {
				return "", false, nil
			}
		}
		key, err := orderkey.Between(strValue(before), strValue(after))
		return key, true, err
	})
}

// move runs the shared positioning contract around a key-computation
// callback. The callback returns (newKey, effective, err); an ineffective
// move skips the write and the history record.
func (s *positionService) move(ctx context.Context, id, desc string, compute func(ctx context.Context, tx storage.Tx, item *types.WorkItem) (string, bool, error)) (*types.WorkItemView, error) {
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		item, err := requireActiveItem(ctx, tx, id)
		if err != nil {
			return err
		}
		newKey, effective, err := compute(ctx, tx, item)
		if err != nil {
			return fmt.Errorf("failed to compute order key: %w", err)
		}
		if !effective || (item.OrderKey != nil && newKey == *item.OrderKey) {
			s.core.log.Debug("no effective change", "work_item_id", id)
			return nil
		}

		after, err := tx.UpdateWorkItemFields(ctx, id, map[string]any{"order_key": newKey})
		if err != nil {
			return err
		}

		step := history.Step{
			TableName: types.TableWorkItems,
			RecordID:  id,
			OldData: types.RowData{
				"order_key":  ptrAny(item.OrderKey),
				"updated_at": types.FormatInstant(item.UpdatedAt),
			},
			NewData: types.RowData{
				"order_key":  newKey,
				"updated_at": types.FormatInstant(after.UpdatedAt),
			},
		}
		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionSetOrderKey,
			WorkItemID:  &id,
			Description: desc,
		}, []history.Step{step})
	})
	if err != nil {
		return nil, err
	}
	return s.core.reader.GetWorkItem(ctx, id, types.ActiveOnly)
}
