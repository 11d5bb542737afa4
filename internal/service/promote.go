package service

import (
	"context"
	"fmt"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/orderkey"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// promoteService owns PROMOTE_TO_PROJECT.
type promoteService struct {
	core *core
}

// PromoteToProject detaches a non-root item from its parent and makes it a
// root, placed last among roots. The former parent keeps a conceptual hold on
// it through a new active linked-type dependency parent -> item.
func (s *promoteService) PromoteToProject(ctx context.Context, id string) (*types.WorkItemView, error) {
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		before, err := requireActiveItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if before.ParentID == nil {
			return storage.Validationf("work item %s is already a project root", id)
		}
		parentID := *before.ParentID

		lastRoot, err := tx.SiblingEdgeOrderKey(ctx, nil, storage.EdgeLast)
		if err != nil {
			return err
		}
		newKey, err := orderkey.Between(strValue(lastRoot), "")
		if err != nil {
			return fmt.Errorf("failed to compute order key: %w", err)
		}

		after, err := tx.UpdateWorkItemFields(ctx, id, map[string]any{
			"parent_work_item_id": nil,
			"order_key":           newKey,
		})
		if err != nil {
			return err
		}

		link := &types.Dependency{
			WorkItemID:  parentID,
			DependsOnID: id,
			Type:        types.DepLinked,
			IsActive:    true,
		}
		linkKey := link.Key()
		beforeLinks, err := tx.FindDependenciesByKeys(ctx, []types.DependencyKey{linkKey}, types.ActiveAny)
		if err != nil {
			return err
		}
		if err := tx.UpsertDependencies(ctx, parentID, []*types.Dependency{link}); err != nil {
			return err
		}
		afterLinks, err := tx.FindDependenciesByKeys(ctx, []types.DependencyKey{linkKey}, types.ActiveAny)
		if err != nil {
			return err
		}
		if len(afterLinks) == 0 {
			return fmt.Errorf("dependency %s missing after promote", linkKey.RecordID())
		}

		oldLinkData := types.DeactivationRowData()
		if len(beforeLinks) > 0 {
			oldLinkData = types.DependencyRowData(beforeLinks[0])
		}
		steps := []history.Step{
			{
				TableName: types.TableWorkItems,
				RecordID:  id,
				OldData: types.RowData{
					"parent_work_item_id": parentID,
					"order_key":           ptrAny(before.OrderKey),
					"updated_at":          types.FormatInstant(before.UpdatedAt),
				},
				NewData: types.RowData{
					"parent_work_item_id": nil,
					"order_key":           newKey,
					"updated_at":          types.FormatInstant(after.UpdatedAt),
				},
			},
			{
				TableName: types.TableDependencies,
				RecordID:  linkKey.RecordID(),
				OldData:   oldLinkData,
				NewData:   types.DependencyRowData(afterLinks[0]),
			},
		}
		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionPromoteToProject,
			WorkItemID:  &id,
			Description: fmt.Sprintf("Promoted %q to a project", before.Name),
		}, steps)
	})
	if err != nil {
		return nil, err
	}
	return s.core.reader.GetWorkItem(ctx, id, types.ActiveOnly)
}
