package service

import (
	"context"
	"fmt"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// removalService owns DELETE_WORK_ITEM_CASCADE.
type removalService struct {
	core *core
}

// DeleteResult reports what a cascade deactivated.
type DeleteResult struct {
	// DeletedItemIDs are the items that transitioned from active to
	// inactive, in closure order.
	DeletedItemIDs []string
	// DeactivatedLinks are the dependency links deactivated with them.
	DeactivatedLinks []types.DependencyKey
}

// DeleteCascade soft-deletes the given items and every transitive descendant,
// plus all active dependency links touching the closure. Inactive rows in the
// closure contribute nothing; a call touching nothing records no action.
func (s *removalService) DeleteCascade(ctx context.Context, ids []string) (*DeleteResult, error) {
	if len(ids) == 0 {
		return nil, storage.Validationf("no work items to delete")
	}
	for _, id := range ids {
		if err := types.ValidateID(id); err != nil {
			return nil, storage.Validationf("%v", err)
		}
	}

	result := &DeleteResult{}
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		roots, err := tx.GetWorkItems(ctx, ids, types.ActiveAny)
		if err != nil {
			return err
		}
		if len(roots) != len(ids) {
			found := make(map[string]bool, len(roots))
			for _, r := range roots {
				found[r.ID] = true
			}
			for _, id := range ids {
				if !found[id] {
					return storage.NotFoundf("work item %s", id)
				}
			}
		}

		// Closure: the inputs plus all their descendants, any active state.
		closure := make([]*types.WorkItem, 0, len(roots))
		inClosure := make(map[string]bool, len(roots))
		for _, item := range roots {
			if !inClosure[item.ID] {
				inClosure[item.ID] = true
				closure = append(closure, item)
			}
			descendants, err := tx.FindDescendants(ctx, item.ID)
			if err != nil {
				return err
			}
			for _, d := range descendants {
				if !inClosure[d.ID] {
					inClosure[d.ID] = true
					closure = append(closure, d)
				}
			}
		}

		var deleted []*types.WorkItem
		closureIDs := make([]string, 0, len(closure))
		for _, item := range closure {
			closureIDs = append(closureIDs, item.ID)
			if item.IsActive {
				deleted = append(deleted, item)
			}
		}

		links, err := tx.FindDependencyRecords(ctx, closureIDs, types.ActiveAny)
		if err != nil {
			return err
		}
		var activeLinks []*types.Dependency
		for _, link := range links {
			if link.IsActive {
				activeLinks = append(activeLinks, link)
			}
		}

		deletedIDs := make([]string, len(deleted))
		for i, item := range deleted {
			deletedIDs[i] = item.ID
		}
		linkKeys := make([]types.DependencyKey, len(activeLinks))
		for i, link := range activeLinks {
			linkKeys[i] = link.Key()
		}

		nItems, err := tx.SoftDeleteWorkItems(ctx, deletedIDs)
		if err != nil {
			return err
		}
		nLinks, err := tx.SoftDeleteDependenciesByKeys(ctx, linkKeys)
		if err != nil {
			return err
		}
		// Every deactivated row must be matched by a step below; a count
		// mismatch means a row changed underneath us, so abort.
		if nItems != int64(len(deleted)) || nLinks != int64(len(activeLinks)) {
			return fmt.Errorf("cascade delete deactivated %d items and %d links, expected %d and %d",
				nItems, nLinks, len(deleted), len(activeLinks))
		}

		if len(deleted) == 0 && len(activeLinks) == 0 {
			s.core.log.Debug("no effective change", "work_item_ids", ids)
			return nil
		}

		steps := make([]history.Step, 0, len(deleted)+len(activeLinks))
		for _, item := range deleted {
			steps = append(steps, history.Step{
				TableName: types.TableWorkItems,
				RecordID:  item.ID,
				OldData:   types.WorkItemRowData(item),
				NewData:   types.DeactivationRowData(),
			})
		}
		for _, link := range activeLinks {
			steps = append(steps, history.Step{
				TableName: types.TableDependencies,
				RecordID:  link.Key().RecordID(),
				OldData:   types.DependencyRowData(link),
				NewData:   types.DeactivationRowData(),
			})
		}

		result.DeletedItemIDs = deletedIDs
		result.DeactivatedLinks = linkKeys
		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionDeleteCascade,
			WorkItemID:  &ids[0],
			Description: fmt.Sprintf("Deleted %d work item(s) and %d dependency link(s)", len(deleted), len(activeLinks)),
		}, steps)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
