package service

import (
	"context"
	"fmt"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// depService owns ADD_DEPENDENCIES and DELETE_DEPENDENCIES.
type depService struct {
	core *core
}

// AddDependencies links the source item to each target. Re-adding an
// inactive link reactivates it; adding an active link with a different type
// retypes it. A link that already exists with the same type and state
// produces no step, and a call with no effective change records no action.
func (s *depService) AddDependencies(ctx context.Context, sourceID string, inputs []types.DependencyInput) (*types.WorkItemView, error) {
	if len(inputs) == 0 {
		return nil, storage.Validationf("no dependencies to add")
	}
	deps, err := buildDependencies(sourceID, inputs)
	if err != nil {
		return nil, err
	}

	err = s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if _, err := requireActiveItem(ctx, tx, sourceID); err != nil {
			return err
		}

		targetIDs := make([]string, len(deps))
		for i, dep := range deps {
			targetIDs[i] = dep.DependsOnID
		}
		targets, err := tx.GetWorkItems(ctx, targetIDs, types.ActiveAny)
		if err != nil {
			return err
		}
		byID := make(map[string]*types.WorkItem, len(targets))
		for _, t := range targets {
			byID[t.ID] = t
		}
		for _, id := range targetIDs {
			target, ok := byID[id]
			if !ok {
				return storage.NotFoundf("dependency target %s", id)
			}
			if !target.IsActive {
				return storage.Validationf("dependency target %s is inactive", id)
			}
		}

		keys := make([]types.DependencyKey, len(deps))
		for i, dep := range deps {
			keys[i] = dep.Key()
		}
		beforeRows, err := tx.FindDependenciesByKeys(ctx, keys, types.ActiveAny)
		if err != nil {
			return err
		}
		beforeByKey := make(map[types.DependencyKey]*types.Dependency, len(beforeRows))
		for _, row := range beforeRows {
			beforeByKey[row.Key()] = row
		}

		// Only links whose upsert would change something are written.
		var effective []*types.Dependency
		for _, dep := range deps {
			before, exists := beforeByKey[dep.Key()]
			switch {
			case !exists:
				effective = append(effective, dep)
			case !before.IsActive:
				effective = append(effective, dep)
			case before.Type != dep.Type:
				effective = append(effective, dep)
			}
		}
		if len(effective) == 0 {
			s.core.log.Debug("no effective change", "work_item_id", sourceID)
			return nil
		}

		if err := tx.UpsertDependencies(ctx, sourceID, effective); err != nil {
			return err
		}

		steps := make([]history.Step, 0, len(effective))
		for _, dep := range effective {
			afterRows, err := tx.FindDependenciesByKeys(ctx, []types.DependencyKey{dep.Key()}, types.ActiveAny)
			if err != nil {
				return err
			}
			if len(afterRows) == 0 {
				return fmt.Errorf("dependency %s missing after upsert", dep.Key().RecordID())
			}
			oldData := types.DeactivationRowData()
			if before, exists := beforeByKey[dep.Key()]; exists {
				oldData = types.DependencyRowData(before)
			}
			steps = append(steps, history.Step{
				TableName: types.TableDependencies,
				RecordID:  dep.Key().RecordID(),
				OldData:   oldData,
				NewData:   types.DependencyRowData(afterRows[0]),
			})
		}
		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionAddDependencies,
			WorkItemID:  &sourceID,
			Description: fmt.Sprintf("Added %d dependency link(s)", len(steps)),
		}, steps)
	})
	if err != nil {
		return nil, err
	}
	return s.core.reader.GetWorkItem(ctx, sourceID, types.ActiveOnly)
}

// DeleteDependencies deactivates the links from the source to each target.
// Targets without an active link are rejected, naming whether the link is
// missing entirely or already inactive.
func (s *depService) DeleteDependencies(ctx context.Context, sourceID string, targetIDs []string) (*types.WorkItemView, error) {
	if len(targetIDs) == 0 {
		return nil, storage.Validationf("no dependencies to remove")
	}
	if err := types.ValidateID(sourceID); err != nil {
		return nil, storage.Validationf("%v", err)
	}
	keys := make([]types.DependencyKey, len(targetIDs))
	for i, id := range targetIDs {
		if err := types.ValidateID(id); err != nil {
			return nil, storage.Validationf("%v", err)
		}
		keys[i] = types.DependencyKey{WorkItemID: sourceID, DependsOnID: id}
	}

	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if _, err := requireActiveItem(ctx, tx, sourceID); err != nil {
			return err
		}

		beforeRows, err := tx.FindDependenciesByKeys(ctx, keys, types.ActiveAny)
		if err != nil {
			return err
		}
		beforeByKey := make(map[types.DependencyKey]*types.Dependency, len(beforeRows))
		for _, row := range beforeRows {
			beforeByKey[row.Key()] = row
		}
		for _, key := range keys {
			before, exists := beforeByKey[key]
			if !exists {
				return storage.Validationf("no dependency link from %s to %s", key.WorkItemID, key.DependsOnID)
			}
			if !before.IsActive {
				return storage.Validationf("dependency link from %s to %s is already inactive", key.WorkItemID, key.DependsOnID)
			}
		}

		n, err := tx.SoftDeleteDependenciesByKeys(ctx, keys)
		if err != nil {
			return err
		}
		if n != int64(len(keys)) {
			return fmt.Errorf("deactivated %d of %d dependency links", n, len(keys))
		}

		steps := make([]history.Step, 0, len(keys))
		for _, key := range keys {
			steps = append(steps, history.Step{
				TableName: types.TableDependencies,
				RecordID:  key.RecordID(),
				OldData:   types.DependencyRowData(beforeByKey[key]),
				NewData:   types.DeactivationRowData(),
			})
		}
		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionDeleteDependencies,
			WorkItemID:  &sourceID,
			Description: fmt.Sprintf("Removed %d dependency link(s)", len(steps)),
		}, steps)
	})
	if err != nil {
		return nil, err
	}
	return s.core.reader.GetWorkItem(ctx, sourceID, types.ActiveOnly)
}
