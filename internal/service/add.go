package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/orderkey"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// itemService owns ADD_WORK_ITEM and ADD_WORK_ITEM_TREE.
type itemService struct {
	core *core
}

// AddRequest carries the caller-supplied fields for a new work item.
type AddRequest struct {
	Name         string
	ParentID     *string
	Shortname    *string
	Description  *string
	Status       types.Status
	Priority     types.Priority
	DueDate      *time.Time
	OrderKey     *string
	Dependencies []types.DependencyInput
}

// Add creates one active work item. When no order key is supplied the item
// is placed after the last active sibling under the chosen parent.
func (s *itemService) Add(ctx context.Context, req AddRequest) (*types.WorkItemView, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, storage.Validationf("name is required")
	}

	item := &types.WorkItem{
		ID:          types.NewID(),
		ParentID:    req.ParentID,
		Name:        req.Name,
		Shortname:   req.Shortname,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		OrderKey:    req.OrderKey,
		IsActive:    true,
	}
	item.SetDefaults()
	if err := item.Validate(); err != nil {
		return nil, storage.Validationf("%v", err)
	}

	deps, err := buildDependencies(item.ID, req.Dependencies)
	if err != nil {
		return nil, err
	}

	err = s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if req.ParentID != nil {
			if _, err := requireActiveParent(ctx, tx, *req.ParentID); err != nil {
				return err
			}
		}
		for _, dep := range deps {
			if _, err := requireActiveItem(ctx, tx, dep.DependsOnID); err != nil {
				return err
			}
		}
		if item.OrderKey == nil {
			key, err := nextSiblingKey(ctx, tx, item.ParentID)
			if err != nil {
				return err
			}
			item.OrderKey = &key
		} else if err := orderkey.Validate(*item.OrderKey); err != nil {
			return storage.Validationf("invalid order key: %v", err)
		}

		if err := tx.CreateWorkItem(ctx, item, deps); err != nil {
			return err
		}
		after, err := tx.GetWorkItem(ctx, item.ID, types.ActiveOnly)
		if err != nil {
			return err
		}

		steps := []history.Step{{
			TableName: types.TableWorkItems,
			RecordID:  after.ID,
			OldData:   types.DeactivationRowData(),
			NewData:   types.WorkItemRowData(after),
		}}
		for _, dep := range deps {
			afterDeps, err := tx.FindDependenciesByKeys(ctx, []types.DependencyKey{dep.Key()}, types.ActiveAny)
			if err != nil {
				return err
			}
			if len(afterDeps) == 0 {
				return fmt.Errorf("dependency %s missing after create", dep.Key().RecordID())
			}
			steps = append(steps, history.Step{
				TableName: types.TableDependencies,
				RecordID:  dep.Key().RecordID(),
				OldData:   types.DeactivationRowData(),
				NewData:   types.DependencyRowData(afterDeps[0]),
			})
		}
		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionAddWorkItem,
			WorkItemID:  &item.ID,
			Description: fmt.Sprintf("Added work item %q", item.Name),
		}, steps)
	})
	if err != nil {
		return nil, err
	}
	return s.core.reader.GetWorkItem(ctx, item.ID, types.ActiveOnly)
}

// AddTree creates a forest under parentID in a single transaction. One
// aggregate action records every inserted item; failure at any depth rolls
// back all of them.
func (s *itemService) AddTree(ctx context.Context, parentID *string, nodes []*types.AddTreeNode) ([]*types.TreeNode, error) {
	if len(nodes) == 0 {
		return nil, storage.Validationf("no nodes to add")
	}
	if err := validateTreeNodes(nodes); err != nil {
		return nil, err
	}

	var (
		created []*types.TreeNode
		steps   []history.Step
		firstID string
	)
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if parentID != nil {
			if _, err := requireActiveParent(ctx, tx, *parentID); err != nil {
				return err
			}
		}
		var err error
		created, err = s.addLayer(ctx, tx, parentID, nodes, &steps)
		if err != nil {
			return err
		}
		firstID = created[0].ID

		return s.core.record(ctx, tx, &types.Action{
			Type:        types.ActionAddWorkItemTree,
			WorkItemID:  &firstID,
			Description: fmt.Sprintf("Added tree of %d work items", len(steps)),
		}, steps)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// addLayer inserts one sibling layer and recurses into children. The order
// key for each insert is taken after the previous sibling, so the layer keeps
// the caller's ordering.
func (s *itemService) addLayer(ctx context.Context, tx storage.Tx, parentID *string, nodes []*types.AddTreeNode, steps *[]history.Step) ([]*types.TreeNode, error) {
	var out []*types.TreeNode
	for _, node := range nodes {
		item := &types.WorkItem{
			ID:          types.NewID(),
			ParentID:    parentID,
			Name:        node.Name,
			Shortname:   node.Shortname,
			Description: node.Description,
			Status:      node.Status,
			Priority:    node.Priority,
			DueDate:     node.DueDate,
			IsActive:    true,
		}
		item.SetDefaults()
		key, err := nextSiblingKey(ctx, tx, parentID)
		if err != nil {
			return nil, err
		}
		item.OrderKey = &key

		if err := tx.CreateWorkItem(ctx, item, nil); err != nil {
			return nil, err
		}
		after, err := tx.GetWorkItem(ctx, item.ID, types.ActiveOnly)
		if err != nil {
			return nil, err
		}
		*steps = append(*steps, history.Step{
			TableName: types.TableWorkItems,
			RecordID:  after.ID,
			OldData:   types.DeactivationRowData(),
			NewData:   types.WorkItemRowData(after),
		})

		treeNode := &types.TreeNode{WorkItem: *after}
		if len(node.Children) > 0 {
			children, err := s.addLayer(ctx, tx, &item.ID, node.Children, steps)
			if err != nil {
				return nil, err
			}
			treeNode.Children = children
		}
		out = append(out, treeNode)
	}
	return out, nil
}

// nextSiblingKey computes an order key after the last active sibling.
func nextSiblingKey(ctx context.Context, tx storage.Tx, parentID *string) (string, error) {
	last, err := tx.SiblingEdgeOrderKey(ctx, parentID, storage.EdgeLast)
	if err != nil {
		return "", err
	}
	key, err := orderkey.Between(strValue(last), "")
	if err != nil {
		return "", fmt.Errorf("failed to compute order key: %w", err)
	}
	return key, nil
}

func validateTreeNodes(nodes []*types.AddTreeNode) error {
	for _, node := range nodes {
		if strings.TrimSpace(node.Name) == "" {
			return storage.Validationf("name is required for every tree node")
		}
		if node.Status != "" && !node.Status.IsValid() {
			return storage.Validationf("invalid status: %s", node.Status)
		}
		if node.Priority != "" && !node.Priority.IsValid() {
			return storage.Validationf("invalid priority: %s", node.Priority)
		}
		if err := validateTreeNodes(node.Children); err != nil {
			return err
		}
	}
	return nil
}

// buildDependencies normalizes dependency inputs for a new item.
func buildDependencies(sourceID string, inputs []types.DependencyInput) ([]*types.Dependency, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	deps := make([]*types.Dependency, 0, len(inputs))
	for _, in := range inputs {
		if err := types.ValidateID(in.DependsOnID); err != nil {
			return nil, storage.Validationf("%v", err)
		}
		if in.DependsOnID == sourceID {
			return nil, storage.Validationf("work item cannot depend on itself")
		}
		depType := in.Type
		if depType == "" {
			depType = types.DepFinishToStart
		}
		if !depType.IsValid() {
			return nil, storage.Validationf("invalid dependency type: %s", depType)
		}
		deps = append(deps, &types.Dependency{
			WorkItemID:  sourceID,
			DependsOnID: in.DependsOnID,
			Type:        depType,
			IsActive:    true,
		})
	}
	return deps, nil
}
