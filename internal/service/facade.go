package service

import (
	"context"
	"time"

	"github.com/loomworks/loom/internal/types"
)

// Façade delegation. Each method forwards to the per-concern service that
// owns the corresponding action type.

// Add creates one work item.
func (s *Service) Add(ctx context.Context, req AddRequest) (*types.WorkItemView, error) {
	return s.items.Add(ctx, req)
}

// AddTree creates a forest of work items under an optional parent.
func (s *Service) AddTree(ctx context.Context, parentID *string, nodes []*types.AddTreeNode) ([]*types.TreeNode, error) {
	return s.items.AddTree(ctx, parentID, nodes)
}

// SetName renames a work item.
func (s *Service) SetName(ctx context.Context, id, name string) (*types.WorkItemView, error) {
	return s.fields.SetName(ctx, id, name)
}

// SetDescription sets or clears a work item's description.
func (s *Service) SetDescription(ctx context.Context, id string, description *string) (*types.WorkItemView, error) {
	return s.fields.SetDescription(ctx, id, description)
}

// SetStatus changes a work item's status.
func (s *Service) SetStatus(ctx context.Context, id string, status types.Status) (*types.WorkItemView, error) {
	return s.fields.SetStatus(ctx, id, status)
}

// SetPriority changes a work item's priority.
func (s *Service) SetPriority(ctx context.Context, id string, priority types.Priority) (*types.WorkItemView, error) {
	return s.fields.SetPriority(ctx, id, priority)
}

// SetDueDate sets or clears a work item's due date.
func (s *Service) SetDueDate(ctx context.Context, id string, due *time.Time) (*types.WorkItemView, error) {
	return s.fields.SetDueDate(ctx, id, due)
}

// AddDependencies links a work item to the given targets.
func (s *Service) AddDependencies(ctx context.Context, sourceID string, inputs []types.DependencyInput) (*types.WorkItemView, error) {
	return s.deps.AddDependencies(ctx, sourceID, inputs)
}

// DeleteDependencies removes active links from a work item to the targets.
func (s *Service) DeleteDependencies(ctx context.Context, sourceID string, targetIDs []string) (*types.WorkItemView, error) {
	return s.deps.DeleteDependencies(ctx, sourceID, targetIDs)
}

// MoveToStart repositions a work item first among its siblings.
func (s *Service) MoveToStart(ctx context.Context, id string) (*types.WorkItemView, error) {
	return s.positions.MoveToStart(ctx, id)
}

// MoveToEnd repositions a work item last among its siblings.
func (s *Service) MoveToEnd(ctx context.Context, id string) (*types.WorkItemView, error) {
	return s.positions.MoveToEnd(ctx, id)
}

// MoveAfter repositions a work item directly after a sibling.
func (s *Service) MoveAfter(ctx context.Context, id, siblingID string) (*types.WorkItemView, error) {
	return s.positions.MoveAfter(ctx, id, siblingID)
}

// MoveBefore repositions a work item directly before a sibling.
func (s *Service) MoveBefore(ctx context.Context, id, siblingID string) (*types.WorkItemView, error) {
	return s.positions.MoveBefore(ctx, id, siblingID)
}

// DeleteCascade soft-deletes items, their descendants, and touching links.
func (s *Service) DeleteCascade(ctx context.Context, ids []string) (*DeleteResult, error) {
	return s.removals.DeleteCascade(ctx, ids)
}

// PromoteToProject turns a child item into a root.
func (s *Service) PromoteToProject(ctx context.Context, id string) (*types.WorkItemView, error) {
	return s.promotes.PromoteToProject(ctx, id)
}

// Undo reverses the most recent forward mutation.
func (s *Service) Undo(ctx context.Context) (*types.Action, error) {
	return s.hist.Undo(ctx)
}

// Redo re-applies the most recently undone mutation.
func (s *Service) Redo(ctx context.Context) (*types.Action, error) {
	return s.hist.Redo(ctx)
}
