package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// ReadService hydrates work items into composite views. Reads go through the
// pool; no transaction is held.
type ReadService struct {
	store storage.Store
	log   *slog.Logger
}

// NewReadService creates a standalone reading service.
func NewReadService(store storage.Store, log *slog.Logger) *ReadService {
	if log == nil {
		log = slog.Default()
	}
	return &ReadService{store: store, log: log}
}

// GetWorkItem returns the item together with its outgoing dependencies,
// incoming dependents, and direct children. The filter applies to the item
// itself; edges and children default to active rows with active endpoints.
func (s *ReadService) GetWorkItem(ctx context.Context, id string, f types.ActiveFilter) (*types.WorkItemView, error) {
	if err := types.ValidateID(id); err != nil {
		return nil, storage.Validationf("%v", err)
	}
	item, err := s.store.GetWorkItem(ctx, id, f)
	if err != nil {
		return nil, err
	}

	view := &types.WorkItemView{WorkItem: *item}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps, err := s.store.FindDependencies(gctx, id, types.ActiveOnly, types.ActiveOnly)
		view.Dependencies = deps
		return err
	})
	g.Go(func() error {
		dependents, err := s.store.FindDependents(gctx, id, types.ActiveOnly, types.ActiveOnly)
		view.Dependents = dependents
		return err
	})
	g.Go(func() error {
		children, err := s.store.FindChildren(gctx, id, types.ActiveOnly)
		view.Children = children
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// GetFullTree returns the item with its recursively hydrated children.
// Inactive subtrees are excluded unless the options include them.
func (s *ReadService) GetFullTree(ctx context.Context, id string, opts types.TreeOptions) (*types.TreeNode, error) {
	if err := types.ValidateID(id); err != nil {
		return nil, storage.Validationf("%v", err)
	}
	filter := types.ActiveOnly
	if opts.IncludeInactive {
		filter = types.ActiveAny
	}
	item, err := s.store.GetWorkItem(ctx, id, filter)
	if err != nil {
		return nil, err
	}
	return s.buildTree(ctx, item, filter, opts.MaxDepth, 1)
}

func (s *ReadService) buildTree(ctx context.Context, item *types.WorkItem, filter types.ActiveFilter, maxDepth, depth int) (*types.TreeNode, error) {
	node := &types.TreeNode{WorkItem: *item}
	if maxDepth > 0 && depth >= maxDepth {
		return node, nil
	}
	children, err := s.store.FindChildren(ctx, item.ID, filter)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		childNode, err := s.buildTree(ctx, child, filter, maxDepth, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// ListWorkItems returns work items matching the filter.
func (s *ReadService) ListWorkItems(ctx context.Context, filter types.ListFilter) ([]*types.WorkItem, error) {
	return s.store.ListWorkItems(ctx, filter)
}

// Search matches the query against name, shortname, and description.
func (s *ReadService) Search(ctx context.Context, query string, f types.ActiveFilter) ([]*types.WorkItem, error) {
	return s.store.SearchWorkItems(ctx, query, f)
}

// ListRecentActions returns history entries, newest first.
func (s *ReadService) ListRecentActions(ctx context.Context, filter types.ActionFilter) ([]*types.Action, error) {
	return s.store.ListRecentActions(ctx, filter)
}
