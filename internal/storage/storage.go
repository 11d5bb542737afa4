// Package storage defines the interface for work item storage backends.
package storage

import (
	"context"
	"database/sql"

	"github.com/loomworks/loom/internal/types"
)

// Edge selects which end of a sibling ordering to inspect.
type Edge string

// Edge constants
const (
	EdgeFirst Edge = "first"
	EdgeLast  Edge = "last"
)

// Side selects the insertion slot relative to a pivot sibling.
type Side string

// Side constants
const (
	SideBefore Side = "before"
	SideAfter  Side = "after"
)

// Reader exposes the query surface shared by the pool-backed store and a
// transaction. Reads default to active rows; pass an explicit filter to see
// inactive or all rows.
type Reader interface {
	GetWorkItem(ctx context.Context, id string, f types.ActiveFilter) (*types.WorkItem, error)
	GetWorkItems(ctx context.Context, ids []string, f types.ActiveFilter) ([]*types.WorkItem, error)
	FindRoots(ctx context.Context, f types.ActiveFilter) ([]*types.WorkItem, error)
	FindChildren(ctx context.Context, parentID string, f types.ActiveFilter) ([]*types.WorkItem, error)

	// FindDescendants returns the transitive children of id regardless of
	// active state. Cascading delete expands its closure through it.
	FindDescendants(ctx context.Context, id string) ([]*types.WorkItem, error)

	FindSiblings(ctx context.Context, id string, f types.ActiveFilter) ([]*types.WorkItem, error)
	SearchWorkItems(ctx context.Context, query string, f types.ActiveFilter) ([]*types.WorkItem, error)
	ListWorkItems(ctx context.Context, filter types.ListFilter) ([]*types.WorkItem, error)

	// Dependency reads take independent filters for the link row and for the
	// item at the far endpoint.
	FindDependencies(ctx context.Context, id string, linkF, itemF types.ActiveFilter) ([]*types.DependencyEdge, error)
	FindDependents(ctx context.Context, id string, linkF, itemF types.ActiveFilter) ([]*types.DependencyEdge, error)

	// FindDependencyRecords returns link rows where either endpoint is in ids.
	FindDependencyRecords(ctx context.Context, ids []string, linkF types.ActiveFilter) ([]*types.Dependency, error)
	FindDependenciesByKeys(ctx context.Context, keys []types.DependencyKey, linkF types.ActiveFilter) ([]*types.Dependency, error)

	// History reads
	FindActionByID(ctx context.Context, id string) (*types.Action, error)
	FindUndoSteps(ctx context.Context, actionID string) ([]*types.UndoStep, error)
	ListRecentActions(ctx context.Context, filter types.ActionFilter) ([]*types.Action, error)
}

// Tx provides atomic multi-operation support within a single database
// transaction. All write operations require it; services never write through
// the pool directly.
//
// Transaction semantics:
//   - all operations share one dedicated connection
//   - an error or panic from the callback rolls the transaction back
//   - a nil return commits
type Tx interface {
	Reader

	// Work item writes
	CreateWorkItem(ctx context.Context, item *types.WorkItem, deps []*types.Dependency) error
	UpdateWorkItemFields(ctx context.Context, id string, fields map[string]any) (*types.WorkItem, error)
	UpsertDependencies(ctx context.Context, sourceID string, deps []*types.Dependency) error
	SoftDeleteWorkItems(ctx context.Context, ids []string) (int64, error)
	SoftDeleteDependenciesByKeys(ctx context.Context, keys []types.DependencyKey) (int64, error)

	// Ordered-sibling positioning primitives
	SiblingEdgeOrderKey(ctx context.Context, parentID *string, edge Edge) (*string, error)
	NeighborOrderKeys(ctx context.Context, parentID *string, pivotID string, side Side) (before, after *string, err error)

	// ApplyRowState updates the row identified by recordID with every
	// non-key field present in data. Used only by history replay. A zero-row
	// update is logged as a warning by the implementation, not returned as
	// an error.
	ApplyRowState(ctx context.Context, table, recordID string, data types.RowData) error

	// Action history writes
	CreateAction(ctx context.Context, action *types.Action) error
	CreateUndoStep(ctx context.Context, step *types.UndoStep) error
	FindLastOriginalAction(ctx context.Context) (*types.Action, error)
	FindLastUndoAction(ctx context.Context) (*types.Action, error)
	FindRecentUnredoneUndoActions(ctx context.Context, limit int) ([]*types.Action, error)
	FindActionLinkedByUndo(ctx context.Context, undoActionID string) (*types.Action, error)
	MarkActionUndone(ctx context.Context, actionID, undoActionID string) error
	MarkActionNotUndone(ctx context.Context, actionID string) error
	MarkUndoRedoneOrInvalidated(ctx context.Context, undoActionID string, byActionID *string) error

	// InvalidateRedoStack marks every unredone UNDO action other than
	// newActionID as invalidated by it. Returns the number of marked rows.
	InvalidateRedoStack(ctx context.Context, newActionID string) (int64, error)
}

// Store defines the interface for work item storage backends
type Store interface {
	Reader

	// RunInTransaction executes fn within a database transaction.
	//
	// Behavior:
	//   - if fn returns nil, the transaction is committed
	//   - if fn returns an error, the transaction is rolled back
	//   - if fn panics, the transaction is rolled back and the panic re-raised
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle
	Close() error

	// Path returns the backing database location.
	Path() string

	// UnderlyingDB returns the pooled *sql.DB for extensions and diagnostics.
	// Direct access bypasses the storage layer; use with caution.
	UnderlyingDB() *sql.DB
}
