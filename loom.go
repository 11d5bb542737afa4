// Package loom provides a minimal public API for embedding the loom work
// graph in other Go programs.
//
// It exports the essential types and constructors for opening a workspace
// database and driving the mutation and history services programmatically.
// Everything else lives under internal/.
package loom

import (
	"context"

	"github.com/loomworks/loom/internal/service"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/storage/sqlite"
	"github.com/loomworks/loom/internal/types"
)

// Core types for working with the work-item graph.
type (
	WorkItem        = types.WorkItem
	WorkItemView    = types.WorkItemView
	TreeNode        = types.TreeNode
	AddTreeNode     = types.AddTreeNode
	Dependency      = types.Dependency
	DependencyInput = types.DependencyInput
	Action          = types.Action
	Status          = types.Status
	Priority        = types.Priority
	DependencyType  = types.DependencyType
	ActiveFilter    = types.ActiveFilter
)

// Status constants
const (
	StatusTodo       = types.StatusTodo
	StatusInProgress = types.StatusInProgress
	StatusReview     = types.StatusReview
	StatusDone       = types.StatusDone
)

// Priority constants
const (
	PriorityHigh   = types.PriorityHigh
	PriorityMedium = types.PriorityMedium
	PriorityLow    = types.PriorityLow
)

// Dependency type constants
const (
	DepFinishToStart = types.DepFinishToStart
	DepLinked        = types.DepLinked
)

// Store is the storage surface backing a workspace.
type Store = storage.Store

// Service is the transactional mutation, history, and reading surface.
type Service = service.Service

// AddRequest describes a new work item.
type AddRequest = service.AddRequest

// Sentinel errors callers are expected to branch on.
var (
	ErrNotFound      = storage.ErrNotFound
	ErrValidation    = storage.ErrValidation
	ErrNothingToUndo = storage.ErrNothingToUndo
	ErrNothingToRedo = storage.ErrNothingToRedo
)

// OpenStore opens (creating if necessary) a loom SQLite database.
func OpenStore(ctx context.Context, dbPath string) (Store, error) {
	return sqlite.New(ctx, dbPath)
}

// Open opens the database at dbPath and returns a ready service.
// The returned store must be closed when done.
func Open(ctx context.Context, dbPath string) (*Service, Store, error) {
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return nil, nil, err
	}
	return service.New(store), store, nil
}
