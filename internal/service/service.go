// Package service implements the mutation and reading services over the
// storage layer. The exported Service is a thin façade composing small
// per-concern services; each of those owns one action type and produces the
// history record for it inside the same transaction as the data change.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/telemetry"
	"github.com/loomworks/loom/internal/types"
)

// Service is the outward mutation and reading surface.
type Service struct {
	*ReadService

	items     *itemService
	fields    *fieldService
	deps      *depService
	positions *positionService
	removals  *removalService
	promotes  *promoteService
	hist      *historyService
}

// Option configures a Service.
type Option func(*core)

// WithLogger sets the logger shared by all per-concern services.
func WithLogger(log *slog.Logger) Option {
	return func(c *core) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds the service façade over a store.
func New(store storage.Store, opts ...Option) *Service {
	c := &core{
		store:   store,
		log:     slog.Default(),
		metrics: telemetry.NewMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.engine = history.New(c.log)
	reader := &ReadService{store: store, log: c.log}
	c.reader = reader

	return &Service{
		ReadService: reader,
		items:       &itemService{core: c},
		fields:      &fieldService{core: c},
		deps:        &depService{core: c},
		positions:   &positionService{core: c},
		removals:    &removalService{core: c},
		promotes:    &promoteService{core: c},
		hist:        &historyService{core: c},
	}
}

// core is the shared plumbing every per-concern service embeds: the store,
// the history engine, logging, and metrics.
type core struct {
	store   storage.Store
	engine  *history.Engine
	log     *slog.Logger
	metrics *telemetry.Metrics
	reader  *ReadService
}

// record writes the action with its steps and invalidates the redo stack.
func (c *core) record(ctx context.Context, tx storage.Tx, action *types.Action, steps []history.Step) error {
	invalidated, err := c.engine.Record(ctx, tx, action, steps)
	if err != nil {
		return err
	}
	c.metrics.RecordAction(ctx, string(action.Type))
	c.metrics.RecordInvalidated(ctx, invalidated)
	return nil
}

// requireActiveItem fetches an item that must exist and be active,
// distinguishing the two failure modes.
func requireActiveItem(ctx context.Context, r storage.Reader, id string) (*types.WorkItem, error) {
	if err := types.ValidateID(id); err != nil {
		return nil, storage.Validationf("%v", err)
	}
	item, err := r.GetWorkItem(ctx, id, types.ActiveAny)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, storage.NotFoundf("work item %s", id)
		}
		return nil, err
	}
	if !item.IsActive {
		return nil, storage.Validationf("work item %s is inactive", id)
	}
	return item, nil
}

// requireActiveParent validates a parent reference for create or promote
// paths, and guards against a broken parent chain above it.
func requireActiveParent(ctx context.Context, r storage.Reader, parentID string) (*types.WorkItem, error) {
	parent, err := requireActiveItem(ctx, r, parentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, storage.NotFoundf("parent work item %s", parentID)
		}
		return nil, err
	}
	if err := validateParentChain(ctx, r, parent); err != nil {
		return nil, err
	}
	return parent, nil
}

// validateParentChain walks from item to its root and fails if the ancestry
// revisits a node. Stored parents should never cycle; this stops a corrupt
// chain from sending tree traversals into a loop.
func validateParentChain(ctx context.Context, r storage.Reader, item *types.WorkItem) error {
	seen := map[string]bool{item.ID: true}
	current := item
	for current.ParentID != nil {
		next, err := r.GetWorkItem(ctx, *current.ParentID, types.ActiveAny)
		if err != nil {
			if storage.IsNotFound(err) {
				return storage.NotFoundf("ancestor %s of work item %s", *current.ParentID, item.ID)
			}
			return err
		}
		if seen[next.ID] {
			return fmt.Errorf("parent chain of work item %s: %w", item.ID, storage.ErrCycle)
		}
		seen[next.ID] = true
		current = next
	}
	return nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
