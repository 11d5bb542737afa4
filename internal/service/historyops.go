package service

import (
	"context"

	"github.com/loomworks/loom/internal/history"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

// historyService binds the history engine's undo and redo into transactions.
type historyService struct {
	core *core
}

// Undo reverses the most recent forward mutation and returns it.
func (s *historyService) Undo(ctx context.Context) (*types.Action, error) {
	var result *history.Result
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		var err error
		result, err = s.core.engine.Undo(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.core.metrics.RecordUndo(ctx)
	return result.Original, nil
}

// Redo re-applies the most recently undone mutation and returns it. A redo
// stack emptied by a dangling undo entry still commits the cleanup before
// reporting ErrNothingToRedo.
func (s *historyService) Redo(ctx context.Context) (*types.Action, error) {
	var result *history.Result
	err := s.core.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		var err error
		result, err = s.core.engine.Redo(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, storage.ErrNothingToRedo
	}
	s.core.metrics.RecordRedo(ctx)
	return result.Original, nil
}
