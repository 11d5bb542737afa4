package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/storage/sqlite"
	"github.com/loomworks/loom/internal/types"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// renameTracked creates a work item and records a rename with its undo step,
// returning the item ID.
func renameTracked(t *testing.T, store *sqlite.SQLiteStorage, engine *Engine, from, to string) string {
	t.Helper()
	ctx := context.Background()
	item := &types.WorkItem{ID: types.NewID(), Name: from, IsActive: true}
	item.SetDefaults()

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if err := tx.CreateWorkItem(ctx, item, nil); err != nil {
			return err
		}
		if _, err := tx.UpdateWorkItemFields(ctx, item.ID, map[string]any{"name": to}); err != nil {
			return err
		}
		_, err := engine.Record(ctx, tx, &types.Action{
			Type:        types.ActionSetName,
			WorkItemID:  &item.ID,
			Description: "Set name to " + to,
		}, []Step{{
			TableName: types.TableWorkItems,
			RecordID:  item.ID,
			OldData:   types.RowData{"name": from},
			NewData:   types.RowData{"name": to},
		}})
		return err
	})
	require.NoError(t, err)
	return item.ID
}

func TestUndoNothing(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)

	err := store.RunInTransaction(context.Background(), func(tx storage.Tx) error {
		_, err := engine.Undo(context.Background(), tx)
		return err
	})
	require.ErrorIs(t, err, storage.ErrNothingToUndo)
}

func TestRedoNothing(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)

	err := store.RunInTransaction(context.Background(), func(tx storage.Tx) error {
		_, err := engine.Redo(context.Background(), tx)
		return err
	})
	require.ErrorIs(t, err, storage.ErrNothingToRedo)
}

func TestUndoRestoresOldState(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)
	ctx := context.Background()

	id := renameTracked(t, store, engine, "draft", "final")

	var result *Result
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		var err error
		result, err = engine.Undo(ctx, tx)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionSetName, result.Original.Type)
	require.Equal(t, types.ActionUndo, result.Mirror.Type)
	require.Contains(t, result.Mirror.Description, `Undid action: "Set name to final"`)

	item, err := store.GetWorkItem(ctx, id, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "draft", item.Name)

	original, err := store.FindActionByID(ctx, result.Original.ID)
	require.NoError(t, err)
	require.True(t, original.IsUndone)
	require.Equal(t, result.Mirror.ID, *original.UndoneAtActionID)
}

func TestUndoPopsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)
	ctx := context.Background()

	first := renameTracked(t, store, engine, "a1", "a2")
	second := renameTracked(t, store, engine, "b1", "b2")

	undoOnce := func() {
		err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
			_, err := engine.Undo(ctx, tx)
			return err
		})
		require.NoError(t, err)
	}

	undoOnce()
	item, err := store.GetWorkItem(ctx, second, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "b1", item.Name)
	item, err = store.GetWorkItem(ctx, first, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "a2", item.Name)

	undoOnce()
	item, err = store.GetWorkItem(ctx, first, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "a1", item.Name)

	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := engine.Undo(ctx, tx)
		return err
	})
	require.ErrorIs(t, err, storage.ErrNothingToUndo)
}

func TestRedoReappliesNewState(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)
	ctx := context.Background()

	id := renameTracked(t, store, engine, "draft", "final")

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := engine.Undo(ctx, tx)
		return err
	})
	require.NoError(t, err)

	var result *Result
	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		var err error
		result, err = engine.Redo(ctx, tx)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionRedo, result.Mirror.Type)
	require.Contains(t, result.Mirror.Description, "Redid action")

	item, err := store.GetWorkItem(ctx, id, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "final", item.Name)

	// The original is open again, so a second undo targets it once more.
	original, err := store.FindActionByID(ctx, result.Original.ID)
	require.NoError(t, err)
	require.False(t, original.IsUndone)

	// The undo mirror is closed and cannot be redone again.
	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := engine.Redo(ctx, tx)
		return err
	})
	require.ErrorIs(t, err, storage.ErrNothingToRedo)
}

func TestUndoRedoCycleIsStable(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)
	ctx := context.Background()

	id := renameTracked(t, store, engine, "v1", "v2")

	for range 3 {
		err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
			_, err := engine.Undo(ctx, tx)
			return err
		})
		require.NoError(t, err)
		err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
			_, err := engine.Redo(ctx, tx)
			return err
		})
		require.NoError(t, err)
	}

	item, err := store.GetWorkItem(ctx, id, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "v2", item.Name)
}

func TestForwardMutationInvalidatesRedo(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)
	ctx := context.Background()

	renameTracked(t, store, engine, "draft", "final")

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := engine.Undo(ctx, tx)
		return err
	})
	require.NoError(t, err)

	// A new forward mutation closes the pending redo.
	renameTracked(t, store, engine, "x1", "x2")

	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := engine.Redo(ctx, tx)
		return err
	})
	require.ErrorIs(t, err, storage.ErrNothingToRedo)
}

func TestMultiStepUndoRestoresEveryRow(t *testing.T) {
	store := newTestStore(t)
	engine := New(nil)
	ctx := context.Background()

	parent := &types.WorkItem{ID: types.NewID(), Name: "parent", IsActive: true}
	parent.SetDefaults()
	child := &types.WorkItem{ID: types.NewID(), ParentID: &parent.ID, Name: "child", IsActive: true}
	child.SetDefaults()

	// Record a cascade-style action: both rows deactivated, two steps.
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if err := tx.CreateWorkItem(ctx, parent, nil); err != nil {
			return err
		}
		if err := tx.CreateWorkItem(ctx, child, nil); err != nil {
			return err
		}
		if _, err := tx.SoftDeleteWorkItems(ctx, []string{parent.ID, child.ID}); err != nil {
			return err
		}
		_, err := engine.Record(ctx, tx, &types.Action{
			Type:        types.ActionDeleteCascade,
			WorkItemID:  &parent.ID,
			Description: "Deleted parent and descendants",
		}, []Step{
			{
				TableName: types.TableWorkItems,
				RecordID:  parent.ID,
				OldData:   types.RowData{"is_active": true},
				NewData:   types.DeactivationRowData(),
			},
			{
				TableName: types.TableWorkItems,
				RecordID:  child.ID,
				OldData:   types.RowData{"is_active": true},
				NewData:   types.DeactivationRowData(),
			},
		})
		return err
	})
	require.NoError(t, err)

	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := engine.Undo(ctx, tx)
		return err
	})
	require.NoError(t, err)

	for _, id := range []string{parent.ID, child.ID} {
		item, err := store.GetWorkItem(ctx, id, types.ActiveOnly)
		require.NoError(t, err)
		require.True(t, item.IsActive)
	}
}
