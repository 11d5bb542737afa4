package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newItem(name string, parentID *string, orderKey string) *types.WorkItem {
	item := &types.WorkItem{
		ID:       types.NewID(),
		ParentID: parentID,
		Name:     name,
		IsActive: true,
	}
	item.SetDefaults()
	if orderKey != "" {
		item.OrderKey = &orderKey
	}
	return item
}

func createItem(t *testing.T, store *SQLiteStorage, item *types.WorkItem) {
	t.Helper()
	err := store.RunInTransaction(context.Background(), func(tx storage.Tx) error {
		return tx.CreateWorkItem(context.Background(), item, nil)
	})
	require.NoError(t, err)
}

func TestCreateAndGetWorkItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	short := "api"
	item := newItem("Build API", nil, "V")
	item.Shortname = &short
	item.DueDate = &due
	createItem(t, store, item)

	got, err := store.GetWorkItem(ctx, item.ID, types.ActiveOnly)
	require.NoError(t, err)
	require.Equal(t, item.ID, got.ID)
	require.Equal(t, "Build API", got.Name)
	require.Equal(t, types.StatusTodo, got.Status)
	require.Equal(t, types.PriorityMedium, got.Priority)
	require.NotNil(t, got.Shortname)
	require.Equal(t, "api", *got.Shortname)
	require.NotNil(t, got.DueDate)
	require.True(t, due.Equal(*got.DueDate))
	require.Nil(t, got.ParentID)
	require.True(t, got.IsActive)
}

func TestGetWorkItemNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetWorkItem(context.Background(), types.NewID(), types.ActiveAny)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetWorkItemActiveFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newItem("soon gone", nil, "V")
	createItem(t, store, item)

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		n, err := tx.SoftDeleteWorkItems(ctx, []string{item.ID})
		require.Equal(t, int64(1), n)
		return err
	})
	require.NoError(t, err)

	_, err = store.GetWorkItem(ctx, item.ID, types.ActiveOnly)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.GetWorkItem(ctx, item.ID, types.InactiveOnly)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	got, err = store.GetWorkItem(ctx, item.ID, types.ActiveAny)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestSoftDeleteCountsOnlyTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newItem("a", nil, "V")
	b := newItem("b", nil, "W")
	createItem(t, store, a)
	createItem(t, store, b)

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		n, err := tx.SoftDeleteWorkItems(ctx, []string{a.ID})
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		// a is already inactive; only b transitions now
		n, err = tx.SoftDeleteWorkItems(ctx, []string{a.ID, b.ID})
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)
}

func TestRollbackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newItem("ghost", nil, "V")
	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if err := tx.CreateWorkItem(ctx, item, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetWorkItem(ctx, item.ID, types.ActiveAny)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRollbackOnPanic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newItem("ghost", nil, "V")
	require.PanicsWithValue(t, "kaboom", func() {
		_ = store.RunInTransaction(ctx, func(tx storage.Tx) error {
			if err := tx.CreateWorkItem(ctx, item, nil); err != nil {
				return err
			}
			panic("kaboom")
		})
	})

	_, err := store.GetWorkItem(ctx, item.ID, types.ActiveAny)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateWorkItemFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newItem("old name", nil, "V")
	createItem(t, store, item)

	var updated *types.WorkItem
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		var err error
		updated, err = tx.UpdateWorkItemFields(ctx, item.ID, map[string]any{
			"name":   "new name",
			"status": string(types.StatusInProgress),
		})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "new name", updated.Name)
	require.Equal(t, types.StatusInProgress, updated.Status)
	require.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := tx.UpdateWorkItemFields(ctx, item.ID, map[string]any{"work_item_id": "nope"})
		return err
	})
	require.Error(t, err)
}

func TestHierarchyQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	root := newItem("root", nil, "V")
	createItem(t, store, root)
	child1 := newItem("child one", &root.ID, "V")
	child2 := newItem("child two", &root.ID, "h")
	grandchild := newItem("grandchild", &child1.ID, "V")
	createItem(t, store, child1)
	createItem(t, store, child2)
	createItem(t, store, grandchild)

	roots, err := store.FindRoots(ctx, types.ActiveOnly)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, root.ID, roots[0].ID)

	children, err := store.FindChildren(ctx, root.ID, types.ActiveOnly)
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, child1.ID, children[0].ID) // "V" < "h"
	require.Equal(t, child2.ID, children[1].ID)

	descendants, err := store.FindDescendants(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, descendants, 3)

	siblings, err := store.FindSiblings(ctx, child2.ID, types.ActiveOnly)
	require.NoError(t, err)
	require.Len(t, siblings, 2)
}

func TestFindDescendantsIncludesInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	root := newItem("root", nil, "V")
	createItem(t, store, root)
	child := newItem("child", &root.ID, "V")
	createItem(t, store, child)

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		_, err := tx.SoftDeleteWorkItems(ctx, []string{child.ID})
		return err
	})
	require.NoError(t, err)

	descendants, err := store.FindDescendants(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, descendants, 1)
	require.False(t, descendants[0].IsActive)
}

func TestDependencyUpsertAndReactivation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newItem("a", nil, "V")
	b := newItem("b", nil, "W")
	createItem(t, store, a)
	createItem(t, store, b)

	link := &types.Dependency{
		WorkItemID:  a.ID,
		DependsOnID: b.ID,
		Type:        types.DepFinishToStart,
		IsActive:    true,
	}
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return tx.UpsertDependencies(ctx, a.ID, []*types.Dependency{link})
	})
	require.NoError(t, err)

	deps, err := store.FindDependencies(ctx, a.ID, types.ActiveOnly, types.ActiveOnly)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	require.Equal(t, b.ID, deps[0].Link.DependsOnID)
	require.Equal(t, b.ID, deps[0].Item.ID)

	dependents, err := store.FindDependents(ctx, b.ID, types.ActiveOnly, types.ActiveOnly)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	require.Equal(t, a.ID, dependents[0].Link.WorkItemID)

	// Soft delete, then upsert the same pair with a new type: the row is
	// revived in place, no duplicate appears.
	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		n, err := tx.SoftDeleteDependenciesByKeys(ctx, []types.DependencyKey{link.Key()})
		require.Equal(t, int64(1), n)
		return err
	})
	require.NoError(t, err)

	revived := &types.Dependency{
		WorkItemID:  a.ID,
		DependsOnID: b.ID,
		Type:        types.DepLinked,
		IsActive:    true,
	}
	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return tx.UpsertDependencies(ctx, a.ID, []*types.Dependency{revived})
	})
	require.NoError(t, err)

	rows, err := store.FindDependenciesByKeys(ctx, []types.DependencyKey{link.Key()}, types.ActiveAny)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsActive)
	require.Equal(t, types.DepLinked, rows[0].Type)
}

func TestUpsertDependencyRejectsSelfLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newItem("a", nil, "V")
	createItem(t, store, a)

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return tx.UpsertDependencies(ctx, a.ID, []*types.Dependency{{
			WorkItemID:  a.ID,
			DependsOnID: a.ID,
			Type:        types.DepLinked,
			IsActive:    true,
		}})
	})
	require.ErrorIs(t, err, storage.ErrValidation)
}

func TestFindDependencyRecordsEitherEndpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newItem("a", nil, "V")
	b := newItem("b", nil, "W")
	c := newItem("c", nil, "X")
	for _, item := range []*types.WorkItem{a, b, c} {
		createItem(t, store, item)
	}
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return tx.UpsertDependencies(ctx, a.ID, []*types.Dependency{
			{WorkItemID: a.ID, DependsOnID: b.ID, Type: types.DepFinishToStart, IsActive: true},
			{WorkItemID: c.ID, DependsOnID: a.ID, Type: types.DepLinked, IsActive: true},
		})
	})
	require.NoError(t, err)

	records, err := store.FindDependencyRecords(ctx, []string{a.ID}, types.ActiveAny)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestSiblingEdgeAndNeighborOrderKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	root := newItem("root", nil, "V")
	createItem(t, store, root)
	first := newItem("first", &root.ID, "B")
	middle := newItem("middle", &root.ID, "M")
	last := newItem("last", &root.ID, "X")
	for _, item := range []*types.WorkItem{first, middle, last} {
		createItem(t, store, item)
	}

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		edge, err := tx.SiblingEdgeOrderKey(ctx, &root.ID, storage.EdgeFirst)
		require.NoError(t, err)
		require.NotNil(t, edge)
		require.Equal(t, "B", *edge)

		edge, err = tx.SiblingEdgeOrderKey(ctx, &root.ID, storage.EdgeLast)
		require.NoError(t, err)
		require.Equal(t, "X", *edge)

		// No siblings under a leaf
		edge, err = tx.SiblingEdgeOrderKey(ctx, &first.ID, storage.EdgeLast)
		require.NoError(t, err)
		require.Nil(t, edge)

		before, after, err := tx.NeighborOrderKeys(ctx, &root.ID, middle.ID, storage.SideAfter)
		require.NoError(t, err)
		require.Equal(t, "M", *before)
		require.Equal(t, "X", *after)

		before, after, err = tx.NeighborOrderKeys(ctx, &root.ID, first.ID, storage.SideBefore)
		require.NoError(t, err)
		require.Nil(t, before)
		require.Equal(t, "B", *after)
		return nil
	})
	require.NoError(t, err)
}

func TestActionHistoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newItem("tracked", nil, "V")
	createItem(t, store, item)

	var actionID string
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		action := &types.Action{
			Type:        types.ActionSetName,
			WorkItemID:  &item.ID,
			Description: `Set name to "tracked"`,
		}
		if err := tx.CreateAction(ctx, action); err != nil {
			return err
		}
		actionID = action.ID
		return tx.CreateUndoStep(ctx, &types.UndoStep{
			ActionID:  action.ID,
			StepOrder: 1,
			TableName: types.TableWorkItems,
			RecordID:  item.ID,
			OldData:   types.RowData{"name": "untracked"},
			NewData:   types.RowData{"name": "tracked"},
		})
	})
	require.NoError(t, err)

	action, err := store.FindActionByID(ctx, actionID)
	require.NoError(t, err)
	require.Equal(t, types.ActionSetName, action.Type)
	require.False(t, action.IsUndone)

	steps, err := store.FindUndoSteps(ctx, actionID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, 1, steps[0].StepOrder)
	require.Equal(t, types.StepUpdate, steps[0].StepType)
	require.Equal(t, "untracked", steps[0].OldData.String("name"))
	require.Equal(t, "tracked", steps[0].NewData.String("name"))

	actions, err := store.ListRecentActions(ctx, types.ActionFilter{WorkItemID: &item.ID})
	require.NoError(t, err)
	require.Len(t, actions, 1)
}

func TestFindLastOriginalSkipsUndoneAndMirrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mk := func(typ types.ActionType, ts time.Time) *types.Action {
		return &types.Action{Type: typ, Timestamp: ts, Description: string(typ)}
	}
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var older, newer, mirror *types.Action
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		older = mk(types.ActionAddWorkItem, base)
		newer = mk(types.ActionSetStatus, base.Add(time.Minute))
		mirror = mk(types.ActionUndo, base.Add(2*time.Minute))
		for _, a := range []*types.Action{older, newer, mirror} {
			if err := tx.CreateAction(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		last, err := tx.FindLastOriginalAction(ctx)
		require.NoError(t, err)
		require.Equal(t, newer.ID, last.ID)

		if err := tx.MarkActionUndone(ctx, newer.ID, mirror.ID); err != nil {
			return err
		}
		last, err = tx.FindLastOriginalAction(ctx)
		require.NoError(t, err)
		require.Equal(t, older.ID, last.ID)

		linked, err := tx.FindActionLinkedByUndo(ctx, mirror.ID)
		require.NoError(t, err)
		require.Equal(t, newer.ID, linked.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestInvalidateRedoStack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var undo1, undo2 *types.Action
	newAction := &types.Action{Type: types.ActionAddWorkItem, Timestamp: base.Add(3 * time.Minute), Description: "new"}
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		undo1 = &types.Action{Type: types.ActionUndo, Timestamp: base, Description: "u1"}
		undo2 = &types.Action{Type: types.ActionUndo, Timestamp: base.Add(time.Minute), Description: "u2"}
		for _, a := range []*types.Action{undo1, undo2, newAction} {
			if err := tx.CreateAction(ctx, a); err != nil {
				return err
			}
		}
		n, err := tx.InvalidateRedoStack(ctx, newAction.ID)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		open, err := tx.FindRecentUnredoneUndoActions(ctx, 0)
		require.NoError(t, err)
		require.Empty(t, open)
		return nil
	})
	require.NoError(t, err)

	got, err := store.FindActionByID(ctx, undo1.ID)
	require.NoError(t, err)
	require.True(t, got.IsUndone)
	require.Equal(t, newAction.ID, *got.UndoneAtActionID)
}

func TestApplyRowState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newItem("original", nil, "V")
	createItem(t, store, item)

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return tx.ApplyRowState(ctx, types.TableWorkItems, item.ID, types.RowData{
			"name":       "restored",
			"status":     string(types.StatusDone),
			"is_active":  false,
			"updated_at": types.FormatInstant(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
		})
	})
	require.NoError(t, err)

	got, err := store.GetWorkItem(ctx, item.ID, types.ActiveAny)
	require.NoError(t, err)
	require.Equal(t, "restored", got.Name)
	require.Equal(t, types.StatusDone, got.Status)
	require.False(t, got.IsActive)
	require.Equal(t, 2026, got.UpdatedAt.Year())
	require.Equal(t, time.January, got.UpdatedAt.Month())
}

func TestApplyRowStateMissingRowIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return tx.ApplyRowState(ctx, types.TableWorkItems, types.NewID(), types.RowData{"name": "ghost"})
	})
	require.NoError(t, err)
}

func TestSearchWorkItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	desc := "database migration work"
	a := newItem("Fix login", nil, "V")
	a.Description = &desc
	b := newItem("Migrate schema", nil, "W")
	createItem(t, store, a)
	createItem(t, store, b)

	got, err := store.SearchWorkItems(ctx, "migrat", types.ActiveOnly)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = store.SearchWorkItems(ctx, "100% done_", types.ActiveOnly)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListWorkItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	root := newItem("root", nil, "V")
	createItem(t, store, root)
	child := newItem("child", &root.ID, "V")
	child.Status = types.StatusInProgress
	createItem(t, store, child)

	roots, err := store.ListWorkItems(ctx, types.ListFilter{RootsOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 1)

	status := types.StatusInProgress
	inProgress, err := store.ListWorkItems(ctx, types.ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	require.Equal(t, child.ID, inProgress[0].ID)

	limited, err := store.ListWorkItems(ctx, types.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestFileBackedStore(t *testing.T) {
	path := t.TempDir() + "/loom.db"
	ctx := context.Background()

	store, err := New(ctx, path)
	require.NoError(t, err)

	item := newItem("persisted", nil, "V")
	createItem(t, store, item)
	require.NoError(t, store.Close())
	require.True(t, store.IsClosed())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetWorkItem(ctx, item.ID, types.ActiveOnly)
	require.NoError(t, err)
	require.Equal(t, "persisted", got.Name)
}
