package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/loomworks/loom/internal/types"
)

// workItemColumns is the canonical select list for work_items rows.
const workItemColumns = `work_item_id, parent_work_item_id, name, shortname, description,
	status, priority, order_key, due_date, created_at, updated_at, is_active`

// scanWorkItem scans a row selected with workItemColumns.
func scanWorkItem(row interface{ Scan(...any) error }) (*types.WorkItem, error) {
	var (
		item                                 types.WorkItem
		parentID, shortname, desc, orderKey  sql.NullString
		status, priority                     string
		dueDate                              sql.NullTime
	)
	err := row.Scan(
		&item.ID, &parentID, &item.Name, &shortname, &desc,
		&status, &priority, &orderKey, &dueDate,
		&item.CreatedAt, &item.UpdatedAt, &item.IsActive,
	)
	if err != nil {
		return nil, err
	}
	item.ParentID = strPtr(parentID)
	item.Shortname = strPtr(shortname)
	item.Description = strPtr(desc)
	item.Status = types.Status(status)
	item.Priority = types.Priority(priority)
	item.OrderKey = strPtr(orderKey)
	if dueDate.Valid {
		t := dueDate.Time
		item.DueDate = &t
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func (q *queries) queryWorkItems(ctx context.Context, query string, args ...any) ([]*types.WorkItem, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*types.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetWorkItem retrieves a single work item by ID.
func (q *queries) GetWorkItem(ctx context.Context, id string, f types.ActiveFilter) (*types.WorkItem, error) {
	conds := andActive([]string{"work_item_id = ?"}, "is_active", f)
	query := "SELECT " + workItemColumns + " FROM work_items" + whereClause(conds)
	item, err := scanWorkItem(q.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapDBError("get work item", err)
	}
	return item, nil
}

// GetWorkItems retrieves multiple work items by ID in one round trip. Missing
// IDs are silently absent from the result.
func (q *queries) GetWorkItems(ctx context.Context, ids []string, f types.ActiveFilter) ([]*types.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	conds := andActive([]string{
		fmt.Sprintf("work_item_id IN (%s)", placeholders(len(ids))),
	}, "is_active", f)
	query := "SELECT " + workItemColumns + " FROM work_items" + whereClause(conds)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	items, err := q.queryWorkItems(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("get work items", err)
	}
	return items, nil
}

// FindRoots returns all top-level items ordered by their order key.
func (q *queries) FindRoots(ctx context.Context, f types.ActiveFilter) ([]*types.WorkItem, error) {
	conds := andActive([]string{"parent_work_item_id IS NULL"}, "is_active", f)
	query := "SELECT " + workItemColumns + " FROM work_items" + whereClause(conds) +
		" ORDER BY order_key, created_at"
	items, err := q.queryWorkItems(ctx, query)
	if err != nil {
		return nil, wrapDBError("find roots", err)
	}
	return items, nil
}

// FindChildren returns the direct children of parentID ordered by order key.
func (q *queries) FindChildren(ctx context.Context, parentID string, f types.ActiveFilter) ([]*types.WorkItem, error) {
	conds := andActive([]string{"parent_work_item_id = ?"}, "is_active", f)
	query := "SELECT " + workItemColumns + " FROM work_items" + whereClause(conds) +
		" ORDER BY order_key, created_at"
	items, err := q.queryWorkItems(ctx, query, parentID)
	if err != nil {
		return nil, wrapDBError("find children", err)
	}
	return items, nil
}

// FindDescendants returns the transitive children of id regardless of active
// state, breadth-first via a recursive CTE. The root itself is not included.
func (q *queries) FindDescendants(ctx context.Context, id string) ([]*types.WorkItem, error) {
	query := `
		WITH RECURSIVE descendants(work_item_id) AS (
			SELECT work_item_id FROM work_items WHERE parent_work_item_id = ?
			UNION ALL
			SELECT w.work_item_id
			FROM work_items w
			JOIN descendants d ON w.parent_work_item_id = d.work_item_id
		)
		SELECT ` + workItemColumns + `
		FROM work_items
		WHERE work_item_id IN (SELECT work_item_id FROM descendants)`
	items, err := q.queryWorkItems(ctx, query, id)
	if err != nil {
		return nil, wrapDBError("find descendants", err)
	}
	return items, nil
}

// FindSiblings returns the items sharing id's parent (id included), ordered
// by order key. Root items are siblings of other roots.
func (q *queries) FindSiblings(ctx context.Context, id string, f types.ActiveFilter) ([]*types.WorkItem, error) {
	item, err := q.GetWorkItem(ctx, id, types.ActiveAny)
	if err != nil {
		return nil, err
	}
	if item.ParentID == nil {
		return q.FindRoots(ctx, f)
	}
	return q.FindChildren(ctx, *item.ParentID, f)
}

// SearchWorkItems matches the query string against name, shortname, and
// description, case-insensitively.
func (q *queries) SearchWorkItems(ctx context.Context, search string, f types.ActiveFilter) ([]*types.WorkItem, error) {
	pattern := "%" + escapeLike(search) + "%"
	conds := andActive([]string{
		`(name LIKE ? ESCAPE '\' OR shortname LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`,
	}, "is_active", f)
	query := "SELECT " + workItemColumns + " FROM work_items" + whereClause(conds) +
		" ORDER BY updated_at DESC"
	items, err := q.queryWorkItems(ctx, query, pattern, pattern, pattern)
	if err != nil {
		return nil, wrapDBError("search work items", err)
	}
	return items, nil
}

// ListWorkItems returns work items matching the filter, ordered by order key
// within each parent group.
func (q *queries) ListWorkItems(ctx context.Context, filter types.ListFilter) ([]*types.WorkItem, error) {
	var conds []string
	var args []any
	if filter.RootsOnly {
		conds = append(conds, "parent_work_item_id IS NULL")
	} else if filter.ParentID != nil {
		conds = append(conds, "parent_work_item_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	conds = andActive(conds, "is_active", filter.Active)

	query := "SELECT " + workItemColumns + " FROM work_items" + whereClause(conds) +
		" ORDER BY parent_work_item_id, order_key, created_at"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	items, err := q.queryWorkItems(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list work items", err)
	}
	return items, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
