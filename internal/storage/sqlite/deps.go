package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/types"
)

const dependencyColumns = `work_item_id, depends_on_work_item_id, dependency_type,
	is_active, created_at, updated_at`

func scanDependency(row interface{ Scan(...any) error }) (*types.Dependency, error) {
	var (
		dep     types.Dependency
		depType string
	)
	err := row.Scan(&dep.WorkItemID, &dep.DependsOnID, &depType,
		&dep.IsActive, &dep.CreatedAt, &dep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	dep.Type = types.DependencyType(depType)
	dep.CreatedAt = dep.CreatedAt.UTC()
	dep.UpdatedAt = dep.UpdatedAt.UTC()
	return &dep, nil
}

// queryEdges runs a join selecting a dependency row followed by the work item
// at the far endpoint.
func (q *queries) queryEdges(ctx context.Context, query string, args ...any) ([]*types.DependencyEdge, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*types.DependencyEdge
	for rows.Next() {
		var (
			dep                                 types.Dependency
			depType                             string
			item                                types.WorkItem
			parentID, shortname, desc, orderKey sql.NullString
			status, priority                    string
			dueDate                             sql.NullTime
		)
		err := rows.Scan(
			&dep.WorkItemID, &dep.DependsOnID, &depType,
			&dep.IsActive, &dep.CreatedAt, &dep.UpdatedAt,
			&item.ID, &parentID, &item.Name, &shortname, &desc,
			&status, &priority, &orderKey, &dueDate,
			&item.CreatedAt, &item.UpdatedAt, &item.IsActive,
		)
		if err != nil {
			return nil, err
		}
		dep.Type = types.DependencyType(depType)
		dep.CreatedAt = dep.CreatedAt.UTC()
		dep.UpdatedAt = dep.UpdatedAt.UTC()
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
		edges = append(edges, &types.DependencyEdge{Link: dep, Item: &item})
	}
	return edges, rows.Err()
}

// FindDependencies returns the links where id is the depending side, paired
// with the items it depends on. Link rows and endpoint items filter
// independently.
func (q *queries) FindDependencies(ctx context.Context, id string, linkF, itemF types.ActiveFilter) ([]*types.DependencyEdge, error) {
	conds := []string{"d.work_item_id = ?"}
	conds = andActive(conds, "d.is_active", linkF)
	conds = andActive(conds, "w.is_active", itemF)
	query := `
		SELECT d.work_item_id, d.depends_on_work_item_id, d.dependency_type,
			d.is_active, d.created_at, d.updated_at,
			` + prefixColumns("w", workItemColumns) + `
		FROM work_item_dependencies d
		JOIN work_items w ON w.work_item_id = d.depends_on_work_item_id` +
		whereClause(conds) + `
		ORDER BY d.created_at`
	edges, err := q.queryEdges(ctx, query, id)
	if err != nil {
		return nil, wrapDBError("find dependencies", err)
	}
	return edges, nil
}

// FindDependents returns the links where id is the depended-on side, paired
// with the items that depend on it.
func (q *queries) FindDependents(ctx context.Context, id string, linkF, itemF types.ActiveFilter) ([]*types.DependencyEdge, error) {
	conds := []string{"d.depends_on_work_item_id = ?"}
	conds = andActive(conds, "d.is_active", linkF)
	conds = andActive(conds, "w.is_active", itemF)
	query := `
		SELECT d.work_item_id, d.depends_on_work_item_id, d.dependency_type,
			d.is_active, d.created_at, d.updated_at,
			` + prefixColumns("w", workItemColumns) + `
		FROM work_item_dependencies d
		JOIN work_items w ON w.work_item_id = d.work_item_id` +
		whereClause(conds) + `
		ORDER BY d.created_at`
	edges, err := q.queryEdges(ctx, query, id)
	if err != nil {
		return nil, wrapDBError("find dependents", err)
	}
	return edges, nil
}

// FindDependencyRecords returns link rows where either endpoint is in ids.
func (q *queries) FindDependencyRecords(ctx context.Context, ids []string, linkF types.ActiveFilter) ([]*types.Dependency, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph := placeholders(len(ids))
	conds := []string{fmt.Sprintf("(work_item_id IN (%s) OR depends_on_work_item_id IN (%s))", ph, ph)}
	conds = andActive(conds, "is_active", linkF)
	query := "SELECT " + dependencyColumns + " FROM work_item_dependencies" +
		whereClause(conds) + " ORDER BY created_at"

	args := make([]any, 0, 2*len(ids))
	for range 2 {
		for _, id := range ids {
			args = append(args, id)
		}
	}
	deps, err := q.queryDependencies(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("find dependency records", err)
	}
	return deps, nil
}

// FindDependenciesByKeys returns the link rows for the given exact keys.
// Missing keys are silently absent from the result.
func (q *queries) FindDependenciesByKeys(ctx context.Context, keys []types.DependencyKey, linkF types.ActiveFilter) ([]*types.Dependency, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pairs := make([]string, len(keys))
	args := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		pairs[i] = "(work_item_id = ? AND depends_on_work_item_id = ?)"
		args = append(args, k.WorkItemID, k.DependsOnID)
	}
	conds := []string{"(" + strings.Join(pairs, " OR ") + ")"}
	conds = andActive(conds, "is_active", linkF)
	query := "SELECT " + dependencyColumns + " FROM work_item_dependencies" +
		whereClause(conds) + " ORDER BY created_at"
	deps, err := q.queryDependencies(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("find dependencies by keys", err)
	}
	return deps, nil
}

func (q *queries) queryDependencies(ctx context.Context, query string, args ...any) ([]*types.Dependency, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []*types.Dependency
	for rows.Next() {
		dep, err := scanDependency(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// UpsertDependencies writes links from sourceID, reviving and retyping an
// existing row for the same pair rather than inserting a duplicate.
func (tx *sqliteTx) UpsertDependencies(ctx context.Context, sourceID string, deps []*types.Dependency) error {
	now := time.Now().UTC()
	for _, dep := range deps {
		if dep.WorkItemID == "" {
			dep.WorkItemID = sourceID
		}
		if dep.WorkItemID == dep.DependsOnID {
			return storage.Validationf("work item %s cannot depend on itself", dep.WorkItemID)
		}
		if !dep.Type.IsValid() {
			return storage.Validationf("invalid dependency type: %s", dep.Type)
		}
		if dep.CreatedAt.IsZero() {
			dep.CreatedAt = now
		}
		dep.UpdatedAt = now

		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO work_item_dependencies (work_item_id, depends_on_work_item_id,
				dependency_type, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(work_item_id, depends_on_work_item_id) DO UPDATE SET
				dependency_type = excluded.dependency_type,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			dep.WorkItemID, dep.DependsOnID, string(dep.Type),
			dep.IsActive, dep.CreatedAt, dep.UpdatedAt,
		)
		if err != nil {
			return wrapDBError("upsert dependency", err)
		}
	}
	return nil
}

// SoftDeleteDependenciesByKeys deactivates the given links and returns how
// many active rows changed state.
func (tx *sqliteTx) SoftDeleteDependenciesByKeys(ctx context.Context, keys []types.DependencyKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var total int64
	now := time.Now().UTC()
	for _, k := range keys {
		result, err := tx.q.ExecContext(ctx, `
			UPDATE work_item_dependencies
			SET is_active = 0, updated_at = ?
			WHERE work_item_id = ? AND depends_on_work_item_id = ? AND is_active = 1`,
			now, k.WorkItemID, k.DependsOnID,
		)
		if err != nil {
			return total, wrapDBError("soft delete dependency", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, wrapDBError("soft delete dependency", err)
		}
		total += n
	}
	return total, nil
}
