package types

import (
	"fmt"
	"time"
)

// Instants inside row data are stored as RFC 3339 strings so the replayer
// can restore them byte-for-byte regardless of driver time formatting.

// FormatInstant renders a timestamp for row data storage.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseInstant reads a row data timestamp back.
func ParseInstant(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable instant %q", s)
}

// WorkItemRowData captures the full row state of a work item for undo steps.
func WorkItemRowData(w *WorkItem) RowData {
	r := RowData{
		"work_item_id": w.ID,
		"name":         w.Name,
		"status":       string(w.Status),
		"priority":     string(w.Priority),
		"created_at":   FormatInstant(w.CreatedAt),
		"updated_at":   FormatInstant(w.UpdatedAt),
		"is_active":    w.IsActive,
	}
	r["parent_work_item_id"] = ptrOrNil(w.ParentID)
	r["shortname"] = ptrOrNil(w.Shortname)
	r["description"] = ptrOrNil(w.Description)
	r["order_key"] = ptrOrNil(w.OrderKey)
	if w.DueDate != nil {
		r["due_date"] = FormatInstant(*w.DueDate)
	} else {
		r["due_date"] = nil
	}
	return r
}

// DependencyRowData captures the full row state of a dependency link.
func DependencyRowData(d *Dependency) RowData {
	return RowData{
		"work_item_id":            d.WorkItemID,
		"depends_on_work_item_id": d.DependsOnID,
		"dependency_type":         string(d.Type),
		"is_active":               d.IsActive,
		"created_at":              FormatInstant(d.CreatedAt),
		"updated_at":              FormatInstant(d.UpdatedAt),
	}
}

// DeactivationRowData is the post-delete marker used as the redo target of a
// soft delete and the undo target of an add.
func DeactivationRowData() RowData {
	return RowData{"is_active": false}
}

func ptrOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
