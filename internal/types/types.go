// Package types defines core data structures for the loom work tracker.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkItem represents a node in the work hierarchy. A nil ParentID marks a
// root (project). Deleting never removes the row; it clears IsActive.
type WorkItem struct {
	ID          string     `json:"work_item_id"`
	ParentID    *string    `json:"parent_work_item_id,omitempty"`
	Name        string     `json:"name"`
	Shortname   *string    `json:"shortname,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	OrderKey    *string    `json:"order_key,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	IsActive    bool       `json:"is_active"`
}

// Validate checks if the work item has valid field values
func (w *WorkItem) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !w.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", w.Status)
	}
	if !w.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", w.Priority)
	}
	return nil
}

// SetDefaults applies default values for fields omitted by the caller.
func (w *WorkItem) SetDefaults() {
	if w.Status == "" {
		w.Status = StatusTodo
	}
	if w.Priority == "" {
		w.Priority = PriorityMedium
	}
}

// IsRoot reports whether the item is a project root (no parent).
func (w *WorkItem) IsRoot() bool {
	return w.ParentID == nil
}

// Status represents the current state of a work item
type Status string

// Work item status constants
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority categorizes the urgency of a work item
type Priority string

// Priority constants
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Dependency represents a typed link between two work items. At most one row
// exists per ordered pair; removal deactivates the row so that history can
// restore it.
type Dependency struct {
	WorkItemID  string         `json:"work_item_id"`
	DependsOnID string         `json:"depends_on_work_item_id"`
	Type        DependencyType `json:"dependency_type"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Key returns the composite primary key of the link.
func (d *Dependency) Key() DependencyKey {
	return DependencyKey{WorkItemID: d.WorkItemID, DependsOnID: d.DependsOnID}
}

// DependencyType categorizes the relationship
type DependencyType string

// Dependency type constants
const (
	DepFinishToStart DependencyType = "finish-to-start"
	DepLinked        DependencyType = "linked"
)

// IsValid checks if the dependency type value is valid
func (d DependencyType) IsValid() bool {
	switch d {
	case DepFinishToStart, DepLinked:
		return true
	}
	return false
}

// DependencyKey is the composite primary key of a dependency link.
type DependencyKey struct {
	WorkItemID  string `json:"work_item_id"`
	DependsOnID string `json:"depends_on_work_item_id"`
}

// RecordID serializes the key for undo step storage: "<id>:<depends_on_id>".
func (k DependencyKey) RecordID() string {
	return k.WorkItemID + ":" + k.DependsOnID
}

// ParseDependencyRecordID splits a serialized dependency key. Both halves
// must parse as identifiers.
func ParseDependencyRecordID(recordID string) (DependencyKey, error) {
	parts := strings.Split(recordID, ":")
	if len(parts) != 2 {
		return DependencyKey{}, fmt.Errorf("malformed dependency record ID: %q", recordID)
	}
	if err := ValidateID(parts[0]); err != nil {
		return DependencyKey{}, fmt.Errorf("malformed dependency record ID %q: %w", recordID, err)
	}
	if err := ValidateID(parts[1]); err != nil {
		return DependencyKey{}, fmt.Errorf("malformed dependency record ID %q: %w", recordID, err)
	}
	return DependencyKey{WorkItemID: parts[0], DependsOnID: parts[1]}, nil
}

// DependencyInput is the caller-facing shape for adding links.
type DependencyInput struct {
	DependsOnID string         `json:"depends_on_work_item_id"`
	Type        DependencyType `json:"dependency_type,omitempty"`
}

// NewID generates a fresh opaque work item identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidateID checks that an identifier is a well-formed opaque ID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid ID %q: %w", id, err)
	}
	return nil
}

// ActiveFilter selects rows by their is_active flag. The zero value filters
// to active rows, which is the default for all reads.
type ActiveFilter int

// Active filter constants
const (
	ActiveOnly ActiveFilter = iota
	InactiveOnly
	ActiveAny
)

// Match reports whether a row with the given flag passes the filter.
func (f ActiveFilter) Match(isActive bool) bool {
	switch f {
	case ActiveOnly:
		return isActive
	case InactiveOnly:
		return !isActive
	}
	return true
}

// ListFilter is used to filter work item list queries
type ListFilter struct {
	ParentID  *string // filter by parent; nil = no parent filter
	RootsOnly bool    // parent IS NULL
	Status    *Status
	Active    ActiveFilter
	Limit     int
}

// TreeOptions controls full-tree hydration.
type TreeOptions struct {
	IncludeInactive bool
	MaxDepth        int // 0 = unlimited
}

// DependencyEdge pairs a link row with the work item at its far endpoint.
type DependencyEdge struct {
	Link Dependency `json:"link"`
	Item *WorkItem  `json:"item,omitempty"`
}

// WorkItemView is the hydrated composite returned by the reading service.
type WorkItemView struct {
	WorkItem
	Dependencies []*DependencyEdge `json:"dependencies,omitempty"`
	Dependents   []*DependencyEdge `json:"dependents,omitempty"`
	Children     []*WorkItem       `json:"children,omitempty"`
}

// TreeNode is a work item with its recursively hydrated children.
type TreeNode struct {
	WorkItem
	Children []*TreeNode `json:"children,omitempty"`
}

// AddTreeNode describes one node of a forest passed to the add-tree service.
type AddTreeNode struct {
	Name        string         `json:"name"`
	Shortname   *string        `json:"shortname,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      Status         `json:"status,omitempty"`
	Priority    Priority       `json:"priority,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Children    []*AddTreeNode `json:"children,omitempty"`
}
