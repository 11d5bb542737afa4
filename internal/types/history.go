package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType tags one entry in the action history. The set is closed;
// replay logic depends on it.
type ActionType string

// Action type constants
const (
	ActionAddWorkItem       ActionType = "ADD_WORK_ITEM"
	ActionAddWorkItemTree   ActionType = "ADD_WORK_ITEM_TREE"
	ActionUpdateWorkItem    ActionType = "UPDATE_WORK_ITEM" // deprecated, still accepted on read
	ActionSetName           ActionType = "SET_NAME"
	ActionSetDescription    ActionType = "SET_DESCRIPTION"
	ActionSetStatus         ActionType = "SET_STATUS"
	ActionSetPriority       ActionType = "SET_PRIORITY"
	ActionSetDueDate        ActionType = "SET_DUE_DATE"
	ActionSetOrderKey       ActionType = "SET_ORDER_KEY"
	ActionAddDependencies   ActionType = "ADD_DEPENDENCIES"
	ActionDeleteDependencies ActionType = "DELETE_DEPENDENCIES"
	ActionDeleteCascade     ActionType = "DELETE_WORK_ITEM_CASCADE"
	ActionPromoteToProject  ActionType = "PROMOTE_TO_PROJECT"
	ActionUndo              ActionType = "UNDO_ACTION"
	ActionRedo              ActionType = "REDO_ACTION"
)

// IsValid checks if the action type belongs to the closed set
func (t ActionType) IsValid() bool {
	switch t {
	case ActionAddWorkItem, ActionAddWorkItemTree, ActionUpdateWorkItem,
		ActionSetName, ActionSetDescription, ActionSetStatus,
		ActionSetPriority, ActionSetDueDate, ActionSetOrderKey,
		ActionAddDependencies, ActionDeleteDependencies,
		ActionDeleteCascade, ActionPromoteToProject,
		ActionUndo, ActionRedo:
		return true
	}
	return false
}

// IsOriginal reports whether the type belongs to a forward mutation rather
// than an undo or redo mirror action.
func (t ActionType) IsOriginal() bool {
	return t != ActionUndo && t != ActionRedo
}

// Action represents one audit trail entry. An original action carries the
// undo steps that reverse it; UNDO/REDO actions mirror originals.
type Action struct {
	ID               string     `json:"action_id"`
	Timestamp        time.Time  `json:"timestamp"`
	Type             ActionType `json:"action_type"`
	WorkItemID       *string    `json:"work_item_id,omitempty"`
	Description      string     `json:"description"`
	IsUndone         bool       `json:"is_undone"`
	UndoneAtActionID *string    `json:"undone_at_action_id,omitempty"`
}

// IsOriginal reports whether the action is a forward mutation.
func (a *Action) IsOriginal() bool {
	return a.Type.IsOriginal()
}

// StepType categorizes undo step replay semantics. Soft-delete means every
// core mutation reduces to a row update, so only StepUpdate is emitted.
type StepType string

// Step type constants
const (
	StepUpdate StepType = "UPDATE"
)

// Table names referenced by undo steps. Normative: recorded steps name them.
const (
	TableWorkItems    = "work_items"
	TableDependencies = "work_item_dependencies"
)

// RowData carries the full or partial row state on one side of an undo step.
// It is not a diff: it holds every field the replayer needs to restore the
// row, keyed by column name.
type RowData map[string]any

// Clone returns a shallow copy of the row data.
func (r RowData) Clone() RowData {
	out := make(RowData, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value for key as a string, or "" if absent or not a string.
func (r RowData) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Has reports whether the key is present.
func (r RowData) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Marshal encodes the row data as JSON for storage.
func (r RowData) Marshal() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal row data: %w", err)
	}
	return string(b), nil
}

// UnmarshalRowData decodes stored JSON row data.
func UnmarshalRowData(raw string) (RowData, error) {
	if raw == "" {
		return RowData{}, nil
	}
	var r RowData
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row data: %w", err)
	}
	return r, nil
}

// UndoStep is a single reversible mutation belonging to one action.
// OldData is the target state on undo; NewData the target state on redo.
type UndoStep struct {
	ID        string   `json:"undo_step_id"`
	ActionID  string   `json:"action_id"`
	StepOrder int      `json:"step_order"` // 1-based, unique within the action
	StepType  StepType `json:"step_type"`
	TableName string   `json:"table_name"`
	RecordID  string   `json:"record_id"`
	OldData   RowData  `json:"old_data"`
	NewData   RowData  `json:"new_data"`
}

// ActionFilter restricts recent-action listings.
type ActionFilter struct {
	WorkItemID *string
	Limit      int
}
