package sqlite

const schema = `
-- Work items table. Rows are never physically deleted: deletion clears
-- is_active so history replay can restore them.
CREATE TABLE IF NOT EXISTS work_items (
    work_item_id TEXT PRIMARY KEY,
    parent_work_item_id TEXT,
    name TEXT NOT NULL CHECK(length(name) > 0),
    shortname TEXT,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'todo',
    priority TEXT NOT NULL DEFAULT 'medium',
    order_key TEXT,
    due_date DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    is_active INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY (parent_work_item_id) REFERENCES work_items(work_item_id)
);

CREATE INDEX IF NOT EXISTS idx_work_items_parent ON work_items(parent_work_item_id);
CREATE INDEX IF NOT EXISTS idx_work_items_active ON work_items(is_active);
CREATE INDEX IF NOT EXISTS idx_work_items_status ON work_items(status);
CREATE INDEX IF NOT EXISTS idx_work_items_order ON work_items(parent_work_item_id, order_key, created_at);

-- Dependency links. One row per ordered pair; removal deactivates.
CREATE TABLE IF NOT EXISTS work_item_dependencies (
    work_item_id TEXT NOT NULL,
    depends_on_work_item_id TEXT NOT NULL,
    dependency_type TEXT NOT NULL DEFAULT 'finish-to-start',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (work_item_id, depends_on_work_item_id),
    FOREIGN KEY (work_item_id) REFERENCES work_items(work_item_id),
    FOREIGN KEY (depends_on_work_item_id) REFERENCES work_items(work_item_id),
    CHECK (work_item_id <> depends_on_work_item_id)
);

CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON work_item_dependencies(depends_on_work_item_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_active ON work_item_dependencies(is_active);

-- Action history: one row per forward mutation, undo, or redo.
CREATE TABLE IF NOT EXISTS action_history (
    action_id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    action_type TEXT NOT NULL,
    work_item_id TEXT,
    description TEXT NOT NULL DEFAULT '',
    is_undone INTEGER NOT NULL DEFAULT 0,
    undone_at_action_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_action_history_timestamp ON action_history(timestamp);
CREATE INDEX IF NOT EXISTS idx_action_history_type_undone ON action_history(action_type, is_undone);
CREATE INDEX IF NOT EXISTS idx_action_history_work_item ON action_history(work_item_id);
CREATE INDEX IF NOT EXISTS idx_action_history_undone_at ON action_history(undone_at_action_id);

-- Undo steps: the reversible row snapshots belonging to one action.
-- old_data is the target state on undo, new_data the target state on redo.
CREATE TABLE IF NOT EXISTS undo_steps (
    undo_step_id TEXT PRIMARY KEY,
    action_id TEXT NOT NULL,
    step_order INTEGER NOT NULL,
    step_type TEXT NOT NULL DEFAULT 'UPDATE',
    table_name TEXT NOT NULL,
    record_id TEXT NOT NULL,
    old_data TEXT NOT NULL DEFAULT '{}',
    new_data TEXT NOT NULL DEFAULT '{}',
    UNIQUE (action_id, step_order),
    FOREIGN KEY (action_id) REFERENCES action_history(action_id)
);

CREATE INDEX IF NOT EXISTS idx_undo_steps_action ON undo_steps(action_id, step_order);
`
