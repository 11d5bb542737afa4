package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/timeparsing"
	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a field on a work item",
}

// runSet wraps a single field mutation in the workspace lock and renders
// the updated item.
func runSet(cmd *cobra.Command, mutate func() (*types.WorkItemView, error)) error {
	var view *types.WorkItemView
	err := withWorkspaceLock(cmd.Context(), func() error {
		var err error
		view, err = mutate()
		return err
	})
	if err != nil {
		return err
	}
	return emit(ui.ItemDetail(view), view)
}

var setNameCmd = &cobra.Command{
	Use:   "name <id> <name>",
	Short: "Rename a work item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSet(cmd, func() (*types.WorkItemView, error) {
			return svc.SetName(cmd.Context(), args[0], args[1])
		})
	},
}

var setDescriptionCmd = &cobra.Command{
	Use:   "description <id> [text]",
	Short: "Set or clear the description",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var description *string
		if len(args) == 2 {
			description = &args[1]
		}
		return runSet(cmd, func() (*types.WorkItemView, error) {
			return svc.SetDescription(cmd.Context(), args[0], description)
		})
	},
}

var setStatusCmd = &cobra.Command{
	Use:   "status <id> <todo|in-progress|review|done>",
	Short: "Set the status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSet(cmd, func() (*types.WorkItemView, error) {
			return svc.SetStatus(cmd.Context(), args[0], types.Status(args[1]))
		})
	},
}

var setPriorityCmd = &cobra.Command{
	Use:   "priority <id> <high|medium|low>",
	Short: "Set the priority",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSet(cmd, func() (*types.WorkItemView, error) {
			return svc.SetPriority(cmd.Context(), args[0], types.Priority(args[1]))
		})
	},
}

var setDueCmd = &cobra.Command{
	Use:   "due <id> [expression]",
	Short: "Set or clear the due date",
	Long: `Set the due date from an expression, or clear it when no expression
is given. Expressions accept compact durations (+2w), dates (2026-09-01),
RFC 3339 timestamps, and natural language (next friday).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var due *time.Time
		if len(args) == 2 {
			parsed, err := timeparsing.ParseDueDate(args[1], time.Now())
			if err != nil {
				return err
			}
			due = &parsed
		}
		return runSet(cmd, func() (*types.WorkItemView, error) {
			return svc.SetDueDate(cmd.Context(), args[0], due)
		})
	},
}

func init() {
	setCmd.AddCommand(setNameCmd, setDescriptionCmd, setStatusCmd, setPriorityCmd, setDueCmd)
	rootCmd.AddCommand(setCmd)
}
