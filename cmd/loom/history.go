package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the most recent mutation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var action *types.Action
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			action, err = svc.Undo(cmd.Context())
			return err
		})
		if err != nil {
			return err
		}
		rendered := fmt.Sprintf("Undid: %s\n", action.Description)
		return emit(rendered, action)
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Re-apply the most recently undone mutation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var action *types.Action
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			action, err = svc.Redo(cmd.Context())
			return err
		})
		if err != nil {
			return err
		}
		rendered := fmt.Sprintf("Redid: %s\n", action.Description)
		return emit(rendered, action)
	},
}

var (
	historyLimit int
	historyItem  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent actions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := types.ActionFilter{Limit: historyLimit}
		if filter.Limit == 0 {
			filter.Limit = cfg.HistoryLimit
		}
		if historyItem != "" {
			filter.WorkItemID = &historyItem
		}
		actions, err := svc.ListRecentActions(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return emit(ui.Actions(actions), actions)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "number of actions to show")
	historyCmd.Flags().StringVar(&historyItem, "item", "", "only actions touching this work item")
	rootCmd.AddCommand(undoCmd, redoCmd, historyCmd)
}
