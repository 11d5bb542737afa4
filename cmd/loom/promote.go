package main

import (
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Promote a work item to a project root",
	Long: `Detach a work item from its parent and make it a root. The old
parent keeps a linked dependency on the promoted item so the relationship
stays visible.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var view *types.WorkItemView
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			view, err = svc.PromoteToProject(cmd.Context(), args[0])
			return err
		})
		if err != nil {
			return err
		}
		return emit(ui.ItemDetail(view), view)
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
}
