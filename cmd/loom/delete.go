package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/service"
	"github.com/loomworks/loom/internal/ui"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete work items and their entire subtrees",
	Long: `Delete work items, their descendants, and every dependency link
touching the affected set. Deletion is a soft delete: one undo brings
everything back.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := fmt.Sprintf("Delete %d item(s) and their subtrees?", len(args))
		if !confirmed(prompt, deleteYes || jsonOutput) {
			return nil
		}

		var result *service.DeleteResult
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			result, err = svc.DeleteCascade(cmd.Context(), args)
			return err
		})
		if err != nil {
			return err
		}

		var b strings.Builder
		b.WriteString(fmt.Sprintf("Deleted %d work item(s), deactivated %d dependency link(s)\n",
			len(result.DeletedItemIDs), len(result.DeactivatedLinks)))
		for _, id := range result.DeletedItemIDs {
			b.WriteString("  " + ui.RenderMuted(id) + "\n")
		}
		return emit(b.String(), result)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
