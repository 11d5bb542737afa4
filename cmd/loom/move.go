package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var (
	moveFirst  bool
	moveLast   bool
	moveAfter  string
	moveBefore string
)

var moveCmd = &cobra.Command{
	Use:   "move <id> (--first | --last | --after SIBLING | --before SIBLING)",
	Short: "Reposition a work item among its siblings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		set := 0
		for _, chosen := range []bool{moveFirst, moveLast, moveAfter != "", moveBefore != ""} {
			if chosen {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("exactly one of --first, --last, --after, --before is required")
		}

		var view *types.WorkItemView
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			switch {
			case moveFirst:
				view, err = svc.MoveToStart(cmd.Context(), id)
			case moveLast:
				view, err = svc.MoveToEnd(cmd.Context(), id)
			case moveAfter != "":
				view, err = svc.MoveAfter(cmd.Context(), id, moveAfter)
			default:
				view, err = svc.MoveBefore(cmd.Context(), id, moveBefore)
			}
			return err
		})
		if err != nil {
			return err
		}
		return emit(ui.ItemDetail(view), view)
	},
}

func init() {
	moveCmd.Flags().BoolVar(&moveFirst, "first", false, "move to the start of its siblings")
	moveCmd.Flags().BoolVar(&moveLast, "last", false, "move to the end of its siblings")
	moveCmd.Flags().StringVar(&moveAfter, "after", "", "move directly after this sibling")
	moveCmd.Flags().StringVar(&moveBefore, "before", "", "move directly before this sibling")
	rootCmd.AddCommand(moveCmd)
}
