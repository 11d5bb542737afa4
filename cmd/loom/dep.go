package main

import (
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency links between work items",
}

var depType string

var depAddCmd = &cobra.Command{
	Use:   "add <id> <target-id>...",
	Short: "Add dependency links from a work item to one or more targets",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := make([]types.DependencyInput, 0, len(args)-1)
		for _, target := range args[1:] {
			inputs = append(inputs, types.DependencyInput{
				DependsOnID: target,
				Type:        types.DependencyType(depType),
			})
		}
		var view *types.WorkItemView
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			view, err = svc.AddDependencies(cmd.Context(), args[0], inputs)
			return err
		})
		if err != nil {
			return err
		}
		return emit(ui.ItemDetail(view), view)
	},
}

var depRemoveCmd = &cobra.Command{
	Use:     "rm <id> <target-id>...",
	Aliases: []string{"remove"},
	Short:   "Remove dependency links from a work item",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var view *types.WorkItemView
		err := withWorkspaceLock(cmd.Context(), func() error {
			var err error
			view, err = svc.DeleteDependencies(cmd.Context(), args[0], args[1:])
			return err
		})
		if err != nil {
			return err
		}
		return emit(ui.ItemDetail(view), view)
	},
}

func init() {
	depAddCmd.Flags().StringVarP(&depType, "type", "t", string(types.DepFinishToStart),
		"dependency type (finish-to-start or linked)")
	depCmd.AddCommand(depAddCmd, depRemoveCmd)
	rootCmd.AddCommand(depCmd)
}
