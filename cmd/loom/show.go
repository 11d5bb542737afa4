package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var showInactive bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a work item with its links and children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := types.ActiveOnly
		if showInactive {
			filter = types.ActiveAny
		}
		view, err := svc.GetWorkItem(cmd.Context(), args[0], filter)
		if err != nil {
			return err
		}
		return emit(ui.ItemDetail(view), view)
	},
}

var (
	treeDepth    int
	treeInactive bool
)

var treeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Show a work item's subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := svc.GetFullTree(cmd.Context(), args[0], types.TreeOptions{
			MaxDepth:        treeDepth,
			IncludeInactive: treeInactive,
		})
		if err != nil {
			return err
		}
		return emit(ui.Tree(node), node)
	},
}

var (
	listParent   string
	listRoots    bool
	listStatus   string
	listInactive bool
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List work items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := types.ListFilter{
			RootsOnly: listRoots,
			Limit:     listLimit,
		}
		if listParent != "" {
			filter.ParentID = &listParent
		}
		if listStatus != "" {
			status := types.Status(listStatus)
			filter.Status = &status
		}
		if listInactive {
			filter.Active = types.ActiveAny
		}
		items, err := svc.ListWorkItems(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return emit(renderItemLines(items), items)
	},
}

var searchInactive bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search work items by name, shortname, or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := types.ActiveOnly
		if searchInactive {
			filter = types.ActiveAny
		}
		items, err := svc.Search(cmd.Context(), args[0], filter)
		if err != nil {
			return err
		}
		return emit(renderItemLines(items), items)
	},
}

func renderItemLines(items []*types.WorkItem) string {
	if len(items) == 0 {
		return ui.RenderMuted("no work items") + "\n"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString(ui.ItemLine(item) + "\n")
	}
	return b.String()
}

func init() {
	showCmd.Flags().BoolVar(&showInactive, "include-inactive", false, "show even if soft-deleted")

	treeCmd.Flags().IntVar(&treeDepth, "depth", 0, "max depth, 0 for unlimited")
	treeCmd.Flags().BoolVar(&treeInactive, "include-inactive", false, "include soft-deleted items")

	listCmd.Flags().StringVarP(&listParent, "parent", "p", "", "only children of this work item")
	listCmd.Flags().BoolVar(&listRoots, "roots", false, "only project roots")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().BoolVar(&listInactive, "include-inactive", false, "include soft-deleted items")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "max items, 0 for all")

	searchCmd.Flags().BoolVar(&searchInactive, "include-inactive", false, "include soft-deleted items")

	rootCmd.AddCommand(showCmd, treeCmd, listCmd, searchCmd)
}
