package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loomworks/loom/internal/service"
	"github.com/loomworks/loom/internal/timeparsing"
	"github.com/loomworks/loom/internal/types"
	"github.com/loomworks/loom/internal/ui"
)

var (
	addParent      string
	addShortname   string
	addDescription string
	addStatus      string
	addPriority    string
	addDue         string
	addDeps        []string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a work item",
	Long: `Add a work item, optionally under a parent and with dependency links.

Dependencies are given as --dep TARGET-ID or --dep TARGET-ID:TYPE, where
TYPE is finish-to-start (default) or linked.

Due dates accept compact durations (+2w), dates (2026-09-01), RFC 3339
timestamps, and natural language (next friday).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := service.AddRequest{
			Name:     args[0],
			Status:   types.Status(addStatus),
			Priority: types.Priority(addPriority),
		}
		if addParent != "" {
			req.ParentID = &addParent
		}
		if addShortname != "" {
			req.Shortname = &addShortname
		}
		if addDescription != "" {
			req.Description = &addDescription
		}
		if addDue != "" {
			due, err := timeparsing.ParseDueDate(addDue, time.Now())
			if err != nil {
				return err
			}
			req.DueDate = &due
		}
		deps, err := parseDepSpecs(addDeps)
		if err != nil {
			return err
		}
		req.Dependencies = deps

		var view *types.WorkItemView
		err = withWorkspaceLock(cmd.Context(), func() error {
			var err error
			view, err = svc.Add(cmd.Context(), req)
			return err
		})
		if err != nil {
			return err
		}
		return emit(ui.ItemDetail(view), view)
	},
}

// parseDepSpecs parses TARGET-ID[:TYPE] dependency flags.
func parseDepSpecs(specs []string) ([]types.DependencyInput, error) {
	var deps []types.DependencyInput
	for _, spec := range specs {
		id, typeName, found := strings.Cut(spec, ":")
		dep := types.DependencyInput{DependsOnID: id}
		if found {
			dep.Type = types.DependencyType(typeName)
			if !dep.Type.IsValid() {
				return nil, fmt.Errorf("unknown dependency type %q in %q", typeName, spec)
			}
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

var addTreeFile string

var addTreeCmd = &cobra.Command{
	Use:   "add-tree [--parent ID] [--file FILE]",
	Short: "Add a whole subtree of work items in one action",
	Long: `Add a forest of work items from a YAML description read from a file
or stdin. One undo removes the entire batch.

Example input:
  - name: epic
    children:
      - name: task one
      - name: task two
        priority: high`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := readTreeInput(addTreeFile)
		if err != nil {
			return err
		}
		var nodes []*types.AddTreeNode
		if err := yaml.Unmarshal(data, &nodes); err != nil {
			return fmt.Errorf("parsing tree input: %w", err)
		}

		var parentID *string
		if addParent != "" {
			parentID = &addParent
		}

		var created []*types.TreeNode
		err = withWorkspaceLock(cmd.Context(), func() error {
			var err error
			created, err = svc.AddTree(cmd.Context(), parentID, nodes)
			return err
		})
		if err != nil {
			return err
		}

		var rendered strings.Builder
		for _, node := range created {
			rendered.WriteString(ui.Tree(node))
		}
		return emit(rendered.String(), created)
	},
}

func readTreeInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path) // #nosec G304 - user-supplied input file
}

func init() {
	addCmd.Flags().StringVarP(&addParent, "parent", "p", "", "parent work item ID")
	addCmd.Flags().StringVar(&addShortname, "shortname", "", "short display name")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "long description")
	addCmd.Flags().StringVar(&addStatus, "status", string(types.StatusTodo), "initial status")
	addCmd.Flags().StringVar(&addPriority, "priority", string(types.PriorityMedium), "initial priority")
	addCmd.Flags().StringVar(&addDue, "due", "", "due date expression")
	addCmd.Flags().StringArrayVar(&addDeps, "dep", nil, "dependency TARGET-ID[:TYPE], repeatable")

	addTreeCmd.Flags().StringVarP(&addParent, "parent", "p", "", "parent work item ID")
	addTreeCmd.Flags().StringVarP(&addTreeFile, "file", "f", "", "YAML file describing the tree (default stdin)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(addTreeCmd)
}
