package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a loom workspace in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		dir, err := config.InitWorkspace(cwd)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"workspace": dir})
		}
		fmt.Printf("Initialized loom workspace at %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
