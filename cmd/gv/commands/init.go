package commands

import (
	"errors"
	"fmt"

	"gitvault/pkg/app"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create an empty gitvault repository",
	Long:  `Create the metadata directory (objects, refs, format config) under the given directory or the configured worktree root.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := settings.Repo.Root
		if len(args) > 0 {
			root = args[0]
		}

		repoPath, err := app.Init(root, settings.Repo.Dir)
		if errors.Is(err, app.ErrRepositoryExists) {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠️  gitvault repository already exists in %s\n", repoPath)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Initialized empty gitvault repository in %s\n", green("✅"), repoPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
