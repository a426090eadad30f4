package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCached bool

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Remove files from the index",
	Long:  `Drop the given files (or every file under the given directories) from the index. Without --cached the files are deleted from the worktree too.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := GV.Remove(args)
		if err != nil {
			return err
		}

		for _, p := range removed {
			if !rmCached {
				if err := GV.Workspace.Remove(p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rm '%s'\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolVar(&rmCached, "cached", false, "only remove from the index")
}
