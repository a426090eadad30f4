// cmd/gv/commands/add.go

package commands

import (
	"fmt"
	"time"

	"gitvault/pkg/exporter"
	"gitvault/pkg/ingester"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add file contents to the index",
	Long:  `Store every file under the given paths as a blob and record it in the index. Tracked files that were deleted from the worktree are dropped from the index.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		start := time.Now()

		var progress func(ingester.Result)
		if isTerminal(out) {
			progress = func(r ingester.Result) {
				fmt.Fprintf(out, "\rAdding: %s (%s)\033[K", r.Path, exporter.FormatSize(r.Stat.Size))
			}
		}

		sum, err := GV.Add(cmd.Context(), args, progress)
		if progress != nil {
			fmt.Fprintln(out)
		}
		if err != nil {
			return err
		}

		for _, p := range sum.Removed {
			fmt.Fprintf(out, "deleted: %s\n", p)
		}
		if len(sum.Files) == 0 && len(sum.Removed) == 0 {
			fmt.Fprintln(out, "⚠️  No changes added.")
			return nil
		}
		fmt.Fprintf(out, "%s Added %d files (%s) in %s\n",
			green("✅"), len(sum.Files), exporter.FormatSize(sum.Bytes()), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
