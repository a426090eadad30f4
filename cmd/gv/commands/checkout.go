package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkoutForce bool

var checkoutCmd = &cobra.Command{
	Use:   "checkout <commit>",
	Short: "Restore working tree files",
	Long: `Overwrite the working tree with the content of the given commit, rebuild the index from it and move HEAD.
Tracked files with local modifications abort the checkout unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		c, err := GV.Checkout(cmd.Context(), args[0], checkoutForce)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Switched to commit %s (%s) in %s\n",
			green("✅"), yellow(c.ID().Short()), c.Summary(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
	checkoutCmd.Flags().BoolVarP(&checkoutForce, "force", "f", false, "discard local changes to tracked files")
}
