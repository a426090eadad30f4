package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gitvault/pkg/app"

	"github.com/spf13/cobra"
)

var (
	commitMsg string
	commitAll bool
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record changes to the repository",
	Long: `Create a new commit containing the current contents of the index and the given log message.
With --all every worktree file is staged first. Without -m the message is read from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		msg := commitMsg
		if msg == "" && !isTerminal(os.Stdin) {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}
			msg = string(data)
		}

		author, err := app.ResolveAuthor(settings.User, time.Now())
		if err != nil {
			return err
		}

		c, err := GV.Commit(cmd.Context(), author, msg, commitAll)
		if errors.Is(err, app.ErrNothingToCommit) {
			fmt.Fprintln(out, "nothing to commit, working tree clean")
			return nil
		}
		if err != nil {
			return err
		}

		root := ""
		if c.IsRoot() {
			root = "(root-commit) "
		}
		fmt.Fprintf(out, "[%s%s] %s\n", root, yellow(c.ID().Short()), c.Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)

	commitCmd.Flags().StringVarP(&commitMsg, "message", "m", "", "commit message")
	commitCmd.Flags().BoolVarP(&commitAll, "all", "a", false, "stage every worktree file before committing")
}
