package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gitvault/pkg/core"
	"gitvault/pkg/refs"

	"github.com/spf13/cobra"
)

const dateLayout = "Mon Jan 2 15:04:05 2006 -0700"

var (
	logLimit  int
	logAuthor string
)

var logCmd = &cobra.Command{
	Use:   "log [commit]",
	Short: "Show commit logs",
	Long:  `Display the commit history starting from the given commit (or HEAD). With --author the SQL projection is queried instead.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if logAuthor != "" {
			rows, err := GV.LogByAuthor(cmd.Context(), logAuthor, logLimit)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(out, "%s %s <%s> %s\n",
					yellow(r.Hash[:7]), r.AuthorName, r.AuthorEmail, firstLine(r.Message))
			}
			return nil
		}

		rev := ""
		if len(args) > 0 {
			rev = args[0]
		}
		commits, err := GV.Log(cmd.Context(), rev, logLimit)
		if errors.Is(err, refs.ErrNoHead) {
			fmt.Fprintln(out, "No commits yet.")
			return nil
		}
		if err != nil {
			return err
		}

		for _, c := range commits {
			printCommitLog(out, c)
		}
		return nil
	},
}

// printCommitLog 格式化输出 (仿 Git)
func printCommitLog(w io.Writer, c *core.Commit) {
	fmt.Fprintln(w, yellow("commit %s", c.ID()))
	fmt.Fprintf(w, "Author: %s\n", c.Author.Ident())
	fmt.Fprintf(w, "Date:   %s\n\n", c.Author.When.Format(dateLayout))
	for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	fmt.Fprintln(w)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntVarP(&logLimit, "max-count", "n", 0, "limit the number of commits to output")
	logCmd.Flags().StringVar(&logAuthor, "author", "", "only commits by this author name or email (needs meta.driver)")
}
