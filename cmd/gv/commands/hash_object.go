package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	hashWrite bool
	hashStdin bool
)

var hashObjectCmd = &cobra.Command{
	Use:   "hash-object [-w] (--stdin | <file>)",
	Short: "Compute the blob id of a file",
	Long:  `Compute the object id a file would have as a blob and optionally write the blob into the object store.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader
		switch {
		case hashStdin:
			r = cmd.InOrStdin()
		case len(args) == 1:
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		default:
			return fmt.Errorf("a file or --stdin is required")
		}

		id, err := GV.HashObject(cmd.Context(), r, hashWrite)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashObjectCmd)
	hashObjectCmd.Flags().BoolVarP(&hashWrite, "write", "w", false, "write the blob into the object store")
	hashObjectCmd.Flags().BoolVar(&hashStdin, "stdin", false, "read the content from stdin")
}
