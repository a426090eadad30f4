package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsStage bool

var lsFilesCmd = &cobra.Command{
	Use:   "ls-files",
	Short: "Show files in the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := GV.Files()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			if lsStage {
				fmt.Fprintf(out, "%06o %s 0\t%s\n", uint32(e.Mode), e.ID, e.Path)
				continue
			}
			fmt.Fprintln(out, e.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsFilesCmd)
	lsFilesCmd.Flags().BoolVarP(&lsStage, "stage", "s", false, "show mode, object id and stage number")
}
