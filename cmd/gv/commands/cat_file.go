package commands

import (
	"errors"
	"fmt"

	"gitvault/pkg/exporter"

	"github.com/spf13/cobra"
)

var catOpts struct {
	showType bool
	showSize bool
	pretty   bool
}

var catFileCmd = &cobra.Command{
	Use:   "cat-file (-t | -s | -p) <object> | cat-file blob <object>",
	Short: "Show type, size or content of a repository object",
	Long: `Resolve an object id (a unique prefix of at least 4 hex digits, or HEAD) and print its type, payload size or pretty-printed content.
"cat-file blob <object>" writes the raw blob content, suitable for redirecting into a file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		exp := exporter.NewExporter(GV.Store)

		if len(args) == 2 {
			if args[0] != "blob" {
				return fmt.Errorf("unsupported object type %q (only blob)", args[0])
			}
			id, err := GV.Resolve(ctx, args[1])
			if err != nil {
				return err
			}
			return exp.ExportFile(ctx, id, out)
		}

		switch {
		case catOpts.pretty:
			id, err := GV.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			return exp.PrintObject(ctx, id, out)
		case catOpts.showType, catOpts.showSize:
			info, err := GV.ObjectInfo(ctx, args[0])
			if err != nil {
				return err
			}
			if catOpts.showType {
				fmt.Fprintln(out, info.Type)
			} else {
				fmt.Fprintln(out, info.Size)
			}
			return nil
		default:
			return errors.New("one of -t, -s or -p is required")
		}
	},
}

func init() {
	rootCmd.AddCommand(catFileCmd)

	f := catFileCmd.Flags()
	f.BoolVarP(&catOpts.showType, "type", "t", false, "show the object type")
	f.BoolVarP(&catOpts.showSize, "size", "s", false, "show the payload size")
	f.BoolVarP(&catOpts.pretty, "pretty", "p", false, "pretty-print the object content")
	catFileCmd.MarkFlagsMutuallyExclusive("type", "size", "pretty")
}
