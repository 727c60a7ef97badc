package commands

import (
	"github.com/spf13/cobra"

	"github.com/filewarden/filewarden/internal/cli/output"
	"github.com/filewarden/filewarden/pkg/control"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Manage the set of watched paths",
}

var pathsOutput string

var pathsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List paths currently under protection",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(pathsOutput)
		if err != nil {
			return err
		}
		resp, err := callControl("get_paths", nil)
		if err != nil {
			return err
		}
		var paths []string
		if err := resp.Decode(&paths); err != nil {
			return err
		}
		switch format {
		case output.FormatJSON:
			return output.PrintJSON(cmd.OutOrStdout(), paths)
		case output.FormatYAML:
			return output.PrintYAML(cmd.OutOrStdout(), paths)
		default:
			for _, p := range paths {
				cmd.Println(p)
			}
			return nil
		}
	},
}

var pathsAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Start watching an additional path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("add_path", control.AddPathCommand{Path: args[0]})
		if err != nil {
			return err
		}
		cmd.Printf("now watching %s\n", args[0])
		return nil
	},
}

var pathsRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Stop watching a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("remove_path", control.RemovePathCommand{Path: args[0]})
		if err != nil {
			return err
		}
		cmd.Printf("stopped watching %s\n", args[0])
		return nil
	},
}

func init() {
	pathsListCmd.Flags().StringVarP(&pathsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	pathsCmd.AddCommand(pathsListCmd)
	pathsCmd.AddCommand(pathsAddCmd)
	pathsCmd.AddCommand(pathsRemoveCmd)
}
