package main

import (
	"context"

	"github.com/aretw0/patchbay/internal/cli"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [patch]",
	Short: "Convert a patch to a single YAML file or to node notes",
	Long: `Loads any supported patch source and prints it as one YAML patch file with
inline scripts. With --notes the patch is written as one markdown note per
node instead, and notes of nodes no longer in the patch are removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		return cli.Export(context.Background(), patchPath(args), cmd.OutOrStdout(), notes)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("notes", "", "Write one note per node into this directory")
}
