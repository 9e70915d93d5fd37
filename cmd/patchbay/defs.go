package main

import (
	"github.com/aretw0/patchbay/internal/cli"
	"github.com/spf13/cobra"
)

var defsCmd = &cobra.Command{
	Use:   "defs",
	Short: "List the node definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		return cli.Definitions(cmd.OutOrStdout(), raw)
	},
}

func init() {
	rootCmd.AddCommand(defsCmd)
	defsCmd.Flags().Bool("raw", false, "Print markdown instead of rendering it")
}
