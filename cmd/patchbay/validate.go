package main

import (
	"context"
	"fmt"

	"github.com/aretw0/patchbay/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [patch]",
	Short: "Check the patch for consistency",
	Long: `Checks that every node names a known definition, every edge fits the
connection rules, every script compiles and every node reaches an output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cli.Validate(context.Background(), patchPath(args))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, warning := range report.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(w, "Patch is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
