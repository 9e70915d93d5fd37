package main

import (
	"context"
	"fmt"

	"github.com/aretw0/patchbay/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [patch]",
	Short: "Export the patch as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph LR) of the patch. Modulation edges are
dotted and labelled with the parameter they drive. With --frames the patch
is evaluated first and nodes that failed are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, _ := cmd.Flags().GetInt("frames")
		selected, _ := cmd.Flags().GetString("select")

		out, err := cli.Graph(context.Background(), cli.GraphOptions{
			Path:     patchPath(args),
			Frames:   frames,
			Selected: selected,
		})
		if err != nil {
			return fmt.Errorf("failed to inspect graph: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Int("frames", 0, "Evaluate this many frames and mark failed nodes")
	graphCmd.Flags().String("select", "", "Highlight this node")
}
