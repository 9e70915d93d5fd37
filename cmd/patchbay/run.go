package main

import (
	"context"
	"fmt"

	"github.com/aretw0/patchbay/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [patch]",
	Short: "Evaluate a patch",
	Long: `Loads a patch file, a directory holding patch.yaml or a directory of node
notes, and evaluates it in real time until interrupted. Without a patch the
built-in demo graph runs.

With --frames the patch is evaluated for a fixed number of frames at 1/fps
steps, which makes the output reproducible.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, _ := cmd.Flags().GetInt("frames")
		outDir, _ := cmd.Flags().GetString("out")
		nodes, _ := cmd.Flags().GetStringSlice("nodes")
		sequence, _ := cmd.Flags().GetBool("sequence")
		watch, _ := cmd.Flags().GetBool("watch")
		keys, _ := cmd.Flags().GetBool("keys")
		debug, _ := cmd.Flags().GetBool("debug")

		if keys && frames > 0 {
			return fmt.Errorf("--keys needs real time and cannot be combined with --frames")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Run(ctx, cfg, cli.RunOptions{
			Path:     patchPath(args),
			Frames:   frames,
			OutDir:   outDir,
			Nodes:    nodes,
			Sequence: sequence,
			Watch:    watch,
			Keys:     keys,
			Debug:    debug,
			Out:      cmd.ErrOrStderr(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("frames", 0, "Evaluate this many frames and exit (0 runs until interrupted)")
	runCmd.Flags().String("out", "", "Directory receiving PNG previews of node textures")
	runCmd.Flags().StringSlice("nodes", nil, "Only write previews of these nodes")
	runCmd.Flags().Bool("sequence", false, "Write one numbered PNG per frame instead of the last one")
	runCmd.Flags().BoolP("watch", "w", false, "Reload the patch when its files change")
	runCmd.Flags().Bool("keys", false, "Feed terminal key presses to the keyboard")
	runCmd.Flags().Int("fps", 0, "Frame rate (overrides engine.fps)")
	runCmd.Flags().String("ordering", "", "Node ordering: declaration or topological")
	runCmd.Flags().Int64("seed", 0, "Seed of the noise() builtin")

	bindFlag(runCmd, "engine.fps", "fps")
	bindFlag(runCmd, "engine.ordering", "ordering")
	bindFlag(runCmd, "engine.noise_seed", "seed")
}
