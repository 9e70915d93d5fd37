package main

import (
	"context"

	"github.com/aretw0/patchbay/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [patch]",
	Short: "Run a patch behind the HTTP editing API",
	Long: `Evaluates the patch in real time and exposes the graph over HTTP: nodes and
edges can be added, edited and removed while frames keep running, node
previews are served as PNG and the console is streamed over a websocket.

The edited patch is saved on shutdown to --state, or to Redis when
redis.addr is configured, and restored on the next start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		state, _ := cmd.Flags().GetString("state")
		watch, _ := cmd.Flags().GetBool("watch")
		banner, _ := cmd.Flags().GetBool("banner")
		debug, _ := cmd.Flags().GetBool("debug")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Serve(ctx, cfg, cli.ServeOptions{
			Path:   patchPath(args),
			Addr:   addr,
			State:  state,
			Watch:  watch,
			Debug:  debug,
			Banner: banner,
			Out:    cmd.ErrOrStderr(),
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().String("state", "", "JSON file keeping the edited patch across restarts")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the patch when its files change")
	serveCmd.Flags().Bool("banner", true, "Print the startup banner")
}
