package main

import (
	"fmt"
	"os"

	"github.com/aretw0/patchbay/internal/config"
	"github.com/spf13/cobra"
)

var (
	v   = config.New()
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "patchbay",
	Short: "Patchbay evaluates node graphs of scripted generative graphics",
	Long: `Patchbay runs a graph of Lua-scripted nodes once per frame. Values,
geometry and textures flow along the edges and keyboard state is shared by
every node.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(v, path)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bindFlag makes a command flag override the config key it names.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// patchPath returns the first argument, or the demo graph when none is given.
func patchPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./patchbay.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every frame and node error")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}
}
