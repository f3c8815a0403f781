package cmd

import (
	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/cmd/config"
	"github.com/turtleson01/bird-app/cmd/identify"
	"github.com/turtleson01/bird-app/cmd/notify"
	"github.com/turtleson01/bird-app/cmd/serve"
	"github.com/turtleson01/bird-app/cmd/sightings"
	"github.com/turtleson01/bird-app/cmd/species"
	"github.com/turtleson01/bird-app/cmd/sprites"
	"github.com/turtleson01/bird-app/cmd/stats"
	"github.com/turtleson01/bird-app/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "birddex",
		Short:         "birddex bird-watching logbook",
		Long:          "birddex records bird sightings against a Korean species list and tracks collection progress.",
		Version:       ctx.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, ctx)

	rootCmd.AddCommand(
		species.Command(ctx),
		sightings.Command(ctx),
		stats.Command(ctx),
		stats.DexCommand(ctx),
		identify.Command(ctx),
		sprites.Command(ctx),
		notify.Command(ctx),
		serve.Command(ctx),
		config.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config init must work without a loadable configuration
		if config.SkipsInit(cmd) {
			return nil
		}
		return ctx.Init()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigPath, "config", "c", ctx.ConfigPath, "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&ctx.Debug, "debug", "d", ctx.Debug, "Enable debug output")
}
