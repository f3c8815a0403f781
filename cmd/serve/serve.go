package serve

import (
	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/api"
	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/logger"
)

// Command creates the serve command, which runs the JSON API until
// interrupted.
func Command(ctx *app.Context) *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := api.ConfigFromSettings(ctx.Settings)
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				srv, err := api.New(cfg, a.Logbook, a.Log.Module("api"),
					api.WithMetrics(a.Metrics),
					api.WithSpriteDir(a.Settings.Sprite.OutputDir))
				if err != nil {
					return err
				}
				a.Log.Info("birddex starting",
					logger.String("version", a.Build.GetVersion()),
					logger.String("address", cfg.Address()),
					logger.Int("species", a.Catalog.Len()))
				return srv.Start(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host, overrides webserver.host")
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port, overrides webserver.port")
	return cmd
}
