package notify

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/notification"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// Command returns a cobra command that sends a test announcement through the
// configured push services and MQTT broker.
func Command(ctx *app.Context) *cobra.Command {
	var (
		species  string
		unlocked []string
		level    int
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test sighting notification",
		Long: `Send a test notification through the configured channels.

Nothing is recorded in the logbook.

Examples:
  # Announce a sighting of the default species
  birddex notify

  # Announce a sighting with unlocked achievements
  birddex notify --species=물총새 --unlocked="첫 발견" --level=2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				if !a.Notifier.Enabled() {
					return fmt.Errorf("no notification channel configured: set notification.urls or enable mqtt")
				}

				sg := sighting.Sighting{
					SpeciesName: species,
					Sex:         sighting.SexUnspecified,
					RecordedAt:  time.Now(),
				}
				if sp, ok := a.Catalog.Lookup(species); ok {
					sg.SpeciesName = sp.Name
					sg.Ordinal = sp.Ordinal
					sg.Catalogued = true
				}
				family, _ := a.Catalog.Family(sg.SpeciesName)

				ev := notification.SightingSaved(sg, family, unlocked, level)
				if err := a.Notifier.Announce(cmd.Context(), ev); err != nil {
					return fmt.Errorf("failed to send notification: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Notification sent: id=%s type=%s species=%s\n", ev.ID, ev.Type, ev.Species)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&species, "species", "참새", "Species named in the notification")
	cmd.Flags().StringSliceVar(&unlocked, "unlocked", nil, "Achievement names to include")
	cmd.Flags().IntVar(&level, "level", 1, "Level to include")
	return cmd
}
