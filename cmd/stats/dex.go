package stats

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
)

// DexCommand creates the dex command, the collection grid in reference order.
func DexCommand(ctx *app.Context) *cobra.Command {
	var collectedOnly bool

	cmd := &cobra.Command{
		Use:   "dex",
		Short: "Show the collection grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				entries, err := a.Logbook.Dex(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NO\tNAME\tFAMILY\tRARITY\tSEEN\tSPRITE")
				for _, e := range entries {
					if collectedOnly && !e.Collected {
						continue
					}
					name, seen := "???", ""
					if e.Collected {
						name = e.Name
						seen = e.Sighting.RecordedAt.Local().Format("2006-01-02")
					}
					sprite := "no"
					if e.SpritePath != "" {
						sprite = "yes"
					}
					fmt.Fprintf(w, "%03d\t%s\t%s\t%s\t%s\t%s\n", e.Ordinal, name, e.Family, e.Rarity.Label(), seen, sprite)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&collectedOnly, "collected", false, "Only show collected species")
	return cmd
}
