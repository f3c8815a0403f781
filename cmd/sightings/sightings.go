package sightings

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/sighting"
)

const timeLayout = "2006-01-02 15:04"

// Command creates the sightings command group.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sightings",
		Aliases: []string{"sighting"},
		Short:   "Record, list and delete sightings",
	}
	cmd.AddCommand(
		listCommand(ctx),
		addCommand(ctx),
		deleteCommand(ctx),
		exportCommand(ctx),
	)
	return cmd
}

func listCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded sightings in reference order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				list, err := a.Logbook.Sightings(cmd.Context())
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sightings recorded yet")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NO\tNAME\tSEX\tRECORDED\tLOCATION")
				for _, sg := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						ordinal(sg), sg.SpeciesName, sg.Sex.Label(),
						sg.RecordedAt.Local().Format(timeLayout), location(sg.Location))
				}
				return w.Flush()
			})
		},
	}
}

func addCommand(ctx *app.Context) *cobra.Command {
	var (
		sex      string
		lat, lon float64
		place    string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Record a sighting by species name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := logbook.SaveRequest{SaveRequest: sighting.SaveRequest{
				Name: args[0],
				Sex:  sighting.ParseSex(sex),
			}}
			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return fmt.Errorf("--lat and --lon must be given together")
			}
			if latSet {
				req.Location.Lat, req.Location.Lon = &lat, &lon
			}
			req.Location.Place = place

			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Logbook.Save(cmd.Context(), req)
				if err != nil {
					return err
				}
				printSaved(cmd, res)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sex, "sex", "", "Sex of the bird: male, female or unspecified")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the sighting")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude of the sighting")
	cmd.Flags().StringVar(&place, "place", "", "Place name of the sighting")
	return cmd
}

// printSaved reports a save with its derived state.
func printSaved(cmd *cobra.Command, res logbook.SaveResult) {
	out := cmd.OutOrStdout()
	sg := res.Sighting
	fmt.Fprintf(out, "Recorded %s (%s)\n", sg.SpeciesName, ordinal(sg))
	if !sg.Catalogued {
		fmt.Fprintln(out, "Note: this species is not in the reference list")
	}
	exp := res.Experience
	fmt.Fprintf(out, "Level %d, %d XP (%d/%d to next level)\n", exp.Level, exp.TotalXP, exp.XPInLevel, exp.XPPerLevel)
	for _, name := range res.Unlocked {
		fmt.Fprintf(out, "Achievement unlocked: %s\n", name)
	}
}

func deleteCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>...",
		Aliases: []string{"rm"},
		Short:   "Delete every sighting of the given species",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Logbook.Delete(cmd.Context(), args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sighting(s)\n", n)
				return nil
			})
		},
	}
}

func ordinal(sg sighting.Sighting) string {
	if !sg.Catalogued || sg.Ordinal == sighting.UncataloguedOrdinal {
		return "-"
	}
	return fmt.Sprintf("#%d", sg.Ordinal)
}

func location(loc sighting.Location) string {
	var parts []string
	if loc.Place != "" {
		parts = append(parts, loc.Place)
	}
	if loc.Lat != nil && loc.Lon != nil {
		parts = append(parts, fmt.Sprintf("%.5f,%.5f", *loc.Lat, *loc.Lon))
	}
	return strings.Join(parts, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
