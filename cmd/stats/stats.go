package stats

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/progress"
)

// Command creates the stats command. Its subcommands show achievements and
// level on their own.
func Command(ctx *app.Context) *cobra.Command {
	var byFamily bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection progress, level and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProgress(cmd, ctx, func(a *app.App, p logbook.Progress) error {
				out := cmd.OutOrStdout()
				st := p.Stats
				fmt.Fprintf(out, "Collected %d/%d species (%.1f%%)\n", st.Catalogued, st.CatalogSize, st.ProgressPercent)
				if st.Uncatalogued > 0 {
					fmt.Fprintf(out, "Uncatalogued sightings: %d\n", st.Uncatalogued)
				}
				for _, tier := range progress.Tiers {
					if n := st.RarityCounts[tier]; n > 0 {
						fmt.Fprintf(out, "%s: %d\n", tier.Label(), n)
					}
				}
				printLevel(cmd, p.Experience)
				fmt.Fprintf(out, "Achievements: %d/%d\n", len(p.Achievements), len(p.Achievements)+len(p.Locked))

				if byFamily {
					return printFamilies(cmd, a, st)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&byFamily, "families", false, "Break progress down by family")
	cmd.AddCommand(achievementsCommand(ctx), levelCommand(ctx))
	return cmd
}

func achievementsCommand(ctx *app.Context) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "List unlocked achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProgress(cmd, ctx, func(_ *app.App, p logbook.Progress) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "STATUS\tNAME\tTIER\tDESCRIPTION")
				for _, d := range p.Achievements {
					fmt.Fprintf(w, "unlocked\t%s\t%s\t%s\n", d.Name, d.Tier.Label(), d.Description)
				}
				if all {
					for _, d := range p.Locked {
						fmt.Fprintf(w, "locked\t%s\t%s\t%s\n", d.Name, d.Tier.Label(), d.Description)
					}
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include locked achievements")
	return cmd
}

func levelCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "level",
		Short: "Show level and experience",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProgress(cmd, ctx, func(_ *app.App, p logbook.Progress) error {
				printLevel(cmd, p.Experience)
				return nil
			})
		},
	}
}

func withProgress(cmd *cobra.Command, ctx *app.Context, fn func(*app.App, logbook.Progress) error) error {
	return ctx.WithApp(cmd.Context(), func(a *app.App) error {
		p, err := a.Logbook.Progress(cmd.Context())
		if err != nil {
			return err
		}
		return fn(a, p)
	})
}

func printLevel(cmd *cobra.Command, exp progress.Experience) {
	fmt.Fprintf(cmd.OutOrStdout(), "Level %d, %d XP (%d/%d, %.0f%%)\n",
		exp.Level, exp.TotalXP, exp.XPInLevel, exp.XPPerLevel, exp.LevelPercent())
}

func printFamilies(cmd *cobra.Command, a *app.App, st progress.Stats) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nFAMILY\tCOLLECTED\tTOTAL")
	for _, family := range a.Catalog.Families() {
		fmt.Fprintf(w, "%s\t%d\t%d\n", family, st.ByFamily[family], st.FamilyTotals[family])
	}
	return w.Flush()
}
