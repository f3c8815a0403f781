package species

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/reference"
)

// Command creates the species command group.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Browse the species reference list",
	}
	cmd.AddCommand(listCommand(ctx), showCommand(ctx))
	return cmd
}

func listCommand(ctx *app.Context) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog species in reference order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				var list []reference.Species
				if family != "" {
					for _, name := range a.Catalog.Members(family) {
						if sp, ok := a.Catalog.Lookup(name); ok {
							list = append(list, sp)
						}
					}
				} else {
					list = a.Catalog.Species()
				}

				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No species found")
					return nil
				}

				rarity := a.Logbook.Rarity()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NO\tNAME\tFAMILY\tSCIENTIFIC NAME\tRARITY")
				for _, sp := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
						sp.Ordinal, sp.Name, sp.Family, sp.ScientificName, rarity.Tier(sp.Name).Label())
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&family, "family", "f", "", "Only list members of this family")
	return cmd
}

func showCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a species with its encyclopedia summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				sp, summary, err := a.Logbook.Summary(cmd.Context(), args[0])
				if sp.Name == "" {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "#%d %s\n", sp.Ordinal, sp.Name)
				fmt.Fprintf(out, "Family:  %s\n", sp.Family)
				if sp.ScientificName != "" {
					fmt.Fprintf(out, "Species: %s\n", sp.ScientificName)
				}
				fmt.Fprintf(out, "Rarity:  %s\n", a.Logbook.Rarity().Tier(sp.Name).Label())
				if err != nil {
					a.Log.Debug("summary unavailable", logger.String("species", sp.Name), logger.Error(err))
					return nil
				}
				if summary != "" {
					fmt.Fprintf(out, "\n%s\n", summary)
				}
				return nil
			})
		},
	}
}
