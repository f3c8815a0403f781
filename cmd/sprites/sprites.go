package sprites

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/reference"
)

// Command creates the sprites command, which renders pixel sprites for
// catalog species from encyclopedia thumbnails.
func Command(ctx *app.Context) *cobra.Command {
	var (
		overwrite bool
		family    string
	)

	cmd := &cobra.Command{
		Use:   "sprites [name]...",
		Short: "Generate pixel sprites for catalog species",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				species, err := selectSpecies(a.Catalog, args, family)
				if err != nil {
					return err
				}

				report, err := a.SpriteGenerator(overwrite).Generate(cmd.Context(), species)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created %d, existing %d, missing %d, failed %d\n",
					len(report.Created), len(report.Existed), len(report.Missing), len(report.Failed))
				for _, name := range report.Missing {
					fmt.Fprintf(out, "No image: %s\n", name)
				}
				failed := make([]string, 0, len(report.Failed))
				for name := range report.Failed {
					failed = append(failed, name)
				}
				sort.Strings(failed)
				for _, name := range failed {
					fmt.Fprintf(out, "Failed: %s: %v\n", name, report.Failed[name])
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Regenerate sprites that already exist")
	cmd.Flags().StringVarP(&family, "family", "f", "", "Only generate sprites for this family")
	return cmd
}

// selectSpecies narrows the catalog to the named species or family.
// No names and no family selects every species.
func selectSpecies(catalog *reference.Catalog, names []string, family string) ([]reference.Species, error) {
	if len(names) == 0 && family == "" {
		return catalog.Species(), nil
	}
	var out []reference.Species
	for _, name := range names {
		sp, ok := catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("species %q is not in the reference list", name)
		}
		out = append(out, sp)
	}
	if family == "" {
		return out, nil
	}
	members := catalog.Members(family)
	if len(members) == 0 {
		return nil, fmt.Errorf("family %q has no species in the reference list", family)
	}
	for _, name := range members {
		if sp, ok := catalog.Lookup(name); ok {
			out = append(out, sp)
		}
	}
	return out, nil
}
