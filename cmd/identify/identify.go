package identify

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// MaxImages bounds how many photos one run sends to the model
const MaxImages = 10

// Command creates the identify command.
func Command(ctx *app.Context) *cobra.Command {
	var (
		followup string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "identify <image>...",
		Short: "Identify birds in photos",
		Long:  "Sends each photo to the configured model and prints the species it names. With --save, identified species are recorded as sightings.",
		Args:  cobra.RangeArgs(1, MaxImages),
		RunE: func(cmd *cobra.Command, args []string) error {
			images := make([]identify.Image, 0, len(args))
			for _, path := range args {
				img, err := identify.ReadImage(path)
				if err != nil {
					return err
				}
				images = append(images, img)
			}

			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				results, err := a.Logbook.Identify(cmd.Context(), images, followup)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "IMAGE\tRESULT\tNAME\tRATIONALE")
				for i, r := range results {
					rationale := r.Rationale
					if r.Err != nil {
						rationale = errors.ScrubMessage(r.Err.Error())
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", images[i].Name, r.Outcome, r.Name, rationale)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				if save {
					return saveResults(cmd, a, results)
				}
				return nil
			}, app.RequireIdentifier())
		},
	}

	cmd.Flags().StringVar(&followup, "followup", "", "Extra instruction appended to the identification request")
	cmd.Flags().BoolVar(&save, "save", false, "Record identified species as sightings")
	return cmd
}

// saveResults records each registrable result once. Rejections such as
// duplicates are reported and do not stop the run.
func saveResults(cmd *cobra.Command, a *app.App, results []identify.Result) error {
	out := cmd.OutOrStdout()
	seen := make(map[string]struct{})
	for _, r := range results {
		if !r.Registrable() {
			continue
		}
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}

		res, err := a.Logbook.Save(cmd.Context(), logbook.SaveRequest{SaveRequest: sighting.SaveRequest{Name: r.Name}})
		if err != nil {
			if sighting.KindOf(err) == sighting.KindTransport {
				return err
			}
			fmt.Fprintf(out, "Skipped %s: %v\n", r.Name, err)
			continue
		}
		fmt.Fprintf(out, "Recorded %s\n", res.Sighting.SpeciesName)
		for _, name := range res.Unlocked {
			fmt.Fprintf(out, "Achievement unlocked: %s\n", name)
		}
	}
	return nil
}
