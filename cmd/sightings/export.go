package sightings

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// exportRecord is the flat form of a sighting written by export.
type exportRecord struct {
	Ordinal    *int     `json:"ordinal" yaml:"ordinal"`
	Name       string   `json:"name" yaml:"name"`
	Sex        string   `json:"sex" yaml:"sex"`
	RecordedAt string   `json:"recorded_at" yaml:"recorded_at"`
	Place      string   `json:"place,omitempty" yaml:"place,omitempty"`
	Lat        *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
}

var exportHeader = []string{"ordinal", "name", "sex", "recorded_at", "place", "lat", "lon"}

func exportCommand(ctx *app.Context) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sightings as csv, json or yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			write, ok := exporters[format]
			if !ok {
				return fmt.Errorf("unsupported export format %q", format)
			}

			return ctx.WithApp(cmd.Context(), func(a *app.App) error {
				list, err := a.Logbook.Sightings(cmd.Context())
				if err != nil {
					return err
				}
				records := make([]exportRecord, 0, len(list))
				for _, sg := range list {
					records = append(records, toRecord(sg))
				}

				if output == "" || output == "-" {
					return write(cmd.OutOrStdout(), records)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				if err := write(f, records); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file; stdout when empty")
	return cmd
}

var exporters = map[string]func(io.Writer, []exportRecord) error{
	"csv":  writeCSV,
	"json": writeJSON,
	"yaml": writeYAML,
}

func toRecord(sg sighting.Sighting) exportRecord {
	rec := exportRecord{
		Name:       sg.SpeciesName,
		Sex:        string(sg.Sex),
		RecordedAt: formatTime(sg.RecordedAt),
		Place:      sg.Location.Place,
		Lat:        sg.Location.Lat,
		Lon:        sg.Location.Lon,
	}
	if sg.Catalogued && sg.Ordinal != sighting.UncataloguedOrdinal {
		n := sg.Ordinal
		rec.Ordinal = &n
	}
	return rec
}

func writeCSV(w io.Writer, records []exportRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{"", r.Name, r.Sex, r.RecordedAt, r.Place, "", ""}
		if r.Ordinal != nil {
			row[0] = strconv.Itoa(*r.Ordinal)
		}
		if r.Lat != nil && r.Lon != nil {
			row[5] = strconv.FormatFloat(*r.Lat, 'f', -1, 64)
			row[6] = strconv.FormatFloat(*r.Lon, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []exportRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeYAML(w io.Writer, records []exportRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
