package sighting

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/turtleson01/bird-app/internal/reference"
)

// Column names of the sighting table
const (
	ColNo       = "No"
	ColName     = "bird_name"
	ColSex      = "sex"
	ColDate     = "date"
	ColLat      = "lat"
	ColLon      = "lon"
	ColLocation = "location"
)

// Header is the column layout written to a new table.
var Header = []string{ColNo, ColName, ColSex, ColDate, ColLat, ColLon, ColLocation}

// DateLayout is the timestamp format of the date column.
const DateLayout = "2006-01-02 15:04:05"

var dateLayouts = []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// sheet is the decoded table. Rows are kept as raw cells so columns this
// package does not know about survive a rewrite.
type sheet struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func parseSheet(raw [][]string) *sheet {
	s := &sheet{}
	if len(raw) == 0 {
		s.setHeader(slices.Clone(Header))
		return s
	}
	s.setHeader(slices.Clone(raw[0]))
	for _, row := range raw[1:] {
		s.rows = append(s.rows, slices.Clone(row))
	}
	s.ensureColumns(Header)
	return s
}

func (s *sheet) setHeader(header []string) {
	s.header = header
	s.index = make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := s.index[key]; !dup {
			s.index[key] = i
		}
	}
}

// ensureColumns appends any missing columns to the header.
func (s *sheet) ensureColumns(cols []string) {
	for _, col := range cols {
		if _, ok := s.index[strings.ToLower(col)]; ok {
			continue
		}
		s.header = append(s.header, col)
		s.index[strings.ToLower(col)] = len(s.header) - 1
	}
}

func (s *sheet) get(row []string, col string) string {
	i, ok := s.index[strings.ToLower(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// name returns the normalized species name of a row
func (s *sheet) name(row []string) string {
	return reference.NormalizeName(s.get(row, ColName))
}

func (s *sheet) decode(row []string, loc *time.Location) Sighting {
	sg := Sighting{
		SpeciesName: s.name(row),
		Sex:         ParseSex(s.get(row, ColSex)),
		RecordedAt:  parseDate(s.get(row, ColDate), loc),
		Location: Location{
			Lat:   parseFloat(s.get(row, ColLat)),
			Lon:   parseFloat(s.get(row, ColLon)),
			Place: s.get(row, ColLocation),
		},
	}
	return sg
}

func (s *sheet) appendSighting(sg Sighting) {
	row := make([]string, len(s.header))
	set := func(col, value string) {
		row[s.index[strings.ToLower(col)]] = value
	}
	set(ColNo, formatOrdinal(sg))
	set(ColName, sg.SpeciesName)
	set(ColSex, string(sg.Sex))
	set(ColDate, sg.RecordedAt.Format(DateLayout))
	set(ColLat, formatFloat(sg.Location.Lat))
	set(ColLon, formatFloat(sg.Location.Lon))
	set(ColLocation, sg.Location.Place)
	s.rows = append(s.rows, row)
}

// formatOrdinal renders the No cell. Uncatalogued sightings leave it blank.
func formatOrdinal(sg Sighting) string {
	if !sg.Catalogued {
		return ""
	}
	return strconv.Itoa(sg.Ordinal)
}

// values returns the header followed by every row, padded to the header width.
func (s *sheet) values() [][]string {
	out := make([][]string, 0, len(s.rows)+1)
	out = append(out, slices.Clone(s.header))
	for _, row := range s.rows {
		if len(row) < len(s.header) {
			row = append(slices.Clone(row), make([]string, len(s.header)-len(row))...)
		}
		out = append(out, row)
	}
	return out
}

func parseDate(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
