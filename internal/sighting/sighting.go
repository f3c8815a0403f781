// Package sighting keeps the user's sighting log in an external table that
// only supports whole-table reads and replacements.
//
// The duplicate check in Save is a read followed by a write. Two concurrent
// saves of the same species can both pass the check; the table offers no
// compare-and-swap, so this is left as a known limitation.
package sighting

import (
	"context"
	"math"
	"strings"
	"time"
)

// UncataloguedOrdinal is attached to sightings whose species is not in the
// reference, so they sort after every catalogued species.
const UncataloguedOrdinal = math.MaxInt32

// Sex of the observed bird
type Sex string

const (
	SexUnspecified Sex = "unspecified"
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
)

// ParseSex accepts English and Korean labels and symbols; anything else is unspecified.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "수컷", "수", "♂":
		return SexMale
	case "female", "f", "암컷", "암", "♀":
		return SexFemale
	default:
		return SexUnspecified
	}
}

// Label returns the Korean display label
func (s Sex) Label() string {
	switch s {
	case SexMale:
		return "수컷"
	case SexFemale:
		return "암컷"
	default:
		return "미상"
	}
}

// Location is where a bird was seen. Either part may be absent.
type Location struct {
	Lat   *float64
	Lon   *float64
	Place string
}

// HasCoordinates reports whether both latitude and longitude are set
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Coordinates builds a Location from a latitude/longitude pair
func Coordinates(lat, lon float64, place string) Location {
	return Location{Lat: &lat, Lon: &lon, Place: place}
}

// Sighting is one confirmed observation. There is at most one per species.
type Sighting struct {
	SpeciesName string
	Sex         Sex
	RecordedAt  time.Time
	Location    Location
	Ordinal     int  // reference ordinal, or UncataloguedOrdinal
	Catalogued  bool // species found in the reference
}

// Table is a tabular store addressed as a whole. ReadAll returns every row
// including the header; ReplaceAll overwrites the table with rows.
type Table interface {
	ReadAll(ctx context.Context) ([][]string, error)
	ReplaceAll(ctx context.Context, rows [][]string) error
}
