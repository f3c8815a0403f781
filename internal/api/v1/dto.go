package v1

import (
	"strconv"
	"time"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/progress"
	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// SpeciesResponse is a catalog species
type SpeciesResponse struct {
	Ordinal        int    `json:"ordinal"`
	Name           string `json:"name"`
	Family         string `json:"family"`
	ScientificName string `json:"scientific_name,omitempty"`
	Rarity         string `json:"rarity"`
	RarityLabel    string `json:"rarity_label"`
	Summary        string `json:"summary,omitempty"`
}

func speciesResponse(sp reference.Species, tier progress.Tier) SpeciesResponse {
	return SpeciesResponse{
		Ordinal:        sp.Ordinal,
		Name:           sp.Name,
		Family:         sp.Family,
		ScientificName: sp.ScientificName,
		Rarity:         string(tier),
		RarityLabel:    tier.Label(),
	}
}

// SightingResponse is a recorded sighting
type SightingResponse struct {
	Species    string    `json:"species"`
	Ordinal    *int      `json:"ordinal"` // null for uncatalogued species
	Catalogued bool      `json:"catalogued"`
	Sex        string    `json:"sex"`
	SexLabel   string    `json:"sex_label"`
	RecordedAt time.Time `json:"recorded_at"`
	Lat        *float64  `json:"lat,omitempty"`
	Lon        *float64  `json:"lon,omitempty"`
	Place      string    `json:"place,omitempty"`
}

func sightingResponse(s sighting.Sighting) SightingResponse {
	r := SightingResponse{
		Species:    s.SpeciesName,
		Catalogued: s.Catalogued,
		Sex:        string(s.Sex),
		SexLabel:   s.Sex.Label(),
		RecordedAt: s.RecordedAt,
		Lat:        s.Location.Lat,
		Lon:        s.Location.Lon,
		Place:      s.Location.Place,
	}
	if s.Catalogued {
		ordinal := s.Ordinal
		r.Ordinal = &ordinal
	}
	return r
}

// CreateSightingRequest is the body of POST /sightings
type CreateSightingRequest struct {
	Name     string   `json:"name"`
	Sex      string   `json:"sex"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Location string   `json:"location"`
	// Known lists achievements the client has already shown. Omit it to
	// compare with the state before the save.
	Known []string `json:"known"`
}

func (r CreateSightingRequest) toSave() logbook.SaveRequest {
	return logbook.SaveRequest{
		SaveRequest: sighting.SaveRequest{
			Name:     r.Name,
			Sex:      sighting.ParseSex(r.Sex),
			Location: sighting.Location{Lat: r.Lat, Lon: r.Lon, Place: r.Location},
		},
		Known: r.Known,
	}
}

// CreateSightingResponse reports the saved sighting and what it unlocked
type CreateSightingResponse struct {
	Sighting     SightingResponse   `json:"sighting"`
	Achievements []string           `json:"achievements"`
	Unlocked     []string           `json:"unlocked"`
	Experience   ExperienceResponse `json:"experience"`
}

// DeleteRequest is the body of DELETE /sightings
type DeleteRequest struct {
	Names []string `json:"names"`
}

// DeleteResponse reports how many rows were removed
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ExperienceResponse is the derived level state
type ExperienceResponse struct {
	TotalXP      int     `json:"total_xp"`
	Level        int     `json:"level"`
	XPInLevel    int     `json:"xp_in_level"`
	XPPerLevel   int     `json:"xp_per_level"`
	LevelPercent float64 `json:"level_percent"`
}

func experienceResponse(e progress.Experience) ExperienceResponse {
	return ExperienceResponse{
		TotalXP:      e.TotalXP,
		Level:        e.Level,
		XPInLevel:    e.XPInLevel,
		XPPerLevel:   e.XPPerLevel,
		LevelPercent: e.LevelPercent(),
	}
}

// AchievementResponse is an achievement definition
type AchievementResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
}

func achievementResponses(defs []progress.Definition) []AchievementResponse {
	out := make([]AchievementResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, AchievementResponse{Name: d.Name, Description: d.Description, Tier: string(d.Tier)})
	}
	return out
}

// FamilyProgress is the per-family collection count
type FamilyProgress struct {
	Family    string `json:"family"`
	Collected int    `json:"collected"`
	Total     int    `json:"total"`
}

// StatsResponse is the body of GET /stats
type StatsResponse struct {
	Total           int                   `json:"total"`
	Catalogued      int                   `json:"catalogued"`
	Uncatalogued    int                   `json:"uncatalogued"`
	CatalogSize     int                   `json:"catalog_size"`
	ProgressPercent float64               `json:"progress_percent"`
	Families        []FamilyProgress      `json:"families"`
	Rarity          map[string]int        `json:"rarity"`
	Achievements    []AchievementResponse `json:"achievements"`
	Locked          []AchievementResponse `json:"locked"`
	Experience      ExperienceResponse    `json:"experience"`
}

func statsResponse(p logbook.Progress, families []string) StatsResponse {
	r := StatsResponse{
		Total:           p.Stats.Total,
		Catalogued:      p.Stats.Catalogued,
		Uncatalogued:    p.Stats.Uncatalogued,
		CatalogSize:     p.Stats.CatalogSize,
		ProgressPercent: p.Stats.ProgressPercent,
		Families:        make([]FamilyProgress, 0, len(families)),
		Rarity:          make(map[string]int, len(progress.Tiers)),
		Achievements:    achievementResponses(p.Achievements),
		Locked:          achievementResponses(p.Locked),
		Experience:      experienceResponse(p.Experience),
	}
	for _, f := range families {
		r.Families = append(r.Families, FamilyProgress{
			Family:    f,
			Collected: p.Stats.ByFamily[f],
			Total:     p.Stats.FamilyTotals[f],
		})
	}
	for _, t := range progress.Tiers {
		r.Rarity[string(t)] = p.Stats.RarityCounts[t]
	}
	return r
}

// DexEntryResponse is one cell of the collection grid
type DexEntryResponse struct {
	SpeciesResponse
	Collected bool              `json:"collected"`
	Sighting  *SightingResponse `json:"sighting,omitempty"`
	SpriteURL string            `json:"sprite_url,omitempty"`
}

func dexEntryResponse(e logbook.DexEntry) DexEntryResponse {
	r := DexEntryResponse{
		SpeciesResponse: SpeciesResponse{
			Ordinal:        e.Ordinal,
			Name:           e.Name,
			Family:         e.Family,
			ScientificName: e.ScientificName,
			Rarity:         string(e.Rarity),
			RarityLabel:    e.Rarity.Label(),
		},
		Collected: e.Collected,
	}
	if e.Sighting != nil {
		s := sightingResponse(*e.Sighting)
		r.Sighting = &s
	}
	if e.SpritePath != "" {
		r.SpriteURL = SpriteURLPrefix + "/" + strconv.Itoa(e.Ordinal) + ".png"
	}
	return r
}

// MapPointResponse is a sighting with coordinates
type MapPointResponse struct {
	Species    string    `json:"species"`
	Ordinal    int       `json:"ordinal"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Place      string    `json:"place,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IdentifyResult is the answer for one uploaded photo
type IdentifyResult struct {
	Image       string `json:"image"`
	Name        string `json:"name"`
	Rationale   string `json:"rationale"`
	Outcome     string `json:"outcome"`
	Registrable bool   `json:"registrable"`
	Error       string `json:"error,omitempty"`
}

func identifyResult(img identify.Image, r identify.Result) IdentifyResult {
	out := IdentifyResult{
		Image:       img.Name,
		Name:        r.Name,
		Rationale:   r.Rationale,
		Outcome:     r.Outcome.String(),
		Registrable: r.Registrable(),
	}
	if r.Err != nil {
		out.Error = errors.ScrubMessage(r.Err.Error())
	}
	return out
}
