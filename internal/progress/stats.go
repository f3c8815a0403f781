package progress

import (
	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// Stats summarizes a sighting set against the catalog.
type Stats struct {
	Total        int // every sighting, catalogued or not
	Catalogued   int
	Uncatalogued int
	CatalogSize  int

	// ByFamily counts sightings per family. Only families known to the
	// catalog appear; sightings without a family count toward Total only.
	ByFamily map[string]int
	// FamilyTotals is the number of catalog species per family.
	FamilyTotals map[string]int
	RarityCounts map[Tier]int

	// ProgressPercent is Catalogued / CatalogSize * 100, clamped to
	// [0, 100]. An empty catalog reports 0.
	ProgressPercent float64
}

// ComputeStats derives Stats from sightings.
func ComputeStats(sightings []sighting.Sighting, catalog *reference.Catalog, rarity RarityTable) Stats {
	st := Stats{
		CatalogSize:  catalog.Len(),
		ByFamily:     make(map[string]int),
		FamilyTotals: make(map[string]int),
		RarityCounts: make(map[Tier]int, len(Tiers)),
	}
	for family, members := range catalog.FamilyMembers() {
		st.FamilyTotals[family] = len(members)
	}

	for _, sg := range uniqueSightings(sightings) {
		st.Total++
		if catalog.Contains(sg.SpeciesName) {
			st.Catalogued++
		} else {
			st.Uncatalogued++
		}
		if family, ok := catalog.Family(sg.SpeciesName); ok {
			st.ByFamily[family]++
		}
		st.RarityCounts[rarity.Tier(sg.SpeciesName)]++
	}

	st.ProgressPercent = percent(st.Catalogued, st.CatalogSize)
	return st
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	p := float64(part) / float64(whole) * 100
	return min(max(p, 0), 100)
}

// uniqueSightings drops empty and repeated names, keeping the first.
func uniqueSightings(sightings []sighting.Sighting) []sighting.Sighting {
	seen := make(map[string]struct{}, len(sightings))
	out := make([]sighting.Sighting, 0, len(sightings))
	for _, sg := range sightings {
		name := reference.NormalizeName(sg.SpeciesName)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		sg.SpeciesName = name
		out = append(out, sg)
	}
	return out
}
