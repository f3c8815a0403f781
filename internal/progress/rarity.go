// Package progress derives statistics, achievements and experience from the
// current sighting set. Everything here is recomputed from scratch on every
// call; nothing is remembered between calls.
package progress

import (
	"slices"

	"github.com/turtleson01/bird-app/internal/reference"
)

// Tier is a rarity band
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// Tiers lists every tier from most to least common
var Tiers = []Tier{TierCommon, TierRare, TierEpic, TierLegendary}

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	return slices.Contains(Tiers, t)
}

// Label returns the Korean display label
func (t Tier) Label() string {
	switch t {
	case TierRare:
		return "희귀"
	case TierEpic:
		return "영웅"
	case TierLegendary:
		return "전설"
	default:
		return "일반"
	}
}

// RarityTable maps species names to their tier. Species not listed are common.
type RarityTable map[string]Tier

// NewRarityTable builds a table from tier name -> species names, as found in
// configuration. Unknown tiers are ignored; a species listed under several
// tiers keeps the rarest.
func NewRarityTable(byTier map[string][]string) RarityTable {
	table := make(RarityTable)
	for name, species := range byTier {
		tier := Tier(name)
		if !tier.Valid() {
			continue
		}
		for _, sp := range species {
			key := reference.NormalizeName(sp)
			if key == "" {
				continue
			}
			if current, ok := table[key]; ok && tierRank(current) >= tierRank(tier) {
				continue
			}
			table[key] = tier
		}
	}
	return table
}

// Tier returns the tier of a species
func (r RarityTable) Tier(name string) Tier {
	if tier, ok := r[reference.NormalizeName(name)]; ok {
		return tier
	}
	return TierCommon
}

// Members returns the species of a tier in name order
func (r RarityTable) Members(tier Tier) []string {
	var out []string
	for name, t := range r {
		if t == tier {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func tierRank(t Tier) int {
	return slices.Index(Tiers, t)
}
