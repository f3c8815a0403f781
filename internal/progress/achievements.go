package progress

import (
	"cmp"
	"slices"

	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// Snapshot is the input every achievement predicate sees.
type Snapshot struct {
	Species  map[string]struct{} // collected species names
	ByFamily map[string]int      // collected species per catalog family
	Catalog  *reference.Catalog
}

// Has reports whether name was collected
func (s Snapshot) Has(name string) bool {
	_, ok := s.Species[reference.NormalizeName(name)]
	return ok
}

// NewSnapshot builds the predicate input from a sighting set
func NewSnapshot(sightings []sighting.Sighting, catalog *reference.Catalog) Snapshot {
	snap := Snapshot{
		Species:  make(map[string]struct{}, len(sightings)),
		ByFamily: make(map[string]int),
		Catalog:  catalog,
	}
	for _, sg := range uniqueSightings(sightings) {
		snap.Species[sg.SpeciesName] = struct{}{}
		if family, ok := catalog.Family(sg.SpeciesName); ok {
			snap.ByFamily[family]++
		}
	}
	return snap
}

// Predicate decides whether an achievement holds for a snapshot
type Predicate func(Snapshot) bool

// Definition is a static achievement.
type Definition struct {
	Name        string
	Description string
	Tier        Tier
	Rank        int // display order; lower first
	Predicate   Predicate
}

// CountAtLeast holds when at least n species were collected
func CountAtLeast(n int) Predicate {
	return func(s Snapshot) bool { return len(s.Species) >= n }
}

// FamilyCountAtLeast holds when at least n species of family were collected
func FamilyCountAtLeast(family string, n int) Predicate {
	return func(s Snapshot) bool { return s.ByFamily[family] >= n }
}

// DistinctFamiliesAtLeast holds when species from at least n families were collected
func DistinctFamiliesAtLeast(n int) Predicate {
	return func(s Snapshot) bool { return len(s.ByFamily) >= n }
}

// MembersAtLeast holds when at least n of the given species were collected.
func MembersAtLeast(members []string, n int) Predicate {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[reference.NormalizeName(m)] = struct{}{}
	}
	return func(s Snapshot) bool {
		count := 0
		for name := range set {
			if _, ok := s.Species[name]; ok {
				count++
			}
		}
		return count >= n
	}
}

// FirstSightingName is the achievement unlocked by the first sighting.
const FirstSightingName = "첫 만남"

// DefaultDefinitions returns the built-in achievements. Rarity-based badges
// use the members of each tier in rarity.
func DefaultDefinitions(rarity RarityTable) []Definition {
	defs := []Definition{
		{Name: FirstSightingName, Description: "첫 번째 새를 기록했습니다", Tier: TierCommon, Rank: 10, Predicate: CountAtLeast(1)},
		{Name: "초보 탐조가", Description: "10종을 기록했습니다", Tier: TierCommon, Rank: 20, Predicate: CountAtLeast(10)},
		{Name: "숙련 탐조가", Description: "50종을 기록했습니다", Tier: TierRare, Rank: 30, Predicate: CountAtLeast(50)},
		{Name: "탐조 마스터", Description: "100종을 기록했습니다", Tier: TierEpic, Rank: 40, Predicate: CountAtLeast(100)},
		{Name: "다양성 탐험가", Description: "5개 과의 새를 기록했습니다", Tier: TierRare, Rank: 50, Predicate: DistinctFamiliesAtLeast(5)},
		{Name: "참새 친구", Description: "참새과 3종을 기록했습니다", Tier: TierCommon, Rank: 60, Predicate: FamilyCountAtLeast("참새과", 3)},
		{Name: "물새 관찰자", Description: "오리과 5종을 기록했습니다", Tier: TierRare, Rank: 70, Predicate: FamilyCountAtLeast("오리과", 5)},
	}

	rarityBadges := []struct {
		tier        Tier
		name        string
		description string
		rank        int
	}{
		{TierRare, "희귀종 발견", "희귀 등급의 새를 기록했습니다", 80},
		{TierEpic, "영웅의 눈", "영웅 등급의 새를 기록했습니다", 90},
		{TierLegendary, "전설의 목격자", "전설 등급의 새를 기록했습니다", 100},
	}
	for _, b := range rarityBadges {
		members := rarity.Members(b.tier)
		if len(members) == 0 {
			continue
		}
		defs = append(defs, Definition{
			Name:        b.name,
			Description: b.description,
			Tier:        b.tier,
			Rank:        b.rank,
			Predicate:   MembersAtLeast(members, 1),
		})
	}
	return defs
}

// ComputeAchievements evaluates every definition independently against the
// full sighting set and returns the satisfied names ordered by rank, then
// name. Unlocks are not sticky: removing sightings can remove achievements.
func ComputeAchievements(sightings []sighting.Sighting, catalog *reference.Catalog, defs []Definition) []string {
	snap := NewSnapshot(sightings, catalog)

	unlocked := make([]Definition, 0, len(defs))
	for _, def := range defs {
		if def.Predicate != nil && def.Predicate(snap) {
			unlocked = append(unlocked, def)
		}
	}
	slices.SortFunc(unlocked, func(a, b Definition) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), cmp.Compare(a.Name, b.Name))
	})

	names := make([]string, 0, len(unlocked))
	for _, def := range unlocked {
		if len(names) > 0 && names[len(names)-1] == def.Name {
			continue
		}
		names = append(names, def.Name)
	}
	return names
}

// NewlyUnlocked returns the names in current that are not in previous, in
// current's order.
func NewlyUnlocked(previous, current []string) []string {
	seen := make(map[string]struct{}, len(previous))
	for _, name := range previous {
		seen[name] = struct{}{}
	}
	var out []string
	for _, name := range current {
		if _, ok := seen[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Lookup finds a definition by name
func Lookup(defs []Definition, name string) (Definition, bool) {
	i := slices.IndexFunc(defs, func(d Definition) bool { return d.Name == name })
	if i < 0 {
		return Definition{}, false
	}
	return defs[i], true
}
