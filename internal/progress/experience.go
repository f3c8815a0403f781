package progress

import (
	"github.com/turtleson01/bird-app/internal/sighting"
)

// DefaultXPPerLevel is used when XPConfig.XPPerLevel is not positive
const DefaultXPPerLevel = 100

// XPConfig weights experience
type XPConfig struct {
	PerTier          map[Tier]int // xp per sighting; missing tiers use the common value
	AchievementBonus int          // flat xp per unlocked achievement
	XPPerLevel       int
}

// DefaultXPConfig returns the stock weights
func DefaultXPConfig() XPConfig {
	return XPConfig{
		PerTier: map[Tier]int{
			TierCommon:    10,
			TierRare:      30,
			TierEpic:      60,
			TierLegendary: 100,
		},
		AchievementBonus: 50,
		XPPerLevel:       DefaultXPPerLevel,
	}
}

// XPConfigFromSettings converts configured tier names to an XPConfig
func XPConfigFromSettings(perTier map[string]int, bonus, perLevel int) XPConfig {
	cfg := XPConfig{
		PerTier:          make(map[Tier]int, len(perTier)),
		AchievementBonus: bonus,
		XPPerLevel:       perLevel,
	}
	for name, xp := range perTier {
		if tier := Tier(name); tier.Valid() {
			cfg.PerTier[tier] = xp
		}
	}
	return cfg
}

func (c XPConfig) forTier(t Tier) int {
	if xp, ok := c.PerTier[t]; ok {
		return xp
	}
	return c.PerTier[TierCommon]
}

// Experience is the derived level state. It is never stored, and Level can
// go down after sightings are deleted.
type Experience struct {
	TotalXP    int
	Level      int
	XPInLevel  int
	XPPerLevel int
}

// LevelPercent is the progress through the current level in [0, 100]
func (e Experience) LevelPercent() float64 {
	return percent(e.XPInLevel, e.XPPerLevel)
}

// ComputeExperience sums rarity-weighted sighting xp and the achievement bonus.
func ComputeExperience(sightings []sighting.Sighting, achievements []string, rarity RarityTable, cfg XPConfig) Experience {
	perLevel := cfg.XPPerLevel
	if perLevel <= 0 {
		perLevel = DefaultXPPerLevel
	}

	total := 0
	for _, sg := range uniqueSightings(sightings) {
		total += cfg.forTier(rarity.Tier(sg.SpeciesName))
	}
	total += len(achievements) * cfg.AchievementBonus
	total = max(total, 0)

	return Experience{
		TotalXP:    total,
		Level:      total/perLevel + 1,
		XPInLevel:  total % perLevel,
		XPPerLevel: perLevel,
	}
}
