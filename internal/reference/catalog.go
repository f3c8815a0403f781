// Package reference loads the species master list and exposes it as an
// immutable Catalog of names, ordinals and families.
package reference

import (
	"maps"
	"slices"
	"strings"
	"unicode"
)

// Species is one entry of the master list.
type Species struct {
	Name           string // normalized display name, unique within a Catalog
	Ordinal        int    // 1-based position in the master list
	Family         string
	ScientificName string
}

// Row is a raw master list row before normalization.
type Row struct {
	Name           string
	Family         string
	ScientificName string
}

// Catalog is the immutable species reference. A nil or empty Catalog means
// the reference is unavailable and every name is uncatalogued.
type Catalog struct {
	species       []Species
	nameToOrdinal map[string]int
	nameToFamily  map[string]string
	familyMembers map[string][]string
	families      []string
}

// NewCatalog normalizes rows into a Catalog. Rows with an empty name are
// skipped and repeated names keep their first occurrence, so ordinals are
// always the dense range 1..N in first-seen order.
func NewCatalog(rows []Row) *Catalog {
	c := &Catalog{
		nameToOrdinal: make(map[string]int, len(rows)),
		nameToFamily:  make(map[string]string, len(rows)),
		familyMembers: make(map[string][]string),
	}

	for _, row := range rows {
		name := NormalizeName(row.Name)
		if name == "" {
			continue
		}
		if _, seen := c.nameToOrdinal[name]; seen {
			continue
		}

		family := strings.TrimSpace(row.Family)
		sp := Species{
			Name:           name,
			Ordinal:        len(c.species) + 1,
			Family:         family,
			ScientificName: strings.TrimSpace(row.ScientificName),
		}
		c.species = append(c.species, sp)
		c.nameToOrdinal[name] = sp.Ordinal

		if family == "" {
			continue
		}
		c.nameToFamily[name] = family
		if _, ok := c.familyMembers[family]; !ok {
			c.families = append(c.families, family)
		}
		c.familyMembers[family] = append(c.familyMembers[family], name)
	}
	return c
}

// NormalizeName removes all whitespace and invisible format characters and
// strips trailing punctuation, so "참 새." and "참새" compare equal.
// Closing brackets are kept since they end qualifiers like "(수컷)".
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRightFunc(b.String(), func(r rune) bool {
		switch r {
		case ')', ']', '）':
			return false
		}
		return unicode.IsPunct(r)
	})
}

// Len returns the number of species
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.species)
}

// Empty reports whether the reference is unavailable
func (c *Catalog) Empty() bool {
	return c.Len() == 0
}

// Species returns all species in ordinal order
func (c *Catalog) Species() []Species {
	if c == nil {
		return nil
	}
	return slices.Clone(c.species)
}

// Lookup returns the species with the given name after normalization
func (c *Catalog) Lookup(name string) (Species, bool) {
	if c == nil {
		return Species{}, false
	}
	ordinal, ok := c.nameToOrdinal[NormalizeName(name)]
	if !ok {
		return Species{}, false
	}
	return c.species[ordinal-1], true
}

// Contains reports whether name is catalogued
func (c *Catalog) Contains(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Ordinal returns the catalog number of name
func (c *Catalog) Ordinal(name string) (int, bool) {
	sp, ok := c.Lookup(name)
	return sp.Ordinal, ok
}

// Family returns the family label of name; species without a family report false
func (c *Catalog) Family(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	family, ok := c.nameToFamily[NormalizeName(name)]
	return family, ok
}

// Families returns family labels in order of first appearance
func (c *Catalog) Families() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.families)
}

// Members returns the species of a family in ordinal order
func (c *Catalog) Members(family string) []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.familyMembers[family])
}

// NameToOrdinal returns a copy of the name to ordinal mapping
func (c *Catalog) NameToOrdinal() map[string]int {
	if c == nil {
		return map[string]int{}
	}
	return maps.Clone(c.nameToOrdinal)
}

// NameToFamily returns a copy of the name to family mapping
func (c *Catalog) NameToFamily() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return maps.Clone(c.nameToFamily)
}

// FamilyMembers returns a copy of the family to members mapping
func (c *Catalog) FamilyMembers() map[string][]string {
	out := make(map[string][]string)
	if c == nil {
		return out
	}
	for family, members := range c.familyMembers {
		out[family] = slices.Clone(members)
	}
	return out
}
