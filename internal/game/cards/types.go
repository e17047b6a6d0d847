package cards

import (
	"fmt"
	"strings"
)

// TypeMask is a fixed-width bitset of card types and supertypes.
// Bit positions are persisted in snapshots and must not be reordered.
type TypeMask uint16

const (
	TypeCreature TypeMask = 1 << iota
	TypeArtifact
	TypeEnchantment
	TypeLand
	TypePlaneswalker
	TypeInstant
	TypeSorcery
	TypeBattle
	TypeLegendary
	TypeBackground
)

// permanentTypes are the types whose spells resolve onto the battlefield.
const permanentTypes = TypeCreature | TypeArtifact | TypeEnchantment | TypeLand | TypePlaneswalker | TypeBattle

var typeNames = []struct {
	mask TypeMask
	name string
}{
	{TypeLegendary, "Legendary"},
	{TypeArtifact, "Artifact"},
	{TypeEnchantment, "Enchantment"},
	{TypeBackground, "Background"},
	{TypeLand, "Land"},
	{TypeCreature, "Creature"},
	{TypePlaneswalker, "Planeswalker"},
	{TypeBattle, "Battle"},
	{TypeInstant, "Instant"},
	{TypeSorcery, "Sorcery"},
}

// Has reports whether every bit in other is set.
func (m TypeMask) Has(other TypeMask) bool {
	return other != 0 && m&other == other
}

// IsPermanent reports whether a card with these types is a permanent card.
func (m TypeMask) IsPermanent() bool {
	return m&permanentTypes != 0
}

func (m TypeMask) String() string {
	parts := make([]string, 0, 4)
	for _, tn := range typeNames {
		if m&tn.mask != 0 {
			parts = append(parts, tn.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseTypes parses a type line such as "Legendary Creature".
// Subtypes after a dash are ignored.
func ParseTypes(line string) (TypeMask, error) {
	if idx := strings.IndexAny(line, "-—"); idx >= 0 {
		line = line[:idx]
	}
	var mask TypeMask
	for _, word := range strings.Fields(line) {
		found := false
		for _, tn := range typeNames {
			if strings.EqualFold(word, tn.name) {
				mask |= tn.mask
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown card type %q", word)
		}
	}
	return mask, nil
}

// KeywordMask is a fixed-width bitset of the keyword abilities the rules
// engine models structurally.
type KeywordMask uint16

const (
	KeywordFirstStrike KeywordMask = 1 << iota
	KeywordDoubleStrike
	KeywordVigilance
	KeywordHaste
	KeywordTrample
	KeywordFlash
	KeywordPartner
)

var keywordNames = []struct {
	mask KeywordMask
	name string
}{
	{KeywordFirstStrike, "First strike"},
	{KeywordDoubleStrike, "Double strike"},
	{KeywordVigilance, "Vigilance"},
	{KeywordHaste, "Haste"},
	{KeywordTrample, "Trample"},
	{KeywordFlash, "Flash"},
	{KeywordPartner, "Partner"},
}

// Has reports whether every bit in other is set.
func (m KeywordMask) Has(other KeywordMask) bool {
	return other != 0 && m&other == other
}

func (m KeywordMask) String() string {
	parts := make([]string, 0, 2)
	for _, kn := range keywordNames {
		if m&kn.mask != 0 {
			parts = append(parts, kn.name)
		}
	}
	return strings.Join(parts, ", ")
}
