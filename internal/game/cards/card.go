// Package cards holds the static card data the rules engine needs.
// Rules text is carried for color identity only; it is never interpreted.
package cards

// Card is an immutable card definition.
type Card struct {
	Name      string
	ManaCost  string
	RulesText string
	Types     TypeMask
	Keywords  KeywordMask
	Power     int
	Toughness int
}

// IsCreature reports whether the card is a creature card.
func (c Card) IsCreature() bool {
	return c.Types.Has(TypeCreature)
}

// IsPermanent reports whether the card resolves onto the battlefield.
func (c Card) IsPermanent() bool {
	return c.Types.IsPermanent()
}

// HasInstantTiming reports whether the card may be cast any time its
// controller holds priority.
func (c Card) HasInstantTiming() bool {
	return c.Types.Has(TypeInstant) || c.Keywords.Has(KeywordFlash)
}

// HasFirstStrikeDamage reports whether the card deals damage in the
// first-strike damage pass.
func (c Card) HasFirstStrikeDamage() bool {
	return c.Keywords&(KeywordFirstStrike|KeywordDoubleStrike) != 0
}

// HasRegularDamage reports whether the card deals damage in the regular
// damage pass.
func (c Card) HasRegularDamage() bool {
	return !c.Keywords.Has(KeywordFirstStrike) || c.Keywords.Has(KeywordDoubleStrike)
}

// Placeholder stands in for a card whose definition could not be restored.
func Placeholder() Card {
	return Card{Name: "Unknown Card"}
}
