package mana

import "strings"

// Color is one of the five colors of mana.
type Color uint8

const (
	White Color = 1 << iota
	Blue
	Black
	Red
	Green
)

var colorOrder = []struct {
	color  Color
	symbol string
}{
	{White, "W"},
	{Blue, "U"},
	{Black, "B"},
	{Red, "R"},
	{Green, "G"},
}

func colorFromSymbol(symbol string) (Color, bool) {
	for _, c := range colorOrder {
		if c.symbol == symbol {
			return c.color, true
		}
	}
	return 0, false
}

// ColorSet is a set of colors stored as a bitmask.
type ColorSet uint8

// With returns the set with c added.
func (s ColorSet) With(c Color) ColorSet {
	return s | ColorSet(c)
}

// Has reports whether c is in the set.
func (s ColorSet) Has(c Color) bool {
	return s&ColorSet(c) != 0
}

// Union returns the union of both sets.
func (s ColorSet) Union(other ColorSet) ColorSet {
	return s | other
}

// SubsetOf reports whether every color in s is also in other.
func (s ColorSet) SubsetOf(other ColorSet) bool {
	return s&^other == 0
}

// Len returns the number of colors in the set.
func (s ColorSet) Len() int {
	n := 0
	for _, c := range colorOrder {
		if s.Has(c.color) {
			n++
		}
	}
	return n
}

// String renders the set in WUBRG order; the empty set is "C".
func (s ColorSet) String() string {
	var b strings.Builder
	for _, c := range colorOrder {
		if s.Has(c.color) {
			b.WriteString(c.symbol)
		}
	}
	if b.Len() == 0 {
		return "C"
	}
	return b.String()
}

// ColorIdentity returns the union of the colors of every mana symbol in the
// mana cost and in the rules text. Unknown symbols in the rules text (such
// as {T} or {Q}) are ignored; a malformed mana cost is an error.
func ColorIdentity(manaCost, rulesText string) (ColorSet, error) {
	cost, err := ParseCost(manaCost)
	if err != nil {
		return 0, err
	}
	identity := cost.Colors()

	for _, match := range symbolPattern.FindAllStringSubmatch(rulesText, -1) {
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))
		for _, part := range strings.Split(symbol, "/") {
			if c, ok := colorFromSymbol(part); ok {
				identity = identity.With(c)
			}
		}
	}
	return identity, nil
}
