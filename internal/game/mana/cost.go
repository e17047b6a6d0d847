package mana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// symbolPattern matches mana symbols: {1}, {G}, {X}, {W/U}, {G/P}, etc.
var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ManaCost represents a parsed mana cost.
type ManaCost struct {
	Generic   int
	White     int
	Blue      int
	Black     int
	Red       int
	Green     int
	Colorless int
	X         bool // X in cost (e.g., {X}{R})
	Hybrid    []HybridCost
}

// HybridCost represents a hybrid or phyrexian symbol (e.g., {W/U}, {2/B}, {G/P}).
// Colors holds every color that appears in the symbol.
type HybridCost struct {
	Symbol string
	Colors ColorSet
}

// ParseCost parses a mana cost string (e.g., "{1}{G}", "{2}{R}{R}", "{X}{R}").
// Supports:
// - Generic: {1}, {2}, {3}, etc.
// - Colored: {W}, {U}, {B}, {R}, {G}, {C}
// - X costs: {X}
// - Hybrid and phyrexian: {W/U}, {2/B}, {G/P}
func ParseCost(costStr string) (*ManaCost, error) {
	if costStr == "" {
		return &ManaCost{}, nil
	}

	cost := &ManaCost{}
	for _, match := range symbolPattern.FindAllStringSubmatch(costStr, -1) {
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))

		switch symbol {
		case "X":
			cost.X = true
		case "W":
			cost.White++
		case "U":
			cost.Blue++
		case "B":
			cost.Black++
		case "R":
			cost.Red++
		case "G":
			cost.Green++
		case "C":
			cost.Colorless++
		default:
			if num, err := strconv.Atoi(symbol); err == nil {
				cost.Generic += num
			} else if strings.Contains(symbol, "/") {
				hybrid, err := parseHybridCost(symbol)
				if err != nil {
					return nil, err
				}
				cost.Hybrid = append(cost.Hybrid, hybrid)
			} else {
				return nil, fmt.Errorf("unknown mana symbol: {%s}", symbol)
			}
		}
	}

	return cost, nil
}

// parseHybridCost parses a hybrid mana symbol like "W/U", "2/B" or "G/P".
func parseHybridCost(symbol string) (HybridCost, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) < 2 {
		return HybridCost{}, fmt.Errorf("malformed hybrid symbol: {%s}", symbol)
	}
	hybrid := HybridCost{Symbol: symbol}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if c, ok := colorFromSymbol(part); ok {
			hybrid.Colors = hybrid.Colors.With(c)
			continue
		}
		if part == "P" || part == "C" {
			continue
		}
		if _, err := strconv.Atoi(part); err != nil {
			return HybridCost{}, fmt.Errorf("malformed hybrid symbol: {%s}", symbol)
		}
	}
	return hybrid, nil
}

// String returns the canonical string representation of the mana cost.
func (mc *ManaCost) String() string {
	var b strings.Builder

	if mc.X {
		b.WriteString("{X}")
	}
	if mc.Generic > 0 {
		fmt.Fprintf(&b, "{%d}", mc.Generic)
	}
	for _, sym := range []struct {
		count  int
		symbol string
	}{
		{mc.White, "{W}"},
		{mc.Blue, "{U}"},
		{mc.Black, "{B}"},
		{mc.Red, "{R}"},
		{mc.Green, "{G}"},
		{mc.Colorless, "{C}"},
	} {
		for i := 0; i < sym.count; i++ {
			b.WriteString(sym.symbol)
		}
	}
	for _, hybrid := range mc.Hybrid {
		fmt.Fprintf(&b, "{%s}", hybrid.Symbol)
	}
	if b.Len() == 0 && !mc.X {
		return "{0}"
	}
	return b.String()
}

// ManaValue returns the converted mana value of the cost (X counts as zero).
func (mc *ManaCost) ManaValue() int {
	total := mc.Generic + mc.White + mc.Blue + mc.Black + mc.Red + mc.Green + mc.Colorless
	for _, hybrid := range mc.Hybrid {
		if n, err := strconv.Atoi(strings.SplitN(hybrid.Symbol, "/", 2)[0]); err == nil {
			total += n
			continue
		}
		total++
	}
	return total
}

// Colors returns the colors of the mana symbols in the cost.
func (mc *ManaCost) Colors() ColorSet {
	var set ColorSet
	if mc.White > 0 {
		set = set.With(White)
	}
	if mc.Blue > 0 {
		set = set.With(Blue)
	}
	if mc.Black > 0 {
		set = set.With(Black)
	}
	if mc.Red > 0 {
		set = set.With(Red)
	}
	if mc.Green > 0 {
		set = set.With(Green)
	}
	for _, hybrid := range mc.Hybrid {
		set = set.Union(hybrid.Colors)
	}
	return set
}

// WithAdditionalGeneric returns a copy of the cost with extra generic mana.
// Colored requirements are left unchanged.
func (mc *ManaCost) WithAdditionalGeneric(amount int) *ManaCost {
	increased := *mc
	increased.Hybrid = append([]HybridCost(nil), mc.Hybrid...)
	if amount > 0 {
		increased.Generic += amount
	}
	return &increased
}
