package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/magefree/mage-commander/internal/game"
	"github.com/magefree/mage-commander/internal/game/cards"
)

const deckSize = 60

var keywordRoll = []cards.KeywordMask{
	0, 0, 0,
	cards.KeywordHaste,
	cards.KeywordVigilance,
	cards.KeywordTrample,
	cards.KeywordFirstStrike,
	cards.KeywordDoubleStrike,
}

var colors = []string{"W", "U", "B", "R", "G"}

// generatedPool builds a small set of vanilla creatures, lands and spells.
func generatedPool(rng *rand.Rand) []cards.Card {
	pool := []cards.Card{
		{Name: "Forest", Types: cards.TypeLand},
		{Name: "Mountain", Types: cards.TypeLand},
		{Name: "Command Tower", Types: cards.TypeLand},
		{Name: "Lightning Bolt", ManaCost: "{R}", Types: cards.TypeInstant},
		{Name: "Divination", ManaCost: "{2}{U}", Types: cards.TypeSorcery},
		{Name: "Sol Ring", ManaCost: "{1}", Types: cards.TypeArtifact},
	}
	for i := 0; i < 24; i++ {
		power := 1 + rng.Intn(5)
		pool = append(pool, cards.Card{
			Name:      fmt.Sprintf("Token Beast %d", i+1),
			ManaCost:  fmt.Sprintf("{%d}{%s}", power-1, colors[rng.Intn(len(colors))]),
			Types:     cards.TypeCreature,
			Keywords:  keywordRoll[rng.Intn(len(keywordRoll))],
			Power:     power,
			Toughness: 1 + rng.Intn(5),
		})
	}
	return pool
}

// loadPool reads a card export, falling back to a generated pool.
func loadPool(path string, rng *rand.Rand) ([]cards.Card, int, error) {
	if path == "" {
		return generatedPool(rng), 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open card pool: %w", err)
	}
	defer f.Close()
	pool, skipped, err := cards.LoadCSV(f)
	if err != nil {
		return nil, 0, err
	}
	if len(pool) == 0 {
		return nil, skipped, fmt.Errorf("card pool %s has no usable cards", path)
	}
	return pool, skipped, nil
}

// buildSetup deals every player a deck from the pool and a generated
// commander.
func buildSetup(names []string, pool []cards.Card, rng *rand.Rand) game.GameSetup {
	var setup game.GameSetup
	for i, name := range names {
		deck := make([]cards.Card, deckSize)
		for j := range deck {
			deck[j] = pool[rng.Intn(len(pool))]
		}
		setup.Players = append(setup.Players, game.PlayerSetup{
			Name: name,
			Deck: deck,
			Commanders: []cards.Card{{
				Name:      fmt.Sprintf("%s's Champion", name),
				ManaCost:  fmt.Sprintf("{3}{%s}", colors[i%len(colors)]),
				Types:     cards.TypeLegendary | cards.TypeCreature,
				Keywords:  keywordRoll[rng.Intn(len(keywordRoll))],
				Power:     3 + rng.Intn(4),
				Toughness: 3 + rng.Intn(4),
			}},
		})
	}
	return setup
}
