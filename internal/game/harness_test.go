package game

import (
	"fmt"
	"testing"

	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	forest = cards.Card{Name: "Forest", Types: cards.TypeLand}
	bears  = cards.Card{Name: "Grizzly Bears", ManaCost: "{1}{G}", Types: cards.TypeCreature, Power: 2, Toughness: 2}
	shock  = cards.Card{Name: "Shock", ManaCost: "{R}", Types: cards.TypeInstant}
	ponder = cards.Card{Name: "Divination", ManaCost: "{2}{U}", Types: cards.TypeSorcery}
)

func legend(name, cost string, power, toughness int) cards.Card {
	return cards.Card{
		Name:      name,
		ManaCost:  cost,
		Types:     cards.TypeLegendary | cards.TypeCreature,
		Power:     power,
		Toughness: toughness,
	}
}

func deckOf(def cards.Card, n int) []cards.Card {
	deck := make([]cards.Card, n)
	for i := range deck {
		deck[i] = def
	}
	return deck
}

// harness drives one SimulationContext directly.
type harness struct {
	t       *testing.T
	sc      *SimulationContext
	players []entity.ID
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Seed = 7
	return s
}

func testSetup(n int) GameSetup {
	names := []string{"alice", "bob", "carol", "dave", "erin"}
	setup := GameSetup{ID: "game-test"}
	for i := 0; i < n; i++ {
		setup.Players = append(setup.Players, PlayerSetup{
			Name:       names[i],
			Deck:       deckOf(forest, 30),
			Commanders: []cards.Card{legend(fmt.Sprintf("Commander %d", i), "{2}{G}", 3, 3)},
		})
	}
	return setup
}

func newHarness(t *testing.T, n int) *harness {
	return newHarnessWith(t, testSetup(n), testSettings())
}

func newHarnessWith(t *testing.T, setup GameSetup, settings Settings) *harness {
	t.Helper()
	sc, err := NewSimulationContext(setup, settings, zaptest.NewLogger(t))
	require.NoError(t, err)
	return &harness{t: t, sc: sc, players: sc.Seating()}
}

// give creates a card in zone for owner. Permanents enter untapped and
// without summoning sickness.
func (h *harness) give(owner entity.ID, def cards.Card, zone zones.Zone) entity.ID {
	h.t.Helper()
	card := h.sc.newCard(def)
	require.NoError(h.t, h.sc.zones.Place(card, owner, zone))
	if zone == zones.Battlefield {
		perm, ok := h.sc.zones.Permanent(card)
		require.True(h.t, ok)
		perm.SummoningSick = false
		require.NoError(h.t, h.sc.zones.RestorePermanent(perm))
	}
	return card
}

func (h *harness) submit(intents ...any) {
	h.t.Helper()
	for _, in := range intents {
		require.NoError(h.t, h.sc.Inbox.Submit(in))
	}
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.sc.Tick()
	}
}

// passRound has every player pass in rotation order, starting with the
// current holder, and runs one tick.
func (h *harness) passRound() {
	order := h.sc.priority.PlayerOrder()
	start := 0
	for i, p := range order {
		if p == h.sc.PriorityPlayer() {
			start = i
			break
		}
	}
	for i := range order {
		h.submit(PassPriorityEvent{Player: order[(start+i)%len(order)]})
	}
	h.tick(1)
}

// advanceTo passes priority until the game reaches step of turn.
func (h *harness) advanceTo(turn int, step rules.Step) {
	h.t.Helper()
	for i := 0; i < 200; i++ {
		if h.sc.Turn() == turn && h.sc.Step().Step == step {
			return
		}
		if over, _ := h.sc.Over(); over {
			break
		}
		h.passRound()
	}
	require.FailNowf(h.t, "step not reached", "wanted turn %d %s, at turn %d %s", turn, step, h.sc.Turn(), h.sc.Step())
}

func (h *harness) life(p entity.ID) int {
	player, _ := h.sc.Player(p)
	return player.Life
}

func (h *harness) commanderOf(p entity.ID) entity.ID {
	h.t.Helper()
	cmds := h.sc.commanders.CommandersOf(p)
	require.NotEmpty(h.t, cmds)
	return cmds[0]
}

// deploy moves a commander from the command zone onto the battlefield,
// ready to attack.
func (h *harness) deploy(card entity.ID) {
	h.t.Helper()
	owner, ok := h.sc.zones.CardOwner(card)
	require.True(h.t, ok)
	require.NoError(h.t, h.sc.moveCard(card, owner, zones.Command, zones.Battlefield, false))
	perm, _ := h.sc.zones.Permanent(card)
	perm.SummoningSick = false
	require.NoError(h.t, h.sc.zones.RestorePermanent(perm))
}

// attack declares attackers and runs combat through the damage step.
func (h *harness) attack(declarations ...AttackerDeclaredEvent) {
	h.t.Helper()
	h.advanceTo(h.sc.Turn(), rules.StepDeclareAttackers)
	for _, d := range declarations {
		h.submit(d)
	}
	h.tick(1)
	h.passRound()
}
