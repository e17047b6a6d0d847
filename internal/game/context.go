package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/combat"
	"github.com/magefree/mage-commander/internal/game/commander"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/politics"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

const openingHandSize = 7

var (
	ErrNotEnoughPlayers = errors.New("at least 2 players required")
	ErrGameNotFound     = errors.New("game not found")
	ErrGameExists       = errors.New("game already exists")
)

// Settings are the rules-engine knobs.
type Settings struct {
	TickRate                 time.Duration
	ResponseTimeout          time.Duration
	VoteTimeout              time.Duration
	CommanderChoiceTimeout   time.Duration
	StartingLife             int
	CommanderDamageThreshold int
	CommanderTaxIncrement    int
	Seed                     int64
}

// DefaultSettings returns Commander defaults.
func DefaultSettings() Settings {
	return Settings{
		TickRate:                 50 * time.Millisecond,
		ResponseTimeout:          30 * time.Second,
		VoteTimeout:              60 * time.Second,
		CommanderChoiceTimeout:   30 * time.Second,
		StartingLife:             40,
		CommanderDamageThreshold: 21,
		CommanderTaxIncrement:    2,
		Seed:                     1,
	}
}

// PlayerSetup describes one seat: a name, a library and one or two
// commanders.
type PlayerSetup struct {
	Name       string
	Deck       []cards.Card
	Commanders []cards.Card
}

// GameSetup describes a new game. An empty ID is generated.
type GameSetup struct {
	ID      string
	Players []PlayerSetup
}

// Player is a seat in the game.
type Player struct {
	ID                entity.ID
	Name              string
	Life              int
	Eliminated        bool
	EliminationReason string
}

// SimulationContext holds every piece of rules state for one game. Systems
// receive it by reference; nothing else holds game state.
type SimulationContext struct {
	ID string

	settings Settings
	logger   *zap.Logger
	clock    time.Duration
	rng      *rand.Rand
	handles  *entity.Allocator

	players map[entity.ID]*Player
	seating []entity.ID
	cards   map[entity.ID]cards.Card

	turns      *rules.TurnManager
	priority   *rules.PrioritySystem
	stack      *rules.GameStack
	zones      *zones.Manager
	combat     *combat.State
	commanders *commander.Manager
	politics   *politics.System
	bus        *rules.EventBus

	Inbox  Inbox
	Outbox Outbox

	drewFromEmpty entity.Set
	turnStarted   bool
	over          bool
	winner        entity.ID
}

func newContext(id string, settings Settings, logger *zap.Logger) *SimulationContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	if id == "" {
		id = uuid.New().String()
	}
	return &SimulationContext{
		ID:            id,
		settings:      settings,
		logger:        logger.With(zap.String("game_id", id)),
		rng:           rand.New(rand.NewSource(settings.Seed)),
		handles:       entity.NewAllocator(),
		players:       make(map[entity.ID]*Player),
		cards:         make(map[entity.ID]cards.Card),
		stack:         rules.NewGameStack(),
		combat:        combat.New(),
		commanders:    commander.NewManager(settings.CommanderTaxIncrement, settings.CommanderDamageThreshold),
		politics:      politics.New(),
		bus:           rules.NewEventBus(),
		priority:      rules.NewPrioritySystem(settings.ResponseTimeout),
		drewFromEmpty: entity.NewSet(),
	}
}

// NewSimulationContext seats the players, puts commanders in the command
// zone, shuffles libraries with the configured seed, deals opening hands and
// starts turn 1 at the untap step.
func NewSimulationContext(setup GameSetup, settings Settings, logger *zap.Logger) (*SimulationContext, error) {
	if len(setup.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	sc := newContext(setup.ID, settings, logger)

	for _, ps := range setup.Players {
		id := sc.handles.Next()
		name := ps.Name
		if name == "" {
			name = id.String()
		}
		sc.players[id] = &Player{ID: id, Name: name, Life: settings.StartingLife}
		sc.seating = append(sc.seating, id)
	}
	sc.zones = zones.NewManager(sc.seating)

	for i, ps := range setup.Players {
		owner := sc.seating[i]
		for _, def := range ps.Commanders {
			card := sc.newCard(def)
			if _, err := sc.commanders.Register(owner, card, def); err != nil {
				return nil, fmt.Errorf("player %s: %w", sc.players[owner].Name, err)
			}
			if err := sc.zones.Place(card, owner, zones.Command); err != nil {
				return nil, err
			}
		}
		for _, def := range ps.Deck {
			if err := sc.zones.Place(sc.newCard(def), owner, zones.Library); err != nil {
				return nil, err
			}
		}
		if err := sc.zones.Shuffle(owner, sc.rng); err != nil {
			return nil, err
		}
		for n := 0; n < openingHandSize; n++ {
			if _, err := sc.zones.Draw(owner); err != nil {
				break
			}
		}
	}

	sc.turns = rules.NewTurnManager(sc.seating)
	sc.beginTurn()
	sc.enterStep()

	sc.logger.Info("game started",
		zap.Int("players", len(sc.seating)),
		zap.Int("cards", len(sc.cards)),
	)
	return sc, nil
}

func (sc *SimulationContext) newCard(def cards.Card) entity.ID {
	id := sc.handles.Next()
	sc.cards[id] = def
	return id
}

// publish queues a notification and mirrors it on the event bus.
func publish[T any](sc *SimulationContext, q *Queue[T], typ rules.EventType, player entity.ID, v T) {
	q.Push(v)
	var step rules.TurnStep
	turn := 0
	if sc.turns != nil {
		step = sc.turns.Current()
		turn = sc.turns.TurnNumber()
	}
	sc.bus.Publish(rules.Event{Type: typ, Turn: turn, Step: step, Player: player, Payload: v})
}

// Bus returns the game's event bus.
func (sc *SimulationContext) Bus() *rules.EventBus {
	return sc.bus
}

// Clock returns the simulation time.
func (sc *SimulationContext) Clock() time.Duration {
	return sc.clock
}

// Over reports whether the game ended, and the winner if there is one.
func (sc *SimulationContext) Over() (bool, entity.ID) {
	return sc.over, sc.winner
}

// Seating returns every player in seating order, eliminated or not.
func (sc *SimulationContext) Seating() []entity.ID {
	return append([]entity.ID(nil), sc.seating...)
}

// Player returns a copy of a player's record.
func (sc *SimulationContext) Player(id entity.ID) (Player, bool) {
	p, ok := sc.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Card returns the definition of a card.
func (sc *SimulationContext) Card(id entity.ID) (cards.Card, bool) {
	c, ok := sc.cards[id]
	return c, ok
}

// Turn returns the turn number.
func (sc *SimulationContext) Turn() int {
	return sc.turns.TurnNumber()
}

// Step returns the current step.
func (sc *SimulationContext) Step() rules.TurnStep {
	return sc.turns.Current()
}

// ActivePlayer returns the player whose turn it is.
func (sc *SimulationContext) ActivePlayer() entity.ID {
	return sc.turns.ActivePlayer()
}

// PriorityPlayer returns the player holding priority.
func (sc *SimulationContext) PriorityPlayer() entity.ID {
	return sc.priority.PriorityPlayer()
}

// PlayersInGame returns the remaining players starting at the active one.
func (sc *SimulationContext) PlayersInGame() []entity.ID {
	return sc.turns.PlayersInGame()
}

// StackItems returns the stack bottom to top.
func (sc *SimulationContext) StackItems() []rules.StackItem {
	return sc.stack.List()
}

// Zones returns the zone manager for read access.
func (sc *SimulationContext) Zones() *zones.Manager {
	return sc.zones
}

// Commanders returns the commander manager for read access.
func (sc *SimulationContext) Commanders() *commander.Manager {
	return sc.commanders
}

// Politics returns the politics system for read access.
func (sc *SimulationContext) Politics() *politics.System {
	return sc.politics
}

// Combat returns the combat state for read access.
func (sc *SimulationContext) Combat() *combat.State {
	return sc.combat
}

func (sc *SimulationContext) inGame(player entity.ID) bool {
	p, ok := sc.players[player]
	return ok && !p.Eliminated
}
