// Package commander implements commander tax, color identity, commander
// damage and the command-zone replacement choice.
package commander

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/mana"
	"github.com/magefree/mage-commander/internal/game/zones"
)

// Location is where a commander currently is.
type Location int

const (
	InCommandZone Location = iota
	OnBattlefield
	InGraveyard
	InExile
	InHand
	OnStack
	InLibrary
)

var locationNames = map[Location]string{
	InCommandZone: "COMMAND_ZONE",
	OnBattlefield: "BATTLEFIELD",
	InGraveyard:   "GRAVEYARD",
	InExile:       "EXILE",
	InHand:        "HAND",
	OnStack:       "STACK",
	InLibrary:     "LIBRARY",
}

func (l Location) String() string {
	if name, ok := locationNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LOCATION_%d", int(l))
}

// LocationOf maps a zone to a commander location.
func LocationOf(z zones.Zone) Location {
	switch z {
	case zones.Battlefield:
		return OnBattlefield
	case zones.Graveyard:
		return InGraveyard
	case zones.Exile:
		return InExile
	case zones.Hand:
		return InHand
	case zones.Stack:
		return OnStack
	case zones.Library:
		return InLibrary
	}
	return InCommandZone
}

// OffersReplacement reports whether a commander moving to destination may
// go to the command zone instead.
func OffersReplacement(destination zones.Zone) bool {
	switch destination {
	case zones.Graveyard, zones.Exile, zones.Hand, zones.Library:
		return true
	}
	return false
}

var (
	ErrNotCommander      = errors.New("card is not a commander")
	ErrAlreadyCommander  = errors.New("card is already a commander")
	ErrTooManyCommanders = errors.New("a player may have at most two commanders")
	ErrInvalidPairing    = errors.New("commanders must both have partner or include a background")
	ErrChoicePending     = errors.New("commander zone choice already pending")
	ErrNoPendingChoice   = errors.New("no pending commander zone choice")
	ErrNotCommanderOwner = errors.New("player does not own the commander")
	ErrNotEligible       = errors.New("commander must be a legendary creature or a background")
)

// DamageEntry is the cumulative combat damage a commander dealt one player.
type DamageEntry struct {
	Player entity.ID
	Total  int
}

// Commander is one player's commander.
type Commander struct {
	Card       entity.ID
	Owner      entity.ID
	Name       string
	Partner    bool
	Background bool

	identity      mana.ColorSet
	damageDealt   []DamageEntry
	dealtThisTurn entity.Set
}

// Identity returns the commander's color identity.
func (c *Commander) Identity() mana.ColorSet {
	return c.identity
}

// DamageDealt returns the cumulative damage per player, in the order the
// players were first damaged.
func (c *Commander) DamageDealt() []DamageEntry {
	return append([]DamageEntry(nil), c.damageDealt...)
}

// DamageTo returns the cumulative damage dealt to player.
func (c *Commander) DamageTo(player entity.ID) int {
	for _, e := range c.damageDealt {
		if e.Player == player {
			return e.Total
		}
	}
	return 0
}

func (c *Commander) addDamage(player entity.ID, amount int) int {
	c.dealtThisTurn.Add(player)
	for i := range c.damageDealt {
		if c.damageDealt[i].Player == player {
			c.damageDealt[i].Total += amount
			return c.damageDealt[i].Total
		}
	}
	c.damageDealt = append(c.damageDealt, DamageEntry{Player: player, Total: amount})
	return amount
}

// DealtCombatDamageThisTurn reports whether the commander dealt combat
// damage to player this turn.
func (c *Commander) DealtCombatDamageThisTurn(player entity.ID) bool {
	return c.dealtThisTurn.Has(player)
}

// PendingChoice is an outstanding command-zone replacement decision.
type PendingChoice struct {
	Commander   entity.ID
	Owner       entity.ID
	Source      zones.Zone
	Destination zones.Zone
	Deadline    time.Duration
}

// Manager tracks every commander in a game.
type Manager struct {
	byPlayer   map[entity.ID][]entity.ID
	commanders map[entity.ID]*Commander
	location   map[entity.ID]Location
	casts      map[entity.ID]int
	pending    map[entity.ID]PendingChoice

	taxIncrement int
	threshold    int
}

// NewManager creates a manager with the given tax increment and commander
// damage threshold.
func NewManager(taxIncrement, threshold int) *Manager {
	return &Manager{
		byPlayer:     make(map[entity.ID][]entity.ID),
		commanders:   make(map[entity.ID]*Commander),
		location:     make(map[entity.ID]Location),
		casts:        make(map[entity.ID]int),
		pending:      make(map[entity.ID]PendingChoice),
		taxIncrement: taxIncrement,
		threshold:    threshold,
	}
}

// Register designates card as one of owner's commanders. A second commander
// is allowed only if both have partner or exactly one is a background.
func (m *Manager) Register(owner, card entity.ID, def cards.Card) (*Commander, error) {
	if _, ok := m.commanders[card]; ok {
		return nil, fmt.Errorf("register %s: %w", card, ErrAlreadyCommander)
	}
	isBackground := def.Types.Has(cards.TypeBackground)
	if !isBackground && !(def.Types.Has(cards.TypeLegendary) && def.IsCreature()) {
		return nil, fmt.Errorf("register %s: %w", def.Name, ErrNotEligible)
	}

	existing := m.byPlayer[owner]
	switch len(existing) {
	case 0:
		if isBackground {
			return nil, fmt.Errorf("register %s: %w", def.Name, ErrInvalidPairing)
		}
	case 1:
		first := m.commanders[existing[0]]
		partners := first.Partner && def.Keywords.Has(cards.KeywordPartner)
		withBackground := first.Background != isBackground
		if !partners && !withBackground {
			return nil, fmt.Errorf("register %s with %s: %w", def.Name, first.Name, ErrInvalidPairing)
		}
	default:
		return nil, fmt.Errorf("register %s: %w", def.Name, ErrTooManyCommanders)
	}

	identity, err := mana.ColorIdentity(def.ManaCost, def.RulesText)
	if err != nil {
		return nil, fmt.Errorf("color identity of %s: %w", def.Name, err)
	}

	c := &Commander{
		Card:          card,
		Owner:         owner,
		Name:          def.Name,
		Partner:       def.Keywords.Has(cards.KeywordPartner),
		Background:    isBackground,
		identity:      identity,
		dealtThisTurn: entity.NewSet(),
	}
	m.commanders[card] = c
	m.byPlayer[owner] = append(m.byPlayer[owner], card)
	m.location[card] = InCommandZone
	return c, nil
}

// IsCommander reports whether card is a registered commander.
func (m *Manager) IsCommander(card entity.ID) bool {
	_, ok := m.commanders[card]
	return ok
}

// Get returns the commander record for card.
func (m *Manager) Get(card entity.ID) (*Commander, bool) {
	c, ok := m.commanders[card]
	return c, ok
}

// CommandersOf returns owner's commanders in registration order.
func (m *Manager) CommandersOf(owner entity.ID) []entity.ID {
	return append([]entity.ID(nil), m.byPlayer[owner]...)
}

// All returns every commander ordered by card handle.
func (m *Manager) All() []*Commander {
	out := make([]*Commander, 0, len(m.commanders))
	for _, c := range m.commanders {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Card < out[j].Card })
	return out
}

// Location returns where the commander is.
func (m *Manager) Location(card entity.ID) (Location, bool) {
	l, ok := m.location[card]
	return l, ok
}

// SetLocation records the commander's location after a zone change.
func (m *Manager) SetLocation(card entity.ID, zone zones.Zone) {
	if _, ok := m.commanders[card]; ok {
		m.location[card] = LocationOf(zone)
	}
}

// CastCount returns the number of times the commander was cast from, or
// returned to, the command zone.
func (m *Manager) CastCount(card entity.ID) int {
	return m.casts[card]
}

// RecordCast increments the cast count and returns the new value.
func (m *Manager) RecordCast(card entity.ID) (int, error) {
	if !m.IsCommander(card) {
		return 0, fmt.Errorf("record cast %s: %w", card, ErrNotCommander)
	}
	m.casts[card]++
	return m.casts[card], nil
}

// Tax returns the additional generic mana owed on the next cast.
func (m *Manager) Tax(card entity.ID) int {
	return m.taxIncrement * m.casts[card]
}

// EffectiveCost returns base plus the commander's tax as generic mana.
func (m *Manager) EffectiveCost(card entity.ID, base *mana.ManaCost) *mana.ManaCost {
	return base.WithAdditionalGeneric(m.Tax(card))
}

// ColorIdentity returns the cached color identity of a commander.
func (m *Manager) ColorIdentity(card entity.ID) mana.ColorSet {
	if c, ok := m.commanders[card]; ok {
		return c.identity
	}
	return 0
}

// PlayerIdentity returns the union of owner's commanders' identities.
func (m *Manager) PlayerIdentity(owner entity.ID) mana.ColorSet {
	var set mana.ColorSet
	for _, card := range m.byPlayer[owner] {
		set = set.Union(m.commanders[card].identity)
	}
	return set
}

// Threshold returns the lethal commander damage amount.
func (m *Manager) Threshold() int {
	return m.threshold
}

// RecordCombatDamage accrues combat damage from a commander to player and
// reports whether the cumulative total reached the lethal threshold.
func (m *Manager) RecordCombatDamage(card, player entity.ID, amount int) (int, bool, error) {
	c, ok := m.commanders[card]
	if !ok {
		return 0, false, fmt.Errorf("commander damage from %s: %w", card, ErrNotCommander)
	}
	if amount <= 0 {
		total := c.DamageTo(player)
		return total, total >= m.threshold, nil
	}
	total := c.addDamage(player, amount)
	return total, total >= m.threshold, nil
}

// LethalSource returns a commander whose cumulative damage to player
// reached the threshold.
func (m *Manager) LethalSource(player entity.ID) (entity.ID, bool) {
	for _, c := range m.All() {
		if c.DamageTo(player) >= m.threshold {
			return c.Card, true
		}
	}
	return entity.None, false
}

// BeginTurn clears the per-turn combat damage records.
func (m *Manager) BeginTurn() {
	for _, c := range m.commanders {
		c.dealtThisTurn = entity.NewSet()
	}
}

// BeginChoice opens a command-zone replacement decision for a commander
// that would move from source to destination.
func (m *Manager) BeginChoice(card entity.ID, source, destination zones.Zone, deadline time.Duration) (PendingChoice, error) {
	c, ok := m.commanders[card]
	if !ok {
		return PendingChoice{}, fmt.Errorf("choice for %s: %w", card, ErrNotCommander)
	}
	if _, pending := m.pending[card]; pending {
		return PendingChoice{}, fmt.Errorf("choice for %s: %w", card, ErrChoicePending)
	}
	choice := PendingChoice{
		Commander:   card,
		Owner:       c.Owner,
		Source:      source,
		Destination: destination,
		Deadline:    deadline,
	}
	m.pending[card] = choice
	return choice, nil
}

// Pending returns the outstanding choice for a commander.
func (m *Manager) Pending(card entity.ID) (PendingChoice, bool) {
	p, ok := m.pending[card]
	return p, ok
}

// HasPending reports whether any choice is outstanding.
func (m *Manager) HasPending() bool {
	return len(m.pending) > 0
}

// ResolveChoice closes the decision. Choosing the command zone counts as a
// cast for tax purposes. The caller performs the zone move to the returned
// choice's destination or to the command zone.
func (m *Manager) ResolveChoice(card, player entity.ID, toCommandZone bool) (PendingChoice, error) {
	choice, ok := m.pending[card]
	if !ok {
		return PendingChoice{}, fmt.Errorf("resolve choice for %s: %w", card, ErrNoPendingChoice)
	}
	if choice.Owner != player {
		return PendingChoice{}, fmt.Errorf("resolve choice for %s by %s: %w", card, player, ErrNotCommanderOwner)
	}
	delete(m.pending, card)
	if toCommandZone {
		m.location[card] = InCommandZone
		m.casts[card]++
	} else {
		m.location[card] = LocationOf(choice.Destination)
	}
	return choice, nil
}

// Expired returns the choices whose deadline is at or before now, ordered
// by commander handle.
func (m *Manager) Expired(now time.Duration) []PendingChoice {
	var out []PendingChoice
	for _, p := range m.pending {
		if p.Deadline <= now {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Commander < out[j].Commander })
	return out
}

// DropPlayer discards the pending choices of an eliminated player.
func (m *Manager) DropPlayer(owner entity.ID) {
	for card, p := range m.pending {
		if p.Owner == owner {
			delete(m.pending, card)
		}
	}
}

// Restore overwrites the mutable state of a registered commander.
func (m *Manager) Restore(card entity.ID, loc Location, casts int, damage []DamageEntry) error {
	c, ok := m.commanders[card]
	if !ok {
		return fmt.Errorf("restore %s: %w", card, ErrNotCommander)
	}
	if casts < 0 {
		casts = 0
	}
	m.location[card] = loc
	m.casts[card] = casts
	c.damageDealt = nil
	for _, d := range damage {
		if d.Total > 0 {
			c.damageDealt = append(c.damageDealt, d)
		}
	}
	return nil
}
