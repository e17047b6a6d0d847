// Package zones tracks where every card is. A card is in exactly one zone
// container at a time and the card→zone index always agrees with the
// containers.
package zones

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/magefree/mage-commander/internal/game/entity"
)

// Zone identifies a card container. Values are part of the snapshot format.
type Zone int

const (
	Library Zone = iota
	Hand
	Battlefield
	Graveyard
	Stack
	Exile
	Command
)

var zoneNames = map[Zone]string{
	Library:     "LIBRARY",
	Hand:        "HAND",
	Battlefield: "BATTLEFIELD",
	Graveyard:   "GRAVEYARD",
	Stack:       "STACK",
	Exile:       "EXILE",
	Command:     "COMMAND",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZONE_%d", int(z))
}

// Valid reports whether z is a known zone.
func (z Zone) Valid() bool {
	_, ok := zoneNames[z]
	return ok
}

// PerPlayer reports whether each player has their own container for z.
func (z Zone) PerPlayer() bool {
	return z == Library || z == Hand || z == Graveyard
}

// Public reports whether cards in z are visible to every player.
func (z Zone) Public() bool {
	return z != Library && z != Hand
}

var (
	ErrCardNotInZone    = errors.New("card not in zone")
	ErrUnknownZone      = errors.New("unknown zone")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrCardExists       = errors.New("card already tracked in another zone")
	ErrNotOnBattlefield = errors.New("card is not on the battlefield")
	ErrLibraryEmpty     = errors.New("library is empty")
	ErrWrongOwner       = errors.New("card has a different owner")
)

// Permanent is the transient state a card carries while on the battlefield.
type Permanent struct {
	Card          entity.ID
	Controller    entity.ID
	Tapped        bool
	SummoningSick bool
	EnteredTurn   int
	Damage        int
}

type playerZones struct {
	library   []entity.ID // index 0 is the top
	hand      []entity.ID
	graveyard []entity.ID
}

// Manager owns every card container for one game. It is not safe for
// concurrent use; the engine serializes access.
type Manager struct {
	players map[entity.ID]*playerZones
	order   []entity.ID

	battlefield []entity.ID
	stack       []entity.ID
	exile       []entity.ID
	command     []entity.ID

	location   map[entity.ID]Zone
	owners     map[entity.ID]entity.ID
	permanents map[entity.ID]*Permanent

	turn int
}

// NewManager creates empty zones for the given players.
func NewManager(players []entity.ID) *Manager {
	m := &Manager{
		players:    make(map[entity.ID]*playerZones, len(players)),
		location:   make(map[entity.ID]Zone),
		owners:     make(map[entity.ID]entity.ID),
		permanents: make(map[entity.ID]*Permanent),
		turn:       1,
	}
	for _, p := range players {
		m.AddPlayer(p)
	}
	return m
}

// AddPlayer creates the per-player zones for player. Adding twice is a no-op.
func (m *Manager) AddPlayer(player entity.ID) {
	if _, ok := m.players[player]; ok {
		return
	}
	m.players[player] = &playerZones{}
	m.order = append(m.order, player)
}

// Players returns the players in the order they were added.
func (m *Manager) Players() []entity.ID {
	return append([]entity.ID(nil), m.order...)
}

// SetTurn records the turn number stamped on permanents as they enter.
func (m *Manager) SetTurn(turn int) {
	m.turn = turn
}

func (m *Manager) container(zone Zone, owner entity.ID) (*[]entity.ID, error) {
	switch zone {
	case Library, Hand, Graveyard:
		pz, ok := m.players[owner]
		if !ok {
			return nil, fmt.Errorf("%s of %s: %w", zone, owner, ErrUnknownPlayer)
		}
		switch zone {
		case Library:
			return &pz.library, nil
		case Hand:
			return &pz.hand, nil
		default:
			return &pz.graveyard, nil
		}
	case Battlefield:
		return &m.battlefield, nil
	case Stack:
		return &m.stack, nil
	case Exile:
		return &m.exile, nil
	case Command:
		return &m.command, nil
	}
	return nil, fmt.Errorf("zone %d: %w", int(zone), ErrUnknownZone)
}

func indexOf(cards []entity.ID, card entity.ID) int {
	for i, c := range cards {
		if c == card {
			return i
		}
	}
	return -1
}

// add appends card unless it is already present.
func add(cards *[]entity.ID, card entity.ID) {
	if indexOf(*cards, card) >= 0 {
		return
	}
	*cards = append(*cards, card)
}

func remove(cards *[]entity.ID, card entity.ID) bool {
	i := indexOf(*cards, card)
	if i < 0 {
		return false
	}
	*cards = append((*cards)[:i], (*cards)[i+1:]...)
	return true
}

// Place puts a card that is not tracked yet into zone. Placing a card into
// the zone it already occupies is a no-op; any other zone is ErrCardExists.
func (m *Manager) Place(card, owner entity.ID, zone Zone) error {
	if current, ok := m.location[card]; ok {
		if current == zone && m.owners[card] == owner {
			return nil
		}
		return fmt.Errorf("place %s in %s: %w (in %s)", card, zone, ErrCardExists, current)
	}
	dst, err := m.container(zone, owner)
	if err != nil {
		return err
	}
	add(dst, card)
	m.location[card] = zone
	m.owners[card] = owner
	if zone == Battlefield {
		m.enter(card, owner)
	}
	return nil
}

// MoveCard moves card from source to destination. Per-player zones are
// looked up by owner. If the card is not in source the move fails with
// ErrCardNotInZone, and if owner is not the card's owner it fails with
// ErrWrongOwner. A failed move changes nothing. Ownership never changes.
func (m *Manager) MoveCard(card, owner entity.ID, source, destination Zone) error {
	src, err := m.container(source, owner)
	if err != nil {
		return err
	}
	dst, err := m.container(destination, owner)
	if err != nil {
		return err
	}
	if indexOf(*src, card) < 0 {
		return fmt.Errorf("move %s from %s: %w", card, source, ErrCardNotInZone)
	}
	if recorded := m.owners[card]; recorded != owner {
		return fmt.Errorf("move %s owned by %s as %s: %w", card, recorded, owner, ErrWrongOwner)
	}
	if source == destination {
		return nil
	}

	remove(src, card)
	add(dst, card)
	m.location[card] = destination

	if source == Battlefield {
		delete(m.permanents, card)
	}
	if destination == Battlefield {
		m.enter(card, owner)
	}
	return nil
}

func (m *Manager) enter(card, controller entity.ID) {
	m.permanents[card] = &Permanent{
		Card:          card,
		Controller:    controller,
		SummoningSick: true,
		EnteredTurn:   m.turn,
	}
}

// CardZone returns the zone card is in.
func (m *Manager) CardZone(card entity.ID) (Zone, bool) {
	z, ok := m.location[card]
	return z, ok
}

// CardOwner returns the owner of card.
func (m *Manager) CardOwner(card entity.ID) (entity.ID, bool) {
	o, ok := m.owners[card]
	return o, ok
}

// Contains reports whether card is in the owner's zone (owner is ignored
// for shared zones).
func (m *Manager) Contains(zone Zone, owner, card entity.ID) bool {
	c, err := m.container(zone, owner)
	if err != nil {
		return false
	}
	return indexOf(*c, card) >= 0
}

// Cards returns a copy of a zone's contents. owner is ignored for shared
// zones.
func (m *Manager) Cards(zone Zone, owner entity.ID) []entity.ID {
	c, err := m.container(zone, owner)
	if err != nil {
		return nil
	}
	return append([]entity.ID(nil), (*c)...)
}

// OwnedIn returns the cards in a shared zone owned by owner.
func (m *Manager) OwnedIn(zone Zone, owner entity.ID) []entity.ID {
	c, err := m.container(zone, owner)
	if err != nil {
		return nil
	}
	var out []entity.ID
	for _, card := range *c {
		if m.owners[card] == owner {
			out = append(out, card)
		}
	}
	return out
}

// Count returns the number of cards in a zone.
func (m *Manager) Count(zone Zone, owner entity.ID) int {
	c, err := m.container(zone, owner)
	if err != nil {
		return 0
	}
	return len(*c)
}

// Permanent returns a copy of the battlefield state of card.
func (m *Manager) Permanent(card entity.ID) (Permanent, bool) {
	p, ok := m.permanents[card]
	if !ok {
		return Permanent{}, false
	}
	return *p, true
}

// RestorePermanent overwrites the battlefield state of a card already on the
// battlefield.
func (m *Manager) RestorePermanent(p Permanent) error {
	if _, ok := m.permanents[p.Card]; !ok {
		return fmt.Errorf("restore %s: %w", p.Card, ErrNotOnBattlefield)
	}
	cp := p
	m.permanents[p.Card] = &cp
	return nil
}

// Controlled returns the battlefield cards controlled by player, in
// battlefield order.
func (m *Manager) Controlled(player entity.ID) []entity.ID {
	var out []entity.ID
	for _, card := range m.battlefield {
		if p := m.permanents[card]; p != nil && p.Controller == player {
			out = append(out, card)
		}
	}
	return out
}

func (m *Manager) permanent(card entity.ID) (*Permanent, error) {
	p, ok := m.permanents[card]
	if !ok {
		return nil, fmt.Errorf("%s: %w", card, ErrNotOnBattlefield)
	}
	return p, nil
}

// Tap taps a permanent.
func (m *Manager) Tap(card entity.ID) error {
	p, err := m.permanent(card)
	if err != nil {
		return err
	}
	p.Tapped = true
	return nil
}

// Untap untaps a permanent.
func (m *Manager) Untap(card entity.ID) error {
	p, err := m.permanent(card)
	if err != nil {
		return err
	}
	p.Tapped = false
	return nil
}

// BeginTurn untaps every permanent controlled by player and clears their
// summoning sickness. Returns the number of permanents untapped.
func (m *Manager) BeginTurn(player entity.ID) int {
	untapped := 0
	for _, card := range m.battlefield {
		p := m.permanents[card]
		if p == nil || p.Controller != player {
			continue
		}
		if p.Tapped {
			p.Tapped = false
			untapped++
		}
		p.SummoningSick = false
	}
	return untapped
}

// MarkDamage adds damage to a permanent and returns the new total.
func (m *Manager) MarkDamage(card entity.ID, amount int) (int, error) {
	p, err := m.permanent(card)
	if err != nil {
		return 0, err
	}
	if amount > 0 {
		p.Damage += amount
	}
	return p.Damage, nil
}

// ClearDamage removes marked damage from every permanent.
func (m *Manager) ClearDamage() {
	for _, p := range m.permanents {
		p.Damage = 0
	}
}

// Draw moves the top card of player's library to their hand.
func (m *Manager) Draw(player entity.ID) (entity.ID, error) {
	pz, ok := m.players[player]
	if !ok {
		return entity.None, fmt.Errorf("draw for %s: %w", player, ErrUnknownPlayer)
	}
	if len(pz.library) == 0 {
		return entity.None, fmt.Errorf("draw for %s: %w", player, ErrLibraryEmpty)
	}
	card := pz.library[0]
	if err := m.MoveCard(card, player, Library, Hand); err != nil {
		return entity.None, err
	}
	return card, nil
}

// Shuffle randomizes player's library with rng.
func (m *Manager) Shuffle(player entity.ID, rng *rand.Rand) error {
	pz, ok := m.players[player]
	if !ok {
		return fmt.Errorf("shuffle for %s: %w", player, ErrUnknownPlayer)
	}
	rng.Shuffle(len(pz.library), func(i, j int) {
		pz.library[i], pz.library[j] = pz.library[j], pz.library[i]
	})
	return nil
}

// Validate checks that every tracked card is in exactly one container and
// that the index agrees with it.
func (m *Manager) Validate() error {
	seen := make(map[entity.ID]Zone, len(m.location))
	check := func(zone Zone, owner entity.ID, cards []entity.ID) error {
		for _, card := range cards {
			if prev, dup := seen[card]; dup {
				return fmt.Errorf("card %s in both %s and %s", card, prev, zone)
			}
			seen[card] = zone
			if m.location[card] != zone {
				return fmt.Errorf("card %s indexed in %s but found in %s", card, m.location[card], zone)
			}
			if zone.PerPlayer() && m.owners[card] != owner {
				return fmt.Errorf("card %s in %s of %s but owned by %s", card, zone, owner, m.owners[card])
			}
		}
		return nil
	}
	for _, p := range m.order {
		pz := m.players[p]
		if err := check(Library, p, pz.library); err != nil {
			return err
		}
		if err := check(Hand, p, pz.hand); err != nil {
			return err
		}
		if err := check(Graveyard, p, pz.graveyard); err != nil {
			return err
		}
	}
	for _, z := range []Zone{Battlefield, Stack, Exile, Command} {
		c, _ := m.container(z, entity.None)
		if err := check(z, entity.None, *c); err != nil {
			return err
		}
	}
	if len(seen) != len(m.location) {
		return fmt.Errorf("index tracks %d cards, containers hold %d", len(m.location), len(seen))
	}
	for card := range m.permanents {
		if m.location[card] != Battlefield {
			return fmt.Errorf("permanent state for %s outside the battlefield", card)
		}
	}
	return nil
}
