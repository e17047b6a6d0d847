// Package watchers collects per-player statistics from a game's event bus.
package watchers

import (
	"github.com/magefree/mage-commander/internal/game"
	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
)

// Scope decides when a watcher is reset.
type Scope int

const (
	// ScopeGame watchers accumulate for the whole game.
	ScopeGame Scope = iota
	// ScopeTurn watchers are reset when a turn starts.
	ScopeTurn
)

// Watcher observes bus events.
type Watcher interface {
	Watch(event rules.Event)
	Reset()
	Scope() Scope
}

// CardLookup resolves a card handle to its definition.
type CardLookup func(card entity.ID) (cards.Card, bool)

// SpellsCastWatcher counts spells put on the stack by each player.
type SpellsCastWatcher struct {
	scope Scope
	casts map[entity.ID]int
}

func NewSpellsCastWatcher(scope Scope) *SpellsCastWatcher {
	return &SpellsCastWatcher{scope: scope, casts: make(map[entity.ID]int)}
}

func (w *SpellsCastWatcher) Watch(event rules.Event) {
	ev, ok := event.Payload.(game.StackItemAddedEvent)
	if !ok || ev.Item.Kind != rules.StackItemKindSpell {
		return
	}
	w.casts[ev.Item.Controller]++
}

func (w *SpellsCastWatcher) Reset()       { w.casts = make(map[entity.ID]int) }
func (w *SpellsCastWatcher) Scope() Scope { return w.scope }

// Count returns the number of spells player cast.
func (w *SpellsCastWatcher) Count(player entity.ID) int {
	return w.casts[player]
}

// CreaturesDiedWatcher counts creatures put into a graveyard from the
// battlefield, by owner.
type CreaturesDiedWatcher struct {
	scope  Scope
	lookup CardLookup
	died   map[entity.ID]int
	total  int
}

func NewCreaturesDiedWatcher(scope Scope, lookup CardLookup) *CreaturesDiedWatcher {
	return &CreaturesDiedWatcher{scope: scope, lookup: lookup, died: make(map[entity.ID]int)}
}

func (w *CreaturesDiedWatcher) Watch(event rules.Event) {
	ev, ok := event.Payload.(game.ZoneChangeEvent)
	if !ok || ev.SourceZone != zones.Battlefield || ev.DestinationZone != zones.Graveyard {
		return
	}
	if def, ok := w.lookup(ev.Card); !ok || !def.IsCreature() {
		return
	}
	w.died[ev.Owner]++
	w.total++
}

func (w *CreaturesDiedWatcher) Reset() {
	w.died = make(map[entity.ID]int)
	w.total = 0
}

func (w *CreaturesDiedWatcher) Scope() Scope { return w.scope }

// AmountByOwner returns how many of owner's creatures died.
func (w *CreaturesDiedWatcher) AmountByOwner(owner entity.ID) int {
	return w.died[owner]
}

// TotalAmount returns how many creatures died.
func (w *CreaturesDiedWatcher) TotalAmount() int {
	return w.total
}

// CombatDamageWatcher sums combat damage dealt to players, by the
// controller of the source, and the part of it dealt by commanders.
type CombatDamageWatcher struct {
	scope     Scope
	dealt     map[entity.ID]int
	commander map[entity.ID]int
	taken     map[entity.ID]int
}

func NewCombatDamageWatcher(scope Scope) *CombatDamageWatcher {
	w := &CombatDamageWatcher{scope: scope}
	w.Reset()
	return w
}

func (w *CombatDamageWatcher) Watch(event rules.Event) {
	ev, ok := event.Payload.(game.CombatDamageEvent)
	if !ok || !ev.TargetIsPlayer {
		return
	}
	w.dealt[event.Player] += ev.Damage
	w.taken[ev.Target] += ev.Damage
	if ev.SourceIsCommander {
		w.commander[event.Player] += ev.Damage
	}
}

func (w *CombatDamageWatcher) Reset() {
	w.dealt = make(map[entity.ID]int)
	w.commander = make(map[entity.ID]int)
	w.taken = make(map[entity.ID]int)
}

func (w *CombatDamageWatcher) Scope() Scope { return w.scope }

// DealtBy returns combat damage player's creatures dealt to players.
func (w *CombatDamageWatcher) DealtBy(player entity.ID) int {
	return w.dealt[player]
}

// CommanderDamageBy returns the part of DealtBy dealt by commanders.
func (w *CombatDamageWatcher) CommanderDamageBy(player entity.ID) int {
	return w.commander[player]
}

// TakenBy returns combat damage dealt to player.
func (w *CombatDamageWatcher) TakenBy(player entity.ID) int {
	return w.taken[player]
}

// Set feeds a group of watchers from one event bus. Turn-scoped watchers
// are reset on every turn start, before the event is delivered.
type Set struct {
	bus      *rules.EventBus
	handle   int
	watchers []Watcher
}

// Attach subscribes watchers to bus.
func Attach(bus *rules.EventBus, watchers ...Watcher) *Set {
	s := &Set{bus: bus, watchers: watchers}
	s.handle = bus.Subscribe(s.watch)
	return s
}

func (s *Set) watch(event rules.Event) {
	if event.Type == rules.EventTurnStart {
		for _, w := range s.watchers {
			if w.Scope() == ScopeTurn {
				w.Reset()
			}
		}
	}
	for _, w := range s.watchers {
		w.Watch(event)
	}
}

// Detach stops delivering events.
func (s *Set) Detach() {
	s.bus.Unsubscribe(s.handle)
}
