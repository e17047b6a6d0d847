package main

import (
	"math/rand"

	"github.com/magefree/mage-commander/internal/game"
	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
)

// bots plays every seat: the priority holder casts one spell per main
// phase, attacks with everything that can, blocks at random and then
// passes. Commanders always return to the command zone.
type bots struct {
	rng *rand.Rand
	// last (turn, step) each player acted in, so each acts once per step
	acted map[entity.ID]stepKey
}

type stepKey struct {
	turn int
	step rules.Step
}

func newBots(rng *rand.Rand) *bots {
	return &bots{rng: rng, acted: make(map[entity.ID]stepKey)}
}

// react answers commander zone choices from the last drained notifications.
func (b *bots) react(notes game.Notifications) []any {
	var intents []any
	for _, c := range notes.CommanderChoice {
		if c.CanGoToCommandZone {
			intents = append(intents, game.CommanderZoneChoiceEvent{
				Commander:         c.Commander,
				Owner:             c.Owner,
				MoveToCommandZone: true,
			})
		}
	}
	return intents
}

// decide returns the holder's intents for this tick.
func (b *bots) decide(sc *game.SimulationContext) []any {
	holder := sc.PriorityPlayer()
	if !holder.Valid() {
		return nil
	}
	key := stepKey{turn: sc.Turn(), step: sc.Step().Step}
	var intents []any
	if b.acted[holder] != key {
		b.acted[holder] = key
		intents = append(intents, b.act(sc, holder)...)
	}
	return append(intents, game.PassPriorityEvent{Player: holder})
}

func (b *bots) act(sc *game.SimulationContext, player entity.ID) []any {
	active := sc.ActivePlayer()
	switch sc.Step().Step {
	case rules.StepMain1, rules.StepMain2:
		if player == active && len(sc.StackItems()) == 0 {
			if cast, ok := b.cast(sc, player); ok {
				return []any{cast}
			}
		}
	case rules.StepDeclareAttackers:
		if player == active {
			return b.attack(sc, player)
		}
	case rules.StepDeclareBlockers:
		if player != active {
			return b.block(sc, player)
		}
	}
	return nil
}

func (b *bots) cast(sc *game.SimulationContext, player entity.ID) (game.ZoneChangeEvent, bool) {
	for _, cmd := range sc.Commanders().CommandersOf(player) {
		if z, ok := sc.Zones().CardZone(cmd); ok && z == zones.Command {
			return game.ZoneChangeEvent{Card: cmd, Owner: player, SourceZone: zones.Command, DestinationZone: zones.Stack}, true
		}
	}
	for _, card := range sc.Zones().Cards(zones.Hand, player) {
		def, _ := sc.Card(card)
		if def.Types.Has(cards.TypeLand) {
			continue
		}
		return game.ZoneChangeEvent{Card: card, Owner: player, SourceZone: zones.Hand, DestinationZone: zones.Stack}, true
	}
	return game.ZoneChangeEvent{}, false
}

// untapped reports whether card is an untapped creature player controls.
func untapped(sc *game.SimulationContext, player, card entity.ID) (zones.Permanent, cards.Card, bool) {
	def, _ := sc.Card(card)
	perm, ok := sc.Zones().Permanent(card)
	if !ok || !def.IsCreature() || perm.Tapped || perm.Controller != player {
		return perm, def, false
	}
	return perm, def, true
}

func canAttack(sc *game.SimulationContext, player, card entity.ID) bool {
	perm, def, ok := untapped(sc, player, card)
	return ok && (!perm.SummoningSick || def.Keywords.Has(cards.KeywordHaste))
}

func (b *bots) attack(sc *game.SimulationContext, player entity.ID) []any {
	var opponents []entity.ID
	for _, p := range sc.PlayersInGame() {
		if p != player {
			opponents = append(opponents, p)
		}
	}
	if len(opponents) == 0 {
		return nil
	}
	var intents []any
	for _, card := range sc.Zones().Controlled(player) {
		if !canAttack(sc, player, card) {
			continue
		}
		start := b.rng.Intn(len(opponents))
		for i := range opponents {
			defender := opponents[(start+i)%len(opponents)]
			if sc.Combat().CanAttack(card, defender) {
				intents = append(intents, game.AttackerDeclaredEvent{Attacker: card, Defender: defender})
				break
			}
		}
	}
	return intents
}

func (b *bots) block(sc *game.SimulationContext, player entity.ID) []any {
	attackers := sc.Combat().AttackingPlayer(player)
	if len(attackers) == 0 {
		return nil
	}
	var intents []any
	for _, card := range sc.Zones().Controlled(player) {
		if _, _, ok := untapped(sc, player, card); !ok || b.rng.Intn(2) == 0 {
			continue
		}
		intents = append(intents, game.BlockerDeclaredEvent{
			Blocker:  card,
			Attacker: attackers[b.rng.Intn(len(attackers))],
		})
	}
	return intents
}
