package game

import (
	"errors"
	"fmt"

	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/combat"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

const (
	ruleMustAttack   = "MUST_ATTACK"
	ruleCannotAttack = "CANNOT_ATTACK"
)

// processCombat handles attack and block declarations and damage passes,
// then checks state-based actions.
func (sc *SimulationContext) processCombat() {
	for _, ev := range sc.Inbox.Attackers.Drain() {
		if err := sc.declareAttacker(ev); err != nil {
			sc.ignored("declare_attacker", sc.turns.ActivePlayer(), err)
		}
	}
	for _, ev := range sc.Inbox.Blockers.Drain() {
		if err := sc.declareBlocker(ev); err != nil {
			sc.ignored("declare_blocker", ev.Blocker, err)
		}
	}
	for _, ev := range sc.Inbox.CombatDamage.Drain() {
		if sc.over {
			return
		}
		if sc.turns.Current().Step != rules.StepCombatDamage || !sc.combat.InProgress() {
			continue
		}
		if sc.combat.PassDone(ev.IsFirstStrike) {
			continue
		}
		if ev.IsFirstStrike && !sc.combat.NeedsFirstStrikePass(sc.combatant) {
			continue
		}
		sc.dealCombatDamage(ev.IsFirstStrike)
	}
	sc.checkStateBasedActions()
}

// creature returns the battlefield state of a creature controlled by player.
func (sc *SimulationContext) creature(card, player entity.ID) (zones.Permanent, cards.Card, error) {
	perm, ok := sc.zones.Permanent(card)
	if !ok {
		return zones.Permanent{}, cards.Card{}, fmt.Errorf("%s: %w", card, zones.ErrNotOnBattlefield)
	}
	def := sc.cards[card]
	if !def.IsCreature() {
		return perm, def, fmt.Errorf("%s: %w", def.Name, ErrNotCreature)
	}
	if perm.Controller != player {
		return perm, def, fmt.Errorf("%s: %w", def.Name, ErrNotController)
	}
	if perm.Tapped {
		return perm, def, fmt.Errorf("%s: %w", def.Name, ErrTapped)
	}
	return perm, def, nil
}

func (sc *SimulationContext) declareAttacker(ev AttackerDeclaredEvent) error {
	if sc.turns.Current().Step != rules.StepDeclareAttackers {
		return ErrWrongStep
	}
	active := sc.turns.ActivePlayer()
	perm, def, err := sc.creature(ev.Attacker, active)
	if err != nil {
		return err
	}
	if perm.SummoningSick && !def.Keywords.Has(cards.KeywordHaste) {
		return fmt.Errorf("%s: %w", def.Name, ErrSummoningSick)
	}
	if ev.Defender == active || !sc.inGame(ev.Defender) {
		return fmt.Errorf("attack %s: %w", ev.Defender, ErrNotInGame)
	}
	if err := sc.combat.DeclareAttacker(ev.Attacker, ev.Defender); err != nil {
		if errors.Is(err, combat.ErrCannotAttack) {
			publish(sc, &sc.Outbox.Violations, rules.EventRulesViolation, active, RulesViolationEvent{
				Player: active,
				Card:   ev.Attacker,
				Rule:   ruleCannotAttack,
				Detail: fmt.Sprintf("%s cannot attack %s", def.Name, sc.players[ev.Defender].Name),
			})
		}
		return err
	}
	if !def.Keywords.Has(cards.KeywordVigilance) {
		_ = sc.zones.Tap(ev.Attacker)
	}
	publish(sc, &sc.Outbox.Attackers, rules.EventAttackerDeclared, active, ev)
	return nil
}

func (sc *SimulationContext) declareBlocker(ev BlockerDeclaredEvent) error {
	if sc.turns.Current().Step != rules.StepDeclareBlockers {
		return ErrWrongStep
	}
	defender, ok := sc.combat.Defender(ev.Attacker)
	if !ok {
		return combat.ErrUnregisteredAttacker
	}
	if _, _, err := sc.creature(ev.Blocker, defender); err != nil {
		if errors.Is(err, ErrNotController) {
			return ErrNotDefender
		}
		return err
	}
	if err := sc.combat.DeclareBlocker(ev.Blocker, ev.Attacker); err != nil {
		return err
	}
	publish(sc, &sc.Outbox.Blockers, rules.EventBlockerDeclared, defender, ev)
	return nil
}

// combatant is the combat.StatsFunc view of a card.
func (sc *SimulationContext) combatant(card entity.ID) (combat.Combatant, bool) {
	def, ok := sc.cards[card]
	if !ok {
		return combat.Combatant{}, false
	}
	perm, onBattlefield := sc.zones.Permanent(card)
	return combat.Combatant{
		Controller:   perm.Controller,
		Power:        def.Power,
		Toughness:    def.Toughness,
		Damage:       perm.Damage,
		FirstStrike:  def.Keywords.Has(cards.KeywordFirstStrike),
		DoubleStrike: def.Keywords.Has(cards.KeywordDoubleStrike),
		Trample:      def.Keywords.Has(cards.KeywordTrample),
		Commander:    sc.commanders.IsCommander(card),
		Alive:        onBattlefield && def.IsCreature(),
	}, true
}

// dealCombatDamage enumerates one damage pass and applies it.
func (sc *SimulationContext) dealCombatDamage(firstStrike bool) {
	assignments := sc.combat.AssignDamage(firstStrike, sc.combatant)
	for _, a := range assignments {
		if a.TargetIsPlayer {
			sc.damagePlayer(a)
		} else if _, err := sc.zones.MarkDamage(a.Target, a.Amount); err != nil {
			sc.logger.Debug("damage to a creature that left the battlefield", zap.Error(err))
			continue
		}
		publish(sc, &sc.Outbox.CombatDamage, rules.EventCombatDamage, a.SourceController, CombatDamageEvent{
			Source:            a.Source,
			Target:            a.Target,
			Damage:            a.Amount,
			IsCombatDamage:    true,
			SourceIsCommander: a.SourceIsCommander,
			TargetIsPlayer:    a.TargetIsPlayer,
		})
	}
	sc.logger.Debug("combat damage dealt",
		zap.Bool("first_strike", firstStrike),
		zap.Int("assignments", len(assignments)),
	)
	sc.checkStateBasedActions()
}

func (sc *SimulationContext) damagePlayer(a combat.Assignment) {
	p, ok := sc.players[a.Target]
	if !ok || p.Eliminated {
		return
	}
	p.Life -= a.Amount

	if a.SourceIsCommander {
		sc.combat.RecordCommanderDamage(a.Target, a.Source, a.Amount)
		if total, lethal, err := sc.commanders.RecordCombatDamage(a.Source, a.Target, a.Amount); err == nil && lethal {
			sc.logger.Info("lethal commander damage",
				zap.Uint32("commander", uint32(a.Source)),
				zap.Uint32("player", uint32(a.Target)),
				zap.Int("total", total),
			)
		}
	}

	taker := a.SourceController
	if monarch, ok := sc.politics.Monarch(); ok && monarch == a.Target && taker != a.Target {
		sc.changeMonarch(taker, "combat damage")
	}
	if holder, ok := sc.politics.Initiative(); ok && holder == a.Target && taker != a.Target {
		sc.takeInitiative(taker)
	}
}

// checkMustAttack reports every goaded creature that could have attacked
// and did not.
func (sc *SimulationContext) checkMustAttack() {
	active := sc.turns.ActivePlayer()
	var candidates []entity.ID
	for _, card := range sc.zones.Controlled(active) {
		perm, def, err := sc.creature(card, active)
		if err != nil {
			continue
		}
		if perm.SummoningSick && !def.Keywords.Has(cards.KeywordHaste) {
			continue
		}
		candidates = append(candidates, card)
	}
	for _, card := range sc.combat.UnfulfilledMustAttack(candidates) {
		publish(sc, &sc.Outbox.Violations, rules.EventRulesViolation, active, RulesViolationEvent{
			Player: active,
			Card:   card,
			Rule:   ruleMustAttack,
			Detail: sc.cards[card].Name + " is goaded and did not attack",
		})
	}
}

// checkStateBasedActions puts lethally damaged creatures into their owners'
// graveyards and eliminates players who lost.
func (sc *SimulationContext) checkStateBasedActions() {
	if sc.over {
		return
	}
	for _, player := range sc.seating {
		for _, card := range sc.zones.Controlled(player) {
			perm, _ := sc.zones.Permanent(card)
			def := sc.cards[card]
			if !def.IsCreature() || perm.Damage < def.Toughness {
				continue
			}
			owner, _ := sc.zones.CardOwner(card)
			if err := sc.moveCard(card, owner, zones.Battlefield, zones.Graveyard, true); err != nil {
				sc.logger.Warn("state-based move failed", zap.Error(err))
			}
		}
	}

	for _, player := range sc.turns.PlayersInGame() {
		p := sc.players[player]
		switch {
		case p.Life <= 0:
			sc.eliminate(player, ReasonLifeTotal, entity.None)
		case sc.drewFromEmpty.Has(player):
			sc.eliminate(player, ReasonEmptyLibrary, entity.None)
		default:
			if source, lethal := sc.commanders.LethalSource(player); lethal {
				sc.eliminate(player, ReasonCommanderDamage, source)
			}
		}
		if sc.over {
			return
		}
	}
}
