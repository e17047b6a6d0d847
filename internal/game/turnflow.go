package game

import (
	"errors"

	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

// beginTurn runs once per turn, at setup and after every Cleanup→Untap wrap.
func (sc *SimulationContext) beginTurn() {
	turn := sc.turns.TurnNumber()
	active := sc.turns.ActivePlayer()
	sc.zones.SetTurn(turn)
	sc.commanders.BeginTurn()
	sc.turnStarted = true
	publish(sc, &sc.Outbox.TurnStart, rules.EventTurnStart, active, TurnStartEvent{Turn: turn, ActivePlayer: active})
	sc.logger.Debug("turn started",
		zap.Int("turn", turn),
		zap.Uint32("active_player", uint32(active)),
	)
}

// advanceStep leaves the current step, moves the clock to the next one and
// enters it.
func (sc *SimulationContext) advanceStep() {
	if sc.over {
		return
	}
	sc.leaveStep()
	if sc.over {
		return
	}

	next, wrapped := sc.turns.Advance()
	if wrapped {
		sc.beginTurn()
	}
	if next.Step == rules.StepDeclareBlockers && !sc.combat.HasAttackers() {
		endCombat, _ := rules.TurnStepFor(rules.StepEndCombat)
		sc.turns.SkipTo(endCombat)
	}

	current := sc.turns.Current()
	publish(sc, &sc.Outbox.NextPhase, rules.EventNextPhase, sc.turns.ActivePlayer(), NextPhaseEvent{
		Turn:         sc.turns.TurnNumber(),
		Step:         current,
		ActivePlayer: sc.turns.ActivePlayer(),
	})
	sc.enterStep()
}

// enterStep performs the turn-based actions of the current step and opens a
// new priority round at the active player.
func (sc *SimulationContext) enterStep() {
	ts := sc.turns.Current()
	active := sc.turns.ActivePlayer()

	switch ts.Step {
	case rules.StepUntap:
		sc.zones.BeginTurn(active)
	case rules.StepDraw:
		// The player who goes first skips their first draw.
		if sc.turns.TurnNumber() > 1 {
			sc.draw(active)
		}
	case rules.StepBeginCombat:
		sc.combat.Begin()
		sc.syncRestrictions()
	case rules.StepCombatDamage:
		if sc.combat.NeedsFirstStrikePass(sc.combatant) {
			sc.Inbox.CombatDamage.Push(AssignCombatDamageEvent{IsFirstStrike: true})
		}
		sc.Inbox.CombatDamage.Push(AssignCombatDamageEvent{IsFirstStrike: false})
	case rules.StepEnd:
		if monarch, ok := sc.politics.Monarch(); ok && monarch == active {
			if card, ok := sc.draw(monarch); ok {
				publish(sc, &sc.Outbox.MonarchDraws, rules.EventMonarchDraw, monarch, MonarchDrawEvent{Player: monarch, Card: card})
			}
		}
	}

	sc.priority.Initialize(sc.turns.PlayersInGame(), active)
	sc.priority.SetStackEmpty(sc.stack.IsEmpty())
}

// leaveStep performs the actions tied to the end of the current step.
func (sc *SimulationContext) leaveStep() {
	switch sc.turns.Current().Step {
	case rules.StepDeclareAttackers:
		sc.checkMustAttack()
	case rules.StepCombatDamage:
		if !sc.combat.InProgress() {
			return
		}
		if !sc.combat.PassDone(true) && sc.combat.NeedsFirstStrikePass(sc.combatant) {
			sc.dealCombatDamage(true)
		}
		if !sc.over && !sc.combat.PassDone(false) {
			sc.dealCombatDamage(false)
		}
	case rules.StepEndCombat:
		sc.combat.End()
		sc.syncRestrictions()
	case rules.StepCleanup:
		sc.zones.ClearDamage()
		active := sc.turns.ActivePlayer()
		publish(sc, &sc.Outbox.TurnEnd, rules.EventTurnEnd, active, TurnEndEvent{Turn: sc.turns.TurnNumber(), ActivePlayer: active})
	}
}

// draw moves the top of player's library to their hand. Drawing from an
// empty library is remembered for the state-based check.
func (sc *SimulationContext) draw(player entity.ID) (entity.ID, bool) {
	card, err := sc.zones.Draw(player)
	if err != nil {
		if errors.Is(err, zones.ErrLibraryEmpty) {
			sc.drewFromEmpty.Add(player)
		}
		sc.logger.Debug("draw failed", zap.Uint32("player", uint32(player)), zap.Error(err))
		return entity.None, false
	}
	return card, true
}
