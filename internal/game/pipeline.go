package game

import (
	"errors"

	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"go.uber.org/zap"
)

// Protocol and referential failures at the intent boundary. The pipeline
// logs them and leaves state unchanged.
var (
	ErrUnknownCard       = errors.New("unknown card")
	ErrNotInGame         = errors.New("player is not in the game")
	ErrNotPriorityHolder = errors.New("player does not hold priority")
	ErrWrongTiming       = errors.New("cannot be cast now")
	ErrCannotCastFrom    = errors.New("cards can only be cast from hand or the command zone")
	ErrWrongStep         = errors.New("not allowed in the current step")
	ErrNotController     = errors.New("player does not control the permanent")
	ErrNotCreature       = errors.New("permanent is not a creature")
	ErrTapped            = errors.New("permanent is tapped")
	ErrSummoningSick     = errors.New("creature has summoning sickness")
	ErrNotDefender       = errors.New("blocker's controller is not the attacked player")
)

// Tick runs one pass of the pipeline. Stages run in a fixed order and each
// stage drains only its own queues.
func (sc *SimulationContext) Tick() {
	if sc.over {
		return
	}
	sc.turnStarted = false
	sc.clock += sc.settings.TickRate

	stages := []func(){
		sc.runPolitics,
		sc.processZoneChanges,
		sc.processCommanderChoices,
		sc.processPoliticalIntents,
		sc.resolveVotes,
		sc.processStackIntents,
		sc.processCombat,
		sc.processPriority,
		sc.autoPass,
	}
	for _, stage := range stages {
		if sc.over {
			return
		}
		stage()
	}
}

func (sc *SimulationContext) ignored(intent string, player entity.ID, err error) {
	sc.logger.Debug("intent ignored",
		zap.String("intent", intent),
		zap.Uint32("player", uint32(player)),
		zap.Stringer("step", sc.turns.Current()),
		zap.Error(err),
	)
}

// processPriority handles response timeouts, then pass intents. A completed
// round resolves the top of the stack or ends the step.
func (sc *SimulationContext) processPriority() {
	if sc.priority.ResponseExpired(sc.clock) {
		holder := sc.priority.PriorityPlayer()
		sc.logger.Debug("response timeout, auto-passing",
			zap.Uint32("player", uint32(holder)),
			zap.Duration("clock", sc.clock),
		)
		sc.priority.PassPriority()
		sc.afterPass()
	}

	for _, ev := range sc.Inbox.Passes.Drain() {
		if sc.over {
			return
		}
		if !sc.priority.Pass(ev.Player) {
			sc.ignored("pass_priority", ev.Player, ErrNotPriorityHolder)
			continue
		}
		sc.afterPass()
	}

	if !sc.over {
		sc.priority.WaitForResponse(sc.clock)
	}
}

func (sc *SimulationContext) afterPass() {
	if !sc.priority.AllPlayersPassed() {
		return
	}
	if !sc.stack.IsEmpty() {
		sc.resolveTop()
		return
	}
	sc.advanceStep()
}

// autoPass passes every player through steps that need no decisions while
// the stack is empty. The marker keeps each (turn, step) to one auto-pass.
func (sc *SimulationContext) autoPass() {
	for i := 0; i < rules.StepsPerTurn && !sc.over; i++ {
		ts := sc.turns.Current()
		if !ts.AutoPassIfEmpty() || !sc.stack.IsEmpty() {
			return
		}
		if !sc.priority.MarkAutoPassed(sc.turns.TurnNumber(), ts) {
			return
		}
		sc.priority.PassAll()
		sc.advanceStep()
	}
}

// resolveTop resolves the most recently pushed item and gives priority back
// to the active player.
func (sc *SimulationContext) resolveTop() {
	item, err := sc.stack.BeginResolve()
	if err != nil {
		return
	}
	if item.Card.Valid() {
		sc.resolveSpell(item)
	}
	sc.stack.EndResolve()

	publish(sc, &sc.Outbox.StackResolved, rules.EventStackItemResolved, item.Controller, StackItemResolvedEvent{Item: item})
	sc.logger.Debug("stack item resolved",
		zap.String("item_id", item.ID),
		zap.String("description", item.Description),
	)
	sc.priority.ResetAfterResolution(sc.turns.PlayersInGame(), sc.turns.ActivePlayer(), sc.stack.IsEmpty())
}
