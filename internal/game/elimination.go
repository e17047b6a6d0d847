package game

import (
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

// Elimination reasons carried by PlayerEliminatedEvent.
const (
	ReasonLifeTotal       = "LIFE_TOTAL"
	ReasonCommanderDamage = "COMMANDER_DAMAGE"
	ReasonEmptyLibrary    = "EMPTY_LIBRARY"
	ReasonConceded        = "CONCEDED"
)

// eliminate removes player from the game. Their stack items and owned cards
// on the battlefield and stack go away, their political effects end, and
// the monarchy or initiative passes on. The last player standing wins.
func (sc *SimulationContext) eliminate(player entity.ID, reason string, source entity.ID) {
	p, ok := sc.players[player]
	if !ok || p.Eliminated {
		return
	}
	wasActive := player == sc.turns.ActivePlayer()
	heir := sc.turns.ActivePlayer()
	if wasActive {
		heir = sc.turns.NextPlayer(player)
	}

	p.Eliminated = true
	p.EliminationReason = reason
	sc.turns.Eliminate(player)
	sc.priority.RemovePlayer(player)
	sc.drewFromEmpty.Remove(player)

	for _, item := range sc.stack.RemoveControlledBy(player) {
		sc.logger.Debug("stack item removed with its controller", zap.String("item_id", item.ID))
	}
	for _, zone := range []zones.Zone{zones.Stack, zones.Battlefield} {
		for _, card := range sc.zones.OwnedIn(zone, player) {
			if zone == zones.Stack {
				sc.removeStackItemsFor(card)
			}
			if err := sc.moveCard(card, player, zone, zones.Exile, false); err != nil {
				sc.logger.Warn("could not exile eliminated player's card", zap.Error(err))
			}
		}
	}
	sc.priority.SetStackEmpty(sc.stack.IsEmpty())
	for _, attacker := range sc.combat.AttackingPlayer(player) {
		sc.combat.Remove(attacker)
	}
	sc.politics.RemovePlayer(player)
	sc.commanders.DropPlayer(player)
	sc.syncRestrictions()

	remaining := sc.turns.PlayersInGame()
	if len(remaining) > 0 && heir != player && sc.inGame(heir) {
		if monarch, ok := sc.politics.Monarch(); ok && monarch == player {
			sc.changeMonarch(heir, "monarch left the game")
		}
		if holder, ok := sc.politics.Initiative(); ok && holder == player {
			sc.takeInitiative(heir)
		}
	}

	publish(sc, &sc.Outbox.Eliminations, rules.EventPlayerEliminated, player, PlayerEliminatedEvent{
		Player: player,
		Reason: reason,
		Source: source,
	})
	sc.logger.Info("player eliminated",
		zap.Uint32("player", uint32(player)),
		zap.String("name", p.Name),
		zap.String("reason", reason),
	)

	switch len(remaining) {
	case 0:
		sc.endGame(entity.None)
		return
	case 1:
		sc.endGame(remaining[0])
		return
	}

	if wasActive {
		sc.combat.End()
		sc.turns.ForceEndTurn()
	}
	sc.priority.Initialize(remaining, sc.turns.ActivePlayer())
	sc.priority.SetStackEmpty(sc.stack.IsEmpty())
}

func (sc *SimulationContext) endGame(winner entity.ID) {
	sc.over = true
	sc.winner = winner
	publish(sc, &sc.Outbox.GameOver, rules.EventGameOver, winner, GameOverEvent{
		Winner: winner,
		Turn:   sc.turns.TurnNumber(),
	})
	sc.logger.Info("game over",
		zap.Uint32("winner", uint32(winner)),
		zap.Int("turn", sc.turns.TurnNumber()),
	)
}
