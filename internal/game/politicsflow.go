package game

import (
	"fmt"

	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/politics"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

// runPolitics drops expired goads and vows and ends deals whose duration
// ran out.
func (sc *SimulationContext) runPolitics() {
	turn := sc.turns.TurnNumber()
	if n := sc.politics.Prune(turn); n > 0 {
		sc.logger.Debug("politics effects expired", zap.Int("count", n), zap.Int("turn", turn))
	}
	for _, d := range sc.politics.ExpireDeals(turn, sc.turns.IsEliminated) {
		sc.publishDeal(d)
	}
	sc.syncRestrictions()
}

// syncRestrictions copies goad and vow attack restrictions into combat.
func (sc *SimulationContext) syncRestrictions() {
	sc.combat.SetRestrictions(sc.politics.Restrictions())
}

func (sc *SimulationContext) publishDeal(d politics.Deal) {
	publish(sc, &sc.Outbox.Deals, rules.EventDealChanged, d.Proposer, DealChangedEvent{Deal: d})
}

func (sc *SimulationContext) changeMonarch(player entity.ID, source string) {
	previous, changed := sc.politics.SetMonarch(player)
	if !changed {
		return
	}
	publish(sc, &sc.Outbox.MonarchChanges, rules.EventBecomesMonarch, player, MonarchChangedEvent{
		NewMonarch:      player,
		PreviousMonarch: previous,
		Source:          source,
	})
	sc.logger.Debug("monarch changed",
		zap.Uint32("monarch", uint32(player)),
		zap.Uint32("previous", uint32(previous)),
		zap.String("source", source),
	)
}

func (sc *SimulationContext) takeInitiative(player entity.ID) {
	previous, changed := sc.politics.TakeInitiative(player)
	if !changed {
		return
	}
	publish(sc, &sc.Outbox.Initiative, rules.EventTookInitiative, player, InitiativeTakenEvent{
		Player:   player,
		Previous: previous,
	})
}

// processPoliticalIntents applies monarch and initiative changes, goads,
// vows, concessions, vote starts and casts, and deal intents.
func (sc *SimulationContext) processPoliticalIntents() {
	for _, ev := range sc.Inbox.MonarchChanges.Drain() {
		if !sc.inGame(ev.NewMonarch) {
			sc.ignored("monarch_change", ev.NewMonarch, ErrNotInGame)
			continue
		}
		sc.changeMonarch(ev.NewMonarch, ev.Source)
	}
	for _, ev := range sc.Inbox.Initiative.Drain() {
		if !sc.inGame(ev.Player) {
			sc.ignored("take_initiative", ev.Player, ErrNotInGame)
			continue
		}
		sc.takeInitiative(ev.Player)
	}
	for _, ev := range sc.Inbox.Goads.Drain() {
		if err := sc.applyGoad(ev); err != nil {
			sc.ignored("goad", ev.Source, err)
		}
	}
	for _, ev := range sc.Inbox.Concessions.Drain() {
		if !sc.inGame(ev.Player) {
			continue
		}
		sc.eliminate(ev.Player, ReasonConceded, entity.None)
		if sc.over {
			return
		}
	}

	for _, ev := range sc.Inbox.VoteStarts.Drain() {
		if err := sc.startVote(ev.Vote); err != nil {
			sc.ignored("start_vote", entity.None, err)
		}
	}
	for _, ev := range sc.Inbox.VoteCasts.Drain() {
		if err := sc.politics.CastVote(ev.VoteID, ev.Player, ev.Choice); err != nil {
			sc.ignored("cast_vote", ev.Player, err)
			continue
		}
		sc.priority.RecordDecision(ev.Player)
	}

	turn := sc.turns.TurnNumber()
	for _, ev := range sc.Inbox.DealProposals.Drain() {
		if !sc.inGame(ev.Proposer) || !sc.inGame(ev.Target) {
			sc.ignored("propose_deal", ev.Proposer, ErrNotInGame)
			continue
		}
		d, err := sc.politics.Propose(ev.Proposer, ev.Target, ev.Terms, ev.Duration, turn)
		if err != nil {
			sc.ignored("propose_deal", ev.Proposer, err)
			continue
		}
		sc.publishDeal(d)
	}
	for _, ev := range sc.Inbox.DealResponses.Drain() {
		d, err := sc.politics.Respond(ev.DealID, ev.Player, ev.Accept)
		if err != nil {
			sc.ignored("respond_deal", ev.Player, err)
			continue
		}
		sc.publishDeal(d)
	}
	for _, ev := range sc.Inbox.DealBreaks.Drain() {
		d, err := sc.politics.Break(ev.DealID, ev.Player, ev.Reason)
		if err != nil {
			sc.ignored("break_deal", ev.Player, err)
			continue
		}
		sc.publishDeal(d)
	}
}

func (sc *SimulationContext) applyGoad(ev GoadEvent) error {
	if !sc.inGame(ev.Source) {
		return ErrNotInGame
	}
	if _, ok := sc.zones.Permanent(ev.Creature); !ok {
		return fmt.Errorf("goad %s: %w", ev.Creature, zones.ErrNotOnBattlefield)
	}
	duration := ev.Duration
	if duration <= 0 {
		duration = 1
	}
	turn := sc.turns.TurnNumber()
	if ev.Vow {
		sc.politics.Vow(ev.Creature, ev.Source, duration, turn)
	} else {
		sc.politics.Goad(ev.Creature, ev.Source, duration, turn)
	}
	sc.syncRestrictions()
	return nil
}

func (sc *SimulationContext) startVote(v politics.Vote) error {
	if len(v.Voters) == 0 {
		v.Voters = sc.turns.PlayersInGame()
	}
	if v.Timeout == 0 {
		v.Timeout = sc.settings.VoteTimeout
	}
	started, err := sc.politics.StartVote(v, sc.clock)
	if err != nil {
		return err
	}
	sc.priority.BeginSimultaneousDecision(started.Voters)
	publish(sc, &sc.Outbox.VoteStarts, rules.EventVoteStarted, entity.None, VoteStartedEvent{Vote: started})
	return nil
}

// resolveVotes completes the active vote once it is decided, everyone
// voted, or its timer ran out.
func (sc *SimulationContext) resolveVotes() {
	result, done := sc.politics.CheckVote(sc.clock)
	if !done {
		return
	}
	sc.priority.ClearSimultaneousDecision()
	publish(sc, &sc.Outbox.VoteCompleted, rules.EventVoteCompleted, entity.None, VoteCompletedEvent{
		VoteID:        result.VoteID,
		WinningChoice: result.Winner,
		VoteCount:     result.Count,
		TimedOut:      result.TimedOut,
	})
	sc.logger.Debug("vote completed",
		zap.String("vote_id", result.VoteID),
		zap.String("winner", result.Winner),
		zap.Int("count", result.Count),
		zap.Bool("timed_out", result.TimedOut),
	)
}
