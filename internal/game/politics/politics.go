// Package politics holds the multiplayer-only state of a game: the monarch,
// the initiative, goad and vow effects, votes and deals.
package politics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/magefree/mage-commander/internal/game/entity"
)

var (
	ErrVoteInProgress = errors.New("a vote is already in progress")
	ErrInvalidVote    = errors.New("vote needs at least one choice and one voter")
	ErrNoActiveVote   = errors.New("no active vote")
	ErrWrongVote      = errors.New("vote id does not match the active vote")
	ErrNotEligible    = errors.New("player is not eligible to vote")
	ErrAlreadyVoted   = errors.New("player already voted")
	ErrUnknownChoice  = errors.New("unknown vote choice")

	ErrDealNotFound  = errors.New("deal not found")
	ErrSelfDeal      = errors.New("a player cannot make a deal with themselves")
	ErrNotDealTarget = errors.New("only the deal's target may respond")
	ErrNotDealParty  = errors.New("only a party to the deal may break it")
)

// Effect is a goad or vow placed on a creature by Source.
type Effect struct {
	Source      entity.ID
	Duration    int
	CreatedTurn int
}

// Expired reports whether the effect is over at turn.
func (e Effect) Expired(turn int) bool {
	return e.CreatedTurn+e.Duration <= turn
}

// System is the politics state of one game. The zero value is not usable;
// call New.
type System struct {
	monarch    entity.ID
	initiative entity.ID

	goads map[entity.ID][]Effect
	vows  map[entity.ID][]Effect

	vote      *Vote
	votesCast map[entity.ID]string
	voteOrder []entity.ID
	weights   map[entity.ID]int

	pending []*Deal
	active  []*Deal
}

// New returns an empty politics system.
func New() *System {
	return &System{
		goads:     make(map[entity.ID][]Effect),
		vows:      make(map[entity.ID][]Effect),
		votesCast: make(map[entity.ID]string),
		weights:   make(map[entity.ID]int),
	}
}

// Monarch returns the current monarch.
func (s *System) Monarch() (entity.ID, bool) {
	return s.monarch, s.monarch.Valid()
}

// SetMonarch makes player the monarch and returns the previous one.
// changed is false when player already was the monarch.
func (s *System) SetMonarch(player entity.ID) (previous entity.ID, changed bool) {
	previous = s.monarch
	if previous == player {
		return previous, false
	}
	s.monarch = player
	return previous, true
}

// Initiative returns the player who has the initiative.
func (s *System) Initiative() (entity.ID, bool) {
	return s.initiative, s.initiative.Valid()
}

// TakeInitiative gives player the initiative. changed is false when they
// already had it.
func (s *System) TakeInitiative(player entity.ID) (previous entity.ID, changed bool) {
	previous = s.initiative
	if previous == player {
		return previous, false
	}
	s.initiative = player
	return previous, true
}

// Goad forces creature to attack each combat and forbids it from attacking
// source.
func (s *System) Goad(creature, source entity.ID, duration, turn int) {
	s.goads[creature] = append(s.goads[creature], Effect{Source: source, Duration: duration, CreatedTurn: turn})
}

// Vow forbids creature from attacking source.
func (s *System) Vow(creature, source entity.ID, duration, turn int) {
	s.vows[creature] = append(s.vows[creature], Effect{Source: source, Duration: duration, CreatedTurn: turn})
}

// Goads returns the goad effects on creature.
func (s *System) Goads(creature entity.ID) []Effect {
	return append([]Effect(nil), s.goads[creature]...)
}

// Vows returns the vow effects on creature.
func (s *System) Vows(creature entity.ID) []Effect {
	return append([]Effect(nil), s.vows[creature]...)
}

// IsGoaded reports whether creature has an active goad.
func (s *System) IsGoaded(creature entity.ID) bool {
	return len(s.goads[creature]) > 0
}

func prune(effects map[entity.ID][]Effect, keep func(Effect) bool) int {
	removed := 0
	for creature, list := range effects {
		kept := list[:0]
		for _, e := range list {
			if keep(e) {
				kept = append(kept, e)
				continue
			}
			removed++
		}
		if len(kept) == 0 {
			delete(effects, creature)
		} else {
			effects[creature] = kept
		}
	}
	return removed
}

// Prune drops goads and vows that expired by turn and returns how many
// were removed.
func (s *System) Prune(turn int) int {
	live := func(e Effect) bool { return !e.Expired(turn) }
	return prune(s.goads, live) + prune(s.vows, live)
}

// ForgetCreature drops every effect on a creature that left the battlefield.
func (s *System) ForgetCreature(creature entity.ID) {
	delete(s.goads, creature)
	delete(s.vows, creature)
}

// Restrictions derives the combat restriction maps: goaded creatures must
// attack, and goaded or vowed creatures cannot attack the effect's source.
func (s *System) Restrictions() (mustAttack entity.Set, cannotAttack map[entity.ID]entity.Set) {
	mustAttack = entity.NewSet()
	cannotAttack = make(map[entity.ID]entity.Set)
	forbid := func(creature, player entity.ID) {
		set, ok := cannotAttack[creature]
		if !ok {
			set = entity.NewSet()
			cannotAttack[creature] = set
		}
		set.Add(player)
	}
	for creature, list := range s.goads {
		mustAttack.Add(creature)
		for _, e := range list {
			forbid(creature, e.Source)
		}
	}
	for creature, list := range s.vows {
		for _, e := range list {
			forbid(creature, e.Source)
		}
	}
	return mustAttack, cannotAttack
}

// RemovePlayer clears everything tied to an eliminated player: effects they
// created, their vote eligibility and their pending deals. Monarch and
// initiative handoff is the caller's decision.
func (s *System) RemovePlayer(player entity.ID) {
	fromOther := func(e Effect) bool { return e.Source != player }
	prune(s.goads, fromOther)
	prune(s.vows, fromOther)

	if s.vote != nil {
		voters := make([]entity.ID, 0, len(s.vote.Voters))
		for _, v := range s.vote.Voters {
			if v != player {
				voters = append(voters, v)
			}
		}
		s.vote.Voters = voters
		if _, voted := s.votesCast[player]; voted {
			delete(s.votesCast, player)
			for i, v := range s.voteOrder {
				if v == player {
					s.voteOrder = append(s.voteOrder[:i], s.voteOrder[i+1:]...)
					break
				}
			}
		}
	}

	pending := s.pending[:0]
	for _, d := range s.pending {
		if d.Proposer != player && d.Target != player {
			pending = append(pending, d)
		}
	}
	s.pending = pending
}

// SetVoteWeight sets how many votes player casts. Weights below zero are
// treated as zero.
func (s *System) SetVoteWeight(player entity.ID, weight int) {
	if weight < 0 {
		weight = 0
	}
	s.weights[player] = weight
}

// VoteWeight returns player's vote weight, 1 unless set.
func (s *System) VoteWeight(player entity.ID) int {
	if w, ok := s.weights[player]; ok {
		return w
	}
	return 1
}

// sortedIDs returns the keys of a handle-keyed map in ascending order.
func sortedIDs[V any](m map[entity.ID]V) []entity.ID {
	out := make([]entity.ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GoadedCreatures returns every creature with a goad, in handle order.
func (s *System) GoadedCreatures() []entity.ID {
	return sortedIDs(s.goads)
}

// VowedCreatures returns every creature with a vow, in handle order.
func (s *System) VowedCreatures() []entity.ID {
	return sortedIDs(s.vows)
}

// String summarizes the state for logs.
func (s *System) String() string {
	return fmt.Sprintf("monarch=%s initiative=%s goads=%d vows=%d vote=%t deals=%d/%d",
		s.monarch, s.initiative, len(s.goads), len(s.vows), s.vote != nil, len(s.pending), len(s.active))
}
