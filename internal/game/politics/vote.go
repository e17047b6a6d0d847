package politics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/magefree/mage-commander/internal/game/entity"
)

// Vote is a council's-dilemma style vote among the eligible voters.
type Vote struct {
	ID                 string
	Topic              string
	Choices            []string
	Voters             []entity.ID
	RequiresAllPlayers bool
	// Timeout is relative to Started; zero means no timer.
	Timeout time.Duration
	Started time.Duration
}

// Deadline returns the simulation time the vote times out, and false when
// the vote has no timer.
func (v Vote) Deadline() (time.Duration, bool) {
	if v.Timeout <= 0 {
		return 0, false
	}
	return v.Started + v.Timeout, true
}

func (v Vote) hasChoice(choice string) bool {
	for _, c := range v.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

func (v Vote) eligible(player entity.ID) bool {
	for _, p := range v.Voters {
		if p == player {
			return true
		}
	}
	return false
}

// VoteResult is the outcome of a completed vote.
type VoteResult struct {
	VoteID   string
	Winner   string
	Count    int
	Tally    map[string]int
	TimedOut bool
}

// StartVote opens a vote at simulation time now. An empty ID is filled in.
func (s *System) StartVote(v Vote, now time.Duration) (Vote, error) {
	if s.vote != nil {
		return Vote{}, ErrVoteInProgress
	}
	if len(v.Choices) == 0 || len(v.Voters) == 0 {
		return Vote{}, ErrInvalidVote
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.Choices = append([]string(nil), v.Choices...)
	v.Voters = append([]entity.ID(nil), v.Voters...)
	v.Started = now
	s.vote = &v
	s.votesCast = make(map[entity.ID]string)
	s.voteOrder = nil
	return v, nil
}

// ActiveVote returns the vote in progress.
func (s *System) ActiveVote() (Vote, bool) {
	if s.vote == nil {
		return Vote{}, false
	}
	return *s.vote, true
}

// CastVote records player's choice.
func (s *System) CastVote(voteID string, player entity.ID, choice string) error {
	if s.vote == nil {
		return ErrNoActiveVote
	}
	if s.vote.ID != voteID {
		return fmt.Errorf("vote %s: %w", voteID, ErrWrongVote)
	}
	if !s.vote.eligible(player) {
		return fmt.Errorf("vote %s by %s: %w", voteID, player, ErrNotEligible)
	}
	if _, ok := s.votesCast[player]; ok {
		return fmt.Errorf("vote %s by %s: %w", voteID, player, ErrAlreadyVoted)
	}
	if !s.vote.hasChoice(choice) {
		return fmt.Errorf("vote %s choice %q: %w", voteID, choice, ErrUnknownChoice)
	}
	s.votesCast[player] = choice
	s.voteOrder = append(s.voteOrder, player)
	return nil
}

// Tally returns the weighted count per choice.
func (s *System) Tally() map[string]int {
	tally := make(map[string]int)
	if s.vote == nil {
		return tally
	}
	for _, c := range s.vote.Choices {
		tally[c] = 0
	}
	for _, p := range s.voteOrder {
		tally[s.votesCast[p]] += s.VoteWeight(p)
	}
	return tally
}

// standings returns the leader, its count and the runner-up count. Ties go
// to the choice listed first.
func (s *System) standings(tally map[string]int) (leader string, first, second int) {
	first, second = -1, 0
	for _, c := range s.vote.Choices {
		n := tally[c]
		switch {
		case n > first:
			if first >= 0 {
				second = first
			}
			leader, first = c, n
		case n > second:
			second = n
		}
	}
	return leader, first, second
}

func (s *System) remainingWeight() int {
	remaining := 0
	for _, p := range s.vote.Voters {
		if _, voted := s.votesCast[p]; !voted {
			remaining += s.VoteWeight(p)
		}
	}
	return remaining
}

// AllVoted reports whether every eligible voter has voted.
func (s *System) AllVoted() bool {
	if s.vote == nil {
		return false
	}
	for _, p := range s.vote.Voters {
		if _, ok := s.votesCast[p]; !ok {
			return false
		}
	}
	return true
}

// IsDecisive reports whether the outcome can no longer change: everybody
// voted, or the leader's weight exceeds the runner-up's plus all weight
// still to be cast.
func (s *System) IsDecisive() bool {
	if s.vote == nil {
		return false
	}
	if s.AllVoted() {
		return true
	}
	_, first, second := s.standings(s.Tally())
	return first > second+s.remainingWeight()
}

// CheckVote resolves the active vote when it is decisive, when everyone
// voted, or when its timer expired at now. A vote that requires all
// players only resolves on the last two triggers.
func (s *System) CheckVote(now time.Duration) (VoteResult, bool) {
	if s.vote == nil {
		return VoteResult{}, false
	}
	timedOut := false
	if deadline, ok := s.vote.Deadline(); ok && now >= deadline {
		timedOut = true
	}
	ready := s.AllVoted() || timedOut
	if !ready && !s.vote.RequiresAllPlayers {
		ready = s.IsDecisive()
	}
	if !ready {
		return VoteResult{}, false
	}
	return s.finishVote(timedOut), true
}

func (s *System) finishVote(timedOut bool) VoteResult {
	tally := s.Tally()
	winner, count, _ := s.standings(tally)
	result := VoteResult{
		VoteID:   s.vote.ID,
		Winner:   winner,
		Count:    count,
		Tally:    tally,
		TimedOut: timedOut && !s.AllVoted(),
	}
	s.vote = nil
	s.votesCast = make(map[entity.ID]string)
	s.voteOrder = nil
	return result
}

// PendingVoters returns the eligible voters who have not voted yet.
func (s *System) PendingVoters() []entity.ID {
	if s.vote == nil {
		return nil
	}
	var out []entity.ID
	for _, p := range s.vote.Voters {
		if _, ok := s.votesCast[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
