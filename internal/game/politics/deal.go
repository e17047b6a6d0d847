package politics

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/magefree/mage-commander/internal/game/entity"
)

// DealDurationKind selects how a deal expires.
type DealDurationKind int

const (
	DealTurns DealDurationKind = iota
	DealUntilEndOfGame
	DealUntilPlayerEliminated
	DealCustom
)

// DealDuration describes when a deal ends. Turns is used by DealTurns and
// Player by DealUntilPlayerEliminated.
type DealDuration struct {
	Kind        DealDurationKind
	Turns       int
	Player      entity.ID
	Description string
}

// DealStatus is the lifecycle state of a deal.
type DealStatus int

const (
	DealPending DealStatus = iota
	DealActive
	DealRejected
	DealBroken
	DealExpired
)

var dealStatusNames = map[DealStatus]string{
	DealPending:  "PENDING",
	DealActive:   "ACTIVE",
	DealRejected: "REJECTED",
	DealBroken:   "BROKEN",
	DealExpired:  "EXPIRED",
}

func (s DealStatus) String() string {
	if name, ok := dealStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DEAL_STATUS_%d", int(s))
}

// Deal is an informal agreement between two players. The engine tracks it;
// it does not enforce the terms.
type Deal struct {
	ID          string
	Proposer    entity.ID
	Target      entity.ID
	Terms       string
	Duration    DealDuration
	Status      DealStatus
	CreatedTurn int
	BrokenBy    entity.ID
	Reason      string
}

// Propose records a pending deal and returns it.
func (s *System) Propose(proposer, target entity.ID, terms string, duration DealDuration, turn int) (Deal, error) {
	if proposer == target {
		return Deal{}, ErrSelfDeal
	}
	d := &Deal{
		ID:          uuid.New().String(),
		Proposer:    proposer,
		Target:      target,
		Terms:       terms,
		Duration:    duration,
		Status:      DealPending,
		CreatedTurn: turn,
	}
	s.pending = append(s.pending, d)
	return *d, nil
}

func take(list []*Deal, id string) (*Deal, []*Deal) {
	for i, d := range list {
		if d.ID == id {
			return d, append(list[:i], list[i+1:]...)
		}
	}
	return nil, list
}

// Respond accepts or rejects a pending deal on behalf of its target.
func (s *System) Respond(dealID string, player entity.ID, accept bool) (Deal, error) {
	var d *Deal
	for _, p := range s.pending {
		if p.ID == dealID {
			d = p
			break
		}
	}
	if d == nil {
		return Deal{}, fmt.Errorf("respond to %s: %w", dealID, ErrDealNotFound)
	}
	if d.Target != player {
		return Deal{}, fmt.Errorf("respond to %s by %s: %w", dealID, player, ErrNotDealTarget)
	}
	_, s.pending = take(s.pending, dealID)
	if accept {
		d.Status = DealActive
		s.active = append(s.active, d)
	} else {
		d.Status = DealRejected
	}
	return *d, nil
}

// Break ends an active deal early, flagged with a reason.
func (s *System) Break(dealID string, player entity.ID, reason string) (Deal, error) {
	var d *Deal
	for _, a := range s.active {
		if a.ID == dealID {
			d = a
			break
		}
	}
	if d == nil {
		return Deal{}, fmt.Errorf("break %s: %w", dealID, ErrDealNotFound)
	}
	if d.Proposer != player && d.Target != player {
		return Deal{}, fmt.Errorf("break %s by %s: %w", dealID, player, ErrNotDealParty)
	}
	_, s.active = take(s.active, dealID)
	d.Status = DealBroken
	d.BrokenBy = player
	d.Reason = reason
	return *d, nil
}

// ExpireDeals removes active deals whose duration ended at turn. A deal
// also ends when either party is eliminated.
func (s *System) ExpireDeals(turn int, eliminated func(entity.ID) bool) []Deal {
	var expired []Deal
	kept := s.active[:0]
	for _, d := range s.active {
		if dealOver(d, turn, eliminated) {
			d.Status = DealExpired
			expired = append(expired, *d)
			continue
		}
		kept = append(kept, d)
	}
	s.active = kept
	return expired
}

func dealOver(d *Deal, turn int, eliminated func(entity.ID) bool) bool {
	if eliminated(d.Proposer) || eliminated(d.Target) {
		return true
	}
	switch d.Duration.Kind {
	case DealTurns:
		return d.CreatedTurn+d.Duration.Turns <= turn
	case DealUntilPlayerEliminated:
		return eliminated(d.Duration.Player)
	}
	return false
}

// PendingDeals returns the deals awaiting a response.
func (s *System) PendingDeals() []Deal {
	out := make([]Deal, 0, len(s.pending))
	for _, d := range s.pending {
		out = append(out, *d)
	}
	return out
}

// ActiveDeals returns the accepted deals still in force.
func (s *System) ActiveDeals() []Deal {
	out := make([]Deal, 0, len(s.active))
	for _, d := range s.active {
		out = append(out, *d)
	}
	return out
}
