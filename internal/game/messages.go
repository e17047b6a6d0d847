package game

import (
	"errors"
	"fmt"

	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/politics"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
)

// ErrUnknownIntent is returned by Submit for values that are not intents.
var ErrUnknownIntent = errors.New("unknown intent type")

// Queue is a FIFO of one message kind.
type Queue[T any] struct {
	items []T
}

// Push appends v.
func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
}

// Drain returns every queued value and empties the queue.
func (q *Queue[T]) Drain() []T {
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Items returns a copy of the queued values without draining.
func (q *Queue[T]) Items() []T {
	return append([]T(nil), q.items...)
}

// Inbound intents.

type PassPriorityEvent struct {
	Player entity.ID
}

type AttackerDeclaredEvent struct {
	Attacker entity.ID
	Defender entity.ID
}

type BlockerDeclaredEvent struct {
	Blocker  entity.ID
	Attacker entity.ID
}

type AssignCombatDamageEvent struct {
	IsFirstStrike bool
}

// ZoneChangeEvent asks for a card to move. A destination of zones.Stack is a
// cast. The engine echoes every completed move on the outbox.
type ZoneChangeEvent struct {
	Card            entity.ID
	Owner           entity.ID
	SourceZone      zones.Zone
	DestinationZone zones.Zone
	WasVisible      bool
	IsVisible       bool
}

// CommanderZoneChoiceEvent is published when a commander's owner may send it
// to the command zone, and submitted with the owner's answer in
// MoveToCommandZone.
type CommanderZoneChoiceEvent struct {
	Commander          entity.ID
	Owner              entity.ID
	CurrentZone        zones.Zone
	CanGoToCommandZone bool
	MoveToCommandZone  bool
}

type MonarchChangedEvent struct {
	NewMonarch      entity.ID
	PreviousMonarch entity.ID
	Source          string
}

type InitiativeTakenEvent struct {
	Player   entity.ID
	Previous entity.ID
}

type GoadEvent struct {
	Creature entity.ID
	Source   entity.ID
	Duration int
	Vow      bool
}

type VoteStartedEvent struct {
	Vote politics.Vote
}

type VoteCastEvent struct {
	VoteID string
	Player entity.ID
	Choice string
}

type DealProposedEvent struct {
	Proposer entity.ID
	Target   entity.ID
	Terms    string
	Duration politics.DealDuration
}

type DealResponseEvent struct {
	DealID string
	Player entity.ID
	Accept bool
}

type DealBrokenEvent struct {
	DealID string
	Player entity.ID
	Reason string
}

type ActivateAbilityEvent struct {
	Player      entity.ID
	Source      entity.ID
	Description string
}

type CounterItemEvent struct {
	Player entity.ID
	ItemID string
	Reason rules.CounterReason
}

type ConcedeEvent struct {
	Player entity.ID
}

// Inbox holds one queue per intent kind. Queues are drained in pipeline
// order, never in arrival order across kinds.
type Inbox struct {
	ZoneChanges     Queue[ZoneChangeEvent]
	CommanderChoice Queue[CommanderZoneChoiceEvent]
	MonarchChanges  Queue[MonarchChangedEvent]
	Initiative      Queue[InitiativeTakenEvent]
	Goads           Queue[GoadEvent]
	VoteStarts      Queue[VoteStartedEvent]
	VoteCasts       Queue[VoteCastEvent]
	DealProposals   Queue[DealProposedEvent]
	DealResponses   Queue[DealResponseEvent]
	DealBreaks      Queue[DealBrokenEvent]
	Concessions     Queue[ConcedeEvent]
	Activations     Queue[ActivateAbilityEvent]
	Counters        Queue[CounterItemEvent]
	Attackers       Queue[AttackerDeclaredEvent]
	Blockers        Queue[BlockerDeclaredEvent]
	CombatDamage    Queue[AssignCombatDamageEvent]
	Passes          Queue[PassPriorityEvent]
}

// Submit routes an intent to its queue.
func (in *Inbox) Submit(intent any) error {
	switch v := intent.(type) {
	case PassPriorityEvent:
		in.Passes.Push(v)
	case AttackerDeclaredEvent:
		in.Attackers.Push(v)
	case BlockerDeclaredEvent:
		in.Blockers.Push(v)
	case AssignCombatDamageEvent:
		in.CombatDamage.Push(v)
	case ZoneChangeEvent:
		in.ZoneChanges.Push(v)
	case CommanderZoneChoiceEvent:
		in.CommanderChoice.Push(v)
	case MonarchChangedEvent:
		in.MonarchChanges.Push(v)
	case InitiativeTakenEvent:
		in.Initiative.Push(v)
	case GoadEvent:
		in.Goads.Push(v)
	case VoteStartedEvent:
		in.VoteStarts.Push(v)
	case VoteCastEvent:
		in.VoteCasts.Push(v)
	case DealProposedEvent:
		in.DealProposals.Push(v)
	case DealResponseEvent:
		in.DealResponses.Push(v)
	case DealBrokenEvent:
		in.DealBreaks.Push(v)
	case ActivateAbilityEvent:
		in.Activations.Push(v)
	case CounterItemEvent:
		in.Counters.Push(v)
	case ConcedeEvent:
		in.Concessions.Push(v)
	default:
		return fmt.Errorf("%T: %w", intent, ErrUnknownIntent)
	}
	return nil
}

// Outbound notifications.

type NextPhaseEvent struct {
	Turn         int
	Step         rules.TurnStep
	ActivePlayer entity.ID
}

type TurnStartEvent struct {
	Turn         int
	ActivePlayer entity.ID
}

type TurnEndEvent struct {
	Turn         int
	ActivePlayer entity.ID
}

type StackItemAddedEvent struct {
	Item rules.StackItem
}

type StackItemResolvedEvent struct {
	Item rules.StackItem
}

type EffectCounteredEvent struct {
	Item   rules.StackItem
	Reason rules.CounterReason
}

type CombatDamageEvent struct {
	Source            entity.ID
	Target            entity.ID
	Damage            int
	IsCombatDamage    bool
	SourceIsCommander bool
	TargetIsPlayer    bool
}

type EntersBattlefieldEvent struct {
	Permanent    entity.ID
	Owner        entity.ID
	EntersTapped bool
}

type RulesViolationEvent struct {
	Player entity.ID
	Card   entity.ID
	Rule   string
	Detail string
}

type PlayerEliminatedEvent struct {
	Player entity.ID
	Reason string
	Source entity.ID
}

type GameOverEvent struct {
	Winner entity.ID
	Turn   int
}

type MonarchDrawEvent struct {
	Player entity.ID
	Card   entity.ID
}

type VoteCompletedEvent struct {
	VoteID        string
	WinningChoice string
	VoteCount     int
	TimedOut      bool
}

type DealChangedEvent struct {
	Deal politics.Deal
}

// Outbox holds one queue per notification kind.
type Outbox struct {
	NextPhase         Queue[NextPhaseEvent]
	TurnStart         Queue[TurnStartEvent]
	TurnEnd           Queue[TurnEndEvent]
	StackItemAdded    Queue[StackItemAddedEvent]
	StackResolved     Queue[StackItemResolvedEvent]
	Countered         Queue[EffectCounteredEvent]
	ZoneChanges       Queue[ZoneChangeEvent]
	EntersBattlefield Queue[EntersBattlefieldEvent]
	CommanderChoice   Queue[CommanderZoneChoiceEvent]
	Attackers         Queue[AttackerDeclaredEvent]
	Blockers          Queue[BlockerDeclaredEvent]
	CombatDamage      Queue[CombatDamageEvent]
	Violations        Queue[RulesViolationEvent]
	Eliminations      Queue[PlayerEliminatedEvent]
	GameOver          Queue[GameOverEvent]
	MonarchChanges    Queue[MonarchChangedEvent]
	MonarchDraws      Queue[MonarchDrawEvent]
	Initiative        Queue[InitiativeTakenEvent]
	VoteStarts        Queue[VoteStartedEvent]
	VoteCompleted     Queue[VoteCompletedEvent]
	Deals             Queue[DealChangedEvent]
}

// Notifications is a drained Outbox.
type Notifications struct {
	NextPhase         []NextPhaseEvent
	TurnStart         []TurnStartEvent
	TurnEnd           []TurnEndEvent
	StackItemAdded    []StackItemAddedEvent
	StackResolved     []StackItemResolvedEvent
	Countered         []EffectCounteredEvent
	ZoneChanges       []ZoneChangeEvent
	EntersBattlefield []EntersBattlefieldEvent
	CommanderChoice   []CommanderZoneChoiceEvent
	Attackers         []AttackerDeclaredEvent
	Blockers          []BlockerDeclaredEvent
	CombatDamage      []CombatDamageEvent
	Violations        []RulesViolationEvent
	Eliminations      []PlayerEliminatedEvent
	GameOver          []GameOverEvent
	MonarchChanges    []MonarchChangedEvent
	MonarchDraws      []MonarchDrawEvent
	Initiative        []InitiativeTakenEvent
	VoteStarts        []VoteStartedEvent
	VoteCompleted     []VoteCompletedEvent
	Deals             []DealChangedEvent
}

// Drain empties every queue.
func (out *Outbox) Drain() Notifications {
	return Notifications{
		NextPhase:         out.NextPhase.Drain(),
		TurnStart:         out.TurnStart.Drain(),
		TurnEnd:           out.TurnEnd.Drain(),
		StackItemAdded:    out.StackItemAdded.Drain(),
		StackResolved:     out.StackResolved.Drain(),
		Countered:         out.Countered.Drain(),
		ZoneChanges:       out.ZoneChanges.Drain(),
		EntersBattlefield: out.EntersBattlefield.Drain(),
		CommanderChoice:   out.CommanderChoice.Drain(),
		Attackers:         out.Attackers.Drain(),
		Blockers:          out.Blockers.Drain(),
		CombatDamage:      out.CombatDamage.Drain(),
		Violations:        out.Violations.Drain(),
		Eliminations:      out.Eliminations.Drain(),
		GameOver:          out.GameOver.Drain(),
		MonarchChanges:    out.MonarchChanges.Drain(),
		MonarchDraws:      out.MonarchDraws.Drain(),
		Initiative:        out.Initiative.Drain(),
		VoteStarts:        out.VoteStarts.Drain(),
		VoteCompleted:     out.VoteCompleted.Drain(),
		Deals:             out.Deals.Drain(),
	}
}
