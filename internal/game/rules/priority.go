package rules

import (
	"time"

	"github.com/magefree/mage-commander/internal/game/entity"
)

// PrioritySystem tracks which player may act and detects when every player
// has passed in succession. It is re-initialized whenever priority resets:
// at the start of each step and after anything is put on or taken off the stack.
type PrioritySystem struct {
	activePlayer   entity.ID
	priorityPlayer entity.ID
	passed         map[entity.ID]bool
	playerOrder    []entity.ID
	currentIndex   int
	stackEmpty     bool
	allPassed      bool

	responseTimeout time.Duration
	deadline        time.Duration // simulation time; zero when not waiting
	waiting         bool

	simultaneous entity.Set

	autoPassed   bool
	autoPassTurn int
	autoPassStep TurnStep
}

// NewPrioritySystem creates an empty priority system. A zero responseTimeout
// disables the response deadline.
func NewPrioritySystem(responseTimeout time.Duration) *PrioritySystem {
	return &PrioritySystem{
		passed:          make(map[entity.ID]bool),
		stackEmpty:      true,
		responseTimeout: responseTimeout,
		simultaneous:    entity.NewSet(),
	}
}

// Initialize builds a rotation starting at activePlayer and clears every
// passed flag. Players not in players are dropped from the rotation.
func (ps *PrioritySystem) Initialize(players []entity.ID, activePlayer entity.ID) {
	ps.activePlayer = activePlayer
	ps.playerOrder = rotateTo(players, activePlayer)
	ps.passed = make(map[entity.ID]bool, len(ps.playerOrder))
	for _, p := range ps.playerOrder {
		ps.passed[p] = false
	}
	ps.currentIndex = 0
	ps.allPassed = false
	ps.waiting = false
	ps.deadline = 0
	if len(ps.playerOrder) > 0 {
		ps.priorityPlayer = ps.playerOrder[0]
	} else {
		ps.priorityPlayer = entity.None
	}
}

func rotateTo(players []entity.ID, first entity.ID) []entity.ID {
	order := make([]entity.ID, 0, len(players))
	start := 0
	for i, p := range players {
		if p == first {
			start = i
			break
		}
	}
	for i := 0; i < len(players); i++ {
		order = append(order, players[(start+i)%len(players)])
	}
	return order
}

// ActivePlayer returns the player whose turn it is.
func (ps *PrioritySystem) ActivePlayer() entity.ID {
	return ps.activePlayer
}

// PriorityPlayer returns the player who currently holds priority.
func (ps *PrioritySystem) PriorityPlayer() entity.ID {
	return ps.priorityPlayer
}

// PlayerOrder returns the rotation, starting at the active player.
func (ps *PrioritySystem) PlayerOrder() []entity.ID {
	return append([]entity.ID(nil), ps.playerOrder...)
}

// HasPriority reports whether player currently holds priority.
func (ps *PrioritySystem) HasPriority(player entity.ID) bool {
	return player.Valid() && ps.priorityPlayer == player
}

// HasPassed reports whether player passed in the current round.
func (ps *PrioritySystem) HasPassed(player entity.ID) bool {
	return ps.passed[player]
}

// AllPlayersPassed reports whether every player in the rotation has passed
// in succession.
func (ps *PrioritySystem) AllPlayersPassed() bool {
	return ps.allPassed
}

// PassPriority marks the current holder as passed and hands priority to the
// next player in the rotation.
func (ps *PrioritySystem) PassPriority() {
	if len(ps.playerOrder) == 0 || ps.allPassed {
		return
	}
	ps.passed[ps.priorityPlayer] = true
	ps.currentIndex = (ps.currentIndex + 1) % len(ps.playerOrder)
	ps.priorityPlayer = ps.playerOrder[ps.currentIndex]
	ps.waiting = false
	ps.deadline = 0

	for _, p := range ps.playerOrder {
		if !ps.passed[p] {
			return
		}
	}
	ps.allPassed = true
}

// Pass passes priority on behalf of player. A pass from anyone other than
// the current holder is ignored and reported as false.
func (ps *PrioritySystem) Pass(player entity.ID) bool {
	if !ps.HasPriority(player) || ps.allPassed {
		return false
	}
	ps.PassPriority()
	return true
}

// PassAll passes for every remaining player in the round.
func (ps *PrioritySystem) PassAll() {
	for i := 0; i < len(ps.playerOrder) && !ps.allPassed; i++ {
		ps.PassPriority()
	}
}

// ResetAfterStackAction restarts the round at the active player after an
// object was put on the stack.
func (ps *PrioritySystem) ResetAfterStackAction(players []entity.ID, activePlayer entity.ID) {
	ps.Initialize(players, activePlayer)
	ps.stackEmpty = false
}

// ResetAfterResolution restarts the round at the active player after the top
// of the stack resolved.
func (ps *PrioritySystem) ResetAfterResolution(players []entity.ID, activePlayer entity.ID, stackEmpty bool) {
	ps.Initialize(players, activePlayer)
	ps.stackEmpty = stackEmpty
}

// SetStackEmpty records whether the stack is empty.
func (ps *PrioritySystem) SetStackEmpty(empty bool) {
	ps.stackEmpty = empty
}

// StackEmpty returns the last recorded stack state.
func (ps *PrioritySystem) StackEmpty() bool {
	return ps.stackEmpty
}

// CanAdvancePhase reports whether the step may end: everybody passed and the
// stack is empty.
func (ps *PrioritySystem) CanAdvancePhase() bool {
	return ps.allPassed && ps.stackEmpty
}

// ShouldResolveStack reports whether a completed round with a non-empty stack
// calls for resolving the top object.
func (ps *PrioritySystem) ShouldResolveStack() bool {
	return ps.allPassed && !ps.stackEmpty
}

// ResponseTimeout returns the configured response timeout.
func (ps *PrioritySystem) ResponseTimeout() time.Duration {
	return ps.responseTimeout
}

// WaitForResponse starts the response deadline for the current holder.
// It does nothing when the timeout is disabled or a deadline is running.
func (ps *PrioritySystem) WaitForResponse(now time.Duration) {
	if ps.responseTimeout <= 0 || ps.waiting || !ps.priorityPlayer.Valid() || ps.allPassed {
		return
	}
	ps.waiting = true
	ps.deadline = now + ps.responseTimeout
}

// WaitingForResponse reports whether a response deadline is running.
func (ps *PrioritySystem) WaitingForResponse() bool {
	return ps.waiting
}

// Deadline returns the running response deadline in simulation time.
func (ps *PrioritySystem) Deadline() time.Duration {
	return ps.deadline
}

// ResponseExpired reports whether the running deadline has passed.
func (ps *PrioritySystem) ResponseExpired(now time.Duration) bool {
	return ps.waiting && now >= ps.deadline
}

// BeginSimultaneousDecision registers players whose answers are awaited.
func (ps *PrioritySystem) BeginSimultaneousDecision(players []entity.ID) {
	ps.simultaneous = entity.NewSet(players...)
}

// RecordDecision removes player from the awaited set. Returns true when the
// set became empty.
func (ps *PrioritySystem) RecordDecision(player entity.ID) bool {
	ps.simultaneous.Remove(player)
	return len(ps.simultaneous) == 0
}

// PendingDecisions returns the number of awaited answers.
func (ps *PrioritySystem) PendingDecisions() int {
	return len(ps.simultaneous)
}

// ClearSimultaneousDecision drops every awaited answer.
func (ps *PrioritySystem) ClearSimultaneousDecision() {
	ps.simultaneous = entity.NewSet()
}

// MarkAutoPassed records that the step was auto-passed and reports whether
// this is the first time for (turn, step).
func (ps *PrioritySystem) MarkAutoPassed(turn int, step TurnStep) bool {
	if ps.autoPassed && ps.autoPassTurn == turn && ps.autoPassStep == step {
		return false
	}
	ps.autoPassed = true
	ps.autoPassTurn = turn
	ps.autoPassStep = step
	return true
}

// RemovePlayer drops an eliminated player from the current round. If the
// player held priority, priority moves on without marking them passed.
func (ps *PrioritySystem) RemovePlayer(player entity.ID) {
	idx := -1
	for i, p := range ps.playerOrder {
		if p == player {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	ps.playerOrder = append(ps.playerOrder[:idx], ps.playerOrder[idx+1:]...)
	delete(ps.passed, player)
	ps.simultaneous.Remove(player)
	if len(ps.playerOrder) == 0 {
		ps.priorityPlayer = entity.None
		ps.currentIndex = 0
		ps.allPassed = true
		return
	}
	if idx < ps.currentIndex {
		ps.currentIndex--
	}
	ps.currentIndex %= len(ps.playerOrder)
	ps.priorityPlayer = ps.playerOrder[ps.currentIndex]
	if ps.activePlayer == player {
		ps.activePlayer = ps.playerOrder[0]
	}
	ps.waiting = false
	ps.deadline = 0

	ps.allPassed = true
	for _, p := range ps.playerOrder {
		if !ps.passed[p] {
			ps.allPassed = false
			break
		}
	}
}
