package rules

import (
	"fmt"

	"github.com/magefree/mage-commander/internal/game/entity"
)

// Phase represents the broad phases of a turn.
type Phase int

const (
	PhaseBeginning Phase = iota
	PhasePrecombatMain
	PhaseCombat
	PhasePostcombatMain
	PhaseEnding
)

var phaseNames = map[Phase]string{
	PhaseBeginning:      "BEGINNING",
	PhasePrecombatMain:  "PRECOMBAT_MAIN",
	PhaseCombat:         "COMBAT",
	PhasePostcombatMain: "POSTCOMBAT_MAIN",
	PhaseEnding:         "ENDING",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Step represents the individual steps that comprise a turn.
type Step int

const (
	StepUntap Step = iota
	StepUpkeep
	StepDraw
	StepMain1
	StepBeginCombat
	StepDeclareAttackers
	StepDeclareBlockers
	StepCombatDamage
	StepEndCombat
	StepMain2
	StepEnd
	StepCleanup
)

var stepNames = map[Step]string{
	StepUntap:            "UNTAP",
	StepUpkeep:           "UPKEEP",
	StepDraw:             "DRAW",
	StepMain1:            "MAIN1",
	StepBeginCombat:      "BEGIN_COMBAT",
	StepDeclareAttackers: "DECLARE_ATTACKERS",
	StepDeclareBlockers:  "DECLARE_BLOCKERS",
	StepCombatDamage:     "COMBAT_DAMAGE",
	StepEndCombat:        "END_COMBAT",
	StepMain2:            "MAIN2",
	StepEnd:              "END",
	StepCleanup:          "CLEANUP",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// TurnStep is a position in the turn structure.
type TurnStep struct {
	Phase Phase
	Step  Step
}

// turnSequence is the fixed order of steps in every turn.
var turnSequence = []TurnStep{
	{PhaseBeginning, StepUntap},
	{PhaseBeginning, StepUpkeep},
	{PhaseBeginning, StepDraw},
	{PhasePrecombatMain, StepMain1},
	{PhaseCombat, StepBeginCombat},
	{PhaseCombat, StepDeclareAttackers},
	{PhaseCombat, StepDeclareBlockers},
	{PhaseCombat, StepCombatDamage},
	{PhaseCombat, StepEndCombat},
	{PhasePostcombatMain, StepMain2},
	{PhaseEnding, StepEnd},
	{PhaseEnding, StepCleanup},
}

// StepsPerTurn is the length of the turn cycle.
var StepsPerTurn = len(turnSequence)

// FirstStep is the step every turn starts in.
func FirstStep() TurnStep {
	return turnSequence[0]
}

// TurnStepFor returns the canonical TurnStep for s.
func TurnStepFor(s Step) (TurnStep, bool) {
	for _, ts := range turnSequence {
		if ts.Step == s {
			return ts, true
		}
	}
	return TurnStep{}, false
}

func (ts TurnStep) index() int {
	for i, entry := range turnSequence {
		if entry == ts {
			return i
		}
	}
	return -1
}

// Next returns the step that follows ts. Cleanup wraps to Untap.
// An unknown step maps to Untap.
func (ts TurnStep) Next() TurnStep {
	idx := ts.index()
	if idx < 0 {
		return FirstStep()
	}
	return turnSequence[(idx+1)%len(turnSequence)]
}

// WrapsTurn reports whether Next() starts a new turn.
func (ts TurnStep) WrapsTurn() bool {
	return ts.Step == StepCleanup
}

// AutoPassIfEmpty reports whether priority is passed for every player
// automatically when the stack is empty. No player receives priority in
// the untap and cleanup steps.
func (ts TurnStep) AutoPassIfEmpty() bool {
	return ts.Step == StepUntap || ts.Step == StepCleanup
}

// AllowsActions reports whether players may take actions in this step.
func (ts TurnStep) AllowsActions() bool {
	return !ts.AutoPassIfEmpty()
}

// AllowsSorcerySpeed reports whether sorcery-speed actions are possible.
func (ts TurnStep) AllowsSorcerySpeed() bool {
	return ts.Step == StepMain1 || ts.Step == StepMain2
}

// IsCombat reports whether ts is inside the combat phase.
func (ts TurnStep) IsCombat() bool {
	return ts.Phase == PhaseCombat
}

func (ts TurnStep) String() string {
	return ts.Phase.String() + "/" + ts.Step.String()
}

// TurnManager tracks the turn number, the active player and the turn order.
// The active player changes only when Cleanup wraps to Untap.
type TurnManager struct {
	current      TurnStep
	turnNumber   int
	activePlayer entity.ID
	turnOrder    []entity.ID
	eliminated   entity.Set
}

// NewTurnManager creates a turn manager at turn 1, untap step, with the first
// player in turnOrder active.
func NewTurnManager(turnOrder []entity.ID) *TurnManager {
	order := append([]entity.ID(nil), turnOrder...)
	tm := &TurnManager{
		current:    FirstStep(),
		turnNumber: 1,
		turnOrder:  order,
		eliminated: entity.NewSet(),
	}
	if len(order) > 0 {
		tm.activePlayer = order[0]
	}
	return tm
}

// RestoreTurnManager rebuilds a turn manager from persisted values.
// Values are expected to be sanitized by the caller.
func RestoreTurnManager(turnOrder []entity.ID, active entity.ID, turnNumber int, current TurnStep, eliminated []entity.ID) *TurnManager {
	tm := NewTurnManager(turnOrder)
	tm.activePlayer = active
	tm.turnNumber = turnNumber
	tm.current = current
	for _, p := range eliminated {
		tm.eliminated.Add(p)
	}
	return tm
}

// Current returns the step in progress.
func (tm *TurnManager) Current() TurnStep {
	return tm.current
}

// CurrentPhase returns the phase currently in progress.
func (tm *TurnManager) CurrentPhase() Phase {
	return tm.current.Phase
}

// CurrentStep returns the step currently in progress.
func (tm *TurnManager) CurrentStep() Step {
	return tm.current.Step
}

// TurnNumber returns the current turn number (1-based).
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// ActivePlayer returns the player who currently has the turn.
func (tm *TurnManager) ActivePlayer() entity.ID {
	return tm.activePlayer
}

// TurnOrder returns a copy of the full seating order, eliminated players included.
func (tm *TurnManager) TurnOrder() []entity.ID {
	return append([]entity.ID(nil), tm.turnOrder...)
}

// PlayersInGame returns the seating order without eliminated players,
// rotated to start at the active player.
func (tm *TurnManager) PlayersInGame() []entity.ID {
	start := 0
	for i, p := range tm.turnOrder {
		if p == tm.activePlayer {
			start = i
			break
		}
	}
	players := make([]entity.ID, 0, len(tm.turnOrder))
	for i := 0; i < len(tm.turnOrder); i++ {
		p := tm.turnOrder[(start+i)%len(tm.turnOrder)]
		if !tm.eliminated.Has(p) {
			players = append(players, p)
		}
	}
	return players
}

// Eliminate removes a player from rotation. Returns false if the player was
// unknown or already eliminated.
func (tm *TurnManager) Eliminate(player entity.ID) bool {
	if tm.eliminated.Has(player) {
		return false
	}
	for _, p := range tm.turnOrder {
		if p == player {
			tm.eliminated.Add(player)
			return true
		}
	}
	return false
}

// IsEliminated reports whether the player has left the game.
func (tm *TurnManager) IsEliminated(player entity.ID) bool {
	return tm.eliminated.Has(player)
}

// Eliminated returns the eliminated players in seating order.
func (tm *TurnManager) Eliminated() []entity.ID {
	out := make([]entity.ID, 0, len(tm.eliminated))
	for _, p := range tm.turnOrder {
		if tm.eliminated.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// NextPlayer returns the next non-eliminated player after from in turn order.
// Returns entity.None when nobody is left.
func (tm *TurnManager) NextPlayer(from entity.ID) entity.ID {
	if len(tm.turnOrder) == 0 {
		return entity.None
	}
	start := -1
	for i, p := range tm.turnOrder {
		if p == from {
			start = i
			break
		}
	}
	for i := 1; i <= len(tm.turnOrder); i++ {
		p := tm.turnOrder[(start+i+len(tm.turnOrder))%len(tm.turnOrder)]
		if !tm.eliminated.Has(p) {
			return p
		}
	}
	return entity.None
}

// Advance moves to the next step. When Cleanup wraps to Untap the turn
// number is incremented and the next player in turn order becomes active.
// The returned flag reports whether a new turn started.
func (tm *TurnManager) Advance() (TurnStep, bool) {
	wrapped := tm.current.WrapsTurn()
	tm.current = tm.current.Next()
	if wrapped {
		tm.turnNumber++
		if next := tm.NextPlayer(tm.activePlayer); next.Valid() {
			tm.activePlayer = next
		}
	}
	return tm.current, wrapped
}

// SkipTo jumps forward within the current turn to target. It never wraps;
// a target at or before the current step is ignored.
func (tm *TurnManager) SkipTo(target TurnStep) bool {
	from, to := tm.current.index(), target.index()
	if to <= from || to < 0 {
		return false
	}
	tm.current = target
	return true
}

// ForceEndTurn jumps to the cleanup step of the current turn.
func (tm *TurnManager) ForceEndTurn() {
	tm.current = turnSequence[len(turnSequence)-1]
}
