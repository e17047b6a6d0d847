// Package combat tracks attackers, blockers and combat damage for one
// combat phase.
package combat

import (
	"errors"
	"fmt"

	"github.com/magefree/mage-commander/internal/game/entity"
)

// BlockedStatus records whether an attacker was blocked.
type BlockedStatus int

const (
	Unblocked BlockedStatus = iota
	Blocked
)

func (s BlockedStatus) String() string {
	if s == Blocked {
		return "BLOCKED"
	}
	return "UNBLOCKED"
}

var (
	ErrCannotAttack         = errors.New("creature cannot attack that player")
	ErrAlreadyAttacking     = errors.New("creature is already attacking")
	ErrUnregisteredAttacker = errors.New("cannot block an unregistered attacker")
	ErrAlreadyBlocking      = errors.New("creature is already blocking")
	ErrAttackerCannotBlock  = errors.New("attacking creature cannot block")
)

// Combatant is the view of a creature the damage step needs.
type Combatant struct {
	Controller   entity.ID
	Power        int
	Toughness    int
	Damage       int
	FirstStrike  bool
	DoubleStrike bool
	Trample      bool
	Commander    bool
	Alive        bool
}

// dealsDamage reports whether the creature deals damage in the given pass.
func (c Combatant) dealsDamage(firstStrike bool) bool {
	if firstStrike {
		return c.FirstStrike || c.DoubleStrike
	}
	return !c.FirstStrike || c.DoubleStrike
}

func (c Combatant) lethal() int {
	if remaining := c.Toughness - c.Damage; remaining > 0 {
		return remaining
	}
	return 0
}

// StatsFunc looks up a creature's current combat view.
type StatsFunc func(card entity.ID) (Combatant, bool)

// Assignment is one (source, target, amount) damage triple. Assignments are
// enumerated first and applied separately.
type Assignment struct {
	Source            entity.ID
	Target            entity.ID
	TargetIsPlayer    bool
	Amount            int
	SourceController  entity.ID
	SourceIsCommander bool
}

// State is the combat sub-state of a game. It is emptied at combat entry
// and at end of combat.
type State struct {
	attackers     map[entity.ID]entity.ID // attacker → defending player
	attackOrder   []entity.ID
	blockers      map[entity.ID][]entity.ID
	blockedStatus map[entity.ID]BlockedStatus
	blocking      map[entity.ID]entity.ID // blocker → attacker
	byDefender    map[entity.ID]entity.Set

	// defending player → commander → damage this combat
	commanderDamage map[entity.ID]map[entity.ID]int

	mustAttack   entity.Set
	cannotAttack map[entity.ID]entity.Set // creature → forbidden defenders

	damageSteps     int
	firstStrikeDone bool
	regularDone     bool
	inProgress      bool
}

// New returns an empty combat state.
func New() *State {
	s := &State{}
	s.reset()
	return s
}

func (s *State) reset() {
	s.attackers = make(map[entity.ID]entity.ID)
	s.attackOrder = nil
	s.blockers = make(map[entity.ID][]entity.ID)
	s.blockedStatus = make(map[entity.ID]BlockedStatus)
	s.blocking = make(map[entity.ID]entity.ID)
	s.byDefender = make(map[entity.ID]entity.Set)
	s.commanderDamage = make(map[entity.ID]map[entity.ID]int)
	s.mustAttack = entity.NewSet()
	s.cannotAttack = make(map[entity.ID]entity.Set)
	s.damageSteps = 0
	s.firstStrikeDone = false
	s.regularDone = false
	s.inProgress = false
}

// Begin empties the state and marks combat as in progress.
func (s *State) Begin() {
	s.reset()
	s.inProgress = true
}

// InProgress reports whether a combat phase is running.
func (s *State) InProgress() bool {
	return s.inProgress
}

// End clears every map. Cumulative commander damage lives on the commander
// and is untouched.
func (s *State) End() {
	s.reset()
}

// SetRestrictions replaces the must-attack and cannot-attack maps.
func (s *State) SetRestrictions(mustAttack entity.Set, cannotAttack map[entity.ID]entity.Set) {
	s.mustAttack = entity.NewSet()
	for c := range mustAttack {
		s.mustAttack.Add(c)
	}
	s.cannotAttack = make(map[entity.ID]entity.Set, len(cannotAttack))
	for c, defenders := range cannotAttack {
		set := entity.NewSet()
		for d := range defenders {
			set.Add(d)
		}
		s.cannotAttack[c] = set
	}
}

// CanAttack reports whether creature may attack defender.
func (s *State) CanAttack(creature, defender entity.ID) bool {
	return !s.cannotAttack[creature].Has(defender)
}

// MustAttack reports whether creature is required to attack.
func (s *State) MustAttack(creature entity.ID) bool {
	return s.mustAttack.Has(creature)
}

// DeclareAttacker records attacker attacking defender.
func (s *State) DeclareAttacker(attacker, defender entity.ID) error {
	if !s.CanAttack(attacker, defender) {
		return fmt.Errorf("%s attacking %s: %w", attacker, defender, ErrCannotAttack)
	}
	if _, ok := s.attackers[attacker]; ok {
		return fmt.Errorf("%s: %w", attacker, ErrAlreadyAttacking)
	}
	s.attackers[attacker] = defender
	s.attackOrder = append(s.attackOrder, attacker)
	s.blockedStatus[attacker] = Unblocked
	set, ok := s.byDefender[defender]
	if !ok {
		set = entity.NewSet()
		s.byDefender[defender] = set
	}
	set.Add(attacker)
	return nil
}

// DeclareBlocker records blocker blocking attacker.
func (s *State) DeclareBlocker(blocker, attacker entity.ID) error {
	if _, ok := s.attackers[attacker]; !ok {
		return fmt.Errorf("%s blocking %s: %w", blocker, attacker, ErrUnregisteredAttacker)
	}
	if _, ok := s.attackers[blocker]; ok {
		return fmt.Errorf("%s: %w", blocker, ErrAttackerCannotBlock)
	}
	if _, ok := s.blocking[blocker]; ok {
		return fmt.Errorf("%s: %w", blocker, ErrAlreadyBlocking)
	}
	s.blockers[attacker] = append(s.blockers[attacker], blocker)
	s.blocking[blocker] = attacker
	s.blockedStatus[attacker] = Blocked
	return nil
}

// HasAttackers reports whether any attacker was declared.
func (s *State) HasAttackers() bool {
	return len(s.attackOrder) > 0
}

// Attackers returns attackers in declaration order.
func (s *State) Attackers() []entity.ID {
	return append([]entity.ID(nil), s.attackOrder...)
}

// Defender returns the player attacker is attacking.
func (s *State) Defender(attacker entity.ID) (entity.ID, bool) {
	d, ok := s.attackers[attacker]
	return d, ok
}

// AttackingPlayer returns the set of creatures attacking defender.
func (s *State) AttackingPlayer(defender entity.ID) []entity.ID {
	var out []entity.ID
	for _, a := range s.attackOrder {
		if s.byDefender[defender].Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Blockers returns the blockers of attacker in declaration order.
func (s *State) Blockers(attacker entity.ID) []entity.ID {
	return append([]entity.ID(nil), s.blockers[attacker]...)
}

// Status returns the blocked status of attacker.
func (s *State) Status(attacker entity.ID) (BlockedStatus, bool) {
	st, ok := s.blockedStatus[attacker]
	return st, ok
}

// IsBlocking reports whether card is blocking.
func (s *State) IsBlocking(card entity.ID) bool {
	_, ok := s.blocking[card]
	return ok
}

// InCombat reports whether card is an attacker or a blocker.
func (s *State) InCombat(card entity.ID) bool {
	_, attacking := s.attackers[card]
	return attacking || s.IsBlocking(card)
}

// Remove takes a creature out of combat, e.g. when it leaves the
// battlefield. An attacker's blockers stay blocking nothing and its
// blocked status is dropped.
func (s *State) Remove(card entity.ID) {
	if defender, ok := s.attackers[card]; ok {
		delete(s.attackers, card)
		delete(s.blockedStatus, card)
		s.byDefender[defender].Remove(card)
		for i, a := range s.attackOrder {
			if a == card {
				s.attackOrder = append(s.attackOrder[:i], s.attackOrder[i+1:]...)
				break
			}
		}
	}
	if attacker, ok := s.blocking[card]; ok {
		delete(s.blocking, card)
		list := s.blockers[attacker]
		for i, b := range list {
			if b == card {
				s.blockers[attacker] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// UnfulfilledMustAttack returns the creatures in candidates that must attack
// and were not declared as attackers.
func (s *State) UnfulfilledMustAttack(candidates []entity.ID) []entity.ID {
	var out []entity.ID
	for _, c := range candidates {
		if !s.mustAttack.Has(c) {
			continue
		}
		if _, declared := s.attackers[c]; !declared {
			out = append(out, c)
		}
	}
	return out
}

// NeedsFirstStrikePass reports whether any live combatant has first or
// double strike.
func (s *State) NeedsFirstStrikePass(stats StatsFunc) bool {
	check := func(card entity.ID) bool {
		c, ok := stats(card)
		return ok && c.Alive && (c.FirstStrike || c.DoubleStrike)
	}
	for _, a := range s.attackOrder {
		if check(a) {
			return true
		}
		for _, b := range s.blockers[a] {
			if check(b) {
				return true
			}
		}
	}
	return false
}

// PassDone reports whether the given damage pass already ran.
func (s *State) PassDone(firstStrike bool) bool {
	if firstStrike {
		return s.firstStrikeDone
	}
	return s.regularDone
}

// DamageSteps returns the number of damage passes assigned this combat.
func (s *State) DamageSteps() int {
	return s.damageSteps
}

// AssignDamage enumerates the damage triples of one pass without applying
// them and marks the pass as done. Attackers assign lethal damage to their
// blockers in declaration order; the remainder goes to the last blocker, or
// to the defending player with trample.
func (s *State) AssignDamage(firstStrike bool, stats StatsFunc) []Assignment {
	if firstStrike {
		s.firstStrikeDone = true
	} else {
		s.regularDone = true
	}
	s.damageSteps++

	var out []Assignment
	for _, attackerID := range s.attackOrder {
		attacker, ok := stats(attackerID)
		if !ok || !attacker.Alive {
			continue
		}
		defender := s.attackers[attackerID]

		if attacker.dealsDamage(firstStrike) && attacker.Power > 0 {
			out = append(out, s.attackerAssignments(attackerID, attacker, defender, stats)...)
		}

		for _, blockerID := range s.blockers[attackerID] {
			blocker, ok := stats(blockerID)
			if !ok || !blocker.Alive || !blocker.dealsDamage(firstStrike) || blocker.Power <= 0 {
				continue
			}
			out = append(out, Assignment{
				Source:            blockerID,
				Target:            attackerID,
				Amount:            blocker.Power,
				SourceController:  blocker.Controller,
				SourceIsCommander: blocker.Commander,
			})
		}
	}
	return out
}

func (s *State) attackerAssignments(attackerID entity.ID, attacker Combatant, defender entity.ID, stats StatsFunc) []Assignment {
	toPlayer := func(amount int) Assignment {
		return Assignment{
			Source:            attackerID,
			Target:            defender,
			TargetIsPlayer:    true,
			Amount:            amount,
			SourceController:  attacker.Controller,
			SourceIsCommander: attacker.Commander,
		}
	}

	if s.blockedStatus[attackerID] == Unblocked {
		return []Assignment{toPlayer(attacker.Power)}
	}

	type live struct {
		id     entity.ID
		lethal int
	}
	var blockers []live
	for _, b := range s.blockers[attackerID] {
		if c, ok := stats(b); ok && c.Alive {
			blockers = append(blockers, live{id: b, lethal: c.lethal()})
		}
	}
	if len(blockers) == 0 {
		if attacker.Trample {
			return []Assignment{toPlayer(attacker.Power)}
		}
		return nil
	}

	var out []Assignment
	remaining := attacker.Power
	for i, b := range blockers {
		amount := b.lethal
		if amount > remaining {
			amount = remaining
		}
		if i == len(blockers)-1 && !attacker.Trample {
			amount = remaining
		}
		if amount > 0 {
			out = append(out, Assignment{
				Source:            attackerID,
				Target:            b.id,
				Amount:            amount,
				SourceController:  attacker.Controller,
				SourceIsCommander: attacker.Commander,
			})
		}
		remaining -= amount
		if remaining <= 0 {
			return out
		}
	}
	if attacker.Trample && remaining > 0 {
		out = append(out, toPlayer(remaining))
	}
	return out
}

// RecordCommanderDamage accrues damage from commander to defender for this
// combat and returns the combat total.
func (s *State) RecordCommanderDamage(defender, commander entity.ID, amount int) int {
	m, ok := s.commanderDamage[defender]
	if !ok {
		m = make(map[entity.ID]int)
		s.commanderDamage[defender] = m
	}
	if amount > 0 {
		m[commander] += amount
	}
	return m[commander]
}

// CommanderDamage returns the damage commander dealt defender this combat.
func (s *State) CommanderDamage(defender, commander entity.ID) int {
	return s.commanderDamage[defender][commander]
}
