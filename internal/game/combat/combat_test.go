package combat

import (
	"testing"

	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice entity.ID = 1
	bob   entity.ID = 2
	carol entity.ID = 3

	bear     entity.ID = 10
	giant    entity.ID = 11
	wall     entity.ID = 12
	elf      entity.ID = 13
	knight   entity.ID = 14
	general  entity.ID = 15
	squirrel entity.ID = 16
)

type statTable map[entity.ID]Combatant

func (st statTable) lookup(card entity.ID) (Combatant, bool) {
	c, ok := st[card]
	return c, ok
}

func TestDeclareAttackerAndBlocker(t *testing.T) {
	s := New()
	s.Begin()

	require.NoError(t, s.DeclareAttacker(bear, bob))
	st, ok := s.Status(bear)
	require.True(t, ok)
	assert.Equal(t, Unblocked, st)
	assert.Equal(t, []entity.ID{bear}, s.AttackingPlayer(bob))

	assert.ErrorIs(t, s.DeclareAttacker(bear, carol), ErrAlreadyAttacking)

	require.NoError(t, s.DeclareBlocker(wall, bear))
	st, _ = s.Status(bear)
	assert.Equal(t, Blocked, st)
	assert.Equal(t, []entity.ID{wall}, s.Blockers(bear))
	assert.True(t, s.IsBlocking(wall))

	assert.ErrorIs(t, s.DeclareBlocker(wall, bear), ErrAlreadyBlocking)
	assert.ErrorIs(t, s.DeclareBlocker(elf, giant), ErrUnregisteredAttacker)
	assert.ErrorIs(t, s.DeclareBlocker(bear, bear), ErrAttackerCannotBlock)
	assert.Empty(t, s.Blockers(giant), "failed block must leave state unchanged")
}

func TestCannotAttackRestriction(t *testing.T) {
	s := New()
	s.Begin()
	s.SetRestrictions(entity.NewSet(bear), map[entity.ID]entity.Set{bear: entity.NewSet(carol)})

	assert.True(t, s.MustAttack(bear))
	assert.ErrorIs(t, s.DeclareAttacker(bear, carol), ErrCannotAttack)
	assert.False(t, s.HasAttackers())

	assert.Equal(t, []entity.ID{bear}, s.UnfulfilledMustAttack([]entity.ID{bear, giant}))
	require.NoError(t, s.DeclareAttacker(bear, bob))
	assert.Empty(t, s.UnfulfilledMustAttack([]entity.ID{bear, giant}))
}

func TestUnblockedAttackerHitsPlayer(t *testing.T) {
	s := New()
	s.Begin()
	require.NoError(t, s.DeclareAttacker(bear, bob))

	stats := statTable{bear: {Controller: alice, Power: 2, Toughness: 2, Alive: true}}
	assignments := s.AssignDamage(false, stats.lookup)

	require.Len(t, assignments, 1)
	assert.Equal(t, Assignment{
		Source:           bear,
		Target:           bob,
		TargetIsPlayer:   true,
		Amount:           2,
		SourceController: alice,
	}, assignments[0])
	assert.True(t, s.PassDone(false))
	assert.Equal(t, 1, s.DamageSteps())

	s.End()
	assert.False(t, s.HasAttackers())
	assert.Empty(t, s.Blockers(bear))
	_, ok := s.Status(bear)
	assert.False(t, ok)
}

func TestBlockedDamageOrder(t *testing.T) {
	tests := []struct {
		name     string
		attacker Combatant
		want     []Assignment
	}{
		{
			name:     "excess goes to the last blocker",
			attacker: Combatant{Controller: alice, Power: 6, Toughness: 6, Alive: true},
			want: []Assignment{
				{Source: giant, Target: wall, Amount: 1, SourceController: alice},
				{Source: giant, Target: elf, Amount: 5, SourceController: alice},
				{Source: wall, Target: giant, Amount: 0, SourceController: bob},
			},
		},
		{
			name:     "trample sends the excess to the player",
			attacker: Combatant{Controller: alice, Power: 6, Toughness: 6, Trample: true, Alive: true},
			want: []Assignment{
				{Source: giant, Target: wall, Amount: 1, SourceController: alice},
				{Source: giant, Target: elf, Amount: 1, SourceController: alice},
				{Source: giant, Target: bob, TargetIsPlayer: true, Amount: 4, SourceController: alice},
			},
		},
		{
			name:     "not enough power stops at the first blocker",
			attacker: Combatant{Controller: alice, Power: 1, Toughness: 1, Alive: true},
			want: []Assignment{
				{Source: giant, Target: wall, Amount: 1, SourceController: alice},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Begin()
			require.NoError(t, s.DeclareAttacker(giant, bob))
			require.NoError(t, s.DeclareBlocker(wall, giant))
			require.NoError(t, s.DeclareBlocker(elf, giant))

			stats := statTable{
				giant: tt.attacker,
				wall:  {Controller: bob, Power: 0, Toughness: 4, Damage: 3, Alive: true},
				elf:   {Controller: bob, Power: 1, Toughness: 1, Alive: true},
			}
			got := s.AssignDamage(false, stats.lookup)

			var want []Assignment
			for _, a := range tt.want {
				if a.Amount > 0 {
					want = append(want, a)
				}
			}
			want = append(want, Assignment{Source: elf, Target: giant, Amount: 1, SourceController: bob})
			assert.Equal(t, want, got)
		})
	}
}

func TestBlockedAttackerWithDeadBlockers(t *testing.T) {
	stats := statTable{
		giant: {Controller: alice, Power: 5, Toughness: 5, Alive: true},
		wall:  {Controller: bob, Power: 0, Toughness: 4, Alive: false},
	}

	s := New()
	s.Begin()
	require.NoError(t, s.DeclareAttacker(giant, bob))
	require.NoError(t, s.DeclareBlocker(wall, giant))
	assert.Empty(t, s.AssignDamage(false, stats.lookup), "blocked without trample deals nothing once blockers are gone")

	trampler := stats[giant]
	trampler.Trample = true
	stats[giant] = trampler
	got := s.AssignDamage(false, stats.lookup)
	require.Len(t, got, 1)
	assert.True(t, got[0].TargetIsPlayer)
	assert.Equal(t, 5, got[0].Amount)
}

func TestFirstStrikePasses(t *testing.T) {
	stats := statTable{
		knight: {Controller: alice, Power: 2, Toughness: 2, FirstStrike: true, Alive: true},
		bear:   {Controller: alice, Power: 2, Toughness: 2, Alive: true},
		elf:    {Controller: alice, Power: 1, Toughness: 1, DoubleStrike: true, Alive: true},
	}

	s := New()
	s.Begin()
	require.NoError(t, s.DeclareAttacker(knight, bob))
	require.NoError(t, s.DeclareAttacker(bear, bob))
	require.NoError(t, s.DeclareAttacker(elf, bob))
	require.True(t, s.NeedsFirstStrikePass(stats.lookup))

	first := s.AssignDamage(true, stats.lookup)
	regular := s.AssignDamage(false, stats.lookup)

	sources := func(as []Assignment) []entity.ID {
		var out []entity.ID
		for _, a := range as {
			out = append(out, a.Source)
		}
		return out
	}
	assert.Equal(t, []entity.ID{knight, elf}, sources(first))
	assert.Equal(t, []entity.ID{bear, elf}, sources(regular))
	assert.Equal(t, 2, s.DamageSteps())

	plain := New()
	plain.Begin()
	require.NoError(t, plain.DeclareAttacker(bear, bob))
	assert.False(t, plain.NeedsFirstStrikePass(stats.lookup))
}

func TestCommanderDamageThisCombat(t *testing.T) {
	s := New()
	s.Begin()
	require.NoError(t, s.DeclareAttacker(general, bob))

	stats := statTable{general: {Controller: alice, Power: 7, Toughness: 7, Commander: true, Alive: true}}
	got := s.AssignDamage(false, stats.lookup)
	require.Len(t, got, 1)
	assert.True(t, got[0].SourceIsCommander)

	assert.Equal(t, 7, s.RecordCommanderDamage(bob, general, got[0].Amount))
	assert.Equal(t, 7, s.CommanderDamage(bob, general))
	assert.Zero(t, s.CommanderDamage(carol, general))

	s.End()
	assert.Zero(t, s.CommanderDamage(bob, general))
}

func TestRemoveFromCombat(t *testing.T) {
	s := New()
	s.Begin()
	require.NoError(t, s.DeclareAttacker(bear, bob))
	require.NoError(t, s.DeclareAttacker(squirrel, bob))
	require.NoError(t, s.DeclareBlocker(wall, bear))

	s.Remove(wall)
	assert.False(t, s.IsBlocking(wall))
	assert.Empty(t, s.Blockers(bear))

	s.Remove(bear)
	assert.False(t, s.InCombat(bear))
	assert.Equal(t, []entity.ID{squirrel}, s.Attackers())
	assert.Equal(t, []entity.ID{squirrel}, s.AttackingPlayer(bob))
}
