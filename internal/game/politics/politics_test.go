package politics

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
	dave  entity.ID = 4

	ogre entity.ID = 20
	imp  entity.ID = 21
)

func TestMonarchAndInitiative(t *testing.T) {
	s := New()
	_, ok := s.Monarch()
	assert.False(t, ok)

	prev, changed := s.SetMonarch(alice)
	assert.True(t, changed)
	assert.Equal(t, entity.None, prev)

	_, changed = s.SetMonarch(alice)
	assert.False(t, changed)

	prev, changed = s.SetMonarch(bob)
	assert.True(t, changed)
	assert.Equal(t, alice, prev)
	m, _ := s.Monarch()
	assert.Equal(t, bob, m)

	_, changed = s.TakeInitiative(carol)
	assert.True(t, changed)
	holder, ok := s.Initiative()
	require.True(t, ok)
	assert.Equal(t, carol, holder)
}

func TestGoadExpiry(t *testing.T) {
	s := New()
	s.Goad(ogre, alice, 2, 1)

	s.Prune(2)
	assert.True(t, s.IsGoaded(ogre), "goad from turn 1 lasting 2 is still active on turn 2")

	s.Prune(4)
	assert.False(t, s.IsGoaded(ogre), "1+2 <= 4 prunes the goad")
	assert.Empty(t, s.GoadedCreatures())
}

func TestGoadExpiresExactlyAtBoundary(t *testing.T) {
	s := New()
	s.Goad(ogre, alice, 2, 1)
	assert.Equal(t, 1, s.Prune(3))
}

func TestRestrictions(t *testing.T) {
	s := New()
	s.Goad(ogre, alice, 2, 1)
	s.Goad(ogre, bob, 2, 1)
	s.Vow(imp, carol, 3, 1)

	must, cannot := s.Restrictions()
	assert.True(t, must.Has(ogre))
	assert.False(t, must.Has(imp), "a vow does not force an attack")
	assert.True(t, cannot[ogre].Has(alice))
	assert.True(t, cannot[ogre].Has(bob))
	assert.False(t, cannot[ogre].Has(carol))
	assert.True(t, cannot[imp].Has(carol))

	s.RemovePlayer(alice)
	_, cannot = s.Restrictions()
	assert.False(t, cannot[ogre].Has(alice), "effects from an eliminated player end")
	assert.True(t, cannot[ogre].Has(bob))

	s.ForgetCreature(ogre)
	assert.False(t, s.IsGoaded(ogre))
}

func startFourPlayerVote(t *testing.T, s *System) Vote {
	t.Helper()
	v, err := s.StartVote(Vote{
		Topic:   "grace or condemnation",
		Choices: []string{"A", "B"},
		Voters:  []entity.ID{alice, bob, carol, dave},
	}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, v.ID)
	return v
}

func TestVoteDecisiveness(t *testing.T) {
	t.Run("2-1 with one voter left is not decisive", func(t *testing.T) {
		s := New()
		v := startFourPlayerVote(t, s)
		require.NoError(t, s.CastVote(v.ID, alice, "A"))
		require.NoError(t, s.CastVote(v.ID, bob, "A"))
		require.NoError(t, s.CastVote(v.ID, carol, "B"))

		assert.False(t, s.IsDecisive())
		_, done := s.CheckVote(0)
		assert.False(t, done)
		assert.Equal(t, []entity.ID{dave}, s.PendingVoters())
	})

	t.Run("2-2 after every vote is decisive and ties go to the first choice", func(t *testing.T) {
		s := New()
		v := startFourPlayerVote(t, s)
		require.NoError(t, s.CastVote(v.ID, alice, "B"))
		require.NoError(t, s.CastVote(v.ID, bob, "A"))
		require.NoError(t, s.CastVote(v.ID, carol, "B"))
		require.NoError(t, s.CastVote(v.ID, dave, "A"))

		assert.True(t, s.IsDecisive())
		result, done := s.CheckVote(0)
		require.True(t, done)
		assert.Equal(t, "A", result.Winner)
		assert.Equal(t, 2, result.Count)
		assert.False(t, result.TimedOut)
	})

	t.Run("3-1 is decisive", func(t *testing.T) {
		s := New()
		v := startFourPlayerVote(t, s)
		require.NoError(t, s.CastVote(v.ID, alice, "A"))
		require.NoError(t, s.CastVote(v.ID, bob, "A"))
		require.NoError(t, s.CastVote(v.ID, carol, "B"))
		require.NoError(t, s.CastVote(v.ID, dave, "A"))

		result, done := s.CheckVote(0)
		require.True(t, done)
		assert.Equal(t, "A", result.Winner)
		assert.Equal(t, 3, result.Count)
		_, active := s.ActiveVote()
		assert.False(t, active)
	})

	t.Run("three A votes resolve early", func(t *testing.T) {
		s := New()
		v := startFourPlayerVote(t, s)
		require.NoError(t, s.CastVote(v.ID, alice, "A"))
		require.NoError(t, s.CastVote(v.ID, bob, "A"))
		require.NoError(t, s.CastVote(v.ID, carol, "A"))

		result, done := s.CheckVote(0)
		require.True(t, done)
		assert.Equal(t, "A", result.Winner)
	})
}

func TestVoteRequiringAllPlayersWaits(t *testing.T) {
	s := New()
	v, err := s.StartVote(Vote{
		Choices:            []string{"A", "B"},
		Voters:             []entity.ID{alice, bob, carol},
		RequiresAllPlayers: true,
		Timeout:            60,
	}, 10)
	require.NoError(t, err)
	require.NoError(t, s.CastVote(v.ID, alice, "A"))
	require.NoError(t, s.CastVote(v.ID, bob, "A"))

	assert.True(t, s.IsDecisive())
	_, done := s.CheckVote(20)
	assert.False(t, done, "all-players vote ignores early decisiveness")

	result, done := s.CheckVote(70)
	require.True(t, done)
	assert.True(t, result.TimedOut)
	assert.Equal(t, "A", result.Winner)
}

func TestVoteWeights(t *testing.T) {
	s := New()
	s.SetVoteWeight(alice, 3)
	assert.Equal(t, 3, s.VoteWeight(alice))
	assert.Equal(t, 1, s.VoteWeight(bob))

	v := startFourPlayerVote(t, s)
	require.NoError(t, s.CastVote(v.ID, alice, "B"))
	// 3 > 0 + 3 remaining is false.
	assert.False(t, s.IsDecisive())
	require.NoError(t, s.CastVote(v.ID, bob, "B"))
	assert.True(t, s.IsDecisive())
	assert.Equal(t, 4, s.Tally()["B"])
}

func TestVoteErrors(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.CastVote("x", alice, "A"), ErrNoActiveVote)

	_, err := s.StartVote(Vote{Voters: []entity.ID{alice}}, 0)
	assert.ErrorIs(t, err, ErrInvalidVote)

	v, err := s.StartVote(Vote{Choices: []string{"A"}, Voters: []entity.ID{alice, bob}}, 0)
	require.NoError(t, err)
	_, err = s.StartVote(Vote{Choices: []string{"A"}, Voters: []entity.ID{alice}}, 0)
	assert.ErrorIs(t, err, ErrVoteInProgress)

	assert.ErrorIs(t, s.CastVote("other", alice, "A"), ErrWrongVote)
	assert.ErrorIs(t, s.CastVote(v.ID, carol, "A"), ErrNotEligible)
	assert.ErrorIs(t, s.CastVote(v.ID, alice, "Z"), ErrUnknownChoice)
	require.NoError(t, s.CastVote(v.ID, alice, "A"))
	assert.ErrorIs(t, s.CastVote(v.ID, alice, "A"), ErrAlreadyVoted)
}

func TestEliminatedVoterLeavesTheVote(t *testing.T) {
	s := New()
	v, err := s.StartVote(Vote{Choices: []string{"A", "B"}, Voters: []entity.ID{alice, bob}, RequiresAllPlayers: true}, 0)
	require.NoError(t, err)
	require.NoError(t, s.CastVote(v.ID, alice, "B"))

	s.RemovePlayer(bob)
	result, done := s.CheckVote(0)
	require.True(t, done)
	assert.Equal(t, "B", result.Winner)
}

func TestRemovingVoterLeavesEarlierViewsIntact(t *testing.T) {
	s := New()
	started, err := s.StartVote(Vote{Choices: []string{"A", "B"}, Voters: []entity.ID{alice, bob, carol}}, 0)
	require.NoError(t, err)
	before, ok := s.ActiveVote()
	require.True(t, ok)

	s.RemovePlayer(alice)

	assert.Equal(t, []entity.ID{alice, bob, carol}, started.Voters)
	assert.Equal(t, []entity.ID{alice, bob, carol}, before.Voters)
	after, ok := s.ActiveVote()
	require.True(t, ok)
	assert.Equal(t, []entity.ID{bob, carol}, after.Voters)
}
