package rules

import (
	"testing"
	"time"

	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrioritySystem(t *testing.T) {
	players := []entity.ID{alice, bob, carol, dave}

	t.Run("initialize rotates to active player", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize(players, carol)

		assert.Equal(t, carol, ps.PriorityPlayer())
		assert.Equal(t, []entity.ID{carol, dave, alice, bob}, ps.PlayerOrder())
		assert.False(t, ps.AllPlayersPassed())
	})

	t.Run("N passes complete the round", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize(players, alice)

		for i := 0; i < len(players); i++ {
			require.False(t, ps.AllPlayersPassed(), "round completed early after %d passes", i)
			assert.Contains(t, players, ps.PriorityPlayer())
			ps.PassPriority()
		}
		assert.True(t, ps.AllPlayersPassed())
		assert.True(t, ps.CanAdvancePhase())
	})

	t.Run("pass from non-holder is ignored", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize(players, alice)

		assert.False(t, ps.Pass(bob))
		assert.Equal(t, alice, ps.PriorityPlayer())
		assert.False(t, ps.HasPassed(bob))

		assert.True(t, ps.Pass(alice))
		assert.Equal(t, bob, ps.PriorityPlayer())
		assert.True(t, ps.HasPassed(alice))
	})

	t.Run("stack action resets the round", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize(players, alice)
		ps.Pass(alice)
		ps.Pass(bob)

		ps.ResetAfterStackAction(players, alice)
		assert.Equal(t, alice, ps.PriorityPlayer())
		assert.False(t, ps.HasPassed(alice))
		assert.False(t, ps.StackEmpty())

		ps.PassAll()
		assert.True(t, ps.AllPlayersPassed())
		assert.False(t, ps.CanAdvancePhase(), "a non-empty stack blocks the phase")
		assert.True(t, ps.ShouldResolveStack())

		ps.ResetAfterResolution(players, alice, true)
		assert.Equal(t, alice, ps.PriorityPlayer(), "priority returns to the active player after resolution")
		assert.False(t, ps.ShouldResolveStack())
	})

	t.Run("response deadline", func(t *testing.T) {
		ps := NewPrioritySystem(10 * time.Second)
		ps.Initialize(players, alice)

		ps.WaitForResponse(5 * time.Second)
		require.True(t, ps.WaitingForResponse())
		assert.Equal(t, 15*time.Second, ps.Deadline())
		assert.False(t, ps.ResponseExpired(14*time.Second))
		assert.True(t, ps.ResponseExpired(15*time.Second))

		// A second call keeps the running deadline.
		ps.WaitForResponse(12 * time.Second)
		assert.Equal(t, 15*time.Second, ps.Deadline())

		ps.Pass(alice)
		assert.False(t, ps.WaitingForResponse(), "passing clears the deadline")
	})

	t.Run("disabled timeout never waits", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize(players, alice)
		ps.WaitForResponse(time.Second)
		assert.False(t, ps.WaitingForResponse())
	})

	t.Run("auto-pass marker is idempotent per step", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		untap := FirstStep()
		cleanup, _ := TurnStepFor(StepCleanup)

		assert.True(t, ps.MarkAutoPassed(1, untap))
		assert.False(t, ps.MarkAutoPassed(1, untap))
		assert.True(t, ps.MarkAutoPassed(1, cleanup))
		assert.True(t, ps.MarkAutoPassed(2, untap))
	})

	t.Run("simultaneous decisions", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.BeginSimultaneousDecision([]entity.ID{alice, bob})
		assert.Equal(t, 2, ps.PendingDecisions())
		assert.False(t, ps.RecordDecision(alice))
		assert.True(t, ps.RecordDecision(bob))
	})

	t.Run("removing the holder moves priority on", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize(players, alice)
		ps.Pass(alice)
		require.Equal(t, bob, ps.PriorityPlayer())

		ps.RemovePlayer(bob)
		assert.Equal(t, carol, ps.PriorityPlayer())
		assert.Equal(t, []entity.ID{alice, carol, dave}, ps.PlayerOrder())

		ps.Pass(carol)
		ps.Pass(dave)
		assert.True(t, ps.AllPlayersPassed())
	})

	t.Run("removing the last unpassed player completes the round", func(t *testing.T) {
		ps := NewPrioritySystem(0)
		ps.Initialize([]entity.ID{alice, bob}, alice)
		ps.Pass(alice)
		ps.RemovePlayer(bob)
		assert.True(t, ps.AllPlayersPassed())
	})
}
