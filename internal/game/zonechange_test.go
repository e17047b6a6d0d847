package game

import (
	"testing"
	"time"

	"github.com/magefree/mage-commander/internal/game/commander"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastCommanderFromCommandZone(t *testing.T) {
	h := newHarness(t, 2)
	alice := h.players[0]
	cmd := h.commanderOf(alice)
	h.advanceTo(1, rules.StepMain1)

	h.submit(ZoneChangeEvent{Card: cmd, Owner: alice, SourceZone: zones.Command, DestinationZone: zones.Stack})
	h.tick(1)

	require.Len(t, h.sc.StackItems(), 1)
	assert.Contains(t, h.sc.StackItems()[0].Description, "Commander 0")
	assert.Equal(t, 1, h.sc.commanders.CastCount(cmd))
	assert.Equal(t, 2, h.sc.commanders.Tax(cmd))
	loc, _ := h.sc.commanders.Location(cmd)
	assert.Equal(t, commander.OnStack, loc)

	h.passRound()
	loc, _ = h.sc.commanders.Location(cmd)
	assert.Equal(t, commander.OnBattlefield, loc)
	assert.False(t, h.sc.commanders.HasPending(), "entering the battlefield offers no replacement")
}

func TestNonCommanderCannotBeCastFromCommandZone(t *testing.T) {
	h := newHarness(t, 2)
	alice := h.players[0]
	h.advanceTo(1, rules.StepMain1)
	card := h.give(alice, bears, zones.Command)

	h.submit(ZoneChangeEvent{Card: card, Owner: alice, SourceZone: zones.Command, DestinationZone: zones.Stack})
	h.tick(1)
	assert.Empty(t, h.sc.StackItems())
}

func TestOpponentCannotCastYourCommander(t *testing.T) {
	h := newHarness(t, 2)
	alice, bob := h.players[0], h.players[1]
	cmd := h.commanderOf(alice)
	h.advanceTo(2, rules.StepMain1)
	require.Equal(t, bob, h.sc.ActivePlayer())

	h.submit(ZoneChangeEvent{Card: cmd, Owner: bob, SourceZone: zones.Command, DestinationZone: zones.Stack})
	h.tick(1)

	assert.Empty(t, h.sc.StackItems())
	zone, _ := h.sc.zones.CardZone(cmd)
	assert.Equal(t, zones.Command, zone)
	owner, _ := h.sc.zones.CardOwner(cmd)
	assert.Equal(t, alice, owner)
	assert.Equal(t, 0, h.sc.commanders.CastCount(cmd))
	assert.Equal(t, 0, h.sc.commanders.Tax(cmd))
	assert.Equal(t, bob, h.sc.PriorityPlayer())
}

func TestCommanderZoneChoice(t *testing.T) {
	for _, tc := range []struct {
		name        string
		destination zones.Zone
		accept      bool
		wantZone    zones.Zone
		wantCasts   int
	}{
		{"graveyard to command zone", zones.Graveyard, true, zones.Command, 1},
		{"exile declined", zones.Exile, false, zones.Exile, 0},
		{"hand to command zone", zones.Hand, true, zones.Command, 1},
		{"library declined", zones.Library, false, zones.Library, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 2)
			alice := h.players[0]
			cmd := h.commanderOf(alice)
			h.deploy(cmd)
			h.sc.Outbox.Drain()

			h.submit(ZoneChangeEvent{Card: cmd, Owner: alice, SourceZone: zones.Battlefield, DestinationZone: tc.destination})
			h.tick(1)

			z, _ := h.sc.zones.CardZone(cmd)
			assert.Equal(t, tc.destination, z, "the card moves before the choice")
			notes := h.sc.Outbox.Drain()
			require.Len(t, notes.CommanderChoice, 1)
			assert.True(t, notes.CommanderChoice[0].CanGoToCommandZone)
			assert.Equal(t, tc.destination, notes.CommanderChoice[0].CurrentZone)
			require.True(t, h.sc.commanders.HasPending())

			h.submit(CommanderZoneChoiceEvent{Commander: cmd, Owner: alice, MoveToCommandZone: tc.accept})
			h.tick(1)

			z, _ = h.sc.zones.CardZone(cmd)
			assert.Equal(t, tc.wantZone, z)
			assert.Equal(t, tc.wantCasts, h.sc.commanders.CastCount(cmd))
			assert.False(t, h.sc.commanders.HasPending())
			loc, _ := h.sc.commanders.Location(cmd)
			assert.Equal(t, commander.LocationOf(tc.wantZone), loc)
		})
	}
}

func TestCommanderChoiceFromWrongPlayerIsIgnored(t *testing.T) {
	h := newHarness(t, 2)
	alice, bob := h.players[0], h.players[1]
	cmd := h.commanderOf(alice)
	h.deploy(cmd)

	h.submit(ZoneChangeEvent{Card: cmd, Owner: alice, SourceZone: zones.Battlefield, DestinationZone: zones.Graveyard})
	h.tick(1)
	h.submit(CommanderZoneChoiceEvent{Commander: cmd, Owner: bob, MoveToCommandZone: true})
	h.tick(1)

	z, _ := h.sc.zones.CardZone(cmd)
	assert.Equal(t, zones.Graveyard, z)
	assert.True(t, h.sc.commanders.HasPending())
}

func TestCommanderChoiceTimesOutToCommandZone(t *testing.T) {
	settings := testSettings()
	settings.CommanderChoiceTimeout = 100 * time.Millisecond
	h := newHarnessWith(t, testSetup(2), settings)
	alice := h.players[0]
	cmd := h.commanderOf(alice)
	h.deploy(cmd)

	h.submit(ZoneChangeEvent{Card: cmd, Owner: alice, SourceZone: zones.Battlefield, DestinationZone: zones.Graveyard})
	h.tick(1)
	z, _ := h.sc.zones.CardZone(cmd)
	require.Equal(t, zones.Graveyard, z)

	h.tick(5)
	z, _ = h.sc.zones.CardZone(cmd)
	assert.Equal(t, zones.Command, z)
	assert.False(t, h.sc.commanders.HasPending())
	assert.Equal(t, 1, h.sc.commanders.CastCount(cmd))
}

func TestLethalDamageOffersCommanderReplacement(t *testing.T) {
	h := newHarness(t, 2)
	alice, bob := h.players[0], h.players[1]
	cmd := h.commanderOf(bob)
	h.deploy(cmd)
	attacker := h.give(alice, bears, zones.Battlefield)
	_, err := h.sc.zones.MarkDamage(cmd, 2)
	require.NoError(t, err)

	h.attack(AttackerDeclaredEvent{Attacker: attacker, Defender: bob})
	h.submit(BlockerDeclaredEvent{Blocker: cmd, Attacker: attacker})
	h.tick(1)
	h.passRound()
	h.tick(1)

	z, _ := h.sc.zones.CardZone(cmd)
	assert.Equal(t, zones.Graveyard, z)
	pending, ok := h.sc.commanders.Pending(cmd)
	require.True(t, ok)
	assert.Equal(t, bob, pending.Owner)
	assert.Equal(t, zones.Battlefield, pending.Source)
}
