package game

import (
	"testing"

	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnblockedAttackerDealsDamage(t *testing.T) {
	h := newHarness(t, 2)
	alice, bob := h.players[0], h.players[1]
	attacker := h.give(alice, bears, zones.Battlefield)
	h.sc.Outbox.Drain()

	h.attack(AttackerDeclaredEvent{Attacker: attacker, Defender: bob})
	require.Equal(t, rules.StepDeclareBlockers, h.sc.Step().Step)
	perm, _ := h.sc.zones.Permanent(attacker)
	assert.True(t, perm.Tapped, "attacking taps the creature")

	h.passRound()
	require.Equal(t, rules.StepCombatDamage, h.sc.Step().Step)
	h.tick(1)
	assert.Equal(t, 38, h.life(bob))
	assert.Equal(t, 40, h.life(alice))

	notes := h.sc.Outbox.Drain()
	require.Len(t, notes.Attackers, 1)
	require.Len(t, notes.CombatDamage, 1)
	dmg := notes.CombatDamage[0]
	assert.Equal(t, attacker, dmg.Source)
	assert.Equal(t, bob, dmg.Target)
	assert.Equal(t, 2, dmg.Damage)
	assert.True(t, dmg.TargetIsPlayer)
	assert.True(t, dmg.IsCombatDamage)
	assert.False(t, dmg.SourceIsCommander)

	h.advanceTo(1, rules.StepMain2)
	assert.False(t, h.sc.combat.InProgress())
	assert.Equal(t, 38, h.life(bob), "damage is dealt once")
}

func TestNoAttackersSkipsToEndOfCombat(t *testing.T) {
	h := newHarness(t, 2)
	h.advanceTo(1, rules.StepDeclareAttackers)
	h.sc.Outbox.Drain()

	h.passRound()
	assert.Equal(t, rules.StepEndCombat, h.sc.Step().Step)
	notes := h.sc.Outbox.Drain()
	require.Len(t, notes.NextPhase, 1)
	assert.Equal(t, rules.StepEndCombat, notes.NextPhase[0].Step.Step)
}

func TestAttackDeclarationChecks(t *testing.T) {
	h := newHarness(t, 3)
	alice, bob := h.players[0], h.players[1]
	sick := h.give(alice, bears, zones.Battlefield)
	perm, _ := h.sc.zones.Permanent(sick)
	perm.SummoningSick = true
	require.NoError(t, h.sc.zones.RestorePermanent(perm))
	hasty := h.give(alice, cards.Card{Name: "Raging Goblin", Types: cards.TypeCreature, Keywords: cards.KeywordHaste, Power: 1, Toughness: 1}, zones.Battlefield)
	perm, _ = h.sc.zones.Permanent(hasty)
	perm.SummoningSick = true
	require.NoError(t, h.sc.zones.RestorePermanent(perm))
	vigilant := h.give(alice, cards.Card{Name: "Serra Angel", Types: cards.TypeCreature, Keywords: cards.KeywordVigilance, Power: 4, Toughness: 4}, zones.Battlefield)
	theirs := h.give(bob, bears, zones.Battlefield)
	land := h.give(alice, forest, zones.Battlefield)

	early := h.give(alice, bears, zones.Battlefield)
	h.submit(AttackerDeclaredEvent{Attacker: early, Defender: bob})
	h.tick(1)
	assert.False(t, h.sc.combat.InCombat(early), "attacks outside declare attackers are ignored")

	h.advanceTo(1, rules.StepDeclareAttackers)
	h.submit(
		AttackerDeclaredEvent{Attacker: sick, Defender: bob},
		AttackerDeclaredEvent{Attacker: hasty, Defender: bob},
		AttackerDeclaredEvent{Attacker: vigilant, Defender: bob},
		AttackerDeclaredEvent{Attacker: theirs, Defender: alice},
		AttackerDeclaredEvent{Attacker: land, Defender: bob},
		AttackerDeclaredEvent{Attacker: early, Defender: alice},
	)
	h.tick(1)

	assert.Equal(t, []entity.ID{hasty, vigilant}, h.sc.combat.Attackers())
	perm, _ = h.sc.zones.Permanent(vigilant)
	assert.False(t, perm.Tapped, "vigilance")
	perm, _ = h.sc.zones.Permanent(hasty)
	assert.True(t, perm.Tapped)
}

func TestBlockedCreaturesTradeAndDie(t *testing.T) {
	h := newHarness(t, 3)
	alice, bob, carol := h.players[0], h.players[1], h.players[2]
	attacker := h.give(alice, bears, zones.Battlefield)
	blocker := h.give(bob, bears, zones.Battlefield)
	bystander := h.give(carol, bears, zones.Battlefield)

	h.attack(AttackerDeclaredEvent{Attacker: attacker, Defender: bob})
	require.Equal(t, rules.StepDeclareBlockers, h.sc.Step().Step)

	h.submit(
		BlockerDeclaredEvent{Blocker: bystander, Attacker: attacker},
		BlockerDeclaredEvent{Blocker: blocker, Attacker: attacker},
	)
	h.tick(1)
	assert.Equal(t, []entity.ID{blocker}, h.sc.combat.Blockers(attacker), "only the defender may block")

	h.passRound()
	h.tick(1)

	assert.Equal(t, 40, h.life(bob))
	for _, c := range []entity.ID{attacker, blocker} {
		z, _ := h.sc.zones.CardZone(c)
		assert.Equal(t, zones.Graveyard, z)
	}
	z, _ := h.sc.zones.CardZone(bystander)
	assert.Equal(t, zones.Battlefield, z)
}

func TestFirstStrikeKillsBlockerBeforeItDealsDamage(t *testing.T) {
	h := newHarness(t, 2)
	alice, bob := h.players[0], h.players[1]
	knight := h.give(alice, cards.Card{Name: "White Knight", Types: cards.TypeCreature, Keywords: cards.KeywordFirstStrike, Power: 2, Toughness: 2}, zones.Battlefield)
	blocker := h.give(bob, bears, zones.Battlefield)

	h.attack(AttackerDeclaredEvent{Attacker: knight, Defender: bob})
	h.submit(BlockerDeclaredEvent{Blocker: blocker, Attacker: knight})
	h.tick(1)
	h.passRound()
	require.Equal(t, rules.StepCombatDamage, h.sc.Step().Step)
	h.tick(1)

	z, _ := h.sc.zones.CardZone(blocker)
	assert.Equal(t, zones.Graveyard, z)
	perm, ok := h.sc.zones.Permanent(knight)
	require.True(t, ok)
	assert.Zero(t, perm.Damage)
	assert.Equal(t, 2, h.sc.combat.DamageSteps())
}

func TestTrampleAssignsExcessToPlayer(t *testing.T) {
	h := newHarness(t, 2)
	alice, bob := h.players[0], h.players[1]
	wurm := h.give(alice, cards.Card{Name: "Craw Wurm", Types: cards.TypeCreature, Keywords: cards.KeywordTrample, Power: 6, Toughness: 4}, zones.Battlefield)
	blocker := h.give(bob, bears, zones.Battlefield)

	h.attack(AttackerDeclaredEvent{Attacker: wurm, Defender: bob})
	h.submit(BlockerDeclaredEvent{Blocker: blocker, Attacker: wurm})
	h.tick(1)
	h.passRound()
	h.tick(1)

	assert.Equal(t, 36, h.life(bob))
	perm, _ := h.sc.zones.Permanent(wurm)
	assert.Equal(t, 2, perm.Damage)
}

func TestGoadedCreatureMustAttack(t *testing.T) {
	h := newHarness(t, 3)
	alice, bob := h.players[0], h.players[1]
	goaded := h.give(alice, bears, zones.Battlefield)

	h.submit(GoadEvent{Creature: goaded, Source: bob, Duration: 2})
	h.tick(1)
	require.True(t, h.sc.politics.IsGoaded(goaded))
	h.sc.Outbox.Drain()

	h.advanceTo(1, rules.StepDeclareAttackers)
	h.submit(AttackerDeclaredEvent{Attacker: goaded, Defender: bob})
	h.tick(1)
	assert.False(t, h.sc.combat.InCombat(goaded), "goaded creatures cannot attack the goading player")

	h.passRound()
	notes := h.sc.Outbox.Drain()
	require.Len(t, notes.Violations, 2)
	assert.Equal(t, ruleCannotAttack, notes.Violations[0].Rule)
	assert.Equal(t, ruleMustAttack, notes.Violations[1].Rule)
	assert.Equal(t, goaded, notes.Violations[1].Card)

	h.advanceTo(2, rules.StepUpkeep)
	h.tick(1)
	assert.True(t, h.sc.politics.IsGoaded(goaded), "still goaded on turn 2")

	h.advanceTo(3, rules.StepUpkeep)
	h.tick(1)
	assert.False(t, h.sc.politics.IsGoaded(goaded), "goad from turn 1 lasting 2 turns is gone on turn 3")
}

func TestGoadedCreatureAttackingAnotherPlayerIsFine(t *testing.T) {
	h := newHarness(t, 3)
	alice, bob, carol := h.players[0], h.players[1], h.players[2]
	goaded := h.give(alice, bears, zones.Battlefield)
	h.submit(GoadEvent{Creature: goaded, Source: bob, Duration: 2})
	h.tick(1)
	h.sc.Outbox.Drain()

	h.attack(AttackerDeclaredEvent{Attacker: goaded, Defender: carol})
	assert.True(t, h.sc.combat.InCombat(goaded))
	assert.Empty(t, h.sc.Outbox.Drain().Violations)
}

func TestVowForbidsAttackingItsSource(t *testing.T) {
	h := newHarness(t, 3)
	alice, bob := h.players[0], h.players[1]
	vowed := h.give(alice, bears, zones.Battlefield)
	h.submit(GoadEvent{Creature: vowed, Source: bob, Duration: 1, Vow: true})
	h.tick(1)
	h.sc.Outbox.Drain()

	h.attack()
	assert.Empty(t, h.sc.Outbox.Drain().Violations, "vows never force an attack")

	h.advanceTo(1, rules.StepMain2)
	assert.Len(t, h.sc.politics.Vows(vowed), 1)
}
