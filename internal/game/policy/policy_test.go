package policy_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
	"github.com/cory-johannsen/npcbrain/internal/game/policy"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

func TestSelectBestWeapon_EmptyIsNil(t *testing.T) {
	assert.Nil(t, policy.SelectBestWeapon(nil, personality.Default()))
}

func TestSelectBestWeapon_PersonalityPreference(t *testing.T) {
	weapons := []actor.Weapon{
		actor.StandardWeapon(actor.WeaponBow),
		actor.StandardWeapon(actor.WeaponAxe),
	}
	cautious := personality.New(0, 0.2, 1, 0.5, 0)
	// bow 0.4+0.4=0.8, axe 0.7
	got := policy.SelectBestWeapon(weapons, cautious)
	require.NotNil(t, got)
	assert.Equal(t, actor.WeaponBow, got.Kind)

	brute := personality.New(1, 0.5, 0, 0.5, 1)
	// bow 0.4-0.1=0.3, axe clamps to 1
	got = policy.SelectBestWeapon(weapons, brute)
	require.NotNil(t, got)
	assert.Equal(t, actor.WeaponAxe, got.Kind)
}

func TestSelectBestWeapon_TieKeepsFirst(t *testing.T) {
	weapons := []actor.Weapon{
		{Kind: actor.WeaponOther, Damage: 5},
		{Kind: actor.WeaponOther, Damage: 5},
	}
	got := policy.SelectBestWeapon(weapons, personality.Default())
	require.NotNil(t, got)
	assert.Equal(t, weapons[0], *got)
}

func TestWeaponScore_Clamped(t *testing.T) {
	assert.Equal(t, 1.0, policy.WeaponScore(actor.Weapon{Kind: actor.WeaponAxe, Damage: 50}, personality.Default()))
	assert.Equal(t, 0.0, policy.WeaponScore(actor.Weapon{Kind: actor.WeaponBow, Damage: 0}, personality.New(1, 0, 0, 0, 0)))
}

func TestSelectTarget_HighestThreatTiesFirst(t *testing.T) {
	self := actor.NewEntity("self", 20)
	a := actor.NewEntity("a", 10)
	b := actor.NewEntity("b", 10)
	c := actor.NewEntity("c", 10)
	c.Equip(actor.StandardWeapon(actor.WeaponAxe))

	assert.Equal(t, c.ID(), policy.SelectTarget([]actor.Actor{a, b, c}, self).ID())
	assert.Equal(t, a.ID(), policy.SelectTarget([]actor.Actor{a, b}, self).ID())
	assert.Nil(t, policy.SelectTarget(nil, self))
}

func TestSelectTargetWithRelationships_SkipsFriends(t *testing.T) {
	self := actor.NewEntity("self", 20)
	friend := actor.NewEntity("friend", 20)
	friend.Equip(actor.StandardWeapon(actor.WeaponAxe))
	foe := actor.NewEntity("foe", 10)

	rel := actor.NewRelationship()
	rel.SetLevel(friend.ID(), actor.Friend)

	got := policy.SelectTargetWithRelationships([]actor.Actor{friend, foe}, self, rel)
	require.NotNil(t, got)
	assert.Equal(t, foe.ID(), got.ID())
}

func TestValidTargets_FiltersFriendsAndDead(t *testing.T) {
	friend := actor.NewEntity("friend", 10)
	dead := actor.NewEntity("dead", 10)
	dead.SetHealth(0)
	foe := actor.NewEntity("foe", 10)
	rel := actor.NewRelationship()
	rel.SetLevel(friend.ID(), actor.Family)

	got := policy.ValidTargets([]actor.Actor{friend, dead, foe}, rel)
	require.Len(t, got, 1)
	assert.Equal(t, foe.ID(), got[0].ID())
}

func TestShouldAttack_Threshold(t *testing.T) {
	d := personality.Default()
	// 0.8 - 0.2 - 0.15 = 0.45
	assert.InDelta(t, 0.45, policy.AttackThreshold(d), 1e-9)
	assert.True(t, policy.ShouldAttack(0.46, d))
	assert.False(t, policy.ShouldAttack(0.44, d))
}

func TestShouldFlee_Threshold(t *testing.T) {
	d := personality.Default()
	// 0.7 + max(0.1, 0.5-0.4)*0.3 = 0.73
	assert.InDelta(t, 0.73, policy.FleeThreshold(d), 1e-9)
	assert.True(t, policy.ShouldFlee(0.74, d))
	assert.False(t, policy.ShouldFlee(0.72, d))
}

func TestShouldDefend_Tiers(t *testing.T) {
	ally := actor.NewEntity("ally", 10)
	rel := actor.NewRelationship()
	tr := personality.New(0.5, 0.5, 0.5, 0.5, 0.5)

	assert.False(t, policy.ShouldDefend(ally, tr, rel), "not under attack")

	ally.SetAttacker(uuid.New())
	assert.False(t, policy.ShouldDefend(ally, tr, rel), "stranger needs loyalty > 0.7")

	rel.SetLevel(ally.ID(), actor.Friend)
	assert.True(t, policy.ShouldDefend(ally, tr, rel))

	low := personality.New(0.5, 0.5, 0.5, 0.35, 0.5)
	assert.False(t, policy.ShouldDefend(ally, low, rel))
	rel.SetLevel(ally.ID(), actor.CloseFriend)
	assert.True(t, policy.ShouldDefend(ally, low, rel))
}

func TestDecide_Branches(t *testing.T) {
	self := actor.NewEntity("self", 20)
	strong := actor.NewEntity("strong", 20)
	strong.Equip(actor.StandardWeapon(actor.WeaponAxe))
	weak := actor.NewEntity("weak", 4)
	weak.SetPosition(30, 0, 0)
	weapons := []actor.Weapon{actor.StandardWeapon(actor.WeaponSword)}

	// Extreme threat 0.85 > flee threshold 0.73.
	s := combat.Situation{Self: self, Opponents: []actor.Actor{strong}}
	d := policy.Decide(s, personality.Default(), threat.Assess(self, s.Opponents), nil, weapons)
	assert.Equal(t, combat.ActionFlee, d.Action())
	assert.False(t, d.IsModel())

	// Brave NPC never flees; attacks instead.
	brave := personality.New(0.5, 0.9, 0.5, 0.5, 0.5)
	d = policy.Decide(s, brave, threat.Assess(self, s.Opponents), nil, weapons)
	require.Equal(t, combat.ActionAttack, d.Action())
	assert.Equal(t, []uuid.UUID{strong.ID()}, d.Targets())
	require.NotNil(t, d.Weapon())
	assert.Equal(t, actor.WeaponSword, d.Weapon().Kind)
	assert.True(t, d.Valid())

	// Weak, distant opponent: 0.06 + 0.1 + 0.02 = 0.18 below attack threshold.
	s = combat.Situation{Self: self, Opponents: []actor.Actor{weak}}
	d = policy.Decide(s, personality.Default(), threat.Assess(self, s.Opponents), nil, weapons)
	assert.Equal(t, combat.ActionDefend, d.Action())
}

func TestDecide_DefendsAllyUnderAttack(t *testing.T) {
	self := actor.NewEntity("self", 20)
	strong := actor.NewEntity("strong", 20)
	strong.Equip(actor.StandardWeapon(actor.WeaponAxe))
	ally := actor.NewEntity("ally", 10)
	rel := actor.NewRelationship()
	rel.SetLevel(ally.ID(), actor.Friend)
	// brave and loyal: would attack, but stands by a friend first
	loyal := personality.New(0.5, 0.9, 0.5, 0.9, 0.5)
	s := combat.Situation{Self: self, Opponents: []actor.Actor{strong}, Allies: []actor.Actor{ally}}

	d := policy.Decide(s, loyal, threat.Assess(self, s.Opponents), rel, nil)
	assert.Equal(t, combat.ActionAttack, d.Action(), "ally not under attack")

	ally.SetAttacker(strong.ID())
	d = policy.Decide(s, loyal, threat.Assess(self, s.Opponents), rel, nil)
	assert.Equal(t, combat.ActionDefend, d.Action())
	assert.Equal(t, policy.AllyDefenseRationale, d.Rationale())
	assert.False(t, d.IsModel())
	assert.True(t, d.Valid())

	disloyal := personality.New(0.5, 0.9, 0.5, 0.2, 0.5)
	d = policy.Decide(s, disloyal, threat.Assess(self, s.Opponents), rel, nil)
	assert.Equal(t, combat.ActionAttack, d.Action())
}

func TestDecide_AttackWithOnlyFriendsDefends(t *testing.T) {
	self := actor.NewEntity("self", 20)
	friend := actor.NewEntity("friend", 20)
	friend.Equip(actor.StandardWeapon(actor.WeaponAxe))
	rel := actor.NewRelationship()
	rel.SetLevel(friend.ID(), actor.Friend)

	s := combat.Situation{Self: self, Opponents: []actor.Actor{friend}}
	brave := personality.New(0.5, 0.9, 0.5, 0.5, 0.5)
	d := policy.Decide(s, brave, threat.Assess(self, s.Opponents), rel, nil)
	assert.Equal(t, combat.ActionDefend, d.Action())
}

func TestProperty_BraveNeverFlees(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := personality.New(
			rapid.Float64Range(0, 1).Draw(rt, "aggression"),
			rapid.Float64Range(0.8000001, 1).Draw(rt, "courage"),
			rapid.Float64Range(0, 1).Draw(rt, "selfPreservation"),
			rapid.Float64Range(0, 1).Draw(rt, "loyalty"),
			rapid.Float64Range(0, 1).Draw(rt, "vengefulness"),
		)
		score := rapid.Float64Range(-10, 10).Draw(rt, "score")
		if policy.ShouldFlee(score, tr) {
			rt.Fatalf("courage %v fled at score %v", tr.Courage(), score)
		}
	})
}

func TestProperty_BestWeaponIsMemberOrNil(t *testing.T) {
	kinds := []actor.WeaponKind{actor.WeaponOther, actor.WeaponSword, actor.WeaponBow, actor.WeaponAxe}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		weapons := make([]actor.Weapon, n)
		for i := range weapons {
			weapons[i] = actor.Weapon{
				Kind:   rapid.SampledFrom(kinds).Draw(rt, "kind"),
				Damage: rapid.Float64Range(0, 20).Draw(rt, "damage"),
			}
		}
		tr := personality.New(
			rapid.Float64Range(0, 1).Draw(rt, "a"),
			rapid.Float64Range(0, 1).Draw(rt, "c"),
			rapid.Float64Range(0, 1).Draw(rt, "s"),
			0.5,
			rapid.Float64Range(0, 1).Draw(rt, "v"),
		)
		got := policy.SelectBestWeapon(weapons, tr)
		if n == 0 {
			if got != nil {
				rt.Fatalf("expected nil for empty list, got %v", *got)
			}
			return
		}
		if got == nil {
			rt.Fatalf("nil for non-empty list")
		}
		for _, w := range weapons {
			if w == *got {
				return
			}
		}
		rt.Fatalf("%v not in input", *got)
	})
}
