// Package policy is the deterministic rule-based combat policy. Every
// function is pure and never fails; empty inputs yield nil results that
// callers treat as "no better option".
package policy

import (
	"math"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

// WeaponScore rates w for an NPC with traits t.
//
// Postcondition: Returns a value in [0, 1].
func WeaponScore(w actor.Weapon, t personality.Traits) float64 {
	s := w.Damage / 10
	switch w.Kind {
	case actor.WeaponSword:
		s += t.Aggression()*0.3 + t.Courage()*0.2
	case actor.WeaponBow:
		s += t.SelfPreservation()*0.4 - t.Aggression()*0.1
	case actor.WeaponAxe:
		s += t.Aggression()*0.4 + t.Vengefulness()*0.2
	}
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(1, s))
}

// SelectBestWeapon returns the highest scoring weapon; ties keep the first seen.
//
// Postcondition: Returns nil iff weapons is empty; otherwise a copy of an
// element of weapons.
func SelectBestWeapon(weapons []actor.Weapon, t personality.Traits) *actor.Weapon {
	best := -1
	bestScore := -1.0
	for i, w := range weapons {
		if s := WeaponScore(w, t); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return nil
	}
	w := weapons[best]
	return &w
}

// SelectTarget returns the candidate posing the highest threat to self;
// ties keep the first seen.
//
// Postcondition: Returns nil iff candidates contains no non-nil actor.
func SelectTarget(candidates []actor.Actor, self actor.Actor) actor.Actor {
	var best actor.Actor
	bestScore := -1.0
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if s := threat.Score(c, self); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// SelectTargetWithRelationships is SelectTarget after removing friends.
func SelectTargetWithRelationships(candidates []actor.Actor, self actor.Actor, rel *actor.Relationship) actor.Actor {
	return SelectTarget(withoutFriends(candidates, rel), self)
}

// ValidTargets returns the living candidates that are not friends, in input order.
func ValidTargets(candidates []actor.Actor, rel *actor.Relationship) []actor.Actor {
	return actor.Living(withoutFriends(candidates, rel))
}

func withoutFriends(candidates []actor.Actor, rel *actor.Relationship) []actor.Actor {
	out := make([]actor.Actor, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || rel.IsFriend(c.ID()) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// AttackThreshold is the threat score an NPC must see exceeded before attacking.
func AttackThreshold(t personality.Traits) float64 {
	return 0.8 - t.Aggression()*0.4 - t.Courage()*0.3
}

// ShouldAttack reports whether score exceeds the attack threshold for t.
func ShouldAttack(score float64, t personality.Traits) bool {
	return score > AttackThreshold(t)
}

// FleeThreshold is the threat score above which an NPC flees.
func FleeThreshold(t personality.Traits) float64 {
	return 0.7 + math.Max(0.1, t.SelfPreservation()-t.Courage()*0.8)*0.3
}

// ShouldFlee reports whether an NPC with traits t flees from score.
//
// Postcondition: Always false when courage > 0.8.
func ShouldFlee(score float64, t personality.Traits) bool {
	if t.Courage() > 0.8 {
		return false
	}
	return score > FleeThreshold(t)
}

// ShouldDefend reports whether an NPC steps in for ally. The ally must be
// under attack and loyalty must exceed a threshold set by the bond: 0.3 for
// close friends and family, 0.4 for friends, 0.7 for anyone else.
func ShouldDefend(ally actor.Actor, t personality.Traits, rel *actor.Relationship) bool {
	if ally == nil || !ally.IsBeingAttacked() {
		return false
	}
	threshold := 0.7
	switch rel.RelationshipLevel(ally.ID()) {
	case actor.CloseFriend, actor.Family:
		threshold = 0.3
	case actor.Friend:
		threshold = 0.4
	}
	return t.Loyalty() > threshold
}

// AllyDefenseRationale explains a DEFEND chosen to protect an ally.
const AllyDefenseRationale = "defending an ally under attack"

// Decide produces a rule-based decision: FLEE when the collapsed threat
// warrants it, DEFEND when an ally under attack passes ShouldDefend, ATTACK
// the top valid target with the best weapon when the threat warrants that,
// otherwise DEFEND.
//
// Postcondition: Returns a valid decision with fallback provenance.
func Decide(s combat.Situation, t personality.Traits, threatData threat.MultiAssessment, rel *actor.Relationship, weapons []actor.Weapon) combat.Decision {
	score := threatData.Primary().Score()
	if ShouldFlee(score, t) {
		return combat.NewFallbackDecision(combat.ActionFlee, nil, nil)
	}
	for _, ally := range s.Allies {
		if ShouldDefend(ally, t, rel) {
			return combat.NewFallbackDecisionWithRationale(combat.ActionDefend, nil, nil, AllyDefenseRationale)
		}
	}
	if ShouldAttack(score, t) {
		valid := ValidTargets(s.Opponents, rel)
		if target := SelectTarget(valid, s.Self); target != nil {
			return combat.NewFallbackDecision(combat.ActionAttack, []uuid.UUID{target.ID()}, SelectBestWeapon(weapons, t))
		}
	}
	return combat.NewFallbackDecision(combat.ActionDefend, nil, nil)
}

// Rules adapts the package functions to the orchestrator's fallback contract.
type Rules struct{}

// Decide implements the fallback contract by calling Decide.
func (Rules) Decide(s combat.Situation, t personality.Traits, threatData threat.MultiAssessment, rel *actor.Relationship, weapons []actor.Weapon) combat.Decision {
	return Decide(s, t, threatData, rel, weapons)
}
