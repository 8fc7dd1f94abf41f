// Package personality models the combat temperament of an NPC as five
// continuous sliders with categorical views derived from them.
package personality

import (
	"fmt"

	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

// AggressionLevel is the categorical bucket of the aggression slider.
type AggressionLevel int

const (
	Pacifist AggressionLevel = iota
	Defensive
	Balanced
	Aggressive
	Hostile
)

// String returns the upper-case level name.
func (l AggressionLevel) String() string {
	switch l {
	case Pacifist:
		return "PACIFIST"
	case Defensive:
		return "DEFENSIVE"
	case Aggressive:
		return "AGGRESSIVE"
	case Hostile:
		return "HOSTILE"
	default:
		return "BALANCED"
	}
}

// Value returns the representative slider value of the level.
func (l AggressionLevel) Value() float64 {
	switch l {
	case Pacifist:
		return 0.1
	case Defensive:
		return 0.3
	case Aggressive:
		return 0.7
	case Hostile:
		return 0.9
	default:
		return 0.5
	}
}

// CombatStyle is the categorical view of aggression against self-preservation.
type CombatStyle int

const (
	StyleBalanced CombatStyle = iota
	StyleCautious
	StyleReckless
	StyleStrategic
	StyleBerserker
)

// String returns the upper-case style name.
func (s CombatStyle) String() string {
	switch s {
	case StyleCautious:
		return "CAUTIOUS"
	case StyleReckless:
		return "RECKLESS"
	case StyleStrategic:
		return "STRATEGIC"
	case StyleBerserker:
		return "BERSERKER"
	default:
		return "BALANCED"
	}
}

// Teamwork is how an NPC prefers to fight alongside others. Unlike the other
// categories it is chosen directly, not derived.
type Teamwork int

const (
	Cooperative Teamwork = iota
	LoneWolf
	Reluctant
	Leader
	Follower
)

// Traits holds the five sliders. The zero value is not meaningful; use New or
// one of the presets.
//
// Invariant: every slider is in [0, 1]; AggressionLevel and Style are pure
// functions of the current sliders.
type Traits struct {
	aggression       float64
	courage          float64
	selfPreservation float64
	loyalty          float64
	vengefulness     float64
	teamwork         Teamwork
}

// New returns Traits with each slider clamped to [0, 1].
func New(aggression, courage, selfPreservation, loyalty, vengefulness float64) Traits {
	return Traits{
		aggression:       clamp01(aggression),
		courage:          clamp01(courage),
		selfPreservation: clamp01(selfPreservation),
		loyalty:          clamp01(loyalty),
		vengefulness:     clamp01(vengefulness),
	}
}

// Default returns a balanced, cooperative temperament.
func Default() Traits {
	return New(Balanced.Value(), 0.5, 0.5, 0.7, 0.5)
}

// PacifistPreset returns a temperament that avoids combat.
func PacifistPreset() Traits {
	t := New(Pacifist.Value(), 0.2, 0.5, 0.8, 0.5)
	t.teamwork = Follower
	return t
}

// WarriorPreset returns an aggressive, brave temperament that leads groups.
func WarriorPreset() Traits {
	t := New(Aggressive.Value(), 0.8, 0.5, 0.6, 0.5)
	t.teamwork = Leader
	return t
}

func (t Traits) Aggression() float64 { return t.aggression }
func (t Traits) Courage() float64 { return t.courage }
func (t Traits) SelfPreservation() float64 { return t.selfPreservation }
func (t Traits) Loyalty() float64 { return t.loyalty }
func (t Traits) Vengefulness() float64 { return t.vengefulness }
func (t Traits) Teamwork() Teamwork { return t.teamwork }

// SetAggression clamps and stores v; AggressionLevel and Style follow.
func (t *Traits) SetAggression(v float64) { t.aggression = clamp01(v) }

// SetCourage clamps and stores v.
func (t *Traits) SetCourage(v float64) { t.courage = clamp01(v) }

// SetSelfPreservation clamps and stores v; Style follows.
func (t *Traits) SetSelfPreservation(v float64) { t.selfPreservation = clamp01(v) }

// SetLoyalty clamps and stores v.
func (t *Traits) SetLoyalty(v float64) { t.loyalty = clamp01(v) }

// SetVengefulness clamps and stores v.
func (t *Traits) SetVengefulness(v float64) { t.vengefulness = clamp01(v) }

// SetTeamwork stores the teamwork tendency.
func (t *Traits) SetTeamwork(tw Teamwork) { t.teamwork = tw }

// AggressionLevel buckets the aggression slider.
//
// Postcondition: PACIFIST <= 0.2 < DEFENSIVE <= 0.4 < BALANCED <= 0.6 < AGGRESSIVE <= 0.8 < HOSTILE.
func (t Traits) AggressionLevel() AggressionLevel {
	switch a := t.aggression; {
	case a <= 0.2:
		return Pacifist
	case a <= 0.4:
		return Defensive
	case a <= 0.6:
		return Balanced
	case a <= 0.8:
		return Aggressive
	default:
		return Hostile
	}
}

// Style buckets aggression against self-preservation.
func (t Traits) Style() CombatStyle {
	a, s := t.aggression, t.selfPreservation
	switch {
	case a >= 0.8 && s < 0.3:
		return StyleBerserker
	case a > 0.6 && s < 0.5:
		return StyleReckless
	case a <= 0.2 || s >= 0.7:
		return StyleCautious
	case a > 0.6:
		return StyleStrategic
	default:
		return StyleBalanced
	}
}

// WouldEngage reports whether this temperament chooses to fight at level.
func (t Traits) WouldEngage(level threat.Level) bool {
	var threshold float64
	switch t.AggressionLevel() {
	case Pacifist:
		threshold = 0.9
	case Defensive:
		threshold = 0.7
	case Aggressive:
		threshold = 0.3
	case Hostile:
		threshold = 0.1
	default:
		threshold = 0.5
	}
	return levelWeight(level)*t.courage >= threshold
}

// CombatModifier returns an effectiveness multiplier for the given group
// situation.
func (t Traits) CombatModifier(hasAllies, outnumbered bool) float64 {
	style := 1.0
	switch t.Style() {
	case StyleCautious:
		style = pick(outnumbered, 1.2, 0.9)
	case StyleReckless:
		style = pick(outnumbered, 0.8, 1.3)
	case StyleStrategic:
		style = pick(hasAllies, 1.2, 1.0)
	case StyleBerserker:
		style = pick(outnumbered, 1.4, 1.1)
	}
	team := 1.0
	switch t.teamwork {
	case LoneWolf:
		team = pick(hasAllies, 0.9, 1.1)
	case Reluctant:
		team = pick(hasAllies, 0.95, 1.0)
	case Cooperative:
		team = pick(hasAllies, 1.1, 0.9)
	case Leader:
		team = pick(hasAllies, 1.2, 1.0)
	case Follower:
		team = pick(hasAllies, 1.05, 0.8)
	}
	return style * team
}

// String implements fmt.Stringer.
func (t Traits) String() string {
	return fmt.Sprintf("Traits{aggression=%.2f(%s) courage=%.2f selfPreservation=%.2f loyalty=%.2f vengefulness=%.2f style=%s}",
		t.aggression, t.AggressionLevel(), t.courage, t.selfPreservation, t.loyalty, t.vengefulness, t.Style())
}

func levelWeight(l threat.Level) float64 {
	switch l {
	case threat.Low:
		return 0.3
	case threat.Moderate:
		return 0.6
	case threat.High:
		return 0.8
	case threat.Extreme:
		return 1.0
	default:
		return 0
	}
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
