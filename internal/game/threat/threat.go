// Package threat scores how dangerous opposing actors are and aggregates
// those scores into immutable assessments.
package threat

import (
	"math"
	"strings"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
)

// Level is an ordered danger bucket; higher values are more dangerous.
type Level int

const (
	None Level = iota
	Low
	Moderate
	High
	Extreme
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case Low:
		return "LOW"
	case Moderate:
		return "MODERATE"
	case High:
		return "HIGH"
	case Extreme:
		return "EXTREME"
	default:
		return "NONE"
	}
}

// ParseLevel maps an upper- or lower-case level name to its Level.
// Unknown names map to None.
func ParseLevel(s string) Level {
	for l := None; l <= Extreme; l++ {
		if strings.EqualFold(l.String(), s) {
			return l
		}
	}
	return None
}

const (
	// referenceHealth normalizes opponent health in the score.
	referenceHealth = 20.0
	// referenceDamage normalizes opponent attack damage in the score.
	referenceDamage = 10.0
	// proximityRange is the distance beyond which proximity bottoms out.
	proximityRange = 20.0
	minProximity   = 0.1

	healthWeight    = 0.3
	damageWeight    = 0.5
	proximityWeight = 0.2
)

// Score computes the danger opponent poses to self.
//
// Postcondition: Returns 0 if opponent is nil or dead; otherwise a value in [0, 1].
func Score(opponent, self actor.Actor) float64 {
	if opponent == nil || !opponent.IsAlive() {
		return 0
	}
	dist := proximityRange
	if self != nil {
		dist = opponent.DistanceTo(self)
	}
	proximity := math.Max(minProximity, 1-dist/proximityRange)
	s := (opponent.Health()/referenceHealth)*healthWeight +
		(opponent.AttackDamage()/referenceDamage)*damageWeight +
		proximity*proximityWeight
	return clamp01(s)
}

// LevelFor buckets a score.
//
// Postcondition: > 0.8 EXTREME, > 0.6 HIGH, > 0.4 MODERATE, > 0.2 LOW, otherwise NONE.
func LevelFor(score float64) Level {
	switch {
	case score > 0.8:
		return Extreme
	case score > 0.6:
		return High
	case score > 0.4:
		return Moderate
	case score > 0.2:
		return Low
	default:
		return None
	}
}

// Assessment is the danger posed by one source actor. It is immutable.
type Assessment struct {
	level  Level
	source actor.Actor
	score  float64
}

// NewAssessment builds an Assessment, clamping score to [0, 1].
func NewAssessment(level Level, source actor.Actor, score float64) Assessment {
	return Assessment{level: level, source: source, score: clamp01(score)}
}

func (a Assessment) Level() Level { return a.level }
func (a Assessment) Source() actor.Actor { return a.source }
func (a Assessment) Score() float64 { return a.score }

// MultiAssessment aggregates per-opponent assessments. It is immutable.
//
// Invariant: Overall() is the maximum individual level and Score() is the
// mean individual score; both are None/0 when empty.
type MultiAssessment struct {
	items   []Assessment
	overall Level
	mean    float64
}

// NewMultiAssessment aggregates items. The slice is copied.
func NewMultiAssessment(items []Assessment) MultiAssessment {
	m := MultiAssessment{items: append([]Assessment(nil), items...)}
	var sum float64
	for _, it := range m.items {
		if it.level > m.overall {
			m.overall = it.level
		}
		sum += it.score
	}
	if len(m.items) > 0 {
		m.mean = sum / float64(len(m.items))
	}
	return m
}

// Assess scores every opponent against self.
//
// Postcondition: One Assessment per non-nil opponent, in input order.
func Assess(self actor.Actor, opponents []actor.Actor) MultiAssessment {
	items := make([]Assessment, 0, len(opponents))
	for _, o := range opponents {
		if o == nil {
			continue
		}
		s := Score(o, self)
		items = append(items, NewAssessment(LevelFor(s), o, s))
	}
	return NewMultiAssessment(items)
}

// Items returns a copy of the individual assessments.
func (m MultiAssessment) Items() []Assessment { return append([]Assessment(nil), m.items...) }

// Len returns the number of individual assessments.
func (m MultiAssessment) Len() int { return len(m.items) }

// Overall returns the highest individual level.
func (m MultiAssessment) Overall() Level { return m.overall }

// Score returns the mean individual score.
func (m MultiAssessment) Score() float64 { return m.mean }

// Primary collapses the aggregate into a single Assessment carrying the first
// source, the overall level and the mean score.
//
// Postcondition: Returns a None assessment with a nil source when empty.
func (m MultiAssessment) Primary() Assessment {
	if len(m.items) == 0 {
		return Assessment{level: None}
	}
	return Assessment{level: m.overall, source: m.items[0].source, score: m.mean}
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
