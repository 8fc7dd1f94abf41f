// Package combat holds the value types exchanged by the combat decision
// core: decisions, situation snapshots and per-NPC combat memory.
package combat

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
)

// Action is the primary combat action an NPC takes on a tick.
// The zero value is not a valid action.
type Action int

const (
	ActionUnknown Action = iota
	ActionAttack
	ActionDefend
	ActionFlee
	ActionNegotiate
)

// String returns the upper-case action name.
func (a Action) String() string {
	switch a {
	case ActionAttack:
		return "ATTACK"
	case ActionDefend:
		return "DEFEND"
	case ActionFlee:
		return "FLEE"
	case ActionNegotiate:
		return "NEGOTIATE"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether a is one of the four defined actions.
func (a Action) Known() bool {
	return a >= ActionAttack && a <= ActionNegotiate
}

// ParseAction maps a case-insensitive action name to its Action.
//
// Postcondition: Returns (ActionUnknown, false) for unrecognized names.
func ParseAction(s string) (Action, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ATTACK":
		return ActionAttack, true
	case "DEFEND":
		return ActionDefend, true
	case "FLEE":
		return ActionFlee, true
	case "NEGOTIATE":
		return ActionNegotiate, true
	default:
		return ActionUnknown, false
	}
}

// Source records which tier produced a decision.
type Source int

const (
	SourceFallback Source = iota
	SourceModel
)

// String returns "model" or "fallback".
func (s Source) String() string {
	if s == SourceModel {
		return "model"
	}
	return "fallback"
}

// FallbackRationale is the rationale carried by rule-based decisions.
const FallbackRationale = "rule-based decision"

// Decision is an immutable combat decision.
//
// Invariant: confidence is clamped to [0, 1] at construction.
type Decision struct {
	action     Action
	targets    []uuid.UUID
	weapon     *actor.Weapon
	rationale  string
	confidence float64
	source     Source
}

// NewModelDecision builds a decision derived from the text model.
// targets and weapon are copied.
func NewModelDecision(action Action, targets []uuid.UUID, weapon *actor.Weapon, rationale string, confidence float64) Decision {
	return newDecision(action, targets, weapon, rationale, confidence, SourceModel)
}

// NewFallbackDecision builds a rule-based decision with neutral confidence.
// targets and weapon are copied.
func NewFallbackDecision(action Action, targets []uuid.UUID, weapon *actor.Weapon) Decision {
	return newDecision(action, targets, weapon, FallbackRationale, 0.5, SourceFallback)
}

// NewFallbackDecisionWithRationale is NewFallbackDecision explaining itself
// with rationale instead of FallbackRationale.
func NewFallbackDecisionWithRationale(action Action, targets []uuid.UUID, weapon *actor.Weapon, rationale string) Decision {
	return newDecision(action, targets, weapon, rationale, 0.5, SourceFallback)
}

func newDecision(action Action, targets []uuid.UUID, weapon *actor.Weapon, rationale string, confidence float64, src Source) Decision {
	d := Decision{
		action:     action,
		rationale:  rationale,
		confidence: clampConfidence(confidence),
		source:     src,
	}
	if len(targets) > 0 {
		d.targets = append([]uuid.UUID(nil), targets...)
	}
	if weapon != nil {
		w := *weapon
		d.weapon = &w
	}
	return d
}

func (d Decision) Action() Action { return d.action }
func (d Decision) Rationale() string { return d.rationale }
func (d Decision) Confidence() float64 { return d.confidence }
func (d Decision) Source() Source { return d.source }

// Targets returns a copy of the ordered target priority list.
func (d Decision) Targets() []uuid.UUID {
	return append([]uuid.UUID(nil), d.targets...)
}

// PrimaryTarget returns the first target, if any.
func (d Decision) PrimaryTarget() (uuid.UUID, bool) {
	if len(d.targets) == 0 {
		return uuid.Nil, false
	}
	return d.targets[0], true
}

// Weapon returns a copy of the preferred weapon, or nil.
func (d Decision) Weapon() *actor.Weapon {
	if d.weapon == nil {
		return nil
	}
	w := *d.weapon
	return &w
}

// IsModel reports whether the decision came from the text model.
func (d Decision) IsModel() bool { return d.source == SourceModel }

// Valid reports whether the decision is executable.
//
// Postcondition: true iff the action is known, ATTACK carries at least one
// target, and confidence is in [0, 1].
func (d Decision) Valid() bool {
	if !d.action.Known() {
		return false
	}
	if d.action == ActionAttack && len(d.targets) == 0 {
		return false
	}
	return d.confidence >= 0 && d.confidence <= 1
}

// String implements fmt.Stringer.
func (d Decision) String() string {
	weapon := "none"
	if d.weapon != nil {
		weapon = d.weapon.Kind.String()
	}
	return fmt.Sprintf("Decision{action=%s targets=%d weapon=%s confidence=%.2f source=%s}",
		d.action, len(d.targets), weapon, d.confidence, d.source)
}

// Record is the serializable form of a Decision.
type Record struct {
	Action     string      `json:"action"`
	Targets    []uuid.UUID `json:"targets,omitempty"`
	Weapon     string      `json:"weapon,omitempty"`
	Rationale  string      `json:"rationale,omitempty"`
	Confidence float64     `json:"confidence"`
	Model      bool        `json:"model"`
}

// Record converts d for persistence.
func (d Decision) Record() Record {
	r := Record{
		Action:     d.action.String(),
		Targets:    d.Targets(),
		Rationale:  d.rationale,
		Confidence: d.confidence,
		Model:      d.source == SourceModel,
	}
	if d.weapon != nil {
		r.Weapon = d.weapon.Kind.String()
	}
	return r
}

// FromRecord rebuilds a Decision. Weapons are restored with standard damage.
func FromRecord(r Record) Decision {
	action, _ := ParseAction(r.Action)
	var weapon *actor.Weapon
	if k, ok := actor.ParseWeaponKind(r.Weapon); ok {
		w := actor.StandardWeapon(k)
		weapon = &w
	}
	src := SourceFallback
	if r.Model {
		src = SourceModel
	}
	return newDecision(action, r.Targets, weapon, r.Rationale, r.Confidence, src)
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
