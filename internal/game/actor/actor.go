// Package actor defines the read-only view of world entities consumed by the
// decision core, along with relationship and reputation records.
//
// The decision core never owns actors; the world layer creates them and the
// core reads them through the Actor interface.
package actor

import (
	"math"

	"github.com/google/uuid"
)

// shortIDLen is the number of leading characters of an ID exposed to the
// text model and matched back by the response parser.
const shortIDLen = 8

// Vec3 is a position in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance between v and o.
//
// Postcondition: Returns a value >= 0.
func (v Vec3) Distance(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Actor is an opposing or allied entity as seen by the decision core.
//
// Implementations must be safe for concurrent reads.
type Actor interface {
	ID() uuid.UUID
	IsAlive() bool
	Health() float64
	MaxHealth() float64
	// AttackDamage is the damage dealt with the equipped weapon, or the
	// unarmed base when nothing is equipped.
	AttackDamage() float64
	Position() Vec3
	// DistanceTo returns math.MaxFloat64 when other is nil.
	DistanceTo(other Actor) float64
	// EquippedWeapon returns nil when the actor is unarmed.
	EquippedWeapon() *Weapon
	IsHostile() bool
	IsBeingAttacked() bool
}

// ShortID returns the abbreviated identity used in model prompts.
//
// Postcondition: Returns the first 8 characters of id's canonical form.
func ShortID(id uuid.UUID) string {
	return id.String()[:shortIDLen]
}

// IDs returns the identities of actors in input order.
//
// Postcondition: len(result) == len(actors).
func IDs(actors []Actor) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(actors))
	for _, a := range actors {
		out = append(out, a.ID())
	}
	return out
}

// Living returns the actors in input order that are alive.
func Living(actors []Actor) []Actor {
	var out []Actor
	for _, a := range actors {
		if a != nil && a.IsAlive() {
			out = append(out, a)
		}
	}
	return out
}
