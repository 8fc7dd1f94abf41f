package orchestrator

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
)

// Armed is implemented by actors that carry selectable weapons.
type Armed interface {
	AvailableWeapons() []actor.Weapon
}

// Remembering is implemented by actors that keep combat memory. A nil
// memory means the actor does not remember.
type Remembering interface {
	CombatMemory() *combat.Memory
}

// Reputable is implemented by actors whose standing eases negotiation.
type Reputable interface {
	HasHighReputation() bool
}

// Combatant is an actor the orchestrator can both decide for and act through.
// The action methods report whether the action took effect.
type Combatant interface {
	actor.Actor
	Armed
	Remembering
	Traits() personality.Traits
	Relationships() *actor.Relationship
	EquipWeapon(w actor.Weapon) bool
	Attack(target uuid.UUID) bool
	Defend() bool
	Flee() bool
	AttemptNegotiation() bool
}
