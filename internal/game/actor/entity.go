package actor

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// UnarmedDamage is the attack damage of an entity with no weapon equipped.
const UnarmedDamage = 2.0

// Entity is a concrete Actor used by simulations and tests.
// All methods are safe for concurrent use.
type Entity struct {
	mu        sync.RWMutex
	id        uuid.UUID
	name      string
	health    float64
	maxHealth float64
	pos       Vec3
	weapon    *Weapon
	hostile   bool
	attacker  uuid.UUID
}

// NewEntity creates a living Entity at full health with a fresh identity.
//
// Precondition: maxHealth > 0.
// Postcondition: Health() == MaxHealth() == maxHealth; IsAlive() is true.
func NewEntity(name string, maxHealth float64) *Entity {
	return NewEntityWithID(uuid.New(), name, maxHealth)
}

// NewEntityWithID creates a living Entity at full health with the given identity.
//
// Precondition: maxHealth > 0.
func NewEntityWithID(id uuid.UUID, name string, maxHealth float64) *Entity {
	if maxHealth < 0 {
		maxHealth = 0
	}
	return &Entity{id: id, name: name, health: maxHealth, maxHealth: maxHealth}
}

// ID implements Actor.
func (e *Entity) ID() uuid.UUID { return e.id }

// Name returns the display name.
func (e *Entity) Name() string { return e.name }

// IsAlive implements Actor.
func (e *Entity) IsAlive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health > 0
}

// Health implements Actor.
func (e *Entity) Health() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health
}

// MaxHealth implements Actor.
func (e *Entity) MaxHealth() float64 { return e.maxHealth }

// SetHealth sets current health, clamped to [0, MaxHealth].
//
// Postcondition: 0 <= Health() <= MaxHealth(); IsAlive() iff Health() > 0.
func (e *Entity) SetHealth(h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = math.Max(0, math.Min(e.maxHealth, h))
}

// Damage reduces health by amount.
func (e *Entity) Damage(amount float64) { e.SetHealth(e.Health() - amount) }

// Heal increases health by amount.
func (e *Entity) Heal(amount float64) { e.SetHealth(e.Health() + amount) }

// AttackDamage implements Actor.
func (e *Entity) AttackDamage() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.weapon != nil {
		return e.weapon.Damage
	}
	return UnarmedDamage
}

// Position implements Actor.
func (e *Entity) Position() Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

// SetPosition moves the entity.
func (e *Entity) SetPosition(x, y, z float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = Vec3{X: x, Y: y, Z: z}
}

// DistanceTo implements Actor.
func (e *Entity) DistanceTo(other Actor) float64 {
	if other == nil {
		return math.MaxFloat64
	}
	return e.Position().Distance(other.Position())
}

// EquippedWeapon implements Actor. The returned weapon is a copy.
func (e *Entity) EquippedWeapon() *Weapon {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.weapon == nil {
		return nil
	}
	w := *e.weapon
	return &w
}

// Equip replaces the equipped weapon.
func (e *Entity) Equip(w Weapon) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weapon = &w
}

// Unequip removes the equipped weapon.
func (e *Entity) Unequip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weapon = nil
}

// IsHostile implements Actor.
func (e *Entity) IsHostile() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hostile
}

// SetHostile sets the hostility flag.
func (e *Entity) SetHostile(h bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hostile = h
}

// IsBeingAttacked implements Actor.
func (e *Entity) IsBeingAttacked() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.attacker != uuid.Nil
}

// SetAttacker records who is attacking this entity; uuid.Nil clears it.
func (e *Entity) SetAttacker(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attacker = id
}

// Attacker returns the current attacker, or uuid.Nil.
func (e *Entity) Attacker() uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.attacker
}
