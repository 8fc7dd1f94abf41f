package npc

import (
	"math/rand/v2"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
)

// highReputation is the standing above which a villager negotiates from
// strength.
const highReputation = 0.5

// fleeDistance is how far a fleeing villager moves away from the fight.
const fleeDistance = 25.0

// Instance is a live villager taking part in an encounter. It satisfies the
// orchestrator's Combatant contract. All methods are safe for concurrent use.
type Instance struct {
	*actor.Entity

	// TemplateID is the source template's ID.
	TemplateID string
	// Description is copied from the template.
	Description string

	side       string
	traits     personality.Traits
	rel        *actor.Relationship
	rep        *actor.Reputation
	weapons    []actor.Weapon
	memory     *combat.Memory
	defending  atomic.Bool
	fled       atomic.Bool
	negotiated atomic.Bool
	world      *Manager
	roll       func() float64
}

// NewInstance creates a live villager from a template on side.
//
// Precondition: tmpl must be non-nil and validated; name and side must be non-empty.
// Postcondition: Health equals tmpl.MaxHealth; the equipped weapon, if any,
// is in hand.
func NewInstance(id uuid.UUID, name string, tmpl *Template, side string) *Instance {
	inst := &Instance{
		Entity:      actor.NewEntityWithID(id, name, tmpl.MaxHealth),
		TemplateID:  tmpl.ID,
		Description: tmpl.Description,
		side:        side,
		traits:      tmpl.Personality(),
		rel:         actor.NewRelationship(),
		rep:         actor.NewReputation(0),
		weapons:     tmpl.Arsenal(),
		memory:      combat.NewMemory(),
		roll:        rand.Float64,
	}
	if tmpl.Equipped != "" {
		kind, _ := actor.ParseWeaponKind(tmpl.Equipped)
		inst.Equip(actor.StandardWeapon(kind))
	}
	return inst
}

// Side returns the faction the villager fights for.
func (i *Instance) Side() string { return i.side }

// Traits returns the villager's personality.
func (i *Instance) Traits() personality.Traits { return i.traits }

// Relationships returns the villager's relationship record.
func (i *Instance) Relationships() *actor.Relationship { return i.rel }

// Reputation returns the villager's standing as a trader.
func (i *Instance) Reputation() *actor.Reputation { return i.rep }

// SetReputation replaces the villager's standing, e.g. with a persisted one.
// It must be called before the villager enters combat.
func (i *Instance) SetReputation(r *actor.Reputation) {
	if r != nil {
		i.rep = r
	}
}

// CombatMemory returns the villager's combat history.
func (i *Instance) CombatMemory() *combat.Memory { return i.memory }

// SetCombatMemory replaces the villager's combat history before it enters
// combat, e.g. with a persisted one.
func (i *Instance) SetCombatMemory(m *combat.Memory) {
	if m != nil {
		i.memory = m
	}
}

// AvailableWeapons returns a copy of the weapons the villager carries.
func (i *Instance) AvailableWeapons() []actor.Weapon { return slices.Clone(i.weapons) }

// HasHighReputation reports whether the villager's standing eases negotiation.
func (i *Instance) HasHighReputation() bool { return i.rep.Value() > highReputation }

// InCombat reports whether the villager is alive and still on the field.
func (i *Instance) InCombat() bool { return i.IsAlive() && !i.fled.Load() && !i.negotiated.Load() }

// IsDefending reports whether the villager took a defensive stance last.
func (i *Instance) IsDefending() bool { return i.defending.Load() }

// HasFled reports whether the villager left the fight.
func (i *Instance) HasFled() bool { return i.fled.Load() }

// HasNegotiated reports whether the villager talked its way out of the fight.
func (i *Instance) HasNegotiated() bool { return i.negotiated.Load() }

// EquipWeapon puts w in hand if the villager carries a weapon of that kind.
//
// Postcondition: Returns false and changes nothing when no such weapon is carried.
func (i *Instance) EquipWeapon(w actor.Weapon) bool {
	for _, carried := range i.weapons {
		if carried.Kind == w.Kind {
			i.Equip(carried)
			return true
		}
	}
	return false
}

// Attack strikes target with the weapon in hand.
//
// Postcondition: Returns false when the villager or the target is out of
// combat or the target is unknown; otherwise damages the target, records
// the villager as its attacker, and returns true.
func (i *Instance) Attack(target uuid.UUID) bool {
	if !i.InCombat() || i.world == nil {
		return false
	}
	victim, ok := i.world.Get(target)
	if !ok || !victim.InCombat() {
		return false
	}
	i.defending.Store(false)
	victim.Damage(i.AttackDamage())
	victim.SetAttacker(i.ID())
	return true
}

// Defend takes a defensive stance until the next attack.
func (i *Instance) Defend() bool {
	if !i.InCombat() {
		return false
	}
	i.defending.Store(true)
	return true
}

// Flee leaves the fight.
func (i *Instance) Flee() bool {
	if !i.InCombat() {
		return false
	}
	p := i.Position()
	i.SetPosition(p.X+fleeDistance, p.Y, p.Z)
	i.fled.Store(true)
	return true
}

// AttemptNegotiation rolls whether the opposing side is willing to listen.
// Loyal, calm villagers are heard more often.
func (i *Instance) AttemptNegotiation() bool {
	if !i.InCombat() {
		return false
	}
	willing := (1 - i.traits.Aggression() + i.traits.Loyalty()) / 2
	return i.roll() < willing
}

// Withdraw takes the villager out of combat after a successful negotiation.
func (i *Instance) Withdraw() { i.negotiated.Store(true) }

// HealthDescription returns a visible health state string for logs.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	if !i.IsAlive() {
		return "dead"
	}
	pct := i.Health() / i.MaxHealth()
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
