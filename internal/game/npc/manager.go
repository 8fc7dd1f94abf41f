package npc

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
)

// Manager tracks all live villagers by ID and by side.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*Instance       // instance ID → Instance
	sideSets  map[string]map[uuid.UUID]bool // side → set of instance IDs
	roll      func() float64
}

// NewManager creates an empty villager Manager. roll yields uniform values in
// [0, 1) for negotiation attempts; nil uses math/rand.
func NewManager(roll func() float64) *Manager {
	if roll == nil {
		roll = rand.Float64
	}
	return &Manager{
		instances: make(map[uuid.UUID]*Instance),
		sideSets:  make(map[string]map[uuid.UUID]bool),
		roll:      roll,
	}
}

// Spawn creates a new Instance from tmpl named name on side. An empty name
// uses the template's name.
//
// Precondition: tmpl must be non-nil; side must be non-empty.
// Postcondition: Returns a new Instance with a fresh ID registered on side.
func (m *Manager) Spawn(tmpl *Template, name, side string) (*Instance, error) {
	return m.SpawnWithID(uuid.New(), tmpl, name, side)
}

// SpawnWithID is Spawn with a caller-chosen identity, e.g. to reattach
// persisted memory.
//
// Postcondition: Returns an error if id is already registered.
func (m *Manager) SpawnWithID(id uuid.UUID, tmpl *Template, name, side string) (*Instance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("npc.Manager.Spawn: tmpl must not be nil")
	}
	if side == "" {
		return nil, fmt.Errorf("npc.Manager.Spawn: side must not be empty")
	}
	if name == "" {
		name = tmpl.Name
	}
	inst := NewInstance(id, name, tmpl, side)
	inst.world = m
	inst.roll = m.roll

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.instances[id]; dup {
		return nil, fmt.Errorf("npc.Manager.Spawn: instance %s already exists", id)
	}
	m.instances[id] = inst
	if m.sideSets[side] == nil {
		m.sideSets[side] = make(map[uuid.UUID]bool)
	}
	m.sideSets[side][id] = true

	return inst, nil
}

// Remove deletes an instance by ID.
//
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("npc instance %s not found", id)
	}

	if ss, ok := m.sideSets[inst.side]; ok {
		delete(ss, id)
		if len(ss) == 0 {
			delete(m.sideSets, inst.side)
		}
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given ID.
//
// Postcondition: Returns (inst, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id uuid.UUID) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// All returns a snapshot of every instance ordered by name.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) All() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	sortByName(out)
	return out
}

// OnSide returns a snapshot of all instances on side ordered by name.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) OnSide(side string) []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.sideSets[side]
	if !ok {
		return []*Instance{}
	}

	out := make([]*Instance, 0, len(ids))
	for id := range ids {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst)
		}
	}
	sortByName(out)
	return out
}

// Sides returns the names of all sides that have instances, sorted.
func (m *Manager) Sides() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sideSets))
	for side := range m.sideSets {
		out = append(out, side)
	}
	slices.Sort(out)
	return out
}

// Find returns the first instance, in name order, whose Name has target as
// a case-insensitive prefix. Returns nil if no match is found.
func (m *Manager) Find(target string) *Instance {
	lower := strings.ToLower(target)
	for _, inst := range m.All() {
		if strings.HasPrefix(strings.ToLower(inst.Name()), lower) {
			return inst
		}
	}
	return nil
}

// Situation builds the combat snapshot for inst: opponents are the in-combat
// villagers of every other side, allies the in-combat villagers of its own.
// Overall is left at NONE for the orchestrator to raise from its assessment.
//
// Precondition: inst must be non-nil.
func (m *Manager) Situation(inst *Instance) combat.Situation {
	s := combat.Situation{Self: inst, Defensive: inst.IsDefending()}
	for _, other := range m.All() {
		if other.ID() == inst.ID() || !other.InCombat() {
			continue
		}
		if other.side == inst.side {
			s.Allies = append(s.Allies, other)
		} else {
			s.Opponents = append(s.Opponents, other)
		}
	}
	return s
}

// Contested reports whether at least two sides still have villagers in combat.
func (m *Manager) Contested() bool {
	active := make(map[string]bool)
	for _, inst := range m.All() {
		if inst.InCombat() {
			active[inst.side] = true
		}
	}
	return len(active) > 1
}

// Actors converts instances to the decision core's view.
func Actors(instances []*Instance) []actor.Actor {
	out := make([]actor.Actor, len(instances))
	for i, inst := range instances {
		out[i] = inst
	}
	return out
}

func sortByName(instances []*Instance) {
	slices.SortFunc(instances, func(a, b *Instance) int {
		if c := cmp.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID().String(), b.ID().String())
	})
}
