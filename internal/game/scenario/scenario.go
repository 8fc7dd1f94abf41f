// Package scenario describes an encounter: the villagers on each side, the
// bonds between them, and the trades to negotiate once the fighting stops.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/npc"
)

// DefaultTicks is the number of combat ticks run when a scenario sets none.
const DefaultTicks = 10

// ErrInvalidScenario is wrapped by every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Spawn places one villager.
type Spawn struct {
	Template string
	// Name must be unique within the scenario; it is how bonds and trades
	// refer to the villager.
	Name     string
	Side     string
	Position actor.Vec3
	Hostile  bool
	// Health overrides the template's starting health when > 0.
	Health     float64
	Reputation float64
	Defending  bool
}

// Bond seeds From's feelings toward To.
type Bond struct {
	From       string
	To         string
	Level      actor.RelationshipLevel
	Trust      float64
	Friendship float64
}

// Trade is a scripted haggle: Buyer makes Offers, in order, to Seller.
type Trade struct {
	Seller    string
	Buyer     string
	Item      string
	BasePrice float64
	Offers    []float64
}

// Scenario is a validated encounter definition.
type Scenario struct {
	Name        string
	Description string
	Ticks       int
	// Templates is keyed by template ID.
	Templates map[string]*npc.Template
	Spawns    []Spawn
	Bonds     []Bond
	Trades    []Trade
}

// Validate checks cross references and ranges.
//
// Postcondition: Returns nil iff the scenario can be built; otherwise an
// error wrapping ErrInvalidScenario that lists every violation.
func (s *Scenario) Validate() error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if s.Ticks < 0 {
		errs = append(errs, fmt.Sprintf("ticks must be >= 0, got %d", s.Ticks))
	}
	if len(s.Spawns) == 0 {
		errs = append(errs, "at least one spawn is required")
	}

	names := make(map[string]bool, len(s.Spawns))
	for i, sp := range s.Spawns {
		switch {
		case sp.Name == "":
			errs = append(errs, fmt.Sprintf("spawn %d: name must not be empty", i))
		case names[sp.Name]:
			errs = append(errs, fmt.Sprintf("spawn %q: duplicate name", sp.Name))
		}
		names[sp.Name] = true
		if _, ok := s.Templates[sp.Template]; !ok {
			errs = append(errs, fmt.Sprintf("spawn %q: unknown template %q", sp.Name, sp.Template))
		}
		if sp.Side == "" {
			errs = append(errs, fmt.Sprintf("spawn %q: side must not be empty", sp.Name))
		}
		if sp.Health < 0 {
			errs = append(errs, fmt.Sprintf("spawn %q: health must be >= 0", sp.Name))
		}
		if sp.Reputation < -1 || sp.Reputation > 1 {
			errs = append(errs, fmt.Sprintf("spawn %q: reputation %v must be in [-1, 1]", sp.Name, sp.Reputation))
		}
	}

	for _, b := range s.Bonds {
		if !names[b.From] || !names[b.To] {
			errs = append(errs, fmt.Sprintf("bond %s->%s: unknown villager", b.From, b.To))
		}
		if b.Trust < -1 || b.Trust > 1 || b.Friendship < -1 || b.Friendship > 1 {
			errs = append(errs, fmt.Sprintf("bond %s->%s: trust and friendship must be in [-1, 1]", b.From, b.To))
		}
	}

	for _, t := range s.Trades {
		label := fmt.Sprintf("trade %s->%s", t.Seller, t.Buyer)
		if !names[t.Seller] || !names[t.Buyer] {
			errs = append(errs, label+": unknown villager")
		}
		if t.Seller == t.Buyer {
			errs = append(errs, label+": seller and buyer must differ")
		}
		if !(t.BasePrice > 0) || math.IsInf(t.BasePrice, 0) {
			errs = append(errs, fmt.Sprintf("%s: base_price must be > 0, got %v", label, t.BasePrice))
		}
		if len(t.Offers) == 0 {
			errs = append(errs, label+": at least one offer is required")
		}
		for _, o := range t.Offers {
			if !(o >= 0) || math.IsInf(o, 0) {
				errs = append(errs, fmt.Sprintf("%s: offer %v must be >= 0", label, o))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidScenario, s.Name, strings.Join(errs, "; "))
	}
	return nil
}

// TickCount returns Ticks, or DefaultTicks when unset.
func (s *Scenario) TickCount() int {
	if s.Ticks == 0 {
		return DefaultTicks
	}
	return s.Ticks
}

// Cast is the set of villagers a scenario spawned, keyed by spawn name.
type Cast map[string]*npc.Instance

// villagerNamespace scopes the name-based villager IDs.
var villagerNamespace = uuid.MustParse("6f1c2a4e-93b7-4f0a-8d5e-2b7c9e41a0d3")

// VillagerID is the stable identity of the villager spawned as name in the
// scenario called scenarioName. Persisted memory and standings are keyed by it.
func VillagerID(scenarioName, name string) uuid.UUID {
	return uuid.NewSHA1(villagerNamespace, []byte(scenarioName+"/"+name))
}

// Build spawns every villager into mgr and applies the bonds.
//
// Precondition: s has been validated; mgr is non-nil.
// Postcondition: Returns the spawned villagers, each identified by
// VillagerID(s.Name, spawn name), or an error after which mgr may hold a
// partial cast.
func (s *Scenario) Build(mgr *npc.Manager) (Cast, error) {
	cast := make(Cast, len(s.Spawns))
	for _, sp := range s.Spawns {
		inst, err := mgr.SpawnWithID(VillagerID(s.Name, sp.Name), s.Templates[sp.Template], sp.Name, sp.Side)
		if err != nil {
			return nil, fmt.Errorf("spawning %q: %w", sp.Name, err)
		}
		inst.SetPosition(sp.Position.X, sp.Position.Y, sp.Position.Z)
		inst.SetHostile(sp.Hostile)
		if sp.Health > 0 {
			inst.SetHealth(sp.Health)
		}
		if sp.Reputation != 0 {
			inst.SetReputation(actor.NewReputation(sp.Reputation))
		}
		if sp.Defending {
			inst.Defend()
		}
		cast[sp.Name] = inst
	}

	for _, b := range s.Bonds {
		from, to := cast[b.From], cast[b.To]
		rel := from.Relationships()
		rel.SetLevel(to.ID(), b.Level)
		if b.Trust != 0 {
			rel.SetTrust(b.Trust)
		}
		if b.Friendship != 0 {
			rel.SetFriendship(b.Friendship)
		}
	}
	return cast, nil
}
