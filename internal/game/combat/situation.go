package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

// Situation is the snapshot a caller supplies for one decision request.
type Situation struct {
	Self      actor.Actor
	Opponents []actor.Actor
	Allies    []actor.Actor
	Overall   threat.Level
	// Defensive is set when the NPC is protecting territory or others.
	Defensive bool
}

// Fingerprint reduces a situation to the features a cached decision is
// keyed on.
type Fingerprint struct {
	Opponents int
	Allies    int
	Level     threat.Level
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%d/%d/%s", f.Opponents, f.Allies, f.Level)
}

// Fingerprint returns (opponent count, ally count, overall level).
func (s Situation) Fingerprint() Fingerprint {
	return Fingerprint{Opponents: len(s.Opponents), Allies: len(s.Allies), Level: s.Overall}
}

// StrategyCategory names the bucket a learned strategy is filed under, e.g.
// "high_3_enemies".
func (s Situation) StrategyCategory() string {
	return StrategyCategory(s.Overall, len(s.Opponents))
}

// StrategyCategory formats a learned-strategy bucket name.
func StrategyCategory(level threat.Level, opponents int) string {
	return fmt.Sprintf("%s_%d_enemies", strings.ToLower(level.String()), opponents)
}
