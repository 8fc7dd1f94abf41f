// Package response turns free-form model output into typed combat decisions
// and checks them against the situation they were produced for.
package response

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

// ErrNoAction is returned when the text names none of the four actions.
var ErrNoAction = errors.New("response: no recognizable action")

// DefaultRationale is used when the text carries no tactical notes.
const DefaultRationale = "model-generated decision"

const baseConfidence = 0.5

var (
	actionLine    = regexp.MustCompile(`(?i)decide:\s*(\w+)`)
	bareAction    = regexp.MustCompile(`(?i)\b(ATTACK|DEFEND|FLEE|NEGOTIATE)\b`)
	targetLine    = regexp.MustCompile(`(?i)target priority:\s*\[([^\]]+)\]`)
	weaponLine    = regexp.MustCompile(`(?i)weapon choice:\s*(\w+)`)
	rationaleLine = regexp.MustCompile(`(?i)tactical notes:\s*(.+)`)

	tacticsKeywords = []string{"tactical", "strategy", "flank", "cover"}
)

// Parse extracts a model decision from text.
//
// The action comes from a "Decide:" line, or failing that the first bare
// action word; a "Decide:" line naming anything else is a parse failure.
// Target tokens are matched against opponents by id prefix or contained
// short id, and unmatched tokens are skipped. An ATTACK with no matched
// target defaults to the first opponent. An unrecognized weapon name maps
// to a sword.
//
// Precondition: opponents may be empty.
// Postcondition: Returns ErrNoAction when no action is present; otherwise a
// decision with model provenance. The decision is not validated.
func Parse(text string, opponents []actor.Actor, overall threat.Level) (combat.Decision, error) {
	action, ok := parseAction(text)
	if !ok {
		return combat.Decision{}, ErrNoAction
	}

	targets := parseTargets(text, opponents)
	resolved := len(targets) > 0
	if action == combat.ActionAttack && !resolved && len(opponents) > 0 && opponents[0] != nil {
		targets = []uuid.UUID{opponents[0].ID()}
	}

	rationale := DefaultRationale
	if m := rationaleLine.FindStringSubmatch(text); m != nil {
		if r := strings.TrimSpace(m[1]); r != "" {
			rationale = r
		}
	}

	conf := confidence(text, action, resolved, len(opponents), overall)
	return combat.NewModelDecision(action, targets, parseWeapon(text), rationale, conf), nil
}

func parseAction(text string) (combat.Action, bool) {
	if m := actionLine.FindStringSubmatch(text); m != nil {
		return combat.ParseAction(m[1])
	}
	if m := bareAction.FindStringSubmatch(text); m != nil {
		return combat.ParseAction(m[1])
	}
	return combat.ActionUnknown, false
}

func parseTargets(text string, opponents []actor.Actor) []uuid.UUID {
	m := targetLine.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, tok := range strings.Split(m[1], ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		for _, o := range opponents {
			if o == nil {
				continue
			}
			id := o.ID()
			if strings.HasPrefix(id.String(), tok) || strings.Contains(tok, actor.ShortID(id)) {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
				break
			}
		}
	}
	return out
}

func parseWeapon(text string) *actor.Weapon {
	m := weaponLine.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	kind, ok := actor.ParseWeaponKind(m[1])
	if !ok {
		kind = actor.WeaponSword
	}
	w := actor.StandardWeapon(kind)
	return &w
}

// confidence is informational only; nothing downstream branches on it.
func confidence(text string, action combat.Action, resolved bool, opponents int, overall threat.Level) float64 {
	c := baseConfidence
	lower := strings.ToLower(text)
	for _, kw := range tacticsKeywords {
		if strings.Contains(lower, kw) {
			c += 0.1
			break
		}
	}
	switch {
	case action == combat.ActionFlee && overall == threat.Extreme:
		c += 0.1
	case action == combat.ActionAttack && opponents > 0 && resolved:
		c += 0.1
	}
	return c
}
