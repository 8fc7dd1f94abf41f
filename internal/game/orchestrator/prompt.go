package orchestrator

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
)

// defaultWeaponList is offered when the actor carries no selectable weapons.
const defaultWeaponList = "sword, bow, axe"

type named interface {
	Name() string
}

// BuildPrompt renders the model prompt for req. The response format block
// matches what response.Parse reads.
func BuildPrompt(req DecisionRequest) string {
	var b strings.Builder
	t := req.Traits

	b.WriteString("You are a villager facing a combat situation. Analyze and decide:\n\n")

	b.WriteString("Personality:\n")
	fmt.Fprintf(&b, "- Aggression: %.1f\n", t.Aggression())
	fmt.Fprintf(&b, "- Courage: %.1f\n", t.Courage())
	fmt.Fprintf(&b, "- Self-Preservation: %.1f\n", t.SelfPreservation())
	fmt.Fprintf(&b, "- Loyalty: %.1f\n", t.Loyalty())
	fmt.Fprintf(&b, "- Combat Style: %s\n", t.Style())
	fmt.Fprintf(&b, "- Willing To Engage: %s\n", yesNo(t.WouldEngage(req.Threat.Level())))
	allies, opponents := len(req.Situation.Allies), len(req.Situation.Opponents)
	fmt.Fprintf(&b, "- Combat Effectiveness: %.2fx\n\n", t.CombatModifier(allies > 0, opponents > allies+1))

	fmt.Fprintf(&b, "Current Threat: %s\n", req.Threat.Level())
	fmt.Fprintf(&b, "Threat Score: %.2f\n\n", req.Threat.Score())

	b.WriteString("Enemies: ")
	if len(req.Situation.Opponents) == 0 {
		b.WriteString("None")
	}
	first := true
	for _, o := range req.Situation.Opponents {
		if o == nil {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s(%s)", displayName(o), actor.ShortID(o.ID()))
	}
	b.WriteString("\n\n")

	b.WriteString("Allies Present: ")
	if n := len(req.Situation.Allies); n == 0 {
		b.WriteString("None")
	} else {
		fmt.Fprintf(&b, "%d allies nearby", n)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Available Weapons: %s\n\n", weaponList(req.Weapons))

	if h := req.History; h != nil {
		fmt.Fprintf(&b, "Combat Record: %d encounters, %.0f%% success\n", h.TotalEncounters(), h.SuccessRate()*100)
		if d, ok := h.LearnedStrategy(req.Situation.StrategyCategory()); ok {
			fmt.Fprintf(&b, "Last Choice Here: %s\n", d.Action())
		}
		b.WriteString("\n")
	}

	b.WriteString("Relationship Context: ")
	if req.Relationships != nil {
		b.WriteString("Has relationship data")
	} else {
		b.WriteString("No specific relationships")
	}
	b.WriteString("\n\n")

	b.WriteString("Decide: ATTACK/DEFEND/FLEE/NEGOTIATE\n")
	b.WriteString("Target Priority: [enemy IDs in order]\n")
	b.WriteString("Weapon Choice: sword/bow/axe\n")
	b.WriteString("Tactical Notes: [brief reasoning]\n\n")
	b.WriteString("Keep response under 100 tokens.")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func displayName(a actor.Actor) string {
	if n, ok := a.(named); ok && n.Name() != "" {
		return n.Name()
	}
	return "Entity"
}

func weaponList(weapons []actor.Weapon) string {
	if len(weapons) == 0 {
		return defaultWeaponList
	}
	seen := make(map[actor.WeaponKind]bool, len(weapons))
	var names []string
	for _, w := range weapons {
		if !seen[w.Kind] {
			seen[w.Kind] = true
			names = append(names, w.Kind.String())
		}
	}
	return strings.Join(names, ", ")
}
