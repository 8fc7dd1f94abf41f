package orchestrator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/game/combat"
)

// execute carries out d through c. Panics from the combatant are logged and
// reported as not executed.
func (o *Orchestrator) execute(c Combatant, d combat.Decision, s combat.Situation) (executed bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("executing combat decision",
				zap.Stringer("actor", c.ID()),
				zap.Stringer("decision", d),
				zap.String("panic", fmt.Sprint(r)),
			)
			executed = false
		}
	}()

	switch d.Action() {
	case combat.ActionAttack:
		target, ok := d.PrimaryTarget()
		if !ok {
			return false
		}
		if w := d.Weapon(); w != nil {
			c.EquipWeapon(*w)
		}
		return c.Attack(target)
	case combat.ActionDefend:
		return c.Defend()
	case combat.ActionFlee:
		return c.Flee()
	case combat.ActionNegotiate:
		return negotiate(c, s, o.draw)
	default:
		return false
	}
}
