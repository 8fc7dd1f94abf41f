package response

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
)

var (
	// ErrInvalidDecision is returned for decisions that fail combat.Decision.Valid.
	ErrInvalidDecision = errors.New("response: invalid decision")
	// ErrUnknownTarget is returned when a target is not among the opponents.
	ErrUnknownTarget = errors.New("response: unknown target")
	// ErrNoOpponents is returned for NEGOTIATE with nobody to negotiate with.
	ErrNoOpponents = errors.New("response: no opponents present")
)

// Validate checks d against the opponents of the situation it was made for.
//
// Postcondition: Returns nil, or an error wrapping ErrInvalidDecision,
// ErrUnknownTarget or ErrNoOpponents.
func Validate(d combat.Decision, opponents []actor.Actor) error {
	if !d.Action().Known() {
		return fmt.Errorf("%w: action %s", ErrInvalidDecision, d.Action())
	}
	if d.Action() == combat.ActionAttack && len(d.Targets()) == 0 {
		return fmt.Errorf("%w: attack without targets", ErrInvalidDecision)
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidDecision, d)
	}

	known := make(map[uuid.UUID]struct{}, len(opponents))
	for _, o := range opponents {
		if o != nil {
			known[o.ID()] = struct{}{}
		}
	}
	for _, id := range d.Targets() {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
		}
	}
	if d.Action() == combat.ActionNegotiate && len(known) == 0 {
		return ErrNoOpponents
	}
	return nil
}
