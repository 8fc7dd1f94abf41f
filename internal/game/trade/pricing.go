// Package trade implements personality-driven haggling between an NPC trader
// and a customer.
package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
)

// ErrInvalidBasePrice is returned when a base price is not positive.
var ErrInvalidBasePrice = errors.New("trade: base price must be positive")

const (
	minPriceFactor = 0.1
	maxPriceFactor = 2.0

	trustWeight      = 0.3
	friendshipWeight = 0.2
	reputationWeight = 0.25
)

// Quote is the input to a fair-price computation.
type Quote struct {
	Base         float64
	Relationship *actor.Relationship
	Reputation   *actor.Reputation
	Trader       personality.Traits
	// Round is the negotiation round the price is for, starting at 1.
	Round int
	Item  string
}

// Pricer produces the price a trader considers fair.
type Pricer interface {
	FairPrice(ctx context.Context, q Quote) (float64, error)
}

// CalculatePrice discounts base by trust, friendship and reputation.
//
// Precondition: base > 0.
// Postcondition: Returns a value in [base×0.1, base×2.0]; a nil relationship
// or reputation contributes nothing. Returns ErrInvalidBasePrice otherwise.
func CalculatePrice(base float64, rel *actor.Relationship, rep *actor.Reputation) (float64, error) {
	if !(base > 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBasePrice, base)
	}
	modifier := 1.0
	if rel != nil {
		modifier -= rel.Trust() * trustWeight
		modifier -= rel.Friendship() * friendshipWeight
	}
	if rep != nil {
		modifier -= rep.Value() * reputationWeight
	}
	price := base * modifier
	return min(base*maxPriceFactor, max(base*minPriceFactor, price)), nil
}

// UpdateRapport applies the rapport change for one negotiated round. A nil
// relationship is ignored.
//
// Postcondition: success adds 0.05 trust and 0.03 friendship; failure removes
// 0.03 trust.
func UpdateRapport(rel *actor.Relationship, success bool) {
	if rel == nil {
		return
	}
	if success {
		rel.AdjustRapport(0.05, 0.03)
		return
	}
	rel.AdjustRapport(-0.03, 0)
}

// Rules prices with CalculatePrice alone.
type Rules struct{}

// FairPrice implements Pricer.
func (Rules) FairPrice(_ context.Context, q Quote) (float64, error) {
	return CalculatePrice(q.Base, q.Relationship, q.Reputation)
}
