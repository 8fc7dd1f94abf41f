package scenario

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/npcbrain/internal/game/trade"
)

// Report is the result of one scripted haggle.
type Report struct {
	Trade  Trade
	Final  trade.State
	Rounds int
	// Price is the agreed price; zero when no deal was struck.
	Price float64
	// Steps records every exchange in order, e.g. "offer 70.00 -> COUNTER_OFFERED 96.00".
	Steps []string
}

// Succeeded reports whether the haggle ended in a deal.
func (r Report) Succeeded() bool { return r.Final == trade.StateCompleted }

// Haggle plays t between the cast's seller and buyer. The buyer makes its
// scripted offers in order; a counter-offer is taken when it does not exceed
// the buyer's next scripted offer, and declined otherwise. When the script
// runs out while a counter is open the buyer walks away. The trade is then
// settled with CompleteTrade so reputation and rapport reflect the outcome.
// A pricer that is also a trade.Strategist answers the offers too.
//
// Precondition: t was validated as part of the scenario that built cast.
// Postcondition: Returns a Report whose Final state is terminal, or an error
// from the pricer.
func Haggle(ctx context.Context, t Trade, cast Cast, pricer trade.Pricer) (Report, error) {
	seller, buyer := cast[t.Seller], cast[t.Buyer]
	if seller == nil || buyer == nil {
		return Report{}, fmt.Errorf("%w: trade %s->%s: villager not in cast", ErrInvalidScenario, t.Seller, t.Buyer)
	}

	s, err := trade.NewSession(t.BasePrice, seller.Traits(), buyer.Traits(), seller.Relationships(), seller.Reputation(), pricer)
	if err != nil {
		return Report{}, err
	}
	s.SetItem(t.Item)
	if st, ok := pricer.(trade.Strategist); ok {
		s.SetStrategist(st)
	}

	rep := Report{Trade: t}
	offers := t.Offers
	for len(offers) > 0 && !s.Completed() {
		offer := offers[0]
		offers = offers[1:]

		res, err := s.MakeOffer(ctx, offer)
		if err != nil {
			return rep, err
		}
		rep.step("offer %.2f -> %s", offer, res)
		if res.Outcome == trade.OutcomeAccepted {
			rep.Price = offer
		}

		if s.State() != trade.StateCounterOffer {
			continue
		}
		counter := s.LastCounterOffer()
		switch {
		case len(offers) > 0 && counter <= offers[0]:
			rep.step("accept %.2f -> %s", counter, s.AcceptCounterOffer())
			rep.Price = counter
		case len(offers) == 0:
			res, err := s.RejectCounterOffer(ctx)
			if err != nil {
				return rep, err
			}
			rep.step("decline %.2f -> %s", counter, res)
		}
	}

	rep.Final = s.State()
	if !rep.Final.Terminal() {
		rep.Final = trade.StateFailed
	}
	rep.Rounds = s.Round()
	s.CompleteTrade(rep.Succeeded())
	return rep, nil
}

func (r *Report) step(format string, args ...any) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}
