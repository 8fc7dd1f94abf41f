package trade

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
)

// ErrInvalidOffer is returned for negative or non-finite offers.
var ErrInvalidOffer = errors.New("trade: offer must be a finite non-negative number")

// State is the position of a Session in the negotiation protocol.
type State int

const (
	StateInitialOffer State = iota
	StateCounterOffer
	StateCompleted
	StateFailed
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateCounterOffer:
		return "COUNTER_OFFER"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return "INITIAL_OFFER"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// Outcome is the trader's response to one move.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAccepted
	OutcomeCounterOffered
)

// String returns the upper-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "ACCEPTED"
	case OutcomeCounterOffered:
		return "COUNTER_OFFERED"
	default:
		return "REJECTED"
	}
}

// Result is the trader's response. CounterOffer is set only for
// OutcomeCounterOffered.
type Result struct {
	Outcome      Outcome
	CounterOffer float64
}

// String returns the outcome name, followed by the price for a counter-offer.
func (r Result) String() string {
	if r.Outcome == OutcomeCounterOffered {
		return fmt.Sprintf("%s %.2f", r.Outcome, r.CounterOffer)
	}
	return r.Outcome.String()
}

const (
	minRounds = 3
	maxRounds = 7

	finalRoundAcceptRatio = 0.8
	counterDecay          = 0.95
	counterCeilingFactor  = 1.2
)

// Session is one haggling interaction between a trader (seller) and a
// customer (buyer). A Session has a single owner and is not safe for
// concurrent use.
//
// Invariant: state only moves forward; COMPLETED and FAILED are terminal;
// round never decreases; maxRounds is in [3, 7] and fixed at creation.
type Session struct {
	base        float64
	seller      personality.Traits
	buyer       personality.Traits
	rel         *actor.Relationship
	rep         *actor.Reputation
	pricer      Pricer
	strategist  Strategist
	item        string
	state       State
	round       int
	maxRounds   int
	lastCounter float64
}

// NewSession opens a negotiation over an item with the given base price.
//
// Precondition: basePrice > 0; rel and rep may be nil; a nil pricer uses Rules.
// Postcondition: Returns a session in StateInitialOffer at round 0, or
// ErrInvalidBasePrice.
func NewSession(basePrice float64, seller, buyer personality.Traits, rel *actor.Relationship, rep *actor.Reputation, pricer Pricer) (*Session, error) {
	if !(basePrice > 0) || math.IsInf(basePrice, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePrice, basePrice)
	}
	if pricer == nil {
		pricer = Rules{}
	}
	return &Session{
		base:      basePrice,
		seller:    seller,
		buyer:     buyer,
		rel:       rel,
		rep:       rep,
		pricer:    pricer,
		state:     StateInitialOffer,
		maxRounds: MaxRounds(seller),
	}, nil
}

// MaxRounds is how many rounds a trader with traits t will haggle; stubborn
// traders negotiate longer.
//
// Postcondition: Returns a value in [3, 7].
func MaxRounds(t personality.Traits) int {
	stubbornness := t.Aggression() + (1 - t.SelfPreservation())
	return min(maxRounds, max(minRounds, int(minRounds+stubbornness*4)))
}

// SetItem names the goods being traded for pricers that use it.
func (s *Session) SetItem(name string) { s.item = name }

// SetStrategist lets st answer offers before the final round. A nil st
// restores the accept and reject thresholds.
func (s *Session) SetStrategist(st Strategist) { s.strategist = st }

func (s *Session) State() State { return s.state }
func (s *Session) Round() int { return s.round }
func (s *Session) MaxRounds() int { return s.maxRounds }
func (s *Session) BasePrice() float64 { return s.base }
func (s *Session) Completed() bool { return s.state.Terminal() }
func (s *Session) Seller() personality.Traits { return s.seller }
func (s *Session) Buyer() personality.Traits { return s.buyer }

// LastCounterOffer returns the most recent counter-offer, 0 before the first.
func (s *Session) LastCounterOffer() float64 { return s.lastCounter }

// AcceptThreshold is the offer/fair ratio at or above which the trader accepts
// before the final round.
func (s *Session) AcceptThreshold() float64 { return 0.98 - s.seller.Courage()*0.1 }

// RejectThreshold is the offer/fair ratio at or below which the trader walks
// away before the final round.
func (s *Session) RejectThreshold() float64 { return 0.6 + s.seller.SelfPreservation()*0.2 }

// MakeOffer evaluates the customer's offer for the next round.
//
// Precondition: offer is finite and >= 0.
// Postcondition: A terminal session returns OutcomeRejected unchanged.
// Otherwise the round advances by one and the session ends (accept or reject)
// or moves to StateCounterOffer. Before the final round a Strategist, when
// set, may decide instead of the thresholds; its counter is clamped to
// [base×0.1, base×1.2]. Returns ErrInvalidOffer for a bad offer and
// the pricer's error if no fair price could be computed; neither changes the
// session.
func (s *Session) MakeOffer(ctx context.Context, offer float64) (Result, error) {
	if s.state.Terminal() {
		return Result{Outcome: OutcomeRejected}, nil
	}
	if math.IsNaN(offer) || math.IsInf(offer, 0) || offer < 0 {
		return Result{Outcome: OutcomeRejected}, fmt.Errorf("%w: %v", ErrInvalidOffer, offer)
	}
	fair, err := s.fairPrice(ctx, s.round+1)
	if err != nil {
		return Result{Outcome: OutcomeRejected}, err
	}
	s.round++
	outcome, counter := s.evaluate(offer/fair), s.counter(fair)
	if st, ok := s.strategize(ctx, offer, fair); ok {
		outcome = st.Outcome
		if st.Counter > 0 {
			counter = min(s.base*counterCeilingFactor, max(s.base*minPriceFactor, st.Counter))
		}
	}

	switch outcome {
	case OutcomeAccepted:
		s.state = StateCompleted
		UpdateRapport(s.rel, true)
		return Result{Outcome: OutcomeAccepted}, nil
	case OutcomeCounterOffered:
		s.state = StateCounterOffer
		s.lastCounter = counter
		return Result{Outcome: OutcomeCounterOffered, CounterOffer: s.lastCounter}, nil
	default:
		s.state = StateFailed
		UpdateRapport(s.rel, false)
		return Result{Outcome: OutcomeRejected}, nil
	}
}

func (s *Session) evaluate(ratio float64) Outcome {
	if s.round >= s.maxRounds {
		if ratio >= finalRoundAcceptRatio {
			return OutcomeAccepted
		}
		return OutcomeRejected
	}
	switch {
	case ratio >= s.AcceptThreshold():
		return OutcomeAccepted
	case ratio <= s.RejectThreshold():
		return OutcomeRejected
	default:
		return OutcomeCounterOffered
	}
}

// strategize consults the strategist, never on the final round.
func (s *Session) strategize(ctx context.Context, offer, fair float64) (Strategy, bool) {
	if s.strategist == nil || s.round >= s.maxRounds {
		return Strategy{}, false
	}
	return s.strategist.Strategize(ctx, Proposal{
		Quote: Quote{
			Base:         s.base,
			Relationship: s.rel,
			Reputation:   s.rep,
			Trader:       s.seller,
			Round:        s.round,
			Item:         s.item,
		},
		Offer:     offer,
		Fair:      fair,
		MaxRounds: s.maxRounds,
	})
}

// counter is the trader's asking price; aggressive traders ask more.
func (s *Session) counter(fair float64) float64 {
	return min(fair*(0.9+s.seller.Aggression()*0.15), s.base*counterCeilingFactor)
}

// AcceptCounterOffer takes the trader's last counter-offer.
//
// Postcondition: From StateCounterOffer moves to StateCompleted with a
// positive rapport update and returns OutcomeAccepted; otherwise returns
// OutcomeRejected and changes nothing.
func (s *Session) AcceptCounterOffer() Result {
	if s.state != StateCounterOffer {
		return Result{Outcome: OutcomeRejected}
	}
	s.state = StateCompleted
	UpdateRapport(s.rel, true)
	return Result{Outcome: OutcomeAccepted}
}

// RejectCounterOffer declines the trader's last counter-offer.
//
// Postcondition: From StateCounterOffer, ends the session as StateFailed when
// round >= maxRounds-1; otherwise issues a counter 5% below the last one,
// never under base×0.1, and stays in StateCounterOffer. From any other state
// returns OutcomeRejected and changes nothing.
func (s *Session) RejectCounterOffer(ctx context.Context) (Result, error) {
	if s.state != StateCounterOffer {
		return Result{Outcome: OutcomeRejected}, nil
	}
	if s.round >= s.maxRounds-1 {
		s.state = StateFailed
		return Result{Outcome: OutcomeRejected}, nil
	}
	fair, err := s.fairPrice(ctx, s.round)
	if err != nil {
		return Result{Outcome: OutcomeRejected}, err
	}
	next := min(s.counter(fair), s.lastCounter*counterDecay)
	s.lastCounter = max(next, s.base*minPriceFactor)
	return Result{Outcome: OutcomeCounterOffered, CounterOffer: s.lastCounter}, nil
}

// CompleteTrade settles the trade after the exchange of goods.
//
// Postcondition: success raises reputation by 0.05, failure lowers it by
// 0.02, and rapport is updated accordingly. Nil records are ignored.
func (s *Session) CompleteTrade(success bool) {
	if s.rep != nil {
		if success {
			s.rep.Adjust(0.05)
		} else {
			s.rep.Adjust(-0.02)
		}
	}
	UpdateRapport(s.rel, success)
}

func (s *Session) fairPrice(ctx context.Context, round int) (float64, error) {
	fair, err := s.pricer.FairPrice(ctx, Quote{
		Base:         s.base,
		Relationship: s.rel,
		Reputation:   s.rep,
		Trader:       s.seller,
		Round:        round,
		Item:         s.item,
	})
	if err != nil {
		return 0, fmt.Errorf("pricing round %d: %w", round, err)
	}
	if !(fair > 0) || math.IsInf(fair, 0) {
		return 0, fmt.Errorf("pricing round %d: %w: fair price %v", round, ErrInvalidBasePrice, fair)
	}
	return fair, nil
}
