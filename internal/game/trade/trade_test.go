package trade_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
	"github.com/cory-johannsen/npcbrain/internal/game/trade"
)

type pricerFunc func(ctx context.Context, q trade.Quote) (float64, error)

func (f pricerFunc) FairPrice(ctx context.Context, q trade.Quote) (float64, error) { return f(ctx, q) }

// stubborn sellers haggle for exactly three rounds and walk away at 0.8.
func threeRoundSeller() personality.Traits { return personality.New(0, 0.5, 1, 0.5, 0.5) }

func newSession(t *testing.T, base float64, seller personality.Traits, rel *actor.Relationship, rep *actor.Reputation) *trade.Session {
	t.Helper()
	s, err := trade.NewSession(base, seller, personality.Default(), rel, rep, nil)
	require.NoError(t, err)
	return s
}

// --- pricing ---

func TestCalculatePrice_NoDataIsBase(t *testing.T) {
	p, err := trade.CalculatePrice(100, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p)
}

func TestCalculatePrice_RapportDiscounts(t *testing.T) {
	rel := actor.NewRelationship()
	rel.SetTrust(0.5)
	rel.SetFriendship(0.5)
	p, err := trade.CalculatePrice(100, rel, actor.NewReputation(0.4))
	require.NoError(t, err)
	// 1 - 0.15 - 0.1 - 0.1
	assert.InDelta(t, 65.0, p, 1e-9)

	rel.SetTrust(-1)
	rel.SetFriendship(-1)
	p, err = trade.CalculatePrice(100, rel, actor.NewReputation(-1))
	require.NoError(t, err)
	assert.InDelta(t, 175.0, p, 1e-9)
}

func TestCalculatePrice_RejectsNonPositiveBase(t *testing.T) {
	for _, base := range []float64{0, -5, math.NaN()} {
		_, err := trade.CalculatePrice(base, nil, nil)
		assert.ErrorIs(t, err, trade.ErrInvalidBasePrice, "base %v", base)
	}
}

func TestUpdateRapport(t *testing.T) {
	rel := actor.NewRelationship()
	trade.UpdateRapport(rel, true)
	assert.InDelta(t, 0.05, rel.Trust(), 1e-9)
	assert.InDelta(t, 0.03, rel.Friendship(), 1e-9)

	trade.UpdateRapport(rel, false)
	assert.InDelta(t, 0.02, rel.Trust(), 1e-9)
	assert.InDelta(t, 0.03, rel.Friendship(), 1e-9)
	assert.Equal(t, 2, rel.Interactions())

	assert.NotPanics(t, func() { trade.UpdateRapport(nil, true) })
}

func TestProperty_PricingIsIdempotentAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.Float64Range(0.01, 10_000).Draw(rt, "base")
		rel := actor.NewRelationship()
		rel.SetTrust(rapid.Float64Range(-1, 1).Draw(rt, "trust"))
		rel.SetFriendship(rapid.Float64Range(-1, 1).Draw(rt, "friendship"))
		rep := actor.NewReputation(rapid.Float64Range(-1, 1).Draw(rt, "reputation"))

		first, err := trade.CalculatePrice(base, rel, rep)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		second, _ := trade.CalculatePrice(base, rel, rep)
		if first != second {
			rt.Fatalf("pricing not idempotent: %v then %v", first, second)
		}
		if first < base*0.1 || first > base*2.0 {
			rt.Fatalf("price %v outside band for base %v", first, base)
		}
	})
}

// --- session ---

func TestNewSession_RejectsBadBase(t *testing.T) {
	for _, base := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := trade.NewSession(base, personality.Default(), personality.Default(), nil, nil, nil)
		assert.ErrorIs(t, err, trade.ErrInvalidBasePrice, "base %v", base)
	}
}

func TestMaxRounds(t *testing.T) {
	assert.Equal(t, 3, trade.MaxRounds(personality.New(0, 0.5, 1, 0.5, 0.5)))
	// 3 + (0.4 + 0.5) * 4 = 6.6
	assert.Equal(t, 6, trade.MaxRounds(personality.New(0.4, 0.5, 0.5, 0.5, 0.5)))
	assert.Equal(t, 7, trade.MaxRounds(personality.New(1, 0.5, 0, 0.5, 0.5)))
}

func TestScenario_OfferAboveAcceptThresholdIsAccepted(t *testing.T) {
	s := newSession(t, 100, personality.New(0.5, 0.5, 0.5, 0.5, 0.5), nil, nil)
	assert.InDelta(t, 0.93, s.AcceptThreshold(), 1e-9)

	res, err := s.MakeOffer(context.Background(), 95)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeAccepted, res.Outcome)
	assert.Equal(t, trade.StateCompleted, s.State())
	assert.True(t, s.Completed())
	assert.Equal(t, 1, s.Round())
}

func TestMakeOffer_AcceptBoundaryIsClosed(t *testing.T) {
	// base 1 makes the ratio equal the offer exactly
	s := newSession(t, 1, personality.New(0.3, 0.7, 0.5, 0.5, 0.5), nil, nil)
	res, err := s.MakeOffer(context.Background(), s.AcceptThreshold())
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeAccepted, res.Outcome)
}

func TestMakeOffer_LowballIsRejectedAndHurtsRapport(t *testing.T) {
	rel := actor.NewRelationship()
	rel.SetTrust(0.5)
	rel.SetFriendship(0.5)
	s := newSession(t, 100, personality.Default(), rel, nil)

	res, err := s.MakeOffer(context.Background(), 40)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
	assert.Equal(t, trade.StateFailed, s.State())
	assert.InDelta(t, 0.47, rel.Trust(), 1e-9)

	// terminal: another offer is rejected without advancing
	res, err = s.MakeOffer(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
	assert.Equal(t, 1, s.Round())
	assert.Equal(t, trade.StateFailed, s.State())
}

func TestCounterOffer_AcceptAndRejectFlow(t *testing.T) {
	rel := actor.NewRelationship()
	s := newSession(t, 100, personality.New(0.4, 0.5, 0.5, 0.5, 0.5), rel, nil)
	ctx := context.Background()

	res, err := s.MakeOffer(ctx, 80)
	require.NoError(t, err)
	require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)
	// fair 100 * (0.9 + 0.4*0.15)
	assert.InDelta(t, 96.0, res.CounterOffer, 1e-9)
	assert.Equal(t, trade.StateCounterOffer, s.State())

	res, err = s.RejectCounterOffer(ctx)
	require.NoError(t, err)
	require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)
	assert.InDelta(t, 91.2, res.CounterOffer, 1e-9)
	assert.InDelta(t, 91.2, s.LastCounterOffer(), 1e-9)
	assert.Equal(t, 1, s.Round())

	res = s.AcceptCounterOffer()
	assert.Equal(t, trade.OutcomeAccepted, res.Outcome)
	assert.Equal(t, trade.StateCompleted, s.State())
	assert.InDelta(t, 0.05, rel.Trust(), 1e-9)

	assert.Equal(t, trade.OutcomeRejected, s.AcceptCounterOffer().Outcome)
	res, err = s.RejectCounterOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
	assert.Equal(t, trade.StateCompleted, s.State())
}

func TestCounterOffer_NotAvailableBeforeFirstOffer(t *testing.T) {
	s := newSession(t, 100, personality.Default(), nil, nil)
	assert.Equal(t, trade.OutcomeRejected, s.AcceptCounterOffer().Outcome)
	res, err := s.RejectCounterOffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
	assert.Equal(t, trade.StateInitialOffer, s.State())
	assert.Equal(t, 0, s.Round())
}

func TestRejectCounterOffer_EndsNearRoundLimit(t *testing.T) {
	s := newSession(t, 100, threeRoundSeller(), nil, nil)
	ctx := context.Background()

	res, err := s.MakeOffer(ctx, 90)
	require.NoError(t, err)
	require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)
	res, err = s.RejectCounterOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeCounterOffered, res.Outcome)

	res, err = s.MakeOffer(ctx, 90)
	require.NoError(t, err)
	require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)
	res, err = s.RejectCounterOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
	assert.Equal(t, trade.StateFailed, s.State())
}

func TestScenario_FinalRoundBelowEightyPercentIsRejected(t *testing.T) {
	s := newSession(t, 100, threeRoundSeller(), nil, nil)
	require.Equal(t, 3, s.MaxRounds())
	ctx := context.Background()

	for range 2 {
		res, err := s.MakeOffer(ctx, 90)
		require.NoError(t, err)
		require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)
	}
	res, err := s.MakeOffer(ctx, 75)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
	assert.Equal(t, 3, s.Round())
	assert.Equal(t, trade.StateFailed, s.State())
}

func TestFinalRound_AcceptsAtEightyPercent(t *testing.T) {
	s := newSession(t, 100, threeRoundSeller(), nil, nil)
	ctx := context.Background()
	for range 2 {
		_, err := s.MakeOffer(ctx, 90)
		require.NoError(t, err)
	}
	// 0.85 would be countered before the final round
	res, err := s.MakeOffer(ctx, 85)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeAccepted, res.Outcome)
}

func TestRejectCounterOffer_NeverDropsBelowFloor(t *testing.T) {
	s := newSession(t, 100, personality.New(1, 0.5, 0, 0.5, 0.5), nil, nil)
	ctx := context.Background()
	res, err := s.MakeOffer(ctx, 90)
	require.NoError(t, err)
	require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)

	prev := res.CounterOffer
	for range 100 {
		res, err = s.RejectCounterOffer(ctx)
		require.NoError(t, err)
		require.Equal(t, trade.OutcomeCounterOffered, res.Outcome)
		assert.LessOrEqual(t, res.CounterOffer, prev)
		assert.GreaterOrEqual(t, res.CounterOffer, 10.0)
		prev = res.CounterOffer
	}
	assert.InDelta(t, 10.0, prev, 1e-9)
}

func TestMakeOffer_InvalidOfferLeavesSessionUnchanged(t *testing.T) {
	s := newSession(t, 100, personality.Default(), nil, nil)
	for _, offer := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := s.MakeOffer(context.Background(), offer)
		assert.ErrorIs(t, err, trade.ErrInvalidOffer, "offer %v", offer)
	}
	assert.Equal(t, 0, s.Round())
	assert.Equal(t, trade.StateInitialOffer, s.State())

	res, err := s.MakeOffer(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeRejected, res.Outcome)
}

func TestMakeOffer_PricerFailureLeavesSessionUnchanged(t *testing.T) {
	failing := pricerFunc(func(context.Context, trade.Quote) (float64, error) {
		return 0, assert.AnError
	})
	s, err := trade.NewSession(100, personality.Default(), personality.Default(), nil, nil, failing)
	require.NoError(t, err)

	_, err = s.MakeOffer(context.Background(), 95)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, s.Round())
	assert.Equal(t, trade.StateInitialOffer, s.State())
}

func TestMakeOffer_PassesRoundToPricer(t *testing.T) {
	var rounds []int
	recording := pricerFunc(func(_ context.Context, q trade.Quote) (float64, error) {
		rounds = append(rounds, q.Round)
		assert.Equal(t, "iron ingot", q.Item)
		return q.Base, nil
	})
	s, err := trade.NewSession(100, threeRoundSeller(), personality.Default(), nil, nil, recording)
	require.NoError(t, err)
	s.SetItem("iron ingot")

	ctx := context.Background()
	_, _ = s.MakeOffer(ctx, 90)
	_, _ = s.MakeOffer(ctx, 90)
	assert.Equal(t, []int{1, 2}, rounds)
}

func TestCompleteTrade(t *testing.T) {
	rel := actor.NewRelationship()
	rep := actor.NewReputation(0)
	s := newSession(t, 100, personality.Default(), rel, rep)

	s.CompleteTrade(true)
	assert.InDelta(t, 0.05, rep.Value(), 1e-9)
	assert.InDelta(t, 0.05, rel.Trust(), 1e-9)

	s.CompleteTrade(false)
	assert.InDelta(t, 0.03, rep.Value(), 1e-9)
	assert.InDelta(t, 0.02, rel.Trust(), 1e-9)

	bare := newSession(t, 100, personality.Default(), nil, nil)
	assert.NotPanics(t, func() { bare.CompleteTrade(true) })
}

func TestProperty_SessionOnlyMovesForward(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seller := personality.New(
			rapid.Float64Range(0, 1).Draw(rt, "aggression"),
			rapid.Float64Range(0, 1).Draw(rt, "courage"),
			rapid.Float64Range(0, 1).Draw(rt, "self_preservation"),
			rapid.Float64Range(0, 1).Draw(rt, "loyalty"),
			rapid.Float64Range(0, 1).Draw(rt, "vengefulness"),
		)
		base := rapid.Float64Range(1, 1000).Draw(rt, "base")
		s, err := trade.NewSession(base, seller, personality.Default(), actor.NewRelationship(), actor.NewReputation(0), nil)
		if err != nil {
			rt.Fatalf("new session: %v", err)
		}
		if m := s.MaxRounds(); m < 3 || m > 7 {
			rt.Fatalf("max rounds %d out of range", m)
		}

		ctx := context.Background()
		moves := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 20).Draw(rt, "moves")
		round, state := s.Round(), s.State()
		for i, m := range moves {
			switch m {
			case 0:
				offer := rapid.Float64Range(0, base*1.5).Draw(rt, "offer")
				if _, err := s.MakeOffer(ctx, offer); err != nil {
					rt.Fatalf("offer %v: %v", offer, err)
				}
			case 1:
				s.AcceptCounterOffer()
			case 2:
				if _, err := s.RejectCounterOffer(ctx); err != nil {
					rt.Fatalf("reject counter: %v", err)
				}
			}
			if s.Round() < round {
				rt.Fatalf("move %d: round went from %d to %d", i, round, s.Round())
			}
			if state.Terminal() && s.State() != state {
				rt.Fatalf("move %d: left terminal state %s for %s", i, state, s.State())
			}
			if state != trade.StateInitialOffer && s.State() == trade.StateInitialOffer {
				rt.Fatalf("move %d: re-entered INITIAL_OFFER", i)
			}
			if s.State() == trade.StateCounterOffer && s.LastCounterOffer() < base*0.1 {
				rt.Fatalf("counter %v under floor", s.LastCounterOffer())
			}
			round, state = s.Round(), s.State()
		}
	})
}
