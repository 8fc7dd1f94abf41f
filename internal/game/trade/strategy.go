package trade

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/model"
)

const (
	strategyMaxTokens   = 120
	strategyTemperature = 0.8
)

var (
	decisionLine = regexp.MustCompile(`(?i)decision:\s*(accept|reject|counter)\b`)
	strategyLine = regexp.MustCompile(`(?i)strategy:\s*(.+)`)
)

// Proposal is one customer offer put to a Strategist.
type Proposal struct {
	Quote
	Offer     float64
	Fair      float64
	MaxRounds int
}

// Strategy is a trader's answer to a Proposal. Counter is set only for
// OutcomeCounterOffered.
type Strategy struct {
	Outcome   Outcome
	Counter   float64
	Reasoning string
}

// Strategist decides how a trader answers an offer before the final round.
// ok is false when the Strategist declines to decide and the session's own
// thresholds apply.
type Strategist interface {
	Strategize(ctx context.Context, p Proposal) (Strategy, bool)
}

// Strategize implements Strategist. The model is consulted only for quotes
// that pass UseModelPricing; a model failure declines so the thresholds apply.
func (p *ModelPricer) Strategize(ctx context.Context, pr Proposal) (Strategy, bool) {
	if !UseModelPricing(pr.Quote) {
		return Strategy{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	start := time.Now()
	text, err := p.gen.Generate(callCtx, model.Request{
		Prompt:      BuildStrategyPrompt(pr),
		MaxTokens:   strategyMaxTokens,
		Temperature: strategyTemperature,
	})
	p.metrics.RecordModelDuration(ctx, time.Since(start))
	if err == nil && strings.TrimSpace(text) == "" {
		err = model.ErrNoResponse
	}
	if err != nil {
		reason := "transport"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, model.ErrNoResponse):
			reason = "parse"
		}
		p.logger.Warn("model negotiation strategy failed, using thresholds",
			zap.String("item", itemName(pr.Item)),
			zap.Int("round", pr.Round),
			zap.String("reason", reason),
			zap.Error(err),
		)
		p.metrics.RecordModelFailure(ctx, "strategy_"+reason)
		return Strategy{}, false
	}

	st := ParseStrategy(text, pr.Offer, pr.Base)
	p.logger.Debug("model negotiation strategy",
		zap.String("item", itemName(pr.Item)),
		zap.Int("round", pr.Round),
		zap.Stringer("outcome", st.Outcome),
		zap.Float64("counter", st.Counter),
	)
	return st, true
}

// ParseStrategy reads a "Decision: ACCEPT|REJECT|COUNTER" reply. A COUNTER
// carries its price on a "Price:" line.
//
// Postcondition: A reply with no decision, or a COUNTER without a usable
// price, becomes a counter at (offer+base)/2.
func ParseStrategy(text string, offer, base float64) Strategy {
	var reasoning string
	if m := strategyLine.FindStringSubmatch(text); m != nil {
		reasoning = strings.TrimSpace(m[1])
	}
	if m := decisionLine.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "accept":
			return Strategy{Outcome: OutcomeAccepted, Reasoning: reasoning}
		case "reject":
			return Strategy{Outcome: OutcomeRejected, Reasoning: reasoning}
		default:
			if price, err := ParsePrice(text); err == nil {
				return Strategy{Outcome: OutcomeCounterOffered, Counter: price, Reasoning: reasoning}
			}
		}
	}
	return Strategy{Outcome: OutcomeCounterOffered, Counter: (offer + base) / 2, Reasoning: "split the difference"}
}

// BuildStrategyPrompt renders the model prompt for answering an offer.
func BuildStrategyPrompt(pr Proposal) string {
	var b strings.Builder
	t := pr.Trader
	fmt.Fprintf(&b, "Customer offers %.2f emeralds for %s.\n", pr.Offer, itemName(pr.Item))
	fmt.Fprintf(&b, "Your asking price: %.2f emeralds.\n", pr.Base)
	fmt.Fprintf(&b, "Round %d of %d max.\n\n", pr.Round, pr.MaxRounds)

	switch {
	case t.Aggression() > 0.7:
		b.WriteString("You're an aggressive trader who drives hard bargains.\n")
	case t.SelfPreservation() > 0.7:
		b.WriteString("You're cautious and want to ensure profitable deals.\n")
	case t.Loyalty() > 0.7:
		b.WriteString("You value long-term customer relationships.\n")
	}
	if r := pr.Relationship; r != nil {
		switch {
		case r.Friendship() > 0.6:
			b.WriteString("This customer is a good friend - consider being flexible.\n")
		case r.Trust() < 0.3:
			b.WriteString("You don't trust this customer much.\n")
		}
	}

	b.WriteString("\nDecision: ACCEPT/REJECT/COUNTER\n")
	b.WriteString("If COUNTER, Price: [your counter-offer]\n")
	b.WriteString("Strategy: [brief reasoning]\n\n")
	b.WriteString("Keep response under 100 tokens.")
	return b.String()
}
