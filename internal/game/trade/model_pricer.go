package trade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/model"
	"github.com/cory-johannsen/npcbrain/internal/observability"
)

// DefaultPricingTimeout bounds a model pricing call when none is configured.
const DefaultPricingTimeout = time.Second

// ErrNoPrice is returned when a model reply carries no usable price.
var ErrNoPrice = errors.New("trade: no price in model response")

const (
	modelMinPriceFactor = 0.5
	modelMaxPriceFactor = 3.0
	pricingMaxTokens    = 100
	pricingTemperature  = 0.7
)

var priceLine = regexp.MustCompile(`(?i)price:\s*(\d+(?:\.\d+)?)`)

// ModelPricer asks a text model for the asking price in complex negotiations
// and uses CalculatePrice otherwise or when the model fails.
type ModelPricer struct {
	gen     model.Generator
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewModelPricer wraps gen.
//
// Precondition: gen is non-nil; timeout <= 0 uses DefaultPricingTimeout.
// Postcondition: Returns a ready ModelPricer; nil logger and metrics become no-ops.
func NewModelPricer(gen model.Generator, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *ModelPricer {
	if timeout <= 0 {
		timeout = DefaultPricingTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &ModelPricer{gen: gen, timeout: timeout, logger: logger, metrics: metrics}
}

// UseModelPricing reports whether q is complex enough to consult the model:
// a multi-round negotiation, a weak relationship, or an extreme reputation.
func UseModelPricing(q Quote) bool {
	if q.Round > 2 {
		return true
	}
	if r := q.Relationship; r != nil && (r.Trust() < 0.3 || r.Friendship() < 0.3) {
		return true
	}
	return q.Reputation != nil && math.Abs(q.Reputation.Value()) > 0.5
}

// FairPrice implements Pricer.
//
// Postcondition: Returns ErrInvalidBasePrice for a non-positive base.
// Otherwise never fails; a model price is clamped to [base×0.5, base×3.0].
func (p *ModelPricer) FairPrice(ctx context.Context, q Quote) (float64, error) {
	fallback, err := CalculatePrice(q.Base, q.Relationship, q.Reputation)
	if err != nil {
		return 0, err
	}
	if !UseModelPricing(q) {
		return fallback, nil
	}

	price, err := p.ask(ctx, q)
	if err != nil {
		reason := "transport"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, ErrNoPrice), errors.Is(err, model.ErrNoResponse):
			reason = "parse"
		}
		p.logger.Warn("model pricing failed, using rule-based price",
			zap.String("item", itemName(q.Item)),
			zap.Int("round", q.Round),
			zap.String("reason", reason),
			zap.Error(err),
		)
		p.metrics.RecordModelFailure(ctx, "pricing_"+reason)
		return fallback, nil
	}
	return min(q.Base*modelMaxPriceFactor, max(q.Base*modelMinPriceFactor, price)), nil
}

func (p *ModelPricer) ask(ctx context.Context, q Quote) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.gen.Generate(ctx, model.Request{
		Prompt:      BuildPricingPrompt(q),
		MaxTokens:   pricingMaxTokens,
		Temperature: pricingTemperature,
	})
	p.metrics.RecordModelDuration(ctx, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("generating price: %w", err)
	}
	return ParsePrice(text)
}

// ParsePrice extracts the first "Price: <n>" value from text.
//
// Postcondition: Returns a positive price or ErrNoPrice.
func ParsePrice(text string) (float64, error) {
	m := priceLine.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoPrice
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNoPrice, m[1])
	}
	return v, nil
}

// BuildPricingPrompt renders the model prompt for an asking price.
func BuildPricingPrompt(q Quote) string {
	var b strings.Builder
	t := q.Trader
	b.WriteString("You are a villager trader setting prices. Consider:\n\n")
	fmt.Fprintf(&b, "Item: %s\n", itemName(q.Item))
	fmt.Fprintf(&b, "Base Market Price: %.2f emeralds\n", q.Base)
	fmt.Fprintf(&b, "Negotiation Round: %d\n\n", q.Round)

	b.WriteString("Your Personality:\n")
	fmt.Fprintf(&b, "- Aggression: %.1f/1.0\n", t.Aggression())
	fmt.Fprintf(&b, "- Self-Preservation: %.1f/1.0\n", t.SelfPreservation())
	fmt.Fprintf(&b, "- Courage: %.1f/1.0\n", t.Courage())
	fmt.Fprintf(&b, "- Loyalty: %.1f/1.0\n\n", t.Loyalty())

	if r := q.Relationship; r != nil {
		b.WriteString("Relationship with Customer:\n")
		fmt.Fprintf(&b, "- Trust Level: %.1f/1.0\n", r.Trust())
		fmt.Fprintf(&b, "- Friendship: %.1f/1.0\n\n", r.Friendship())
	}
	if q.Reputation != nil {
		fmt.Fprintf(&b, "Customer Reputation: %.2f/1.0\n\n", q.Reputation.Value())
	}

	b.WriteString("Set your asking price considering your personality and relationship.\n")
	b.WriteString("Price: [your price in emeralds]\n")
	b.WriteString("Strategy: [brief reasoning]\n\n")
	b.WriteString("Keep response under 80 tokens.")
	return b.String()
}

func itemName(s string) string {
	if s == "" {
		return "trade goods"
	}
	return s
}
