package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/cache"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
	"github.com/cory-johannsen/npcbrain/internal/game/response"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
	"github.com/cory-johannsen/npcbrain/internal/model"
	"github.com/cory-johannsen/npcbrain/internal/observability"
)

// DecisionRequest is everything a Decider needs for one decision.
type DecisionRequest struct {
	Situation     combat.Situation
	Traits        personality.Traits
	// Threat is the primary threat collapsed from the multi-assessment.
	Threat        threat.Assessment
	Relationships *actor.Relationship
	Weapons       []actor.Weapon
	// History is the actor's combat memory; nil when it keeps none.
	History *combat.Memory
}

// Decider produces a model-derived decision. Implementations must return
// promptly once ctx is done.
type Decider interface {
	Decide(ctx context.Context, req DecisionRequest) (combat.Decision, error)
}

// FallbackPolicy produces a rule-based decision. It must not block.
type FallbackPolicy interface {
	Decide(s combat.Situation, t personality.Traits, threatData threat.MultiAssessment, rel *actor.Relationship, weapons []actor.Weapon) combat.Decision
}

// UseModel reports whether a situation is complex enough to consult the model.
func UseModel(fp combat.Fingerprint) bool {
	switch {
	case fp.Opponents > 3:
		return true
	case fp.Level >= threat.High:
		return true
	case fp.Allies > 2:
		return true
	default:
		return fp.Opponents > 1 && fp.Level != threat.None
	}
}

// Default generation parameters for combat prompts.
const (
	DefaultMaxTokens      = 100
	DefaultTemperature    = 0.7
	DefaultResponseWindow = 3 * time.Second
)

// ModelDeciderOptions tunes a ModelDecider. Zero fields use the defaults.
type ModelDeciderOptions struct {
	MaxTokens   int
	Temperature float64
	// ResponseWindow is how long a validated decision is reused for actors
	// in the same situation with the same temperament. Negative disables.
	ResponseWindow time.Duration
	Clock          func() time.Time
}

// responseKey groups requests whose model answers are interchangeable.
type responseKey struct {
	fp         combat.Fingerprint
	aggression string
	courage    string
}

// ModelDecider builds a prompt, calls a model.Generator once, and parses and
// validates the reply.
type ModelDecider struct {
	gen         model.Generator
	maxTokens   int
	temperature float64
	responses   *cache.Cache[responseKey, struct{}, combat.Decision]
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewModelDecider wraps gen.
//
// Precondition: gen is non-nil.
// Postcondition: Returns a ready ModelDecider; nil logger and metrics become no-ops.
func NewModelDecider(gen model.Generator, opts ModelDeciderOptions, logger *zap.Logger, metrics *observability.Metrics) *ModelDecider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.ResponseWindow == 0 {
		opts.ResponseWindow = DefaultResponseWindow
	}
	m := &ModelDecider{
		gen:         gen,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      logger,
		metrics:     metrics,
	}
	if opts.ResponseWindow > 0 {
		var copts []cache.Option
		if opts.Clock != nil {
			copts = append(copts, cache.WithClock(opts.Clock))
		}
		copts = append(copts, cache.WithSweepThreshold(50))
		m.responses = cache.New[responseKey, struct{}, combat.Decision](opts.ResponseWindow, copts...)
	}
	return m
}

// Decide implements Decider.
func (m *ModelDecider) Decide(ctx context.Context, req DecisionRequest) (combat.Decision, error) {
	opponents := req.Situation.Opponents
	key := responseKey{
		fp:         combat.Fingerprint{Opponents: len(opponents), Allies: len(req.Situation.Allies), Level: req.Threat.Level()},
		aggression: fmt.Sprintf("%.1f", req.Traits.Aggression()),
		courage:    fmt.Sprintf("%.1f", req.Traits.Courage()),
	}
	if m.responses != nil {
		d, ok := m.responses.Get(key, struct{}{})
		// a reused answer must still name only present opponents
		ok = ok && response.Validate(d, opponents) == nil
		m.metrics.RecordCacheLookup(ctx, "response", ok)
		if ok {
			m.logger.Debug("reusing model response", zap.Stringer("fingerprint", key.fp))
			return d, nil
		}
	}

	start := time.Now()
	text, err := m.gen.Generate(ctx, model.Request{
		Prompt:      BuildPrompt(req),
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
	m.metrics.RecordModelDuration(ctx, time.Since(start))
	if err != nil {
		return combat.Decision{}, fmt.Errorf("generating decision: %w", err)
	}

	d, err := response.Parse(text, opponents, req.Threat.Level())
	if err != nil {
		return combat.Decision{}, fmt.Errorf("parsing model response: %w", err)
	}
	if err := response.Validate(d, opponents); err != nil {
		return combat.Decision{}, err
	}
	if m.responses != nil {
		m.responses.Put(key, struct{}{}, d)
	}
	return d, nil
}

// Sweep removes stale cached responses and returns the count removed.
func (m *ModelDecider) Sweep() int {
	if m.responses == nil {
		return 0
	}
	return m.responses.Sweep()
}

// Clear drops every cached response.
func (m *ModelDecider) Clear() {
	if m.responses != nil {
		m.responses.Clear()
	}
}
