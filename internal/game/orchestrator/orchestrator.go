// Package orchestrator decides combat actions for NPCs under a latency bound.
//
// A request first consults the per-actor decision cache. On a miss, complex
// situations go to a Decider (normally a model) under a timeout; anything
// that does not yield a validated decision in time falls back to the
// rule-based policy. Both paths write the cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/cache"
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
	"github.com/cory-johannsen/npcbrain/internal/game/policy"
	"github.com/cory-johannsen/npcbrain/internal/game/response"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
	"github.com/cory-johannsen/npcbrain/internal/model"
	"github.com/cory-johannsen/npcbrain/internal/observability"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultTimeout        = 150 * time.Millisecond
	DefaultDecisionWindow = 2 * time.Second
	DefaultThreatWindow   = time.Second
)

// ErrDeciderPanic wraps a panic recovered from a Decider.
var ErrDeciderPanic = errors.New("orchestrator: decider panicked")

// Path is the terminal state a decision request reached.
type Path string

const (
	// PathCacheHit means a cached decision was returned unchanged.
	PathCacheHit Path = "CACHE_HIT"
	// PathFallback means the situation was simple and the policy decided.
	PathFallback Path = "FALLBACK"
	// PathModel means the Decider produced a validated decision in time.
	PathModel Path = "MODEL"
	// PathModelFallback means the Decider was consulted but failed.
	PathModelFallback Path = "MODEL_FALLBACK"
)

// Result is a decision plus how it was reached.
type Result struct {
	Decision combat.Decision
	Path     Path
	// Reason classifies the model failure on PathModelFallback.
	Reason string
}

// TickResult is the outcome of ProcessCombatTick.
type TickResult struct {
	Decision  combat.Decision
	Executed  bool
	UsedModel bool
}

// Options tunes an Orchestrator. Zero fields use the package defaults.
type Options struct {
	// Timeout bounds a Decider call when the caller passes no timeout.
	Timeout        time.Duration
	DecisionWindow time.Duration
	ThreatWindow   time.Duration
	SweepThreshold int
	Shards         int
	Clock          func() time.Time
	// Rand yields uniform values in [0, 1) for negotiation rolls.
	Rand func() float64
}

// Orchestrator owns the caches for one game session.
//
// Invariant: the fallback policy runs at most once per uncached request, and
// runs whenever the Decider has not produced a validated decision.
type Orchestrator struct {
	decider   Decider
	fallback  FallbackPolicy
	decisions *cache.Cache[uuid.UUID, combat.Fingerprint, combat.Decision]
	threats   *cache.Cache[uuid.UUID, int, threat.MultiAssessment]
	timeout   time.Duration
	now       func() time.Time
	draw      func() float64
	logger    *zap.Logger
	metrics   *observability.Metrics

	closed atomic.Bool
	done   context.Context
	stop   context.CancelFunc
}

// New builds an Orchestrator.
//
// Precondition: none; a nil decider disables the model path, a nil fallback
// uses policy.Rules, and nil logger and metrics become no-ops.
// Postcondition: Returns a ready Orchestrator that must be Closed.
func New(decider Decider, fallback FallbackPolicy, opts Options, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	if fallback == nil {
		fallback = policy.Rules{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DecisionWindow <= 0 {
		opts.DecisionWindow = DefaultDecisionWindow
	}
	if opts.ThreatWindow <= 0 {
		opts.ThreatWindow = DefaultThreatWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	copts := []cache.Option{cache.WithClock(opts.Clock)}
	if opts.SweepThreshold > 0 {
		copts = append(copts, cache.WithSweepThreshold(opts.SweepThreshold))
	}
	if opts.Shards > 0 {
		copts = append(copts, cache.WithShards(opts.Shards))
	}

	done, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		decider:   decider,
		fallback:  fallback,
		decisions: cache.New[uuid.UUID, combat.Fingerprint, combat.Decision](opts.DecisionWindow, copts...),
		threats:   cache.New[uuid.UUID, int, threat.MultiAssessment](opts.ThreatWindow, copts...),
		timeout:   opts.Timeout,
		now:       opts.Clock,
		draw:      opts.Rand,
		logger:    logger,
		metrics:   metrics,
		done:      done,
		stop:      stop,
	}
}

// DecideCombatAction returns a decision for self in situation s.
//
// Precondition: self is non-nil; timeout <= 0 uses the configured default.
// Postcondition: Always returns a valid decision; never blocks past timeout
// plus the fallback's own cost.
func (o *Orchestrator) DecideCombatAction(
	ctx context.Context,
	s combat.Situation,
	t personality.Traits,
	self actor.Actor,
	threatData threat.MultiAssessment,
	rel *actor.Relationship,
	timeout time.Duration,
) combat.Decision {
	return o.Decide(ctx, s, t, self, threatData, rel, timeout).Decision
}

// Decide is DecideCombatAction reporting the path taken.
func (o *Orchestrator) Decide(
	ctx context.Context,
	s combat.Situation,
	t personality.Traits,
	self actor.Actor,
	threatData threat.MultiAssessment,
	rel *actor.Relationship,
	timeout time.Duration,
) Result {
	if s.Self == nil {
		s.Self = self
	}
	fp := s.Fingerprint()
	weapons := weaponsOf(self)
	closed := o.closed.Load()

	if !closed && self != nil {
		d, hit := o.decisions.Get(self.ID(), fp)
		o.metrics.RecordCacheLookup(ctx, "decision", hit)
		if hit {
			o.logger.Debug("using cached combat decision",
				zap.Stringer("actor", self.ID()),
				zap.Stringer("fingerprint", fp),
			)
			o.metrics.RecordDecision(ctx, string(PathCacheHit), d.Source().String())
			return Result{Decision: d, Path: PathCacheHit}
		}
	}

	res := Result{Path: PathFallback}
	if !closed && o.decider != nil && UseModel(fp) {
		req := DecisionRequest{
			Situation:     s,
			Traits:        t,
			Threat:        threatData.Primary(),
			Relationships: rel,
			Weapons:       weapons,
			History:       memoryOf(self),
		}
		d, err := o.consult(ctx, req, timeout)
		if err == nil {
			res = Result{Decision: d, Path: PathModel}
		} else {
			res = Result{Path: PathModelFallback, Reason: failureReason(err)}
			o.logFailure(self, fp, res.Reason, err)
			o.metrics.RecordModelFailure(ctx, res.Reason)
		}
	}
	if res.Path != PathModel {
		res.Decision = o.fallback.Decide(s, t, threatData, rel, weapons)
	}

	// Close may have run while the Decider was consulted
	if self != nil && !o.closed.Load() {
		o.decisions.Put(self.ID(), fp, res.Decision)
		o.remember(self, s, res.Decision)
	}
	o.metrics.RecordDecision(ctx, string(res.Path), res.Decision.Source().String())
	return res
}

// consult runs the Decider in its own goroutine and waits for either a
// validated decision or the deadline.
func (o *Orchestrator) consult(ctx context.Context, req DecisionRequest, timeout time.Duration) (combat.Decision, error) {
	if timeout <= 0 {
		timeout = o.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	unlink := context.AfterFunc(o.done, cancel)
	defer unlink()

	type outcome struct {
		d   combat.Decision
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", ErrDeciderPanic, r)}
			}
		}()
		d, err := o.decider.Decide(ctx, req)
		ch <- outcome{d: d, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return combat.Decision{}, out.err
		}
		if err := response.Validate(out.d, req.Situation.Opponents); err != nil {
			return combat.Decision{}, err
		}
		return out.d, nil
	case <-ctx.Done():
		return combat.Decision{}, ctx.Err()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrDeciderPanic):
		return "panic"
	case errors.Is(err, response.ErrNoAction):
		return "parse"
	case errors.Is(err, response.ErrInvalidDecision),
		errors.Is(err, response.ErrUnknownTarget),
		errors.Is(err, response.ErrNoOpponents):
		return "validation"
	case errors.Is(err, model.ErrNoResponse), errors.Is(err, model.ErrDisabled):
		return "empty"
	default:
		return "transport"
	}
}

func (o *Orchestrator) logFailure(self actor.Actor, fp combat.Fingerprint, reason string, err error) {
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.Stringer("fingerprint", fp),
		zap.Error(err),
	}
	if self != nil {
		fields = append(fields, zap.Stringer("actor", self.ID()))
	}
	if reason == "validation" {
		o.logger.Info("model decision rejected, using rule-based policy", fields...)
		return
	}
	o.logger.Warn("model decision failed, using rule-based policy", fields...)
}

// memoryOf returns self's combat memory, or nil when it keeps none.
func memoryOf(self actor.Actor) *combat.Memory {
	if r, ok := self.(Remembering); ok {
		return r.CombatMemory()
	}
	return nil
}

// remember records the decision in self's combat memory, if it keeps one.
func (o *Orchestrator) remember(self actor.Actor, s combat.Situation, d combat.Decision) {
	r, ok := self.(Remembering)
	if !ok {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("updating combat memory", zap.String("panic", fmt.Sprint(rec)))
		}
	}()
	mem := r.CombatMemory()
	if mem == nil {
		return
	}
	for _, enemy := range s.Opponents {
		if enemy != nil {
			mem.RecordEncounter(enemy.ID())
		}
	}
	if d.IsModel() {
		mem.MarkModelDecision(o.now())
	}
	mem.LearnStrategy(s.StrategyCategory(), d)
}

// ProcessCombatTick assesses threats (cached), decides, and executes through c.
// An executed decision counts as a success in c's combat memory.
//
// Precondition: c is non-nil.
// Postcondition: UsedModel is true iff the decision has model provenance.
func (o *Orchestrator) ProcessCombatTick(ctx context.Context, c Combatant, s combat.Situation) TickResult {
	if s.Self == nil {
		s.Self = c
	}
	threatData := o.assess(ctx, c, s.Opponents)
	s.Overall = max(s.Overall, threatData.Overall())

	d := o.DecideCombatAction(ctx, s, c.Traits(), c, threatData, c.Relationships(), 0)
	executed := o.execute(c, d, s)
	if mem := memoryOf(c); mem != nil {
		mem.RecordOutcome(executed)
		mem.Cleanup()
	}
	if executed {
		o.logger.Debug("combat decision executed",
			zap.Stringer("actor", c.ID()),
			zap.Stringer("decision", d),
		)
	}
	return TickResult{Decision: d, Executed: executed, UsedModel: d.IsModel()}
}

// assess returns the cached assessment for self while the opponent count is
// unchanged, otherwise a fresh one.
func (o *Orchestrator) assess(ctx context.Context, self actor.Actor, opponents []actor.Actor) threat.MultiAssessment {
	if o.closed.Load() {
		return threat.Assess(self, opponents)
	}
	if m, ok := o.threats.Get(self.ID(), len(opponents)); ok {
		o.metrics.RecordCacheLookup(ctx, "threat", true)
		return m
	}
	o.metrics.RecordCacheLookup(ctx, "threat", false)
	m := threat.Assess(self, opponents)
	o.threats.Put(self.ID(), len(opponents), m)
	return m
}

// Sweep removes stale entries from both caches and returns the count removed.
func (o *Orchestrator) Sweep() int {
	d := o.decisions.Sweep()
	t := o.threats.Sweep()
	ctx := context.Background()
	o.metrics.RecordEvictions(ctx, "decision", d)
	o.metrics.RecordEvictions(ctx, "threat", t)
	if sw, ok := o.decider.(interface{ Sweep() int }); ok {
		r := sw.Sweep()
		o.metrics.RecordEvictions(ctx, "response", r)
		return d + t + r
	}
	return d + t
}

// ClearActor drops cached state for one actor, e.g. when it dies or leaves combat.
func (o *Orchestrator) ClearActor(id uuid.UUID) {
	o.decisions.Delete(id)
	o.threats.Delete(id)
}

// ClearAll drops every cached entry.
func (o *Orchestrator) ClearAll() {
	o.decisions.Clear()
	o.threats.Clear()
	if c, ok := o.decider.(interface{ Clear() }); ok {
		c.Clear()
	}
}

// Close cancels in-flight Decider calls and clears the caches. Later
// requests take the rule-based path without caching.
func (o *Orchestrator) Close() {
	if o.closed.Swap(true) {
		return
	}
	o.stop()
	o.ClearAll()
}

func weaponsOf(a actor.Actor) []actor.Weapon {
	if armed, ok := a.(Armed); ok {
		return armed.AvailableWeapons()
	}
	return nil
}
