// Package simulation plays a scenario end to end: concurrent combat ticks
// until one side holds the field, then the scripted trades.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/npc"
	"github.com/cory-johannsen/npcbrain/internal/game/orchestrator"
	"github.com/cory-johannsen/npcbrain/internal/game/scenario"
	"github.com/cory-johannsen/npcbrain/internal/game/trade"
	"github.com/cory-johannsen/npcbrain/internal/observability"
	"github.com/cory-johannsen/npcbrain/internal/storage/postgres"
)

// MemoryStore persists combat memory between runs.
type MemoryStore interface {
	Save(ctx context.Context, npcID uuid.UUID, m *combat.Memory) error
	// Load returns postgres.ErrMemoryNotFound for an unknown villager.
	Load(ctx context.Context, npcID uuid.UUID) (*combat.Memory, error)
}

// StandingStore persists trader standings between runs.
type StandingStore interface {
	Save(ctx context.Context, trader, customer uuid.UUID, s postgres.Standing) error
	// Load returns postgres.ErrStandingNotFound for a new pair.
	Load(ctx context.Context, trader, customer uuid.UUID) (postgres.Standing, error)
}

// Stores groups the optional persistence backends. Nil fields disable the
// corresponding persistence.
type Stores struct {
	Memories  MemoryStore
	Standings StandingStore
}

// Summary describes a finished run.
type Summary struct {
	Scenario string
	// Ticks is the number of combat ticks actually played.
	Ticks          int
	Decisions      int
	ModelDecisions int
	Executed       int
	// Standing maps each side to its villagers still in the fight.
	Standing map[string][]string
	Trades   []scenario.Report
}

// Runner plays scenarios against one orchestrator.
type Runner struct {
	orch    *orchestrator.Orchestrator
	pricer  trade.Pricer
	stores  Stores
	logger  *zap.Logger
	metrics *observability.Metrics
	roll    func() float64
}

// NewRunner builds a Runner.
//
// Precondition: orch is non-nil; a nil pricer uses trade.Rules, and nil
// logger and metrics become no-ops.
func NewRunner(orch *orchestrator.Orchestrator, pricer trade.Pricer, stores Stores, logger *zap.Logger, metrics *observability.Metrics) *Runner {
	if pricer == nil {
		pricer = trade.Rules{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Runner{orch: orch, pricer: pricer, stores: stores, logger: logger, metrics: metrics}
}

// WithRoll replaces the negotiation roll of the villagers spawned by later
// runs. roll yields uniform values in [0, 1).
func (r *Runner) WithRoll(roll func() float64) *Runner {
	r.roll = roll
	return r
}

// Run plays sc once.
//
// Precondition: sc has been validated.
// Postcondition: On success every villager's memory and every trader's
// standing has been saved to the configured stores. A cancelled ctx stops
// the run at the next tick with ctx.Err().
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario) (Summary, error) {
	mgr := npc.NewManager(r.roll)
	cast, err := sc.Build(mgr)
	if err != nil {
		return Summary{}, fmt.Errorf("building scenario %q: %w", sc.Name, err)
	}
	trades, err := r.restore(ctx, sc, cast)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Scenario: sc.Name}
	for tick := 1; tick <= sc.TickCount() && mgr.Contested(); tick++ {
		st, err := r.tick(ctx, mgr)
		if err != nil {
			return sum, fmt.Errorf("tick %d: %w", tick, err)
		}
		sum.Ticks = tick
		sum.Decisions += st.Decisions
		sum.ModelDecisions += st.ModelDecisions
		sum.Executed += st.Executed
		r.logger.Info("combat tick",
			zap.String("scenario", sc.Name),
			zap.Int("tick", tick),
			zap.Int("decisions", st.Decisions),
			zap.Int("model_decisions", st.ModelDecisions),
			zap.Int("executed", st.Executed),
		)
	}
	sum.Standing = standing(mgr)

	for _, t := range sc.Trades {
		rep, err := scenario.Haggle(ctx, t, cast, r.pricer)
		if err != nil {
			return sum, fmt.Errorf("haggling %s->%s: %w", t.Seller, t.Buyer, err)
		}
		r.metrics.RecordTradeOutcome(ctx, rep.Final.String())
		r.logger.Info("trade settled",
			zap.String("seller", t.Seller),
			zap.String("buyer", t.Buyer),
			zap.String("item", t.Item),
			zap.Stringer("final", rep.Final),
			zap.Int("rounds", rep.Rounds),
			zap.Float64("price", rep.Price),
			zap.Strings("steps", rep.Steps),
		)
		sum.Trades = append(sum.Trades, rep)
		trades[pairOf(t)]++
	}

	if err := r.persist(ctx, sc, cast, trades); err != nil {
		return sum, err
	}
	return sum, nil
}

// TickStats counts one tick's decisions.
type TickStats struct {
	Decisions      int
	ModelDecisions int
	Executed       int
}

func (s *TickStats) add(res orchestrator.TickResult) {
	s.Decisions++
	if res.UsedModel {
		s.ModelDecisions++
	}
	if res.Executed {
		s.Executed++
	}
}

// tick lets every villager still in the fight act once, concurrently.
// A villager whose negotiation succeeds withdraws from the fight.
func (r *Runner) tick(ctx context.Context, mgr *npc.Manager) (TickStats, error) {
	var (
		mu sync.Mutex
		st TickStats
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, inst := range mgr.All() {
		if !inst.InCombat() {
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			s := mgr.Situation(inst)
			if len(s.Opponents) == 0 {
				return nil
			}
			res := r.orch.ProcessCombatTick(egCtx, inst, s)
			if res.Executed && res.Decision.Action() == combat.ActionNegotiate {
				inst.Withdraw()
			}
			r.logger.Debug("villager acted",
				zap.String("villager", inst.Name()),
				zap.String("side", inst.Side()),
				zap.Stringer("decision", res.Decision),
				zap.Bool("executed", res.Executed),
			)
			mu.Lock()
			st.add(res)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return TickStats{}, err
	}
	return st, nil
}

type pair struct{ seller, buyer string }

func pairOf(t scenario.Trade) pair { return pair{seller: t.Seller, buyer: t.Buyer} }

// restore reattaches persisted memory and standings to the cast and returns
// the settled trade count per pair.
func (r *Runner) restore(ctx context.Context, sc *scenario.Scenario, cast scenario.Cast) (map[pair]int, error) {
	trades := make(map[pair]int)
	if r.stores.Memories != nil {
		for name, inst := range cast {
			m, err := r.stores.Memories.Load(ctx, inst.ID())
			switch {
			case errors.Is(err, postgres.ErrMemoryNotFound):
			case err != nil:
				return nil, fmt.Errorf("restoring memory of %q: %w", name, err)
			default:
				inst.SetCombatMemory(m)
			}
		}
	}
	if r.stores.Standings != nil {
		for _, t := range sc.Trades {
			p := pairOf(t)
			if _, seen := trades[p]; seen {
				continue
			}
			seller, buyer := cast[t.Seller], cast[t.Buyer]
			s, err := r.stores.Standings.Load(ctx, seller.ID(), buyer.ID())
			switch {
			case errors.Is(err, postgres.ErrStandingNotFound):
				trades[p] = 0
			case err != nil:
				return nil, fmt.Errorf("restoring standing %s->%s: %w", t.Seller, t.Buyer, err)
			default:
				s.Apply(seller.Reputation(), seller.Relationships())
				trades[p] = s.Trades
			}
		}
	}
	return trades, nil
}

func (r *Runner) persist(ctx context.Context, sc *scenario.Scenario, cast scenario.Cast, trades map[pair]int) error {
	if r.stores.Memories != nil {
		for name, inst := range cast {
			if err := r.stores.Memories.Save(ctx, inst.ID(), inst.CombatMemory()); err != nil {
				return fmt.Errorf("saving memory of %q: %w", name, err)
			}
		}
	}
	if r.stores.Standings != nil {
		for p, n := range trades {
			seller, buyer := cast[p.seller], cast[p.buyer]
			s := postgres.StandingOf(seller.Reputation(), seller.Relationships(), n)
			if err := r.stores.Standings.Save(ctx, seller.ID(), buyer.ID(), s); err != nil {
				return fmt.Errorf("saving standing %s->%s: %w", p.seller, p.buyer, err)
			}
		}
	}
	r.logger.Debug("scenario persisted", zap.String("scenario", sc.Name))
	return nil
}

func standing(mgr *npc.Manager) map[string][]string {
	out := make(map[string][]string)
	for _, side := range mgr.Sides() {
		out[side] = []string{}
		for _, inst := range mgr.OnSide(side) {
			if inst.InCombat() {
				out[side] = append(out[side], inst.Name())
			}
		}
	}
	return out
}
