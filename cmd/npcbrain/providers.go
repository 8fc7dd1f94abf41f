package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/config"
	"github.com/cory-johannsen/npcbrain/internal/game/dice"
	"github.com/cory-johannsen/npcbrain/internal/game/orchestrator"
	"github.com/cory-johannsen/npcbrain/internal/game/trade"
	"github.com/cory-johannsen/npcbrain/internal/model"
	"github.com/cory-johannsen/npcbrain/internal/model/anthropic"
	"github.com/cory-johannsen/npcbrain/internal/model/luascript"
	"github.com/cory-johannsen/npcbrain/internal/observability"
	"github.com/cory-johannsen/npcbrain/internal/simulation"
	"github.com/cory-johannsen/npcbrain/internal/storage/postgres"
)

// App is the wired object graph of the daemon.
type App struct {
	Runner       *simulation.Runner
	Orchestrator *orchestrator.Orchestrator
	Reader       *sdkmetric.ManualReader
	// Pool is nil when persistence is disabled.
	Pool *postgres.Pool
}

func provideGenerator(cfg config.Config, logger *zap.Logger) (model.Generator, func(), error) {
	switch cfg.Model.Provider {
	case config.ProviderAnthropic:
		gen, err := anthropic.New(anthropic.Options{
			APIKey:  cfg.Model.APIKey,
			Model:   cfg.Model.Name,
			BaseURL: cfg.Model.BaseURL,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating anthropic generator: %w", err)
		}
		return gen, func() {}, nil
	case config.ProviderLua:
		gen, err := luascript.New(luascript.Options{
			Path:             cfg.Model.ScriptPath,
			InstructionLimit: cfg.Model.InstructionLimit,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("loading lua generator: %w", err)
		}
		return gen, gen.Close, nil
	default:
		return model.Disabled{}, func() {}, nil
	}
}

func provideRoller(cfg config.Config, logger *zap.Logger) *dice.Roller {
	return dice.NewRoller(cfg.Combat.Seed, logger)
}

func provideMetricReader() *sdkmetric.ManualReader {
	return sdkmetric.NewManualReader()
}

// provideMeterProvider feeds every instrument to reader, for the end-of-run
// summary, and to the default Prometheus registry, for scrapes under -serve.
func provideMeterProvider(reader *sdkmetric.ManualReader) (*sdkmetric.MeterProvider, func(), error) {
	prom, err := observability.NewPrometheusReader(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, err
	}
	mp, err := observability.NewMeterProvider(version, reader, prom)
	if err != nil {
		return nil, nil, err
	}
	return mp, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(ctx)
	}, nil
}

func provideMetrics(mp *sdkmetric.MeterProvider) (*observability.Metrics, error) {
	return observability.NewMetrics(mp)
}

func provideDecider(gen model.Generator, cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) *orchestrator.ModelDecider {
	return orchestrator.NewModelDecider(gen, orchestrator.ModelDeciderOptions{
		MaxTokens:      cfg.Model.MaxTokens,
		Temperature:    cfg.Model.Temperature,
		ResponseWindow: cfg.Combat.ResponseCacheWindow,
	}, logger, metrics)
}

// provideOrchestrator leaves the model path off entirely for the "none"
// provider so simple and complex situations alike take the rule path
// without a failed model call.
func provideOrchestrator(d *orchestrator.ModelDecider, roller *dice.Roller, cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*orchestrator.Orchestrator, func()) {
	var decider orchestrator.Decider
	if cfg.Model.Provider != config.ProviderNone {
		decider = d
	}
	orch := orchestrator.New(decider, nil, orchestrator.Options{
		Timeout:        cfg.Model.Timeout,
		DecisionWindow: cfg.Combat.DecisionCacheWindow,
		ThreatWindow:   cfg.Combat.ThreatCacheWindow,
		SweepThreshold: cfg.Combat.SweepThreshold,
		Shards:         cfg.Combat.Shards,
		Rand:           roller.Roll,
	}, logger, metrics)
	return orch, orch.Close
}

func providePricer(gen model.Generator, cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) trade.Pricer {
	if !cfg.Trade.ModelPricing || cfg.Model.Provider == config.ProviderNone {
		return trade.Rules{}
	}
	return trade.NewModelPricer(gen, cfg.Trade.PricingTimeout, logger, metrics)
}

func providePool(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.Pool, func(), error) {
	if !cfg.Database.Enabled {
		return nil, func() {}, nil
	}
	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pool, pool.Close, nil
}

func provideRunner(orch *orchestrator.Orchestrator, pricer trade.Pricer, stores simulation.Stores, roller *dice.Roller, logger *zap.Logger, metrics *observability.Metrics) *simulation.Runner {
	return simulation.NewRunner(orch, pricer, stores, logger, metrics).WithRoll(roller.Roll)
}

func provideStores(pool *postgres.Pool) simulation.Stores {
	if pool == nil {
		return simulation.Stores{}
	}
	return simulation.Stores{
		Memories:  postgres.NewMemoryRepository(pool.DB()),
		Standings: postgres.NewStandingRepository(pool.DB()),
	}
}
