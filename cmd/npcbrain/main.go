// Package main provides the NPC decision daemon. It plays a scenario through
// the combat orchestrator and trade negotiator, and with -serve keeps the
// decision core running behind a gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/config"
	"github.com/cory-johannsen/npcbrain/internal/game/scenario"
	"github.com/cory-johannsen/npcbrain/internal/observability"
	"github.com/cory-johannsen/npcbrain/internal/server"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenarioPath := flag.String("scenario", "content/scenarios/market_raid.yaml", "path to scenario YAML file")
	ticks := flag.Int("ticks", 0, "combat ticks to play; 0 = the scenario's own count")
	serve := flag.Bool("serve", false, "keep running behind the gRPC health endpoint after the scenario")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("wiring decision core", zap.Error(err))
	}
	defer cleanup()

	logger.Info("starting npcbrain",
		zap.String("version", version),
		zap.String("provider", cfg.Model.Provider),
		zap.Bool("persistence", app.Pool != nil),
		zap.Duration("startup", time.Since(start)),
	)

	sc, err := scenario.LoadFromFile(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.String("path", *scenarioPath), zap.Error(err))
	}
	if *ticks > 0 {
		sc.Ticks = *ticks
	}

	runStart := time.Now()
	sum, err := app.Runner.Run(ctx, sc)
	if err != nil {
		logger.Error("scenario run failed", zap.String("scenario", sc.Name), zap.Error(err))
		cleanup()
		logger.Sync()
		os.Exit(1)
	}
	settled := 0
	for _, rep := range sum.Trades {
		if rep.Succeeded() {
			settled++
		}
	}
	logger.Info("scenario complete",
		zap.String("scenario", sum.Scenario),
		zap.Int("ticks", sum.Ticks),
		zap.Int("decisions", sum.Decisions),
		zap.Int("model_decisions", sum.ModelDecisions),
		zap.Int("executed", sum.Executed),
		zap.Any("standing", sum.Standing),
		zap.Int("trades", len(sum.Trades)),
		zap.Int("deals", settled),
		zap.Duration("elapsed", time.Since(runStart)),
	)
	logMetrics(ctx, app.Reader, logger)

	if !*serve {
		return
	}

	lifecycle := server.NewLifecycle(logger)
	health := server.NewHealthService(cfg.Health.Addr(), logger)
	health.SetServing(server.HealthDecisions, true)
	lifecycle.Add("health", health)
	if cfg.Combat.SweepInterval > 0 {
		lifecycle.Add("sweeper", server.NewSweeperService(app.Orchestrator, cfg.Combat.SweepInterval, logger))
	}
	if cfg.Health.MetricsAddr != "" {
		lifecycle.Add("metrics", server.NewMetricsService(cfg.Health.MetricsAddr, promhttp.Handler(), logger))
	}
	if app.Pool != nil {
		lifecycle.Add("storage-probe", server.NewProbeService(server.HealthStorage, 10*time.Second, 2*time.Second, app.Pool.Ping, health, logger))
	}

	logger.Info("serving", zap.String("health_addr", cfg.Health.Addr()), zap.Strings("services", lifecycle.Names()))
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("lifecycle stopped", zap.Error(err))
		cleanup()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("npcbrain stopped")
}

// logMetrics logs the run's counter totals and model call count.
func logMetrics(ctx context.Context, reader *sdkmetric.ManualReader, logger *zap.Logger) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		logger.Warn("collecting metrics", zap.Error(err))
		return
	}
	var fields []zap.Field
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fields = append(fields, zap.Int64(m.Name, total))
			case metricdata.Histogram[float64]:
				var count uint64
				for _, dp := range data.DataPoints {
					count += dp.Count
				}
				fields = append(fields, zap.Uint64(m.Name+".count", count))
			}
		}
	}
	logger.Info("metrics", fields...)
}
