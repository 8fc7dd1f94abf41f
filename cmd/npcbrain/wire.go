//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/config"
)

func initApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		provideGenerator,
		provideRoller,
		provideMetricReader,
		provideMeterProvider,
		provideMetrics,
		provideDecider,
		provideOrchestrator,
		providePricer,
		providePool,
		provideStores,
		provideRunner,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
