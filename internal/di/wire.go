//go:build wireinject
// +build wireinject

package di

import (
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Foundation
		ProvideLogger,
		ProvideMetrics,
		ProvideHTTPClient,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCooldownCache,

		// Alerting
		ProvideChannels,
		ProvideNotifier,

		// Error tracking
		ProvideErrorHandler,
		ProvideErrorConsumer,

		// Market data and analysis
		ProvideSource,
		ProvideMonitor,
		ProvideCollector,

		// HTTP surface
		ProvideOpsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
