//go:build wireinject
// +build wireinject

package di

import (
	"SignalDeck/pkg/config"
	"SignalDeck/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideSignalSource,
		ProvideQuoteFetcher,
		ProvideViewStore,

		// Use cases
		ProvideDashboard,
		ProvideScheduler,

		// Transport
		ProvideStreamHub,
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
