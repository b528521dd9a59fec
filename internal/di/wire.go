//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/romkarus000/analytics-product/internal/domain/repository"
	internalrepo "github.com/romkarus000/analytics-product/internal/repository"
	"github.com/romkarus000/analytics-product/pkg/config"
	"github.com/romkarus000/analytics-product/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogPublisher,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideSnapshotCache,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTransactionStore,
		wire.Bind(new(repository.TransactionStore), new(*internalrepo.CHTransactionStore)),

		// Use cases and workers
		ProvideMetricsUseCase,
		ProvideJobQueue,
		ProvideImportEventsHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideMetricsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
