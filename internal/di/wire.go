//go:build wireinject
// +build wireinject

package di

import (
	"github.com/danielhafezi/BetaAnalysisTool/pkg/config"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Market data
		ProvideStream,
		ProvideProvider,

		// Caches
		ProvideChunkStore,
		ProvideRuntimeCache,

		// Downstream
		ProvidePublisher,

		// Use cases
		ProvideHistoryUseCase,
		ProvideBetaUseCase,
		ProvidePatternUseCase,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
