//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FerryCast/pkg/config"
	"FerryCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideForecastSink,

		// Services
		ProvideArtifactStore,
		ProvideFeatureGenerator,
		ProvideInferenceBackend,

		// Use cases
		ProvideForecastRecorder,
		ProvideForecaster,

		// HTTP
		ProvideForecastHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
