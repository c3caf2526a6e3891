//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/e-code/agent/internal/shared/config"
)

// Initialize assembles the executor application.
func Initialize(cfg *config.Config) (*App, error) {
	wire.Build(
		ProvideLogger,
		ProvideZapLogger,
		ProvideMetrics,
		ProvideHTTPClient,
		ProvideRunner,
		ProvideService,
		ProvideHandler,
		newApp,
	)
	return nil, nil
}
