package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/e-code/agent/internal/executor"
	"github.com/e-code/agent/internal/shared/config"
	"github.com/e-code/agent/internal/shared/httpclient"
	"github.com/e-code/agent/internal/shared/logger"
	"github.com/e-code/agent/internal/shared/metrics"
)

// ProvideLogger builds the slog facade logger.
func ProvideLogger(cfg *config.Config) *logger.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideZapLogger builds the zap logger used by component code.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}
	return zapLog, nil
}

// ProvideMetrics registers application metrics on the default registry.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("ecode")
}

// ProvideHTTPClient builds the pooled HTTP client.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideRunner builds the runner selected by executor.mode.
func ProvideRunner(cfg *config.Config, httpc *http.Client, zapLog *zap.Logger) (executor.Runner, error) {
	return executor.NewRunner(cfg.Executor, httpc, zapLog)
}

// ProvideService builds the execution service.
func ProvideService(cfg *config.Config, runner executor.Runner, m *metrics.Metrics, zapLog *zap.Logger) *executor.Service {
	return executor.NewService(cfg.Executor, runner, m, zapLog)
}

// ProvideHandler builds the executor HTTP handler.
func ProvideHandler(cfg *config.Config, service *executor.Service, zapLog *zap.Logger) *executor.Handler {
	return executor.NewHandler(service, cfg.Executor.APIKey, zapLog)
}
