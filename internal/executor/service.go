package executor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/e-code/agent/internal/shared/config"
	apperrors "github.com/e-code/agent/internal/shared/errors"
	"github.com/e-code/agent/internal/shared/metrics"
)

// Service runs executions through the configured runner with a
// concurrency cap. Saturation is reported to the caller instead of
// queueing.
type Service struct {
	runner    Runner
	semaphore chan struct{}
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRunner builds the runner selected by config.
func NewRunner(cfg config.ExecutorConfig, httpc *http.Client, logger *zap.Logger) (Runner, error) {
	switch cfg.Mode {
	case ModeDocker:
		return NewDockerRunner(cfg, logger)
	case ModeRemote:
		return NewRemoteRunner(cfg, httpc, logger), nil
	case ModeMock:
		return NewMockRunner(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, cfg.Mode)
	}
}

// NewService creates an execution service. The metrics parameter may be
// nil.
func NewService(cfg config.ExecutorConfig, runner Runner, m *metrics.Metrics, logger *zap.Logger) *Service {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner:    runner,
		semaphore: make(chan struct{}, maxConcurrent),
		metrics:   m,
		logger:    logger.Named("executor"),
	}
}

// Execute validates and runs one execution request.
func (s *Service) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	if req.Code == "" {
		return nil, apperrors.BadRequest("missing code")
	}
	if req.Language == "" {
		return nil, apperrors.BadRequest("missing language")
	}

	select {
	case s.semaphore <- struct{}{}:
	default:
		return nil, apperrors.TooManyRequests("execution capacity saturated")
	}
	defer func() { <-s.semaphore }()

	start := time.Now()
	result, err := s.runner.Run(ctx, req)
	duration := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case !result.Success:
		status = "failed"
	}
	if s.metrics != nil {
		s.metrics.RecordExecution(canonicalLanguage(req.Language), s.runner.Mode(), status, duration)
	}

	if err != nil {
		s.logger.Warn("execution failed",
			zap.String("language", req.Language),
			zap.String("mode", s.runner.Mode()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("execution finished",
		zap.String("language", req.Language),
		zap.String("mode", s.runner.Mode()),
		zap.Bool("success", result.Success),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", duration),
	)
	return result, nil
}

// Health probes the runner backend and updates the health gauge.
func (s *Service) Health(ctx context.Context) error {
	err := s.runner.HealthCheck(ctx)
	if s.metrics != nil {
		s.metrics.SetSandboxHealth(s.runner.Mode(), err == nil)
	}
	return err
}

// Mode reports the configured runner mode.
func (s *Service) Mode() string { return s.runner.Mode() }
