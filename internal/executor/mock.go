package executor

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/e-code/agent/internal/shared/errors"
)

// MockRunner is a placeholder backend for local UI development. Every
// request is echoed at debug level and answered with not-implemented.
type MockRunner struct {
	logger *zap.Logger
}

// NewMockRunner creates a mock runner.
func NewMockRunner(logger *zap.Logger) *MockRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockRunner{logger: logger.Named("mock-runner")}
}

// Mode implements Runner.
func (r *MockRunner) Mode() string { return ModeMock }

// HealthCheck implements Runner. The mock backend is always healthy.
func (r *MockRunner) HealthCheck(context.Context) error { return nil }

// Run implements Runner.
func (r *MockRunner) Run(_ context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	r.logger.Debug("mock execution request",
		zap.String("language", req.Language),
		zap.Int("code_bytes", len(req.Code)),
		zap.Int("files", len(req.Files)),
	)
	return nil, apperrors.NotImplemented(
		"executor is running in mock mode and does not execute code")
}
