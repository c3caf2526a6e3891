package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/shared/config"
)

// RemoteRunner forwards execution requests to a remote sandbox fleet,
// wrapped in a circuit breaker: after consecutive forwarding failures
// the breaker opens and requests fail fast until a half-open probe
// succeeds.
type RemoteRunner struct {
	sandboxURL string
	httpc      *http.Client
	breaker    *gobreaker.CircuitBreaker[*ExecutionResult]
	logger     *zap.Logger
}

// NewRemoteRunner creates a remote runner for the configured sandbox
// service URL.
func NewRemoteRunner(cfg config.ExecutorConfig, httpc *http.Client, logger *zap.Logger) *RemoteRunner {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*ExecutionResult](gobreaker.Settings{
		Name:        "sandbox-service",
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RemoteRunner{
		sandboxURL: cfg.SandboxServiceURL,
		httpc:      httpc,
		breaker:    breaker,
		logger:     logger.Named("remote-runner"),
	}
}

// Mode implements Runner.
func (r *RemoteRunner) Mode() string { return ModeRemote }

// Run implements Runner.
func (r *RemoteRunner) Run(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	result, err := r.breaker.Execute(func() (*ExecutionResult, error) {
		return r.forward(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrSandboxUnavailable)
		}
		return nil, err
	}
	return result, nil
}

// forward posts the request to the fleet's /run endpoint.
func (r *RemoteRunner) forward(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.sandboxURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSandboxUnavailable, resp.StatusCode, payload)
	}

	var result ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode sandbox response: %w", err)
	}
	return &result, nil
}

// HealthCheck implements Runner by probing the fleet's health endpoint.
func (r *RemoteRunner) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.sandboxURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "ecode-executor/1.0")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSandboxUnavailable, resp.StatusCode)
	}
	return nil
}
