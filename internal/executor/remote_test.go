package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-code/agent/internal/shared/config"
)

func remoteConfig(url string) config.ExecutorConfig {
	return config.ExecutorConfig{
		Mode:              ModeRemote,
		SandboxServiceURL: url,
		FailureThreshold:  3,
		BreakerInterval:   time.Minute,
		BreakerTimeout:    time.Minute,
	}
}

func TestRemoteRunnerForwards(t *testing.T) {
	var gotReq ExecutionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ExecutionResult{Success: true, Stdout: "forwarded"})
	}))
	defer srv.Close()

	runner := NewRemoteRunner(remoteConfig(srv.URL), srv.Client(), nil)
	result, err := runner.Run(context.Background(), &ExecutionRequest{Code: "print(1)", Language: "python"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "forwarded", result.Stdout)
	assert.Equal(t, "print(1)", gotReq.Code)
	assert.Equal(t, "python", gotReq.Language)
}

func TestRemoteRunnerSandboxError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	runner := NewRemoteRunner(remoteConfig(srv.URL), srv.Client(), nil)
	_, err := runner.Run(context.Background(), &ExecutionRequest{Code: "x", Language: "go"})

	assert.ErrorIs(t, err, ErrSandboxUnavailable)
}

func TestRemoteRunnerBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	runner := NewRemoteRunner(remoteConfig(srv.URL), srv.Client(), nil)
	req := &ExecutionRequest{Code: "x", Language: "go"}

	for i := 0; i < 3; i++ {
		_, err := runner.Run(context.Background(), req)
		require.Error(t, err)
	}

	// The breaker is open now: the request fails fast without reaching
	// the sandbox.
	_, err := runner.Run(context.Background(), req)
	assert.ErrorIs(t, err, ErrSandboxUnavailable)
	assert.Equal(t, 3, hits)
}

func TestRemoteRunnerHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	runner := NewRemoteRunner(remoteConfig(srv.URL), srv.Client(), nil)
	assert.NoError(t, runner.HealthCheck(context.Background()))

	down := NewRemoteRunner(remoteConfig("http://127.0.0.1:1"), nil, nil)
	assert.ErrorIs(t, down.HealthCheck(context.Background()), ErrSandboxUnavailable)
}
