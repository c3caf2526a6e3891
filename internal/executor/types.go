package executor

import "context"

// ExecutionRequest is a code execution request. Field names match the
// wire contract of the sandbox fleet.
type ExecutionRequest struct {
	Code     string            `json:"code"`
	Language string            `json:"language"`
	Files    map[string]string `json:"files,omitempty"`
	// Timeout is the requested wall limit in seconds. Capped by the
	// configured runner timeout.
	Timeout int `json:"timeout,omitempty"`
}

// ExecutionResult is the outcome of one execution.
type ExecutionResult struct {
	Success       bool   `json:"success"`
	ExitCode      int    `json:"exit_code"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	ExecutionTime int64  `json:"execution_time_ms"`
	Error         string `json:"error,omitempty"`
}

// Runner executes untrusted code in one of the supported modes.
type Runner interface {
	// Run executes the request and returns its result. A non-nil error
	// means the runner itself failed; execution failures (non-zero exit,
	// timeout) are reported inside the result.
	Run(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error)
	// HealthCheck probes the runner's backend.
	HealthCheck(ctx context.Context) error
	// Mode identifies the runner for logs and metrics.
	Mode() string
}

// Runner modes selected by configuration.
const (
	ModeDocker = "docker"
	ModeRemote = "remote"
	ModeMock   = "mock"
)
