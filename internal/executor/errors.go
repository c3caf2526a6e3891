package executor

import "errors"

// Module errors for the execution service.
var (
	ErrDockerUnavailable   = errors.New("docker is not available")
	ErrSandboxUnavailable  = errors.New("sandbox service unavailable")
	ErrUnknownMode         = errors.New("unknown executor mode")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
