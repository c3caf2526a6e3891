package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/e-code/agent/internal/shared/config"
)

// maxOutputBytes caps captured stdout and stderr per stream.
const maxOutputBytes = 1 << 20

// language tables: the sandbox main filename and the command run inside
// the container.
var mainFileNames = map[string]string{
	"python":     "main.py",
	"javascript": "main.js",
	"typescript": "main.ts",
	"go":         "main.go",
	"rust":       "main.rs",
	"java":       "Main.java",
	"c":          "main.c",
	"cpp":        "main.cpp",
	"ruby":       "main.rb",
	"php":        "main.php",
	"shell":      "script.sh",
}

// languageAliases maps accepted spellings onto canonical language names.
var languageAliases = map[string]string{
	"python3": "python",
	"node":    "javascript",
	"nodejs":  "javascript",
	"js":      "javascript",
	"ts":      "typescript",
	"golang":  "go",
	"c++":     "cpp",
	"bash":    "shell",
	"sh":      "shell",
}

// canonicalLanguage resolves aliases to the canonical language name.
func canonicalLanguage(language string) string {
	lang := strings.ToLower(language)
	if canonical, ok := languageAliases[lang]; ok {
		return canonical
	}
	return lang
}

// mainFileName returns the sandbox filename the code is written to.
func mainFileName(language string) (string, error) {
	name, ok := mainFileNames[canonicalLanguage(language)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return name, nil
}

// languageCommand returns the command run inside the container.
func languageCommand(language, mainFile string) []string {
	switch canonicalLanguage(language) {
	case "python":
		return []string{"python3", mainFile}
	case "javascript":
		return []string{"node", mainFile}
	case "typescript":
		return []string{"npx", "tsx", mainFile}
	case "go":
		return []string{"go", "run", mainFile}
	case "rust":
		return []string{"sh", "-c", fmt.Sprintf("rustc %s -o main && ./main", mainFile)}
	case "java":
		className := strings.TrimSuffix(mainFile, ".java")
		return []string{"sh", "-c", fmt.Sprintf("javac %s && java %s", mainFile, className)}
	case "c":
		return []string{"sh", "-c", fmt.Sprintf("gcc %s -o main && ./main", mainFile)}
	case "cpp":
		return []string{"sh", "-c", fmt.Sprintf("g++ %s -o main && ./main", mainFile)}
	case "ruby":
		return []string{"ruby", mainFile}
	case "php":
		return []string{"php", mainFile}
	case "shell":
		return []string{"bash", mainFile}
	default:
		return []string{"cat", mainFile}
	}
}

// DockerRunner executes code via the local Docker CLI inside a hardened
// sandbox container: no network, capped memory, CPU and pids, read-only
// workspace copy, non-root user, optional seccomp profile.
type DockerRunner struct {
	image       string
	seccompPath string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewDockerRunner creates a docker runner, verifying the local Docker
// CLI is usable.
func NewDockerRunner(cfg config.ExecutorConfig, logger *zap.Logger) (*DockerRunner, error) {
	if err := exec.Command("docker", "version").Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DockerRunner{
		image:       cfg.SandboxImage,
		seccompPath: cfg.SeccompProfile,
		timeout:     cfg.Timeout,
		logger:      logger.Named("docker-runner"),
	}, nil
}

// Mode implements Runner.
func (r *DockerRunner) Mode() string { return ModeDocker }

// HealthCheck implements Runner.
func (r *DockerRunner) HealthCheck(ctx context.Context) error {
	if err := exec.CommandContext(ctx, "docker", "version").Run(); err != nil {
		return fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	return nil
}

// Run implements Runner.
func (r *DockerRunner) Run(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	start := time.Now()

	mainFile, err := mainFileName(req.Language)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(req.Files)+1)
	for name, content := range req.Files {
		files[name] = content
	}
	files[mainFile] = req.Code

	workDir, err := os.MkdirTemp("", "ecode-execution-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	for name, content := range files {
		path := filepath.Join(workDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write file %s: %w", name, err)
		}
	}

	args := []string{
		"run",
		"--rm",
		"--network", "none",
		"--memory", "512m",
		"--cpus", "1",
		"--pids-limit", "100",
		"-v", workDir + ":/workspace:ro",
		"-w", "/workspace",
		"--user", "coderunner",
		"--security-opt", "no-new-privileges",
	}
	if _, err := os.Stat(r.seccompPath); err == nil {
		args = append(args, "--security-opt", "seccomp="+r.seccompPath)
	}
	args = append(args, r.image)
	args = append(args, languageCommand(req.Language, mainFile)...)

	execCtx, cancel := context.WithTimeout(ctx, r.wallTimeout(req))
	defer cancel()

	cmd := exec.CommandContext(execCtx, "docker", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var exitCode int
	var errorMsg string
	if runErr != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			errorMsg = "timeout"
			exitCode = -1
		} else if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			errorMsg = runErr.Error()
			exitCode = -1
		}
	}

	r.logger.Debug("sandbox run finished",
		zap.String("language", req.Language),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", time.Since(start)),
	)

	return &ExecutionResult{
		Success:       exitCode == 0 && errorMsg == "",
		ExitCode:      exitCode,
		Stdout:        truncateOutput(stdout.String()),
		Stderr:        truncateOutput(stderr.String()),
		ExecutionTime: time.Since(start).Milliseconds(),
		Error:         errorMsg,
	}, nil
}

// wallTimeout honors a per-request timeout up to the configured cap.
func (r *DockerRunner) wallTimeout(req *ExecutionRequest) time.Duration {
	if req.Timeout > 0 {
		requested := time.Duration(req.Timeout) * time.Second
		if requested < r.timeout {
			return requested
		}
	}
	return r.timeout
}

func truncateOutput(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n... output truncated"
}
