package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/executor"
	"github.com/e-code/agent/internal/shared/httpclient"
)

// extLanguages infers the execution language from a file extension.
var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".rb":   "ruby",
	".php":  "php",
	".sh":   "shell",
}

func newRunCommand(flags *rootFlags) *cobra.Command {
	var (
		language string
		timeout  int
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a source file in the remote sandbox",
		Long: `Submits a source file to the executor service and prints the
program's output. The language is inferred from the file extension
unless --lang is given. Exits with the program's exit code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags)
			if err != nil {
				return err
			}
			defer app.close()
			return runExecute(cmd, app, args[0], language, timeout)
		},
	}

	cmd.Flags().StringVarP(&language, "lang", "l", "", "execution language (inferred from file extension when empty)")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "execution wall limit in seconds (server default when 0)")
	return cmd
}

func runExecute(cmd *cobra.Command, app *appContext, path, language string, timeout int) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if language == "" {
		ext := strings.ToLower(filepath.Ext(path))
		lang, ok := extLanguages[ext]
		if !ok {
			return fmt.Errorf("cannot infer language from %q, pass --lang", path)
		}
		language = lang
	}

	reqBody := &executor.ExecutionRequest{
		Code:     string(code),
		Language: language,
		Timeout:  timeout,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimSuffix(app.cfg.Executor.URL, "/") + "/execute"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := app.cfg.Executor.APIKey; key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	app.logger.Debug("submitting execution",
		zap.String("language", language),
		zap.String("url", url),
		zap.Int("code_bytes", len(code)))

	httpc := httpclient.New(app.cfg.HTTPClient)
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call executor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("executor: %s (%s)", errResp.Error.Message, errResp.Error.Code)
		}
		return fmt.Errorf("executor: unexpected status %d", resp.StatusCode)
	}

	var result executor.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	if result.Stdout != "" {
		fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
	}
	if result.Error != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", result.Error)
	}

	app.logger.Debug("execution finished",
		zap.Bool("success", result.Success),
		zap.Int("exit_code", result.ExitCode),
		zap.Int64("execution_time_ms", result.ExecutionTime))

	if !result.Success {
		code := result.ExitCode
		if code == 0 {
			code = 1
		}
		os.Exit(code)
	}
	return nil
}
