package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/platform"
	"github.com/e-code/agent/internal/shared/config"
	"github.com/e-code/agent/internal/shared/httpclient"
	"github.com/e-code/agent/internal/shared/logger"
	"github.com/e-code/agent/internal/shared/metrics"
)

// rootFlags holds the persistent flags shared by all subcommands.
// Precedence: flags > environment > config file > defaults.
type rootFlags struct {
	configFile string
	baseURL    string
	logLevel   string
	project    string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "ecode-agent",
		Short: "Local agent for the E-Code platform",
		Long: `ecode-agent connects a local workspace to the E-Code platform:
live collaborator presence, file synchronization, terminal access and
remote code execution.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file path (default searches ., ./configs, /etc/ecode)")
	pf.StringVar(&flags.baseURL, "base-url", "", "platform base URL (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVarP(&flags.project, "project", "p", "", "project id (overrides config)")

	cmd.AddCommand(
		newCollabCommand(flags),
		newSyncCommand(flags),
		newTermCommand(flags),
		newRunCommand(flags),
		newVersionCommand(),
	)

	return cmd
}

// appContext bundles everything a subcommand needs.
type appContext struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	endpoints *platform.Endpoints
	platform  *platform.Client
}

// newAppContext loads configuration, applies flag overrides and builds
// the shared clients.
func newAppContext(flags *rootFlags) (*appContext, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configFile != "" {
		cfg, err = config.LoadFile(flags.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.baseURL != "" {
		cfg.Platform.BaseURL = flags.baseURL
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.project != "" {
		cfg.Platform.Project = flags.project
	}

	zapLogger, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	httpc := httpclient.New(cfg.HTTPClient)
	app := &appContext{
		cfg:       cfg,
		logger:    zapLogger,
		metrics:   metrics.New("ecode"),
		endpoints: platform.NewEndpoints(cfg.Platform.BaseURL),
		platform:  platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.APIToken, httpc, zapLogger),
	}
	app.warnTokenExpiry()
	return app, nil
}

// projectID resolves the project id for a subcommand, erroring when no
// project is configured anywhere.
func (a *appContext) projectID() (string, error) {
	if a.cfg.Platform.Project == "" {
		return "", fmt.Errorf("no project id: pass --project or set platform.project in the config file")
	}
	return a.cfg.Platform.Project, nil
}

// warnTokenExpiry surfaces expired or soon-to-expire API tokens up
// front rather than as 401s mid-session.
func (a *appContext) warnTokenExpiry() {
	token := a.cfg.Platform.APIToken
	if token == "" {
		return
	}
	info, err := platform.InspectToken(token)
	if err != nil {
		a.logger.Debug("api token is not a JWT, skipping expiry check", zap.Error(err))
		return
	}
	now := time.Now()
	switch {
	case info.Expired(now):
		a.logger.Warn("api token is expired", zap.Time("expired_at", info.ExpiresAt))
	case info.ExpiresWithin(now, 24*time.Hour):
		a.logger.Warn("api token expires soon", zap.Time("expires_at", info.ExpiresAt))
	}
}

func (a *appContext) close() {
	_ = a.logger.Sync()
}
