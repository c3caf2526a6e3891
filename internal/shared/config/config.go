package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Platform   PlatformConfig   `mapstructure:"platform"`
	Collab     CollabConfig     `mapstructure:"collab"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration for the executor service.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// PlatformConfig holds the E-Code platform endpoint configuration.
type PlatformConfig struct {
	// BaseURL is the http(s) origin of the platform. WebSocket endpoints
	// are derived from it by scheme substitution.
	BaseURL  string `mapstructure:"base_url"`
	APIToken string `mapstructure:"api_token"`
	// Project is the default project id used when a command does not
	// pass one explicitly.
	Project string `mapstructure:"project"`
}

// CollabConfig holds presence client configuration.
type CollabConfig struct {
	// SendBuffer is the outbound message queue size. When the queue is
	// full, messages are dropped rather than blocking the editor event
	// path.
	SendBuffer int `mapstructure:"send_buffer"`
}

// SyncConfig holds file-sync watcher configuration.
type SyncConfig struct {
	Root string `mapstructure:"root"`
	// SettleWindow coalesces rapid write bursts to the same path before
	// uploading. Editors commonly emit several events per save.
	SettleWindow  time.Duration `mapstructure:"settle_window"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// ExecutorConfig holds code execution service configuration.
type ExecutorConfig struct {
	// URL is the executor service endpoint used by client commands.
	URL string `mapstructure:"url"`

	// Mode selects the runner: docker, remote or mock.
	Mode           string        `mapstructure:"mode"`
	APIKey         string        `mapstructure:"api_key"`
	SandboxImage   string        `mapstructure:"sandbox_image"`
	SeccompProfile string        `mapstructure:"seccomp_profile"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`

	// Remote mode settings.
	SandboxServiceURL string        `mapstructure:"sandbox_service_url"`
	FailureThreshold  uint32        `mapstructure:"failure_threshold"`
	BreakerInterval   time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// HTTPClientConfig holds HTTP client configuration for connection pooling.
type HTTPClientConfig struct {
	// Connection pool settings
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	// Timeout settings
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`

	// Keep-alive settings
	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration from an explicit file path, then applies
// environment overrides on top.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Set config file name and paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ecode")
	}

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	// Read from environment variables
	v.SetEnvPrefix("ECODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if token := os.Getenv("ECODE_API_TOKEN"); token != "" {
		cfg.Platform.APIToken = token
	}
	if base := os.Getenv("ECODE_BASE_URL"); base != "" {
		cfg.Platform.BaseURL = base
	}
	// Executor overrides keep the env names used by existing deployments.
	if key := os.Getenv("EXECUTOR_API_KEY"); key != "" {
		cfg.Executor.APIKey = key
	}
	if url := os.Getenv("SANDBOX_SERVICE_URL"); url != "" {
		cfg.Executor.SandboxServiceURL = url
	}
	if image := os.Getenv("SANDBOX_IMAGE"); image != "" {
		cfg.Executor.SandboxImage = image
	}
	if profile := os.Getenv("SECCOMP_PROFILE"); profile != "" {
		cfg.Executor.SeccompProfile = profile
	}
	if sec := os.Getenv("SANDBOX_TIMEOUT_SEC"); sec != "" {
		if n, err := strconv.Atoi(sec); err == nil && n > 0 {
			cfg.Executor.Timeout = time.Duration(n) * time.Second
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Platform defaults
	v.SetDefault("platform.base_url", "http://localhost:3000")

	// Collab defaults
	v.SetDefault("collab.send_buffer", 256)

	// Sync defaults
	v.SetDefault("sync.root", ".")
	v.SetDefault("sync.settle_window", 200*time.Millisecond)
	v.SetDefault("sync.max_concurrent", 4)

	// Executor defaults
	v.SetDefault("executor.url", "http://localhost:8080")
	v.SetDefault("executor.mode", "docker")
	v.SetDefault("executor.sandbox_image", "ecode-sandbox:latest")
	v.SetDefault("executor.seccomp_profile", "./seccomp.json")
	v.SetDefault("executor.timeout", 30*time.Second)
	v.SetDefault("executor.max_concurrent", 8)
	v.SetDefault("executor.sandbox_service_url", "http://localhost:8000")
	v.SetDefault("executor.failure_threshold", 5)
	v.SetDefault("executor.breaker_interval", 60*time.Second)
	v.SetDefault("executor.breaker_timeout", 30*time.Second)
	v.SetDefault("executor.allowed_origins", []string{"*"})

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 20)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 30*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 30*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
