package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration for the agent control plane.
type Config struct {
	Helper  HelperConfig  `yaml:"helper"`
	Control ControlConfig `yaml:"control"`
	Logging LogConfig     `yaml:"logging"`
}

// HelperConfig configures the supervised helper process.
type HelperConfig struct {
	Executable         string        `envconfig:"HELPER_EXEC" yaml:"executable" default:"node"`
	Entry              string        `envconfig:"HELPER_ENTRY" yaml:"entry"`
	SocketPath         string        `envconfig:"HELPER_SOCKET" yaml:"socket_path"`
	StartupTimeout     time.Duration `envconfig:"HELPER_STARTUP_TIMEOUT" yaml:"startup_timeout" default:"5s"`
	HealthInterval     time.Duration `envconfig:"HELPER_HEALTH_INTERVAL" yaml:"health_interval" default:"10s"`
	HealthTimeout      time.Duration `envconfig:"HELPER_HEALTH_TIMEOUT" yaml:"health_timeout" default:"2s"`
	RestartMaxAttempts int           `envconfig:"HELPER_RESTART_MAX" yaml:"restart_max_attempts" default:"3"`
	RestartBackoff     time.Duration `envconfig:"HELPER_RESTART_BACKOFF" yaml:"restart_backoff" default:"100ms"`
	BackoffCeiling     time.Duration `envconfig:"HELPER_BACKOFF_CEILING" yaml:"backoff_ceiling" default:"30s"`
	GracefulStop       time.Duration `envconfig:"HELPER_GRACEFUL_STOP" yaml:"graceful_stop" default:"2s"`
	UsePTY             bool          `envconfig:"HELPER_USE_PTY" yaml:"use_pty" default:"false"`
}

// ControlConfig configures the inbound control server.
type ControlConfig struct {
	SocketPath     string        `envconfig:"CONTROL_SOCKET" yaml:"socket_path"`
	MaxBodyBytes   int           `envconfig:"CONTROL_MAX_BODY" yaml:"max_body_bytes" default:"1048576"`
	GzipMinBytes   int           `envconfig:"CONTROL_GZIP_MIN" yaml:"gzip_min_bytes" default:"1024"`
	RateLimitRPS   int           `envconfig:"CONTROL_RATE_LIMIT_RPS" yaml:"rate_limit_rps" default:"0"`
	RateLimitBurst int           `envconfig:"CONTROL_RATE_LIMIT_BURST" yaml:"rate_limit_burst" default:"0"`
	IdleTimeout    time.Duration `envconfig:"CONTROL_IDLE_TIMEOUT" yaml:"idle_timeout" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" default:"info"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("ATHENA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads configuration from a YAML file over the defaults.
// When a file is given it is authoritative; environment variables are
// not consulted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Helper: HelperConfig{
			Executable:         "node",
			StartupTimeout:     5 * time.Second,
			HealthInterval:     10 * time.Second,
			HealthTimeout:      2 * time.Second,
			RestartMaxAttempts: 3,
			RestartBackoff:     100 * time.Millisecond,
			BackoffCeiling:     30 * time.Second,
			GracefulStop:       2 * time.Second,
		},
		Control: ControlConfig{
			MaxBodyBytes: 1 << 20,
			GzipMinBytes: 1024,
			IdleTimeout:  30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
