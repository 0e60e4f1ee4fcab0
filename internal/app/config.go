package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/specialistvlad/expgrid/internal/engine"
)

// EnvPrefix prefixes environment variables that override configuration keys,
// e.g. EXPGRID_LOG_LEVEL.
const EnvPrefix = "EXPGRID"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ExperimentsPath string `mapstructure:"experiments"`
	ResultsPath     string `mapstructure:"results"`
	Run             string `mapstructure:"run"`

	LogFormat  string `mapstructure:"log_format"`
	LogLevel   string `mapstructure:"log_level"`
	Chdir      bool   `mapstructure:"chdir"`
	StatusPort int    `mapstructure:"status_port"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		ResultsPath: "results",
		Run:         "new",
		LogFormat:   "text",
		LogLevel:    "info",
	}
}

// NewConfig validates cfg and returns a normalized copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ResultsPath == "" {
		return nil, errors.New("results is a required configuration field and cannot be empty")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if _, err := engine.ParseMode(cfg.Run); err != nil {
		return nil, err
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status-port %d", cfg.StatusPort)
	}
	return &cfg, nil
}

// LoadConfigFile layers an optional config file (YAML, TOML or JSON) and
// EXPGRID_* environment variables over base. An empty path skips the file.
func LoadConfigFile(path string, base Config) (Config, error) {
	v := viper.New()
	v.SetDefault("experiments", base.ExperimentsPath)
	v.SetDefault("results", base.ResultsPath)
	v.SetDefault("run", base.Run)
	v.SetDefault("log_format", base.LogFormat)
	v.SetDefault("log_level", base.LogLevel)
	v.SetDefault("chdir", base.Chdir)
	v.SetDefault("status_port", base.StatusPort)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}
