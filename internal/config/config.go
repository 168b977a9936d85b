// Package config loads runtime configuration from a config file,
// environment variables and command-line flags, in ascending order of
// precedence.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds everything the API server and CLI need at startup.
type Config struct {
	Port         string `mapstructure:"port"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
	SnapshotURI  string `mapstructure:"snapshot_uri"`
	QueueSize    int    `mapstructure:"queue_size"`
}

// Build loads configuration. cfgFile may be empty, in which case only
// defaults, a .env file in the working directory and the process
// environment are consulted. flags, when non-nil, override everything
// else.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Populate the process environment from .env before viper reads it.
	// A missing .env is not an error.
	_ = gotenv.Load()

	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("model", "gemini-2.5-flash")
	v.SetDefault("snapshot_uri", "")
	v.SetDefault("queue_size", 100)

	v.AutomaticEnv()
	if err := v.BindEnv("gemini_api_key", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if err := v.BindEnv("port", "PORT"); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if err := v.BindEnv("model", "GEMINI_MODEL"); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if err := v.BindEnv("snapshot_uri", "SNAPSHOT_URI"); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if err := v.BindEnv("queue_size", "QUEUE_SIZE"); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Build: read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Build: unmarshal config: %w", err)
	}

	return &cfg, nil
}
