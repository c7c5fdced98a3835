// Package config loads the two configuration concerns a host driver
// needs: runtime file paths (this file, via viper + an optional .env
// preload) and market-bootstrap fixtures (markets.go, via yaml.v3
// directly). Neither ever feeds a value into margin math, rounding, or
// ordering — config only selects file paths and log destinations, so
// no environment variable can change what a replayed log computes.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the host runtime configuration: where the durable event log
// lives, where the snapshot store lives, and where process logs go.
// Grounded on 0xtitan6-polymarket-mm/internal/config.Config's
// YAML-plus-env-override shape, scaled down to this engine's much
// smaller surface.
type Config struct {
	EventLogPath  string `mapstructure:"event_log_path"`
	SnapshotDBDir string `mapstructure:"snapshot_db_dir"`
	LogFilePath   string `mapstructure:"log_file_path"`
	MarketsPath   string `mapstructure:"markets_path"`
}

func defaults() Config {
	return Config{
		EventLogPath:  "data/events.ndjson",
		SnapshotDBDir: "data/snapshots",
		LogFilePath:   "",
		MarketsPath:   "configs/markets.yaml",
	}
}

// Load reads configuration from the YAML file at path (a missing or
// unreadable file is an error), then applies RISK_*-prefixed environment variable overrides: ENV wins
// over file, file wins over defaults. envFile, if non-empty, is
// preloaded with godotenv before the environment is read. An empty path
// skips the file read entirely and returns defaults overridden only by
// the environment.
func Load(path string, envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaults()
	v.SetDefault("event_log_path", def.EventLogPath)
	v.SetDefault("snapshot_db_dir", def.SnapshotDBDir)
	v.SetDefault("log_file_path", def.LogFilePath)
	v.SetDefault("markets_path", def.MarketsPath)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the event log, snapshot store and markets paths
// are non-empty; the log file path may be empty. It does not check
// filesystem existence — missing files/directories are created by the
// components that own them (eventlog.NewWriter, snapshot.Open).
func (c *Config) Validate() error {
	if c.EventLogPath == "" {
		return fmt.Errorf("config: event_log_path is required")
	}
	if c.SnapshotDBDir == "" {
		return fmt.Errorf("config: snapshot_db_dir is required")
	}
	if c.MarketsPath == "" {
		return fmt.Errorf("config: markets_path is required")
	}
	return nil
}
