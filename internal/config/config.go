// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pocketledger/tally/internal/dedupe"
	"github.com/pocketledger/tally/internal/recurring"
)

// Config is the application configuration, loaded from Viper and
// environment variables.
type Config struct {
	DatabasePath            string
	UserID                  string
	LogLevel                string
	LogFormat               string
	DedupeTieBreak          string
	DedupeWindowDays        int
	DedupeSimilarity        float64
	RecurringMinOccurrences int
	SuggestionLimit         int
}

// Load reads configuration with this precedence:
// 1. Viper configuration (from config file or TALLY_ env vars)
// 2. Direct environment variables
// 3. Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:            ExpandPath(viper.GetString("database.path")),
		UserID:                  viper.GetString("user"),
		LogLevel:                viper.GetString("log.level"),
		LogFormat:               viper.GetString("log.format"),
		DedupeTieBreak:          viper.GetString("dedupe.tie_break"),
		DedupeWindowDays:        viper.GetInt("dedupe.window_days"),
		DedupeSimilarity:        viper.GetFloat64("dedupe.similarity"),
		RecurringMinOccurrences: viper.GetInt("recurring.min_occurrences"),
		SuggestionLimit:         viper.GetInt("suggest.limit"),
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = ExpandPath(os.Getenv("TALLY_DATABASE_PATH"))
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath()
	}
	if cfg.UserID == "" {
		cfg.UserID = os.Getenv("TALLY_USER")
	}
	if cfg.UserID == "" {
		cfg.UserID = "local"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DedupeTieBreak {
	case "", "keep-existing", "keep-incoming":
		return nil
	default:
		return fmt.Errorf("invalid dedupe.tie_break %q: must be keep-existing or keep-incoming", c.DedupeTieBreak)
	}
}

// DedupeConfig returns the duplicate-detection thresholds with any
// configured overrides applied.
func (c *Config) DedupeConfig() dedupe.Config {
	cfg := dedupe.DefaultConfig()
	if c.DedupeTieBreak == "keep-incoming" {
		cfg.TieBreak = dedupe.KeepIncoming
	}
	if c.DedupeWindowDays > 0 {
		cfg.WindowDays = c.DedupeWindowDays
	}
	if c.DedupeSimilarity > 0 {
		cfg.SimilarityThreshold = c.DedupeSimilarity
	}
	return cfg
}

// RecurringConfig returns the pattern-mining thresholds with any
// configured overrides applied.
func (c *Config) RecurringConfig() recurring.Config {
	cfg := recurring.DefaultConfig()
	if c.RecurringMinOccurrences > 0 {
		cfg.MinOccurrences = c.RecurringMinOccurrences
	}
	return cfg
}

// DefaultDatabasePath returns the default SQLite database location.
func DefaultDatabasePath() string {
	return ExpandPath("~/.local/share/tally/tally.db")
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
