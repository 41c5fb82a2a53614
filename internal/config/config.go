// Package config loads runtime configuration from an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/justestif/sparkify-etl/internal/etl"
)

// DefaultDatabaseURL is the local development database.
const DefaultDatabaseURL = "host=127.0.0.1 dbname=sparkifydb user=student password=student"

// DefaultAdminURL is the maintenance database used to create sparkifydb.
const DefaultAdminURL = "host=127.0.0.1 dbname=studentdb user=student password=student"

// Environment variables that override file values.
const (
	envDatabaseURL = "DATABASE_URL"
	envAdminURL    = "SPARKIFY_ADMIN_DATABASE_URL"
	envSongData    = "SPARKIFY_SONG_DATA"
	envLogData     = "SPARKIFY_LOG_DATA"
	envErrorPolicy = "SPARKIFY_ERROR_POLICY"
	envLogLevel    = "SPARKIFY_LOG_LEVEL"
	envLogFormat   = "SPARKIFY_LOG_FORMAT"
	envListen      = "SPARKIFY_LISTEN"
	envTracing     = "SPARKIFY_TRACING"
)

// Sentinel errors.
var (
	// ErrMissingDatabaseURL is returned when no database URL is configured.
	ErrMissingDatabaseURL = errors.New("missing database URL (set DATABASE_URL or database_url)")

	// ErrMissingDataDir is returned when a data directory is empty.
	ErrMissingDataDir = errors.New("missing data directory")
)

// Config holds the settings shared by all commands.
type Config struct {
	DatabaseURL  string `yaml:"database_url"`
	AdminURL     string `yaml:"admin_database_url"`
	DatabaseName string `yaml:"database_name"`
	SongDataDir  string `yaml:"song_data"`
	LogDataDir   string `yaml:"log_data"`
	ErrorPolicy  string `yaml:"error_policy"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	Listen       string `yaml:"listen"`
	Tracing      bool   `yaml:"tracing"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DatabaseURL:  DefaultDatabaseURL,
		AdminURL:     DefaultAdminURL,
		DatabaseName: "sparkifydb",
		SongDataDir:  "data/song_data",
		LogDataDir:   "data/log_data",
		ErrorPolicy:  string(etl.FailFast),
		LogLevel:     "info",
		LogFormat:    "text",
		Listen:       "127.0.0.1:8080",
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.SongDataDir == "" {
		return fmt.Errorf("%w: song_data", ErrMissingDataDir)
	}
	if c.LogDataDir == "" {
		return fmt.Errorf("%w: log_data", ErrMissingDataDir)
	}
	if _, err := etl.ParseErrorPolicy(c.ErrorPolicy); err != nil {
		return err
	}
	return nil
}

// Policy returns the parsed error policy.
func (c *Config) Policy() etl.ErrorPolicy {
	policy, err := etl.ParseErrorPolicy(c.ErrorPolicy)
	if err != nil {
		return etl.FailFast
	}
	return policy
}

func applyEnv(cfg *Config) error {
	overrides := []struct {
		env string
		dst *string
	}{
		{envDatabaseURL, &cfg.DatabaseURL},
		{envAdminURL, &cfg.AdminURL},
		{envSongData, &cfg.SongDataDir},
		{envLogData, &cfg.LogDataDir},
		{envErrorPolicy, &cfg.ErrorPolicy},
		{envLogLevel, &cfg.LogLevel},
		{envLogFormat, &cfg.LogFormat},
		{envListen, &cfg.Listen},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv(envTracing); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", envTracing, err)
		}
		cfg.Tracing = enabled
	}
	return nil
}
