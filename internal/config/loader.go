package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const maxMode = 2

// Environment variables that locate config sources.
const (
	EnvPrefix  = "JMSCORE_"
	EnvConfig  = "JMSCORE_CONFIG"
	EnvDotFile = "JMSCORE_ENV_FILE"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if JMSCORE_CONFIG is set
//  3. env (prefix JMSCORE_), where a .env file only fills unset variables
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	dotenv := os.Getenv(EnvDotFile)
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, dotenv, err)
	}

	// JMSCORE_QUEUE_SIZE -> queue_size (flat keys matching the koanf tags).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	for _, m := range c.Modes {
		if m < 0 || m > maxMode {
			return fmt.Errorf("%w: mode %d is not 0, 1 or 2", ErrInvalidConfig, m)
		}
	}
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !strings.HasPrefix(c.RoutePrefix, "/"):
		return fmt.Errorf("%w: route_prefix must start with /", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WriterCount < 1:
		return fmt.Errorf("%w: writer_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.MaxScore < 0:
		return fmt.Errorf("%w: max_score must not be negative", ErrInvalidConfig)
	case c.ReaderConns < 0:
		return fmt.Errorf("%w: reader_conns must not be negative", ErrInvalidConfig)
	case c.BusyTimeout < 0:
		return fmt.Errorf("%w: busy_timeout must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	case c.MaxReplayBytes < 1:
		return fmt.Errorf("%w: max_replay_bytes must be positive", ErrInvalidConfig)
	case c.DataDir == "" && (c.DBPath == "" || c.ReplayDir == ""):
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	return nil
}
