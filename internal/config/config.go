// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, an optional .env file and
//   the process environment.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"path/filepath"
	"time"
)

// Default values.
const (
	DefaultAddr        = ":8081"
	DefaultRoutePrefix = "/JM_test/service"
	DefaultMOTD        = "Jewelry Master Server Emulator by Hipnosis, 2022"

	defaultDBFile    = "jmscore.db"
	defaultReplayDir = "rep"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" output.
	LogFormat string `koanf:"log_format"`

	// LogFile, when set, also writes logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8081".
	Addr string `koanf:"addr"`

	// RoutePrefix is the path under which the game operations are served.
	RoutePrefix string `koanf:"route_prefix"`

	// DataDir is the base directory for the database and replays.
	DataDir string `koanf:"data_dir"`

	// DBPath overrides the database location (default <data_dir>/jmscore.db).
	DBPath string `koanf:"db_path"`

	// ReplayDir overrides the replay directory (default <data_dir>/rep).
	ReplayDir string `koanf:"replay_dir"`

	// Register creates accounts on first login.
	Register bool `koanf:"register"`

	// MultiScores keeps every submission on the global leaderboard instead
	// of only each player's best per mode.
	MultiScores bool `koanf:"multi_scores"`

	// NoScores disables score submission.
	NoScores bool `koanf:"no_scores"`

	// RejectEmptyID refuses registration of the empty player id.
	RejectEmptyID bool `koanf:"reject_empty_id"`

	// ReplayCompression stores new replays as zstd frames.
	ReplayCompression bool `koanf:"replay_compression"`

	// MaxReplayBytes caps the ScoreEntry request body.
	MaxReplayBytes int64 `koanf:"max_replay_bytes"`

	// QueueSize bounds each writer's submission queue.
	QueueSize int `koanf:"queue_size"`

	// WriterCount sets the number of submission writers.
	WriterCount int `koanf:"writer_count"`

	// DedupeSize bounds the cache of retry tokens (X-Submission-Id);
	// 0 disables it.
	DedupeSize int `koanf:"dedupe_size"`

	// Modes lists the accepted game modes; empty accepts all three.
	Modes []int `koanf:"modes"`

	// MaxScore lowers the accepted score ceiling; 0 keeps the game's.
	MaxScore int64 `koanf:"max_score"`

	// ReaderConns sizes the database read pool; 0 keeps the store default.
	ReaderConns int `koanf:"reader_conns"`

	// BusyTimeout is how long a database connection waits on a lock;
	// 0 keeps the store default.
	BusyTimeout time.Duration `koanf:"busy_timeout"`

	// MOTD is returned by GetMessage.
	MOTD string `koanf:"motd"`

	// MetricsEnabled exposes metrics on /healthz.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshInterval sets how often store and system gauges refresh.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           DefaultAddr,
		RoutePrefix:    DefaultRoutePrefix,
		DataDir:        "data",
		Register:       true,
		MaxReplayBytes: 4 << 20,
		QueueSize:      1024,
		WriterCount:    1,
		DedupeSize:     10_000,
		MOTD:           DefaultMOTD,

		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// DatabasePath returns the resolved database file path.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, defaultDBFile)
}

// ReplayPath returns the resolved replay directory.
func (c *Config) ReplayPath() string {
	if c.ReplayDir != "" {
		return c.ReplayDir
	}
	return filepath.Join(c.DataDir, defaultReplayDir)
}
