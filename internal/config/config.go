// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and LOMBA_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig; loading failures wrap ErrLoadConfig.
package config

import (
	"runtime"
	"time"

	"github.com/okian/lomba/internal/domain/ranking"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory score sheet queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size" validate:"min=0"`

	// FlagshipName is the competition awarding 3/2/1 gold.
	FlagshipName string `koanf:"flagship_name" validate:"required"`

	// MaxMark bounds a single criterion mark; 0 disables the check.
	MaxMark float64 `koanf:"max_mark" validate:"min=0"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"min=1"`

	// StoreBackend selects where competitions, teams and scores live.
	StoreBackend string `koanf:"store_backend" validate:"oneof=memory mongo"`

	// MongoURI and MongoDatabase are required for the mongo backend.
	MongoURI      string `koanf:"mongo_uri" validate:"required_if=StoreBackend mongo"`
	MongoDatabase string `koanf:"mongo_database" validate:"required_if=StoreBackend mongo"`

	// StoreTimeoutMS bounds a single store query.
	StoreTimeoutMS int `koanf:"store_timeout_ms" validate:"min=1"`

	// SubmitRatePerSec limits POST /scores; 0 disables the limit.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec" validate:"min=0"`
	SubmitBurst      int     `koanf:"submit_burst" validate:"min=1"`

	// DashboardRefreshSeconds is the dashboard polling interval.
	DashboardRefreshSeconds int `koanf:"dashboard_refresh_seconds" validate:"min=1"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		DedupeSize:              50_000,
		FlagshipName:            ranking.DefaultFlagshipName,
		MaxMark:                 0,
		MaxLeaderboardLimit:     1000,
		StoreBackend:            StoreMemory,
		MongoDatabase:           "lomba",
		StoreTimeoutMS:          5000,
		SubmitRatePerSec:        0,
		SubmitBurst:             200,
		DashboardRefreshSeconds: 5,
	}
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// DashboardRefresh returns DashboardRefreshSeconds as a duration.
func (c *Config) DashboardRefresh() time.Duration {
	return time.Duration(c.DashboardRefreshSeconds) * time.Second
}
