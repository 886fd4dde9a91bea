// Package config defines the detective core configuration and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and DETECTIVE_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"runtime"
)

// Store drivers understood by StoreDriver.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// StoreDriver selects the key-value backend: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the SQLite database file used by the sqlite driver.
	StorePath string `koanf:"store_path"`

	// FlushDelayMS is the quiescence delay before staged writes are flushed.
	// Zero writes through immediately.
	FlushDelayMS int `koanf:"flush_delay_ms"`

	// RelayURL is the remote collector endpoint. Empty disables the relay.
	RelayURL string `koanf:"relay_url"`

	// RelayTimeoutMS bounds a single relay POST.
	RelayTimeoutMS int `koanf:"relay_timeout_ms"`

	// RelayQueueSize bounds the in-memory relay queue.
	RelayQueueSize int `koanf:"relay_queue_size"`

	// RelayWorkerCount sets the number of relay workers.
	RelayWorkerCount int `koanf:"relay_worker_count"`

	// RelayDedupeSize sets how many relayed ids are remembered.
	RelayDedupeSize int `koanf:"relay_dedupe_size"`

	// RunnerTimeoutMS bounds an interpreter run. Zero means no timeout.
	RunnerTimeoutMS int `koanf:"runner_timeout_ms"`

	// DefaultAgent and DefaultGroup name the player when no other identity
	// source resolves one.
	DefaultAgent string `koanf:"default_agent"`
	DefaultGroup string `koanf:"default_group"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		StoreDriver:      StoreMemory,
		StorePath:        "detective.db",
		FlushDelayMS:     250,
		RelayURL:         "",
		RelayTimeoutMS:   5000,
		RelayQueueSize:   1024,
		RelayWorkerCount: runtime.NumCPU(),
		RelayDedupeSize:  10_000,
		RunnerTimeoutMS:  0,
	}
}
