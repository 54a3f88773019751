// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer file and environment overrides on top via Load.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9480".
	Addr string `koanf:"addr" yaml:"addr"`

	// PrefsPath locates the SQLite preference store. Empty keeps
	// preferences in memory for the lifetime of the process.
	PrefsPath string `koanf:"prefs_path" yaml:"prefs_path"`

	// WindowSize sets how many recent instantaneous readings feed the
	// rolling average.
	WindowSize int `koanf:"window_size" yaml:"window_size"`

	// MinIntervalMS sets the refractory floor between taps. Intervals
	// shorter than this are rejected as bounce.
	MinIntervalMS int `koanf:"min_interval_ms" yaml:"min_interval_ms"`

	// DedupeSize sets the size of the event deduplication cache.
	DedupeSize int `koanf:"dedupe_size" yaml:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":9480",
		PrefsPath:     "tapline.db",
		WindowSize:    5,
		MinIntervalMS: 1,
		DedupeSize:    10_000,
	}
}
