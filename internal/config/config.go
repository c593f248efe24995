// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file/env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// DebounceMS is the quiet period after the last edit before a save is
	// dispatched, in milliseconds.
	DebounceMS int `koanf:"debounce_ms"`

	// LocalDBPath locates the SQLite file backing guest sessions.
	LocalDBPath string `koanf:"local_db_path"`

	// PostgresURL points at the remote document store. Empty means no
	// remote backend: registered identities fall back to an in-memory
	// store (dev mode only).
	PostgresURL string `koanf:"postgres_url"`

	// DemoSeed seeds first-login guest documents with demonstration data.
	DemoSeed bool `koanf:"demo_seed"`

	// GuestID is the anonymous identity activated at startup. Empty
	// disables the automatic guest session.
	GuestID string `koanf:"guest_id"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":8090",
		DebounceMS:  800,
		LocalDBPath: "fintrack.db",
		DemoSeed:    true,
		GuestID:     "guest",
	}
}
