// Package config defines server and client configuration and their
// layered loaders.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the gate server configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CooldownMS is the window between two grants for one identity.
	CooldownMS int `koanf:"cooldown_ms"`

	// IdentityMaxLen bounds identity length in characters.
	IdentityMaxLen int `koanf:"identity_max_len"`

	// Store selects the backend: memory or postgres.
	Store string `koanf:"store"`

	PGDSN      string `koanf:"pg_dsn"`
	PGMaxConns int    `koanf:"pg_max_conns"`

	// ShardCount configures the lock shards of the memory store.
	ShardCount int `koanf:"shard_count"`

	// CatalogPath overrides the embedded catalog.
	CatalogPath string `koanf:"catalog_path"`

	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		CooldownMS:       600_000,
		IdentityMaxLen:   50,
		Store:            StoreMemory,
		PGMaxConns:       10,
		ShardCount:       32,
		RequestTimeoutMS: 5_000,
		CORSOrigins:      "*",
		MaxBodyBytes:     64 << 10,
	}
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CooldownMS <= 0:
		return fmt.Errorf("%w: cooldown_ms must be positive", ErrInvalidConfig)
	case c.IdentityMaxLen <= 0:
		return fmt.Errorf("%w: identity_max_len must be positive", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("%w: pg_dsn is required for the postgres store", ErrInvalidConfig)
		}
		if c.PGMaxConns <= 0 {
			return fmt.Errorf("%w: pg_max_conns must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	return nil
}

// Cooldown returns CooldownMS as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// AllowedOrigins splits CORSOrigins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// ClientConfig is the terminal reel client configuration.
type ClientConfig struct {
	LogLevel string `koanf:"log_level"`

	// LogFile receives log output; the terminal is owned by the renderer.
	LogFile string `koanf:"log_file"`

	// ServerURL is the base URL of the gate server.
	ServerURL string `koanf:"server_url"`

	// Identity is the username spins are authorized for.
	Identity string `koanf:"identity"`

	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// AutosaveSchedule is a cron schedule for periodic profile saves.
	AutosaveSchedule string `koanf:"autosave_schedule"`

	// SaveQueueSize bounds pending profile snapshots.
	SaveQueueSize int `koanf:"save_queue_size"`

	// CatalogPath overrides the catalog fetched from the server.
	CatalogPath string `koanf:"catalog_path"`

	// ItemWidth is the width of one reel card in terminal cells.
	ItemWidth int `koanf:"item_width"`

	SpinDurationMS  int  `koanf:"spin_duration_ms"`
	TickCap         int  `koanf:"tick_cap"`
	Sound           bool `koanf:"sound"`
	FrameIntervalMS int  `koanf:"frame_interval_ms"`
}

// NewClient returns a ClientConfig populated with defaults.
func NewClient() *ClientConfig {
	return &ClientConfig{
		LogLevel:         "info",
		LogFile:          "gamespin-reel.log",
		ServerURL:        "http://localhost:9080",
		RequestTimeoutMS: 3_000,
		AutosaveSchedule: "@every 30s",
		SaveQueueSize:    16,
		ItemWidth:        16,
		SpinDurationMS:   5_800,
		TickCap:          8,
		Sound:            true,
		FrameIntervalMS:  16,
	}
}

// Validate checks field ranges and that AutosaveSchedule parses.
func (c *ClientConfig) Validate() error {
	switch {
	case c.ServerURL == "":
		return fmt.Errorf("%w: server_url must not be empty", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.SaveQueueSize <= 0:
		return fmt.Errorf("%w: save_queue_size must be positive", ErrInvalidConfig)
	case c.ItemWidth <= 0:
		return fmt.Errorf("%w: item_width must be positive", ErrInvalidConfig)
	case c.SpinDurationMS <= 0:
		return fmt.Errorf("%w: spin_duration_ms must be positive", ErrInvalidConfig)
	case c.TickCap <= 0:
		return fmt.Errorf("%w: tick_cap must be positive", ErrInvalidConfig)
	case c.FrameIntervalMS <= 0:
		return fmt.Errorf("%w: frame_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.AutosaveSchedule != "" {
		if _, err := cron.ParseStandard(c.AutosaveSchedule); err != nil {
			return fmt.Errorf("%w: autosave_schedule: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *ClientConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// SpinDuration returns SpinDurationMS as a duration.
func (c *ClientConfig) SpinDuration() time.Duration {
	return time.Duration(c.SpinDurationMS) * time.Millisecond
}

// FrameInterval returns FrameIntervalMS as a duration.
func (c *ClientConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}
