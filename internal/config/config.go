package config

import (
	"time"

	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

// Config represents the complete application configuration. Values come
// from, in increasing precedence: built-in defaults, the config file,
// OASIS_ environment variables and command-line flags.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Ingress  IngressConfig  `mapstructure:"ingress"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Carousel CarouselConfig `mapstructure:"carousel"`
	Notice   NoticeConfig   `mapstructure:"notice"`
	Control  ControlConfig  `mapstructure:"control"`

	// RateLimits overrides the built-in gate policies by name.
	RateLimits map[string]ratelimit.Override `mapstructure:"rate_limits"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the enrollment database. Driver is libsql (local file
// or Turso URL) or sqlite (pure Go, local file only).
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level (simple, structured)
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// IngressConfig is the per-client token bucket in front of /v1.
type IngressConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
	// ClientTTL is how long an idle client's bucket is kept.
	ClientTTL time.Duration `mapstructure:"client_ttl"`
}

// RedisConfig points gate statistics at Redis. An empty Addr keeps them in
// memory.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Buffer   int           `mapstructure:"buffer"`
}

// SessionConfig controls page sessions.
type SessionConfig struct {
	IdleTTL      time.Duration `mapstructure:"idle_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	Slides       int           `mapstructure:"slides"`
	MaxSessions  int           `mapstructure:"max_sessions"`
	// PrimaryButtons lists the labels of primary buttons whose clicks are tracked.
	PrimaryButtons []string `mapstructure:"primary_buttons"`
}

// CarouselConfig tunes the carousel timers and gesture dead zone.
type CarouselConfig struct {
	Autoplay       bool          `mapstructure:"autoplay"`
	Interval       time.Duration `mapstructure:"interval"`
	ResumeDelay    time.Duration `mapstructure:"resume_delay"`
	SwipeThreshold float64       `mapstructure:"swipe_threshold"`
}

// NoticeConfig controls the notice surface.
type NoticeConfig struct {
	DismissAfter time.Duration `mapstructure:"dismiss_after"`
}

// ControlConfig guards the signal control endpoints.
type ControlConfig struct {
	Token string `mapstructure:"token"`
}
