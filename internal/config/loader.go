// Package config provides centralized configuration management. Defaults
// are registered on a viper instance, which layers the config file,
// OASIS_ environment variables and bound flags on top; the merged settings
// are decoded into Config with mapstructure.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/oasislearninghub/oasis/internal/appid"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("health.enabled", true)
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)

	v.SetDefault("ingress.enabled", true)
	v.SetDefault("ingress.rps", 10.0)
	v.SetDefault("ingress.burst", 20)
	v.SetDefault("ingress.client_ttl", "10m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "oasis:gate")
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("redis.buffer", 256)

	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.reap_interval", "1m")
	v.SetDefault("session.slides", 4)
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.primary_buttons", []string{"Enroll Now", "Learn More"})

	v.SetDefault("carousel.autoplay", true)
	v.SetDefault("carousel.interval", "4s")
	v.SetDefault("carousel.resume_delay", "5s")
	v.SetDefault("carousel.swipe_threshold", 50.0)

	v.SetDefault("notice.dismiss_after", "5s")

	v.SetDefault("control.token", "")

	v.SetDefault("rate_limits", map[string]any{})
}

// ConfigureEnv makes v read OASIS_SECTION_KEY environment variables.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(appid.Get().ViperPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	ConfigureEnv(v)
	return v
}

// LoadFrom decodes the settings held by v, applies runtime overrides and
// validates the result. The loaded config becomes the process config.
func LoadFrom(v *viper.Viper, overrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = New()
	}
	for _, o := range overrides {
		for key, value := range o {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", "libsql", "sqlite":
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Ingress.Enabled && (c.Ingress.RPS <= 0 || c.Ingress.Burst <= 0) {
		return fmt.Errorf("ingress rps and burst must be positive")
	}
	if c.Carousel.SwipeThreshold < 0 {
		return fmt.Errorf("carousel swipe threshold must not be negative")
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	return nil
}

// Policies resolves the gate policies with the configured overrides.
func (c *Config) Policies() (ratelimit.Policies, error) {
	return ratelimit.Resolve(c.RateLimits)
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.Get().ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	id := appid.Get()
	dataDir := gfconfig.GetAppDataDir(id.ConfigName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + id.BinaryName + ".db"
	}
	return filepath.Join(dataDir, id.BinaryName+".db")
}
