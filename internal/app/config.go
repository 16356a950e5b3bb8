package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/aryan-mod/suraksha-setu/internal/cache"
	"github.com/aryan-mod/suraksha-setu/internal/database"
)

// Config represents the runtime configuration for the Suraksha Setu backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Push        PushConfig        `mapstructure:"push"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
// Demo mode runs the whole service without a database.
type DatabaseConfig struct {
	Demo     bool         `mapstructure:"demo"`
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// CredentialsMissing reports whether a host-based backend is selected
// without the credentials needed to reach it. The service degrades to
// demo mode in that case instead of refusing to start.
func (d DatabaseConfig) CredentialsMissing() bool {
	if d.Demo || d.DSN != "" {
		return false
	}
	switch {
	case d.Postgres.Enabled:
		return d.Postgres.Username == "" || d.Postgres.Database == ""
	case d.MySQL.Enabled:
		return d.MySQL.Username == "" || d.MySQL.Database == ""
	case strings.EqualFold(d.Driver, "postgres"), strings.EqualFold(d.Driver, "mysql"):
		return true
	}
	return false
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes the cache tiers and per-namespace bounds.
type CacheConfig struct {
	// Persistent mirrors writes into the database-backed tier so cached
	// entries survive restarts.
	Persistent bool `mapstructure:"persistent"`

	Static  NamespaceBounds `mapstructure:"static"`
	API     NamespaceBounds `mapstructure:"api"`
	Dynamic NamespaceBounds `mapstructure:"dynamic"`

	NetworkTimeout time.Duration `mapstructure:"network_timeout"`
}

// NamespaceBounds overrides one cache namespace's capacity and lifetime.
type NamespaceBounds struct {
	MaxEntries int           `mapstructure:"max_entries"`
	MaxAge     time.Duration `mapstructure:"max_age"`
}

// RateLimitConfig controls the sliding-window admission limiter.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// PushConfig selects and tunes the push transport.
type PushConfig struct {
	// Transport is "http" for webhook-style delivery or "log" to only
	// record deliveries, which demo deployments use.
	Transport string        `mapstructure:"transport"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SyncConfig tunes replay queue behaviour.
type SyncConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

// MaintenanceConfig holds cron specifications for background sweeps.
type MaintenanceConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	NotificationSchedule string `mapstructure:"notification_schedule"`
	CacheSchedule        string `mapstructure:"cache_schedule"`
	LimiterSchedule      string `mapstructure:"limiter_schedule"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SURAKSHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// DatabaseSettings converts the configuration into the database package's
// connection settings.
func (c *Config) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	switch {
	case c.Database.Postgres.Enabled:
		cfg.Driver = "postgres"
		cfg.Host = c.Database.Postgres.Host
		cfg.Port = c.Database.Postgres.Port
		cfg.Name = c.Database.Postgres.Database
		cfg.User = c.Database.Postgres.Username
		cfg.Password = c.Database.Postgres.Password
	case c.Database.MySQL.Enabled:
		cfg.Driver = "mysql"
		cfg.Host = c.Database.MySQL.Host
		cfg.Port = c.Database.MySQL.Port
		cfg.Name = c.Database.MySQL.Database
		cfg.User = c.Database.MySQL.Username
		cfg.Password = c.Database.MySQL.Password
	}

	return cfg
}

// CacheNamespaces merges configured overrides onto the built-in topology.
func (c *Config) CacheNamespaces() []cache.NamespaceConfig {
	overrides := map[string]NamespaceBounds{
		cache.NamespaceStatic:  c.Cache.Static,
		cache.NamespaceAPI:     c.Cache.API,
		cache.NamespaceDynamic: c.Cache.Dynamic,
	}

	configs := cache.DefaultNamespaces()
	for i, cfg := range configs {
		bounds, ok := overrides[cfg.Name]
		if !ok {
			continue
		}
		if bounds.MaxEntries > 0 {
			configs[i].MaxEntries = bounds.MaxEntries
		}
		if bounds.MaxAge > 0 {
			configs[i].MaxAge = bounds.MaxAge
		}
	}
	return configs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.demo", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/suraksha.sqlite")

	v.SetDefault("cache.persistent", true)
	v.SetDefault("cache.network_timeout", "10s")
	v.SetDefault("cache.static.max_entries", 60)
	v.SetDefault("cache.static.max_age", "168h")
	v.SetDefault("cache.api.max_entries", 100)
	v.SetDefault("cache.api.max_age", "1h")
	v.SetDefault("cache.dynamic.max_entries", 50)
	v.SetDefault("cache.dynamic.max_age", "5m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("push.transport", "log")
	v.SetDefault("push.timeout", "10s")

	v.SetDefault("sync.max_attempts", 5)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.notification_schedule", "@hourly")
	v.SetDefault("maintenance.cache_schedule", "@hourly")
	v.SetDefault("maintenance.limiter_schedule", "@hourly")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
