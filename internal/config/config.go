package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides, e.g. TP__SERVER__PORT=9090
const EnvPrefix = "TP__"

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Trail   TrailConfig   `yaml:"trail" koanf:"trail"`
	Planner PlannerConfig `yaml:"planner" koanf:"planner"`
	Cache   CacheConfig   `yaml:"cache" koanf:"cache"`
	Store   StoreConfig   `yaml:"store" koanf:"store"`
	Logging LoggingConfig `yaml:"logging" koanf:"logging"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Port        int      `yaml:"port" koanf:"port"`
	CorsOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// TrailConfig says where the track and accommodation catalog come from.
// Sources are file paths or http(s) URLs.
type TrailConfig struct {
	TrackSource     string        `yaml:"track_source" koanf:"track_source"`
	TrackFormat     string        `yaml:"track_format" koanf:"track_format"` // geojson, gpx, polyline; empty detects from the source
	CatalogSource   string        `yaml:"catalog_source" koanf:"catalog_source"`
	RefreshInterval time.Duration `yaml:"refresh_interval" koanf:"refresh_interval"`
	HTTPTimeout     time.Duration `yaml:"http_timeout" koanf:"http_timeout"`
}

// PlannerConfig holds the accessibility classification distances
type PlannerConfig struct {
	OnTrailThresholdM   float64 `yaml:"on_trail_threshold_m" koanf:"on_trail_threshold_m"`
	NearTrailThresholdM float64 `yaml:"near_trail_threshold_m" koanf:"near_trail_threshold_m"`
}

// CacheConfig selects the snapshot cache backend
type CacheConfig struct {
	Backend       string        `yaml:"backend" koanf:"backend"` // memory or redis
	RedisAddr     string        `yaml:"redis_addr" koanf:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" koanf:"redis_password"`
	TTL           time.Duration `yaml:"ttl" koanf:"ttl"`
}

// StoreConfig selects where saved plans live
type StoreConfig struct {
	Driver string `yaml:"driver" koanf:"driver"` // sqlite, postgres or none
	DSN    string `yaml:"dsn" koanf:"dsn"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CorsOrigins: []string{"*"},
		},
		Trail: TrailConfig{
			TrackSource:     "data/track.geojson",
			CatalogSource:   "data/accommodations.json",
			RefreshInterval: 30 * time.Minute, // source data changes rarely
			HTTPTimeout:     30 * time.Second,
		},
		Planner: PlannerConfig{
			OnTrailThresholdM:   100,
			NearTrailThresholdM: 1000,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       time.Hour,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "trailplanner.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (skipped when empty or missing), applies
// TP__ environment overrides and decodes the result over DefaultConfig.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps TP__TRAIL__TRACK_SOURCE to trail.track_source
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks values that would otherwise fail later at wiring time
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Trail.TrackSource == "" {
		return fmt.Errorf("trail.track_source is required")
	}
	if c.Trail.CatalogSource == "" {
		return fmt.Errorf("trail.catalog_source is required")
	}
	if c.Trail.RefreshInterval <= 0 {
		return fmt.Errorf("trail.refresh_interval must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Planner.OnTrailThresholdM < 0 || c.Planner.NearTrailThresholdM < c.Planner.OnTrailThresholdM {
		return fmt.Errorf("planner thresholds must satisfy 0 <= on_trail <= near_trail")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend %q must be memory or redis", c.Cache.Backend)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("store.driver %q must be sqlite, postgres or none", c.Store.Driver)
	}
	if c.Store.Driver != "none" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
	}
	return nil
}
