package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100.0, cfg.Planner.OnTrailThresholdM)
	assert.Equal(t, 1000.0, cfg.Planner.NearTrailThresholdM)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Trail.HTTPTimeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trailplanner.yaml")
	doc := `
server:
  port: 9000
  cors_origins: ["https://example.org"]
trail:
  track_source: https://example.org/tmb.gpx
  track_format: gpx
  refresh_interval: 5m
planner:
  near_trail_threshold_m: 750
cache:
  backend: redis
  redis_addr: redis:6379
store:
  driver: postgres
  dsn: postgres://planner@db/plans
logging:
  level: debug
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://example.org"}, cfg.Server.CorsOrigins)
	assert.Equal(t, "gpx", cfg.Trail.TrackFormat)
	assert.Equal(t, 5*time.Minute, cfg.Trail.RefreshInterval)
	assert.Equal(t, "data/accommodations.json", cfg.Trail.CatalogSource, "unset keys keep defaults")
	assert.Equal(t, 100.0, cfg.Planner.OnTrailThresholdM)
	assert.Equal(t, 750.0, cfg.Planner.NearTrailThresholdM)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Logging.Development)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TP__SERVER__PORT", "9191")
	t.Setenv("TP__TRAIL__CATALOG_SOURCE", "/srv/huts.geojson")
	t.Setenv("TP__STORE__DRIVER", "none")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/srv/huts.geojson", cfg.Trail.CatalogSource)
	assert.Equal(t, "none", cfg.Store.Driver)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: memcached\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Planner.OnTrailThresholdM = 2000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg.Store.Driver = "none"
	assert.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Cache.TTL = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Trail.RefreshInterval = -time.Minute
	assert.Error(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "trail.track_source", envKey("TP__TRAIL__TRACK_SOURCE"))
	assert.Equal(t, "cache.ttl", envKey("TP__CACHE__TTL"))
}
