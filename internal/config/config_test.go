package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/adalia-navigator/timectrl"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "navigator.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
	m, err := cfg.Clock.Mapping()
	if err != nil {
		t.Fatalf("Mapping: %v", err)
	}
	want := timectrl.DefaultMapping()
	if !m.Epoch.Equal(want.Epoch) || m.SecondsPerDay != want.SecondsPerDay {
		t.Fatalf("default mapping = %+v, want %+v", m, want)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
grpc_addr = "127.0.0.1:6000"

[catalog]
source = "s3"

[catalog.s3]
region = "eu-central-1"
bucket = "belt"
key = "asteroids_20210917.json"

[planner]
exhaustive_limit = 6

[cache]
backend = "redis"
ttl = "45s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GRPCAddr != "127.0.0.1:6000" || cfg.Server.MetricsAddr != ":9090" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Catalog.Source != "s3" || cfg.Catalog.S3.Source().Bucket != "belt" {
		t.Fatalf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Planner.ExhaustiveLimit != 6 || cfg.Planner.TransferSpeed != 0.05 {
		t.Fatalf("planner = %+v", cfg.Planner)
	}
	if cfg.Cache.TTL.Duration != 45*time.Second {
		t.Fatalf("cache ttl = %v, want 45s", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[planner]\nexhaustive_limt = 3\n")
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Path != "asteroids.json" {
		t.Fatalf("catalog path = %q", cfg.Catalog.Path)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NAVIGATOR_GRPC_ADDR", ":7000")
	t.Setenv("NAVIGATOR_CATALOG_SOURCE", "postgres")
	t.Setenv("NAVIGATOR_POSTGRES_DSN", "postgres://belt@localhost/adalia")
	t.Setenv("NAVIGATOR_CLOCK_SECONDS_PER_DAY", "60")
	t.Setenv("NAVIGATOR_CACHE_TTL", "5m")
	t.Setenv("NAVIGATOR_EXHAUSTIVE_LIMIT", "not-a-number")
	t.Setenv("NAVIGATOR_TRACING_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GRPCAddr != ":7000" || cfg.Catalog.Source != "postgres" || cfg.Catalog.Postgres.DSN == "" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Clock.SecondsPerDay != 60 || cfg.Cache.TTL.Duration != 5*time.Minute {
		t.Fatalf("clock/cache = %+v / %+v", cfg.Clock, cfg.Cache)
	}
	if cfg.Planner.ExhaustiveLimit != 8 {
		t.Fatalf("unparseable override changed exhaustive_limit to %d", cfg.Planner.ExhaustiveLimit)
	}
	if !cfg.Tracing.Enabled {
		t.Fatalf("tracing override not applied")
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Log.Level = "loud"
	cfg.Catalog.Source = "ftp"
	cfg.Clock.SecondsPerDay = 0
	cfg.Planner.TransferSpeed = -1
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = ""
	cfg.RateLimit.Burst = 0

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	for _, want := range []string{"log:", "catalog:", "clock:", "planner:", "cache.redis:", "rate_limit:"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateSourceRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.Catalog.Source = "s3"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "catalog.s3") {
		t.Fatalf("s3 without bucket: err = %v", err)
	}
	cfg.Catalog.Source = "postgres"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "catalog.postgres") {
		t.Fatalf("postgres without dsn: err = %v", err)
	}
}

func TestMaxOrbitSamplesBoundsDefault(t *testing.T) {
	cfg := Defaults()
	if cfg.Propagation.MaxOrbitSamples <= cfg.Propagation.OrbitSamples {
		t.Fatalf("default max_orbit_samples %d not above orbit_samples %d", cfg.Propagation.MaxOrbitSamples, cfg.Propagation.OrbitSamples)
	}
	cfg.Propagation.MaxOrbitSamples = cfg.Propagation.OrbitSamples - 1
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), "max_orbit_samples") {
		t.Fatalf("err = %v, want max_orbit_samples complaint", err)
	}

	t.Setenv("NAVIGATOR_MAX_ORBIT_SAMPLES", "2048")
	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Propagation.MaxOrbitSamples != 2048 {
		t.Fatalf("max_orbit_samples = %d, want 2048", loaded.Propagation.MaxOrbitSamples)
	}
}

func TestWarmOrbitsNeedsWorkers(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.WarmOrbits = true
	cfg.Cache.WarmWorkers = 0
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), "warm_workers") {
		t.Fatalf("err = %v, want warm_workers complaint", err)
	}
}
