// Package config defines the navigator's configuration and its validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/adalia-navigator/core"
	"github.com/signalsfoundry/adalia-navigator/internal/logging"
	"github.com/signalsfoundry/adalia-navigator/internal/observability"
	"github.com/signalsfoundry/adalia-navigator/kb"
	"github.com/signalsfoundry/adalia-navigator/timectrl"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration, decoded from TOML and then overridden
// by NAVIGATOR_* environment variables.
type Config struct {
	Server      ServerConfig                `toml:"server"`
	Log         LogConfig                   `toml:"log"`
	Tracing     observability.TracingConfig `toml:"tracing"`
	Catalog     CatalogConfig               `toml:"catalog"`
	Clock       ClockConfig                 `toml:"clock"`
	Propagation PropagationConfig           `toml:"propagation"`
	Planner     PlannerConfig               `toml:"planner"`
	Cache       CacheConfig                 `toml:"cache"`
	RateLimit   RateLimitConfig             `toml:"rate_limit"`
}

type ServerConfig struct {
	GRPCAddr        string   `toml:"grpc_addr"`
	MetricsAddr     string   `toml:"metrics_addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	AddSource bool   `toml:"add_source"`
}

// Logging converts the section to a logger config.
func (c LogConfig) Logging() logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format, AddSource: c.AddSource}
}

// CatalogConfig selects where bodies are loaded from.
type CatalogConfig struct {
	Source   string         `toml:"source"` // file | s3 | postgres
	Path     string         `toml:"path"`
	S3       S3Config       `toml:"s3"`
	Postgres PostgresConfig `toml:"postgres"`
}

type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Key            string `toml:"key"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Source converts the section to a kb.S3Config.
func (c S3Config) Source() kb.S3Config {
	return kb.S3Config{
		Endpoint:       c.Endpoint,
		Region:         c.Region,
		Bucket:         c.Bucket,
		Key:            c.Key,
		AccessKey:      c.AccessKey,
		SecretKey:      c.SecretKey,
		ForcePathStyle: c.ForcePathStyle,
	}
}

type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	Table    string `toml:"table"`
	MaxConns int    `toml:"max_conns"`
}

// ClockConfig is the wall-clock to Adalia-day mapping.
type ClockConfig struct {
	EpochUnix     int64   `toml:"epoch_unix"`
	SecondsPerDay float64 `toml:"seconds_per_day"`
}

// Mapping builds the timectrl mapping for the section.
func (c ClockConfig) Mapping() (timectrl.Mapping, error) {
	return timectrl.NewMapping(c.EpochUnix, c.SecondsPerDay)
}

type PropagationConfig struct {
	OrbitSamples    int     `toml:"orbit_samples"`
	MaxOrbitSamples int     `toml:"max_orbit_samples"`
	Tolerance       float64 `toml:"tolerance"`
	MaxIterations   int     `toml:"max_iterations"`
}

type PlannerConfig struct {
	TransferSpeed   float64 `toml:"transfer_speed"` // AU per Adalia day
	ExhaustiveLimit int     `toml:"exhaustive_limit"`
	CostTolerance   float64 `toml:"cost_tolerance"`
}

// CacheConfig selects the position cache backend.
type CacheConfig struct {
	Backend    string      `toml:"backend"` // memory | redis | none
	TTL        Duration    `toml:"ttl"`
	MaxEntries int         `toml:"max_entries"`
	Redis      RedisConfig `toml:"redis"`

	// WarmOrbits precomputes every catalog orbit at startup.
	WarmOrbits  bool `toml:"warm_orbits"`
	WarmWorkers int  `toml:"warm_workers"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// RateLimitConfig bounds PlanRoute throughput. Zero disables limiting.
type RateLimitConfig struct {
	PlansPerSecond float64 `toml:"plans_per_second"`
	Burst          int     `toml:"burst"`
}

// Duration decodes TOML strings such as "30s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a configuration that serves a local catalog file over
// gRPC with an in-memory cache.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddr:        ":50051",
			MetricsAddr:     ":9090",
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
		Catalog: CatalogConfig{
			Source:   "file",
			Path:     "asteroids.json",
			Postgres: PostgresConfig{Table: kb.DefaultBodiesTable},
		},
		Clock: ClockConfig{
			EpochUnix:     timectrl.DefaultEpochUnix,
			SecondsPerDay: timectrl.DefaultSecondsPerDay,
		},
		Propagation: PropagationConfig{
			OrbitSamples:    core.DefaultOrbitSamples,
			MaxOrbitSamples: core.DefaultMaxOrbitSamples,
			Tolerance:       core.DefaultKeplerTolerance,
			MaxIterations:   core.DefaultKeplerMaxIterations,
		},
		Planner: PlannerConfig{
			TransferSpeed:   core.DefaultTransferSpeed,
			ExhaustiveLimit: core.DefaultExhaustiveLimit,
			CostTolerance:   core.DefaultCostTolerance,
		},
		Cache: CacheConfig{
			Backend:     "memory",
			TTL:         Duration{time.Minute},
			MaxEntries:  100_000,
			Redis:       RedisConfig{Addr: "localhost:6379", KeyPrefix: "navigator:pos:"},
			WarmWorkers: 4,
		},
		RateLimit: RateLimitConfig{PlansPerSecond: 5, Burst: 10},
	}
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
	validSources    = map[string]bool{"file": true, "s3": true, "postgres": true}
	validBackends   = map[string]bool{"memory": true, "redis": true, "none": true}
	validExporters  = map[string]bool{"stdout": true, "otlp": true, "otlpgrpc": true}
)

// Validate reports every problem found, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if c.Server.GRPCAddr == "" {
		add("server: grpc_addr must not be empty")
	}
	if c.Server.ShutdownTimeout.Duration < 0 {
		add("server: shutdown_timeout must not be negative")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level)
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		add("log: unknown format %q (valid: text, json)", c.Log.Format)
	}

	if c.Tracing.Enabled {
		if !validExporters[strings.ToLower(c.Tracing.Exporter)] {
			add("tracing: unknown exporter %q (valid: stdout, otlp)", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			add("tracing: sample_ratio must be within [0, 1]")
		}
	}

	switch src := strings.ToLower(c.Catalog.Source); {
	case !validSources[src]:
		add("catalog: unknown source %q (valid: file, s3, postgres)", c.Catalog.Source)
	case src == "file" && c.Catalog.Path == "":
		add("catalog: path is required for the file source")
	case src == "s3" && (c.Catalog.S3.Bucket == "" || c.Catalog.S3.Key == "" || c.Catalog.S3.Region == ""):
		add("catalog.s3: bucket, key and region are required")
	case src == "postgres" && c.Catalog.Postgres.DSN == "":
		add("catalog.postgres: dsn is required")
	}

	if c.Clock.SecondsPerDay <= 0 || math.IsNaN(c.Clock.SecondsPerDay) || math.IsInf(c.Clock.SecondsPerDay, 0) {
		add("clock: seconds_per_day must be positive")
	}

	if c.Propagation.OrbitSamples <= 0 {
		add("propagation: orbit_samples must be positive")
	}
	if c.Propagation.MaxOrbitSamples < c.Propagation.OrbitSamples {
		add("propagation: max_orbit_samples must be at least orbit_samples")
	}
	if c.Propagation.Tolerance <= 0 {
		add("propagation: tolerance must be positive")
	}
	if c.Propagation.MaxIterations <= 0 {
		add("propagation: max_iterations must be positive")
	}

	if c.Planner.TransferSpeed <= 0 || math.IsInf(c.Planner.TransferSpeed, 0) || math.IsNaN(c.Planner.TransferSpeed) {
		add("planner: transfer_speed must be positive")
	}
	if c.Planner.ExhaustiveLimit < 0 {
		add("planner: exhaustive_limit must not be negative")
	}
	if c.Planner.CostTolerance < 0 {
		add("planner: cost_tolerance must not be negative")
	}

	switch backend := strings.ToLower(c.Cache.Backend); {
	case !validBackends[backend]:
		add("cache: unknown backend %q (valid: memory, redis, none)", c.Cache.Backend)
	case backend != "none" && c.Cache.TTL.Duration <= 0:
		add("cache: ttl must be positive")
	case backend == "redis" && c.Cache.Redis.Addr == "":
		add("cache.redis: addr is required")
	}
	if c.Cache.WarmOrbits && c.Cache.WarmWorkers <= 0 {
		add("cache: warm_workers must be positive when warm_orbits is set")
	}

	if c.RateLimit.PlansPerSecond < 0 {
		add("rate_limit: plans_per_second must not be negative")
	}
	if c.RateLimit.PlansPerSecond > 0 && c.RateLimit.Burst <= 0 {
		add("rate_limit: burst must be positive when limiting is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}
