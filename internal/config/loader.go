package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load decodes the TOML file at path over Defaults, loads a .env file from
// the working directory when present, and applies NAVIGATOR_* overrides.
// An empty path skips the file. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys in %s: %v", ErrInvalidConfig, path, undecoded)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.GRPCAddr, "NAVIGATOR_GRPC_ADDR")
	setStr(&cfg.Server.MetricsAddr, "NAVIGATOR_METRICS_ADDR")
	setDuration(&cfg.Server.ShutdownTimeout, "NAVIGATOR_SHUTDOWN_TIMEOUT")

	setStr(&cfg.Log.Level, "NAVIGATOR_LOG_LEVEL")
	setStr(&cfg.Log.Format, "NAVIGATOR_LOG_FORMAT")

	cfg.Tracing = cfg.Tracing.ApplyEnv()

	setStr(&cfg.Catalog.Source, "NAVIGATOR_CATALOG_SOURCE")
	setStr(&cfg.Catalog.Path, "NAVIGATOR_CATALOG_PATH")
	setStr(&cfg.Catalog.S3.Endpoint, "NAVIGATOR_S3_ENDPOINT")
	setStr(&cfg.Catalog.S3.Region, "NAVIGATOR_S3_REGION")
	setStr(&cfg.Catalog.S3.Bucket, "NAVIGATOR_S3_BUCKET")
	setStr(&cfg.Catalog.S3.Key, "NAVIGATOR_S3_KEY")
	setStr(&cfg.Catalog.S3.AccessKey, "NAVIGATOR_S3_ACCESS_KEY")
	setStr(&cfg.Catalog.S3.SecretKey, "NAVIGATOR_S3_SECRET_KEY")
	setBool(&cfg.Catalog.S3.ForcePathStyle, "NAVIGATOR_S3_FORCE_PATH_STYLE")
	setStr(&cfg.Catalog.Postgres.DSN, "NAVIGATOR_POSTGRES_DSN")
	setStr(&cfg.Catalog.Postgres.Table, "NAVIGATOR_POSTGRES_TABLE")

	setInt64(&cfg.Clock.EpochUnix, "NAVIGATOR_CLOCK_EPOCH_UNIX")
	setFloat64(&cfg.Clock.SecondsPerDay, "NAVIGATOR_CLOCK_SECONDS_PER_DAY")

	setInt(&cfg.Propagation.OrbitSamples, "NAVIGATOR_ORBIT_SAMPLES")
	setInt(&cfg.Propagation.MaxOrbitSamples, "NAVIGATOR_MAX_ORBIT_SAMPLES")
	setFloat64(&cfg.Planner.TransferSpeed, "NAVIGATOR_TRANSFER_SPEED")
	setInt(&cfg.Planner.ExhaustiveLimit, "NAVIGATOR_EXHAUSTIVE_LIMIT")

	setStr(&cfg.Cache.Backend, "NAVIGATOR_CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "NAVIGATOR_CACHE_TTL")
	setStr(&cfg.Cache.Redis.Addr, "NAVIGATOR_REDIS_ADDR")
	setStr(&cfg.Cache.Redis.Password, "NAVIGATOR_REDIS_PASSWORD")
	setInt(&cfg.Cache.Redis.DB, "NAVIGATOR_REDIS_DB")
	setBool(&cfg.Cache.WarmOrbits, "NAVIGATOR_CACHE_WARM_ORBITS")
	setInt(&cfg.Cache.WarmWorkers, "NAVIGATOR_CACHE_WARM_WORKERS")

	setFloat64(&cfg.RateLimit.PlansPerSecond, "NAVIGATOR_RATE_LIMIT_PLANS_PER_SECOND")
	setInt(&cfg.RateLimit.Burst, "NAVIGATOR_RATE_LIMIT_BURST")
}

// Each helper mutates dst only when the variable is set, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
