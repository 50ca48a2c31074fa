package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/signalsfoundry/adalia-navigator/internal/cache"
	"github.com/signalsfoundry/adalia-navigator/internal/config"
	"github.com/signalsfoundry/adalia-navigator/internal/logging"
	"github.com/signalsfoundry/adalia-navigator/internal/rpc"
	"github.com/signalsfoundry/adalia-navigator/kb"
)

const catalogJSON = `[
  {"i": 1, "n": "Adalia Prime", "r": 375000, "orbital": {"a": 2.192, "e": 0.325, "i": 0.001, "o": 0, "w": 0, "m": 0}},
  {"i": 2, "r": 1800, "orbital": {"a": 2.5, "e": 0.1, "i": 0.05, "o": 1, "w": 2, "m": 0.5}},
  {"i": 3, "r": 25000, "orbital": {"a": 3.1, "e": 0.2, "i": 0.1, "o": 4, "w": 0.3, "m": 3}}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asteroids.json")
	if err := os.WriteFile(path, []byte(catalogJSON), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cfg := config.Defaults()
	cfg.Server.MetricsAddr = ""
	cfg.Server.ShutdownTimeout = config.Duration{Duration: time.Second}
	cfg.Catalog.Path = path
	cfg.Propagation.OrbitSamples = 8
	cfg.Log.Level = "warn"
	return &cfg
}

func TestNavigatorServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	log := logging.New(cfg.Log.Logging())
	lis := bufconn.Listen(1 << 20)

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	client := rpc.NewClient(conn)
	resp, err := client.PlanRoute(ctx, []int{1}, []int{2, 3}, nil)
	if err != nil {
		t.Fatalf("PlanRoute: %v", err)
	}
	if order := rpc.RouteOrder(resp); len(order) != 3 || order[0] != 1 {
		t.Fatalf("order = %v, want origin 1 and two targets", order)
	}

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v", hc.GetStatus())
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRunFailsOnMissingCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")
	err := run(context.Background(), cfg, logging.Noop(), bufconn.Listen(1024))
	if err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestCatalogSourceDefaultsToFile(t *testing.T) {
	src, release, err := catalogSource(context.Background(), config.CatalogConfig{Source: "file", Path: "x.json"})
	if err != nil {
		t.Fatalf("catalogSource: %v", err)
	}
	release()
	if fs, ok := src.(kb.FileSource); !ok || fs.Path != "x.json" {
		t.Fatalf("source = %#v, want FileSource{x.json}", src)
	}
}

func TestPositionCacheBackends(t *testing.T) {
	ctx := context.Background()
	store, release, err := positionCache(ctx, config.CacheConfig{Backend: "none"}, logging.Noop())
	if err != nil || store != nil {
		t.Fatalf("none backend = (%v, %v), want nil store", store, err)
	}
	release()

	store, release, err = positionCache(ctx, config.CacheConfig{Backend: "memory", TTL: config.Duration{Duration: time.Minute}, MaxEntries: 10}, logging.Noop())
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	defer release()
	if _, ok := store.(*cache.Memory); !ok {
		t.Fatalf("store = %T, want *cache.Memory", store)
	}
}
