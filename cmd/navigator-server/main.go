// Command navigator-server serves asteroid positions, orbits and transfer
// routes over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/adalia-navigator/core"
	"github.com/signalsfoundry/adalia-navigator/internal/cache"
	rediscache "github.com/signalsfoundry/adalia-navigator/internal/cache/redis"
	"github.com/signalsfoundry/adalia-navigator/internal/config"
	"github.com/signalsfoundry/adalia-navigator/internal/logging"
	"github.com/signalsfoundry/adalia-navigator/internal/navigator"
	"github.com/signalsfoundry/adalia-navigator/internal/observability"
	"github.com/signalsfoundry/adalia-navigator/internal/rpc"
	"github.com/signalsfoundry/adalia-navigator/kb"
	"github.com/signalsfoundry/adalia-navigator/timectrl"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	grpcAddr := flag.String("grpc-addr", "", "Override the gRPC listen address")
	metricsAddr := flag.String("metrics-addr", "", "Override the Prometheus /metrics address (\"-\" disables it)")
	catalogPath := flag.String("catalog", "", "Override the catalog file path and use the file source")
	flag.Parse()

	boot := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error(ctx, "failed to load config", logging.String("path", *configPath), logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *metricsAddr == "-" {
		cfg.Server.MetricsAddr = ""
	} else if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *catalogPath != "" {
		cfg.Catalog.Source = "file"
		cfg.Catalog.Path = *catalogPath
	}
	if err := cfg.Validate(); err != nil {
		boot.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Logging())

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(runCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "navigator server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run wires the service from cfg and serves on lis until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("rpc metrics: %w", err)
	}
	engineMetrics, err := observability.NewEngineCollector(reg)
	if err != nil {
		return fmt.Errorf("engine metrics: %w", err)
	}

	source, closeSource, err := catalogSource(ctx, cfg.Catalog)
	if err != nil {
		return err
	}
	catalog, err := kb.LoadCatalog(ctx, source)
	closeSource()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	rpcMetrics.SetCatalogBodies(catalog.Len())
	log.Info(ctx, "loaded asteroid catalog",
		logging.String("source", cfg.Catalog.Source),
		logging.Int("bodies", catalog.Len()),
	)

	mapping, err := cfg.Clock.Mapping()
	if err != nil {
		return err
	}
	prop := core.NewPropagator(
		core.WithClock(timectrl.NewWallClock(mapping)),
		core.WithSampleCount(cfg.Propagation.OrbitSamples),
		core.WithMaxSampleCount(cfg.Propagation.MaxOrbitSamples),
		core.WithSolver(core.KeplerSolver{
			Tolerance:     cfg.Propagation.Tolerance,
			MaxIterations: cfg.Propagation.MaxIterations,
		}),
		core.WithPrecisionObserver(navigator.PrecisionObserver(engineMetrics, log)),
	)
	cost, err := core.NewEuclideanCostModel(cfg.Planner.TransferSpeed)
	if err != nil {
		return err
	}
	planner := core.NewPlanner(prop, cost,
		core.WithExhaustiveLimit(cfg.Planner.ExhaustiveLimit),
		core.WithCostTolerance(cfg.Planner.CostTolerance),
	)

	store, closeStore, err := positionCache(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []navigator.Option{
		navigator.WithEngineMetrics(engineMetrics),
		navigator.WithLogger(log),
	}
	if store != nil {
		opts = append(opts, navigator.WithCache(store))
	}
	svc, err := navigator.New(catalog, prop, planner, opts...)
	if err != nil {
		return err
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			rpcMetrics.UnaryServerInterceptor(),
			rpc.RateLimitUnaryServerInterceptor(
				rpc.NewPlanLimiter(cfg.RateLimit.PlansPerSecond, cfg.RateLimit.Burst),
				rpc.PlanRouteMethod,
			),
		),
	)
	rpc.RegisterNavigatorServer(server, rpc.NewServer(svc, log))
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthSrv)

	metricsSrv := metricsServer(cfg.Server.MetricsAddr, rpcMetrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting navigator gRPC server",
			logging.String("addr", lis.Addr().String()),
			logging.Float64("adalia_day", svc.CurrentDay()),
		)
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	if cfg.Cache.WarmOrbits && store != nil {
		g.Go(func() error {
			ids := make([]int, 0, catalog.Len())
			for _, b := range catalog.List() {
				ids = append(ids, b.ID)
			}
			if _, err := svc.WarmOrbits(gctx, ids, cfg.Cache.WarmWorkers); err != nil && gctx.Err() == nil {
				log.Warn(gctx, "orbit cache warm-up stopped early", logging.Err(err))
			}
			return nil
		})
	}
	if metricsSrv != nil {
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics serve: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down navigator server")
		healthSrv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		gracefulStop(shutdownCtx, server)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

// gracefulStop drains in-flight RPCs, forcing a stop once ctx expires.
func gracefulStop(ctx context.Context, server *grpc.Server) {
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		server.Stop()
	}
}

func metricsServer(addr string, collector *observability.RPCCollector) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// catalogSource builds the configured body source and a release func for
// any connection it holds.
func catalogSource(ctx context.Context, cfg config.CatalogConfig) (kb.Source, func(), error) {
	switch strings.ToLower(cfg.Source) {
	case "s3":
		src, err := kb.NewS3Source(ctx, cfg.S3.Source())
		if err != nil {
			return nil, nil, fmt.Errorf("s3 catalog: %w", err)
		}
		return src, func() {}, nil
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres catalog: %w", err)
		}
		if cfg.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres catalog: %w", err)
		}
		return kb.NewPostgresSource(pool, cfg.Postgres.Table), pool.Close, nil
	default:
		return kb.FileSource{Path: cfg.Path}, func() {}, nil
	}
}

// positionCache builds the configured cache backend. A nil store disables
// caching.
func positionCache(ctx context.Context, cfg config.CacheConfig, log logging.Logger) (cache.Store, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		store, err := rediscache.Dial(ctx, rediscache.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.TTL.Duration,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info(ctx, "using redis position cache", logging.String("addr", cfg.Redis.Addr))
		return store, func() { _ = store.Close() }, nil
	case "none":
		return nil, func() {}, nil
	default:
		return cache.NewMemory(cfg.TTL.Duration, cache.WithMaxEntries(cfg.MaxEntries)), func() {}, nil
	}
}
