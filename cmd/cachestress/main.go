package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	computecache "github.com/karupanerura/compute-cache"
	"github.com/karupanerura/compute-cache/executor"
	"github.com/karupanerura/compute-cache/intervalevictor"
	"github.com/karupanerura/compute-cache/prommetrics"
)

// === Config ===

var (
	logLevel      = slog.LevelInfo
	N             = getEnvInt("N", 1_000_000)
	concurrency   = getEnvInt("C", runtime.GOMAXPROCS(0)*4)
	keySpace      = getEnvInt("KEYS", 50_000)
	workers       = getEnvInt("WORKERS", runtime.GOMAXPROCS(0))
	capacity      = getEnvInt("CAPACITY", computecache.DefaultCapacity)
	cleanupPct    = getEnvFloat("CLEANUP_PERCENT", computecache.DefaultCleanupPercentage)
	minEntryAge   = getEnvDuration("MIN_ENTRY_AGE", time.Second)
	computeTime   = getEnvDuration("COMPUTE_TIME", 100*time.Microsecond)
	executorType  = getEnv("EXECUTOR", "pool")
	evictInterval = getEnvDuration("EVICT_INTERVAL", 0)
	promPort      = getEnvInt("METRICS_PORT", 0)
	debug         = getEnvBool("DEBUG", false)
)

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	return v == "1" || strings.ToLower(v) == "true"
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func main() {
	if debug {
		logLevel = slog.LevelDebug
	}
	concurrency = max(concurrency, 1)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if promPort > 0 {
		srv := serveMetrics(log, reg)
		defer srv.Shutdown(context.Background())
	}

	opts := []computecache.Option[int, string]{
		computecache.WithLogger[int, string](log),
		computecache.WithMetrics[int, string](prommetrics.New(reg, "cachestress")),
	}
	var pool interface {
		computecache.Executor
		Stats() executor.Stats
		Close() error
	}
	switch executorType {
	case "bounded":
		pool = executor.NewBoundedPool(workers)
	default:
		pool = executor.NewWorkerPool(workers)
	}
	defer pool.Close()
	opts = append(opts, computecache.WithExecutor[int, string](pool))

	cache := computecache.NewWithLimits(workers, cleanupPct, capacity, minEntryAge, opts...)
	if evictInterval > 0 {
		intervalevictor.NewIntervalEvictor(cache, evictInterval, func(err error) {
			log.Error("background eviction failed", slog.Any("error", err))
		}).LaunchBackgroundEvictor(ctx)
	}

	log.Info("starting",
		slog.Int("gets", N),
		slog.Int("concurrency", concurrency),
		slog.Int("keys", keySpace),
		slog.Int("workers", workers),
		slog.String("executor", executorType),
		slog.Int("capacity", capacity),
		slog.Duration("min_entry_age", minEntryAge),
	)

	startAt := time.Now()
	var stats runStats
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		share := N / concurrency
		if w < N%concurrency {
			share++
		}
		g.Go(func() error {
			return run(gctx, cache, share, &stats)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stress run failed", slog.Any("error", err))
		os.Exit(1)
	}

	took := time.Since(startAt)
	runtime.GC()

	ps := pool.Stats()
	fmt.Printf("total runtime: %.3f seconds\n", took.Seconds())
	fmt.Printf("        gets/s: %d\n", int(float64(stats.gets.Load())/took.Seconds()))
	fmt.Printf("       entries: %d\n", cache.Size())
	fmt.Printf("      rejected: %d\n", stats.rejected.Load())
	fmt.Printf("     submitted: %d\n", ps.Submitted)
	fmt.Printf("      panicked: %d\n", ps.Panicked)

	if promPort > 0 {
		log.Info("run finished, still serving metrics until interrupted")
		<-ctx.Done()
	}
}

func serveMetrics(log *slog.Logger, reg *prometheus.Registry) *http.Server {
	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	promServer := &http.Server{Addr: fmt.Sprintf(":%d", promPort), Handler: promMux}
	go func() {
		log.Info("prometheus metrics server starting", slog.Int("port", promPort))
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("prometheus server error", slog.Any("error", err))
		}
	}()
	return promServer
}
