package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Restaurant/internal/config"
	"Restaurant/internal/menu"
	"Restaurant/internal/order"
	"Restaurant/internal/restaurant"
	"Restaurant/internal/snapshot"
	"Restaurant/pkg/kit"
)

const (
	service     = "restaurant"
	openTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	snaps, closeSnaps, err := openSnapshots(ctx, cfg.Snapshot)
	if err != nil {
		log.Fatal("open snapshot backend failed", zap.Error(err), zap.String("backend", cfg.Snapshot.Backend))
	}
	defer func() { _ = closeSnaps() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	menuStore, err := menu.Open(ctx, snaps, log)
	if err != nil {
		log.Fatal("load menu failed", zap.Error(err))
	}
	orders, err := order.Open(ctx, order.Deps{
		Menu:      menuStore,
		Snapshots: snaps,
		Log:       log,
		Metrics:   order.NewMetrics(reg, service),
	})
	if err != nil {
		log.Fatal("load orders failed", zap.Error(err))
	}
	cancel()

	shutdownTracing := func(context.Context) error { return nil }
	if cfg.TracingEnabled {
		shutdownTracing, err = kit.InitTracing(service, os.Stdout)
		if err != nil {
			log.Fatal("init tracing failed", zap.Error(err))
		}
	}

	var limiter *kit.IPRateLimiter
	if cfg.OrderRateLimit > 0 {
		limiter = kit.NewIPRateLimiter(cfg.OrderRateLimit, time.Minute)
	}

	app := &restaurant.App{Menu: menuStore, Orders: orders, Log: log}
	h := restaurant.NewHandler(app, restaurant.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		TracingEnabled: cfg.TracingEnabled,
		PlaceLimiter:   limiter,
	})

	onShutdown := func(ctx context.Context) error {
		err := app.Flush(ctx)
		if err != nil {
			log.Error("final snapshot flush failed", zap.Error(err))
		} else {
			log.Info("snapshots flushed")
		}
		return errors.Join(err, shutdownTracing(ctx))
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, onShutdown); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openSnapshots(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return snapshot.NewMemStore(), noop, nil
	case config.BackendPostgres:
		s, err := snapshot.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendRedis:
		s, err := snapshot.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := snapshot.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}
