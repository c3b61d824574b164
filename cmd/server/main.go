package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"kiosk/internal/admin"
	adminhandler "kiosk/internal/admin/handler"
	"kiosk/internal/audit"
	"kiosk/internal/backend"
	"kiosk/internal/backend/fallback"
	"kiosk/internal/backend/mock"
	"kiosk/internal/checkin"
	"kiosk/internal/events"
	eventshandler "kiosk/internal/events/handler"
	"kiosk/internal/kiosk"
	kioskhandler "kiosk/internal/kiosk/handler"
	sessionstore "kiosk/internal/kiosk/store"
	"kiosk/internal/platform/config"
	"kiosk/internal/platform/httpserver"
	"kiosk/internal/platform/logger"
	"kiosk/internal/platform/metrics"
	kredis "kiosk/internal/platform/redis"
	"kiosk/internal/registration"
	httptransport "kiosk/internal/transport/http"
	"kiosk/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kiosk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Load(); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Offline backend: seeded mock data, in memory or SQLite.
	offline, closeOffline, err := openOffline(ctx, cfg.Backend.OfflineDB, log)
	if err != nil {
		return err
	}
	defer closeOffline()

	var (
		upstream backend.API = offline
		router   *fallback.Router
	)
	if cfg.Backend.BaseURL != "" {
		client, err := backend.NewClient(cfg.Backend.BaseURL,
			backend.WithTimeout(cfg.Backend.Timeout),
			backend.WithMetrics(m),
		)
		if err != nil {
			return fmt.Errorf("backend client: %w", err)
		}
		var secondary backend.API
		if cfg.Backend.Fallback {
			secondary = offline
		}
		router = fallback.New(client, secondary,
			fallback.WithBreaker(circuit.New("upstream",
				circuit.WithFailureThreshold(cfg.Backend.FailureThreshold),
				circuit.WithProbeInterval(cfg.Backend.ProbeInterval),
			)),
			fallback.WithMetrics(m),
			fallback.WithLogger(log),
		)
		upstream = router
		log.InfoContext(ctx, "using upstream REST API",
			"base_url", cfg.Backend.BaseURL,
			"fallback", cfg.Backend.Fallback,
		)
	} else {
		log.WarnContext(ctx, "no upstream configured, serving from the offline backend only")
	}

	rdb, err := kredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Activity stream.
	publisher := audit.NewPublisher(
		audit.WithQueueSize(cfg.Audit.QueueSize),
		audit.WithSampler(audit.NewSampler(cfg.Audit.SampleRate)),
		audit.WithMetrics(m),
	)
	activity := audit.NewMemorySink(cfg.Audit.MemoryCapacity)
	sinks := []audit.Sink{audit.NewLogSink(log), activity}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		if err := kafka.EnsureTopic(ctx, 3, 1); err != nil {
			log.WarnContext(ctx, "could not ensure audit topic", "topic", cfg.Audit.KafkaTopic, "error", err)
		}
		sinks = append(sinks, kafka)
	}
	worker := audit.NewWorker(publisher.Queue(), log, sinks...)

	// Kiosk sessions.
	var manager *kiosk.Manager
	var sessions kiosk.Store
	switch cfg.Sessions.Store {
	case "redis":
		sessions = sessionstore.NewRedis(rdb.Client, sessionstore.WithRedisTTL(cfg.Sessions.TTL))
	default:
		mem := sessionstore.NewMemory(
			sessionstore.WithTTL(cfg.Sessions.TTL),
			sessionstore.WithExpiryHook(func(id string) { manager.Expired(id) }),
		)
		defer mem.Close()
		sessions = mem
	}

	directory := events.New(upstream, events.WithLogger(log))
	manager = kiosk.NewManager(sessions,
		directory,
		registration.NewService(upstream,
			registration.WithAuditPublisher(publisher),
			registration.WithMetrics(m),
			registration.WithLogger(log),
		),
		checkin.NewService(upstream,
			checkin.WithAuditPublisher(publisher),
			checkin.WithMetrics(m),
			checkin.WithLogger(log),
		),
		kiosk.WithAuditPublisher(publisher),
		kiosk.WithMetrics(m),
		kiosk.WithLogger(log),
	)

	// Admin area.
	hash, err := admin.HashPassword(cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	var revocations admin.RevocationList
	if rdb != nil {
		revocations = admin.NewRedisRevocations(rdb.Client)
	} else {
		mem := admin.NewMemoryRevocations(time.Minute)
		defer mem.Close()
		revocations = mem
	}
	adminService := admin.NewService(
		admin.Account{Username: cfg.Admin.Username, PasswordHash: hash},
		admin.NewTokenService(cfg.Admin.JWTSigningKey, "kiosk", "kiosk-admin", admin.WithTokenTTL(cfg.Admin.TokenTTL)),
		upstream,
		admin.WithRevocations(revocations),
		admin.WithActivity(activity),
		admin.WithAuditPublisher(publisher),
		admin.WithLogger(log),
	)

	routerCfg := httptransport.Config{
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.RequestTimeout,
	}
	if router != nil {
		routerCfg.Upstream = router
	}
	if rdb != nil {
		routerCfg.Checks = append(routerCfg.Checks, httptransport.Check{Name: "redis", Probe: rdb.Health})
	}
	handler := httptransport.NewRouter(routerCfg,
		eventshandler.New(directory, log),
		kioskhandler.New(manager, log),
		adminhandler.New(adminService, log),
	)
	srv := httpserver.New(cfg.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.InfoContext(gctx, "starting kiosk service",
			"addr", cfg.Addr,
			"env", cfg.Environment,
			"session_store", cfg.Sessions.Store,
		)
		return httpserver.Run(gctx, srv, 10*time.Second)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("kiosk service stopped")
	return nil
}

// openOffline builds the seeded offline backend. An empty dsn keeps the data in memory.
func openOffline(ctx context.Context, dsn string, log *slog.Logger) (*mock.Backend, func(), error) {
	var (
		store   mock.Store
		closeFn = func() {}
	)
	if dsn == "" {
		store = mock.NewMemoryStore()
	} else {
		sqlite, err := mock.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		store = sqlite
		closeFn = func() { _ = sqlite.Close() }
	}
	if err := mock.Seed(ctx, store, time.Now()); err != nil {
		closeFn()
		return nil, nil, err
	}
	return mock.New(store, mock.WithLogger(log)), closeFn, nil
}
