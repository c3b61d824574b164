// Command mockbackend serves the cultural center REST contract with seeded
// example data, for offline development of the kiosk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"kiosk/internal/backend/mock"
	"kiosk/internal/platform/config"
	"kiosk/internal/platform/httpserver"
	"kiosk/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mockbackend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Load(); err != nil {
		return err
	}
	cfg, err := config.MockBackendFromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store mock.Store = mock.NewMemoryStore()
	if cfg.OfflineDB != "" {
		sqlite, err := mock.OpenSQLite(ctx, cfg.OfflineDB)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		store = sqlite
	}
	if err := mock.Seed(ctx, store, time.Now()); err != nil {
		return err
	}
	b := mock.New(store, mock.WithLogger(log))
	srv := httpserver.New(cfg.Addr, mock.NewServer(b, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "mock backend listening", "addr", cfg.Addr, "demo_codes", mock.DemoCodes)
		return httpserver.Run(gctx, srv, 5*time.Second)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
