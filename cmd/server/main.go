package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ledgerguard/internal/platform/config"
	"ledgerguard/internal/platform/httpserver"
	"ledgerguard/internal/platform/logger"
)

// main wires dependencies, serves the API and runs the background jobs until
// SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	configPath := flag.String("config", os.Getenv("LEDGERGUARD_CONFIG"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Format, cfg.Logging.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ledgerguard exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	srv := httpserver.New(cfg.Server, app.router)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting ledgerguard", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	for _, job := range app.jobs {
		g.Go(func() error { return job(ctx) })
	}
	return g.Wait()
}
