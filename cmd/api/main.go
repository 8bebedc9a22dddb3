// Package main is the entry point for the frostwatch API server.
//
// It loads configuration, builds the prediction engine from the station
// metadata, boundary polygon, observation history, and trained model
// artifacts, then serves the prediction API with graceful shutdown on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"frostwatch/internal/api/handlers"
	"frostwatch/internal/app"
	"frostwatch/internal/config"
	"frostwatch/internal/core"
	"frostwatch/internal/engine"
	"frostwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	slog.SetDefault(logger)
	logger.Info("frostwatch API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, cleanup, err := app.BuildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, enginePredictProbe{eng: eng, clock: types.RealClock{}})

	predictionHandler := handlers.NewPredictionHandler(eng, types.RealClock{}, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		predictionHandler.RegisterRoutes(r)
	})

	srv.MountRoutes()

	return runHTTPServer(ctx, srv, cfg, logger)
}

// enginePredictProbe reports the engine healthy when the primary station can
// answer a prediction for tomorrow.
type enginePredictProbe struct {
	eng   *engine.Engine
	clock types.Clock
}

func (p enginePredictProbe) Name() string { return "engine" }

func (p enginePredictProbe) Check(ctx context.Context) error {
	primary := p.eng.PrimaryStation()
	_, err := p.eng.PredictStation(ctx, primary.Code, types.Tomorrow(p.clock))
	return err
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// newLogger builds a JSON slog logger at the given level.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
