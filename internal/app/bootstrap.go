// Package app wires configuration into the prediction engine. Both binaries
// share this bootstrap so the API server and the alert worker always agree
// on how feeds are loaded.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"frostwatch/internal/config"
	"frostwatch/internal/engine"
	"frostwatch/internal/geo"
	"frostwatch/internal/history"
	"frostwatch/internal/model"
	"frostwatch/internal/types"
)

// BuildEngine assembles the prediction engine from the configured feeds:
// station metadata, boundary polygon, model artifacts, and the observation
// store (postgres when a database URL is configured, CSV otherwise). The
// returned cleanup function releases store resources and is safe to call
// even on error.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	cleanup := func() {}

	stations, err := history.LoadStationsCSV(cfg.Data.StationsPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("loading stations: %w", err)
	}

	polygon, err := geo.LoadPolygonFile(cfg.Data.PolygonPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("loading boundary polygon: %w", err)
	}

	registry, err := model.LoadRegistry(cfg.Data.DedicatedPath, cfg.Data.UnifiedPath, stations, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("loading model registry: %w", err)
	}

	var store history.Store
	if cfg.Database.URL != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("parsing database URL: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxConns)
		poolCfg.MinConns = int32(cfg.Database.MinConns)
		poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to database: %w", err)
		}
		cleanup = pool.Close
		store = history.NewPostgresStore(pool)
		logger.Info("using postgres observation store")
	} else {
		csvStore, err := history.LoadCSVStore(cfg.Data.HistoryPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("loading observation history: %w", err)
		}
		store = csvStore
		logger.Info("using csv observation store",
			"path", cfg.Data.HistoryPath,
			"stations", len(csvStore.StationCodes()),
		)
	}

	cache := engine.NewCache(cfg.Engine.CacheTTL, types.RealClock{})
	eng, err := engine.New(registry, store, polygon, cache, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating engine: %w", err)
	}
	return eng, cleanup, nil
}
