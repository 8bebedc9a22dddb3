// Package engine orchestrates the prediction path: per-station model scoring
// through the feature builder and model registry, the validity-polygon gate,
// inverse-distance-weighted interpolation for arbitrary points, and the
// time-bounded prediction cache.
//
// The engine is read-only after construction apart from the cache; concurrent
// queries for different keys proceed fully in parallel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"frostwatch/internal/features"
	"frostwatch/internal/geo"
	"frostwatch/internal/history"
	"frostwatch/internal/model"
	"frostwatch/internal/types"
)

const (
	// IDWPower is the fixed inverse-distance weighting exponent.
	IDWPower = 2

	// stationMatchEpsilonKm is the distance below which a query point is
	// treated as the station itself, returning its prediction unmodified.
	// Also guards the 1/d^2 weight against division by zero.
	stationMatchEpsilonKm = 0.01
)

// PredictionSet is the municipality-wide prediction for one target date:
// every station's prediction plus the polygon-level aggregate the map uses
// to color the municipal boundary.
type PredictionSet struct {
	TargetDate      time.Time                 `json:"target_date"`
	Stations        []types.StationPrediction `json:"stations"`
	MeanTemperature float64                   `json:"mean_temperature_c"`
	AggregateRisk   types.RiskLevel           `json:"aggregate_risk"`
}

// Engine computes station and interpolated predictions. Construct once at
// startup with loaded, immutable dependencies.
type Engine struct {
	registry *model.Registry
	store    history.Store
	builder  *features.Builder
	polygon  *geo.Polygon
	cache    *Cache
	logger   *slog.Logger
}

// New creates an Engine. The cache may be nil, in which case every PredictAt
// call computes from scratch.
func New(
	registry *model.Registry,
	store history.Store,
	polygon *geo.Polygon,
	cache *Cache,
	logger *slog.Logger,
) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("engine requires a model registry")
	}
	if store == nil {
		return nil, fmt.Errorf("engine requires a history store")
	}
	if polygon == nil {
		return nil, fmt.Errorf("engine requires a validity polygon")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: registry,
		store:    store,
		builder:  features.NewBuilder(),
		polygon:  polygon,
		cache:    cache,
		logger:   logger,
	}, nil
}

// PredictStation computes the un-interpolated prediction for one station.
func (e *Engine) PredictStation(ctx context.Context, stationCode string, targetDate time.Time) (*types.StationPrediction, error) {
	targetDate = types.CivilDate(targetDate)

	st, err := e.registry.Station(stationCode)
	if err != nil {
		return nil, err
	}
	m, err := e.registry.Resolve(stationCode)
	if err != nil {
		return nil, err
	}

	series, err := e.store.SeriesBefore(ctx, stationCode, targetDate, features.MaxLookbackDays)
	if err != nil {
		return nil, err
	}

	tempVec, err := e.builder.Build(series, targetDate, m.TemperatureFeatures())
	if err != nil {
		return nil, err
	}
	frostVec, err := e.builder.Build(series, targetDate, m.FrostFeatures())
	if err != nil {
		return nil, err
	}

	pred, err := m.Predict(tempVec, frostVec)
	if err != nil {
		return nil, err
	}

	loc := st.Location()
	return &types.StationPrediction{
		StationCode:      st.Code,
		StationName:      st.Name,
		TargetDate:       targetDate,
		Temperature:      pred.Temperature,
		FrostProbability: pred.FrostProbability,
		RiskLevel:        types.RiskLevelForTemperature(pred.Temperature),
		Location:         &loc,
	}, nil
}

// Stations returns the registered station metadata.
func (e *Engine) Stations() []types.Station {
	return e.registry.Stations()
}

// PrimaryStation returns the station carrying the dedicated model pair.
func (e *Engine) PrimaryStation() types.Station {
	return e.registry.PrimaryStation()
}

// PredictAll computes predictions for every registered station concurrently.
// Stations lacking history are skipped; if none survive, it fails with
// no_station_data. Any other per-station failure aborts the whole query.
func (e *Engine) PredictAll(ctx context.Context, targetDate time.Time) (*PredictionSet, error) {
	targetDate = types.CivilDate(targetDate)

	stations := e.registry.Stations()
	sort.Slice(stations, func(i, j int) bool { return stations[i].Code < stations[j].Code })

	results := make([]*types.StationPrediction, len(stations))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range stations {
		i, st := i, st
		g.Go(func() error {
			pred, err := e.PredictStation(gctx, st.Code, targetDate)
			if err != nil {
				var appErr *types.AppError
				if errors.As(err, &appErr) && appErr.Code == types.ErrCodeInsufficientHistory {
					e.logger.Warn("skipping station with insufficient history",
						"station_code", st.Code,
						"target_date", targetDate.Format("2006-01-02"),
						"error", err,
					)
					return nil
				}
				return err
			}
			results[i] = pred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &PredictionSet{TargetDate: targetDate}
	var tempSum float64
	for _, pred := range results {
		if pred == nil {
			continue
		}
		set.Stations = append(set.Stations, *pred)
		tempSum += pred.Temperature
	}
	if len(set.Stations) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeNoStationData,
			"no station produced a prediction for the target date",
			nil,
		)
	}

	set.MeanTemperature = tempSum / float64(len(set.Stations))
	set.AggregateRisk = types.RiskLevelForTemperature(set.MeanTemperature)
	return set, nil
}

// PredictAt answers a point query inside the validity polygon by
// inverse-distance weighting of the station predictions. Points outside the
// polygon are rejected before any model is invoked. Results are served from
// the cache when one is configured.
func (e *Engine) PredictAt(ctx context.Context, point types.GeoPoint, targetDate time.Time) (*types.StationPrediction, error) {
	targetDate = types.CivilDate(targetDate)

	// The polygon gate runs before the cache so out-of-bounds queries never
	// occupy a cache slot or trigger a compute.
	if !e.polygon.Contains(point) {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeOutOfBounds,
			"point is outside the municipal boundary",
			nil,
			map[string]any{"lat": point.Lat, "lon": point.Lon},
		)
	}

	if e.cache == nil {
		return e.interpolate(ctx, point, targetDate)
	}
	return e.cache.GetOrCompute(ctx, point, targetDate, func(ctx context.Context) (*types.StationPrediction, error) {
		return e.interpolate(ctx, point, targetDate)
	})
}

// interpolate computes the IDW blend of all station predictions at a point.
func (e *Engine) interpolate(ctx context.Context, point types.GeoPoint, targetDate time.Time) (*types.StationPrediction, error) {
	set, err := e.PredictAll(ctx, targetDate)
	if err != nil {
		return nil, err
	}

	var weightSum, tempSum, probSum float64
	for i := range set.Stations {
		pred := &set.Stations[i]
		dist := geo.DistanceKm(point, *pred.Location)

		// An exact station hit returns that station's prediction unmodified.
		if dist < stationMatchEpsilonKm {
			out := *pred
			return &out, nil
		}

		w := 1 / (dist * dist) // IDWPower = 2
		weightSum += w
		tempSum += w * pred.Temperature
		probSum += w * pred.FrostProbability
	}

	temp := tempSum / weightSum
	prob := probSum / weightSum
	return &types.StationPrediction{
		TargetDate:       targetDate,
		Temperature:      temp,
		FrostProbability: prob,
		RiskLevel:        types.RiskLevelForTemperature(temp),
		Location:         &types.GeoPoint{Lat: point.Lat, Lon: point.Lon},
	}, nil
}
