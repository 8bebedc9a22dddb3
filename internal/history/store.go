// Package history provides access to station observation series and the
// station metadata feed. Two Store implementations exist: a CSV-backed
// in-memory store matching the imputed dataset exported by the training
// pipeline, and a PostgreSQL-backed store for deployments that keep
// observations in a database. Both serve the engine through the same
// interface; the engine never touches raw files or SQL.
package history

import (
	"context"
	"time"

	"frostwatch/internal/types"
)

// Store serves ordered historical series for feature derivation.
type Store interface {
	// SeriesBefore returns the station's contiguous daily observations
	// strictly before the target date, ascending by date, limited to the
	// trailing `days` records (0 means all available).
	SeriesBefore(ctx context.Context, stationCode string, target time.Time, days int) ([]types.HistoricalRecord, error)
}
