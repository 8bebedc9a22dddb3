package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"frostwatch/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx. The
// store accepts this so the same code works inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore serves observation series from the observations table.
// The table carries a unique constraint on (station_code, observed_on),
// enforcing the one-record-per-day invariant at the source.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a PostgresStore backed by the given connection
// (pool or transaction).
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const seriesQuery = `
SELECT station_code, observed_on, min_temp_c, max_temp_c, precipitation_mm
FROM observations
WHERE station_code = $1 AND observed_on < $2
ORDER BY observed_on DESC
LIMIT $3`

const seriesQueryAll = `
SELECT station_code, observed_on, min_temp_c, max_temp_c, precipitation_mm
FROM observations
WHERE station_code = $1 AND observed_on < $2
ORDER BY observed_on ASC`

// SeriesBefore implements Store.
func (s *PostgresStore) SeriesBefore(ctx context.Context, stationCode string, target time.Time, days int) ([]types.HistoricalRecord, error) {
	target = types.CivilDate(target)

	var rows pgx.Rows
	var err error
	if days > 0 {
		rows, err = s.db.Query(ctx, seriesQuery, stationCode, target, days)
	} else {
		rows, err = s.db.Query(ctx, seriesQueryAll, stationCode, target)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "querying observation series", err)
	}
	defer rows.Close()

	var recs []types.HistoricalRecord
	for rows.Next() {
		var rec types.HistoricalRecord
		if err := rows.Scan(&rec.StationCode, &rec.Date, &rec.MinTemp, &rec.MaxTemp, &rec.Precipitation); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning observation row", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating observation rows", err)
	}

	// The limited query reads newest-first for the LIMIT; flip back to
	// ascending order.
	if days > 0 {
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
	}
	return recs, nil
}
