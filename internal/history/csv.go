package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"frostwatch/internal/types"
)

// dateLayout is the calendar date format used by the CSV feeds.
const dateLayout = "2006-01-02"

// CSVStore is an in-memory Store loaded once from the imputed observations
// CSV. The file is long format, one row per (station, date):
//
//	station_code,date,min_temp_c,max_temp_c,precipitation_mm
//
// Series are sorted at load; lookups are read-only and need no locking.
type CSVStore struct {
	series map[string][]types.HistoricalRecord
}

// LoadCSVStore reads and indexes the observations file.
func LoadCSVStore(path string) (*CSVStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening observations file %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSVStore(f)
}

// ReadCSVStore parses observations from r. The first row must be the header.
func ReadCSVStore(r io.Reader) (*CSVStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 5

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading observations header: %w", err)
	}
	if header[0] != "station_code" {
		return nil, fmt.Errorf("unexpected observations header %v", header)
	}

	series := make(map[string][]types.HistoricalRecord)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading observations row %d: %w", line, err)
		}
		line++

		rec, err := parseObservationRow(row)
		if err != nil {
			return nil, fmt.Errorf("observations row %d: %w", line, err)
		}
		series[rec.StationCode] = append(series[rec.StationCode], rec)
	}

	for code, recs := range series {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
		for i := 1; i < len(recs); i++ {
			if recs[i].Date.Equal(recs[i-1].Date) {
				return nil, fmt.Errorf("station %s has duplicate observation for %s",
					code, recs[i].Date.Format(dateLayout))
			}
		}
		series[code] = recs
	}

	return &CSVStore{series: series}, nil
}

func parseObservationRow(row []string) (types.HistoricalRecord, error) {
	date, err := time.ParseInLocation(dateLayout, row[1], types.BogotaZone)
	if err != nil {
		return types.HistoricalRecord{}, fmt.Errorf("bad date %q: %w", row[1], err)
	}
	vals := make([]float64, 3)
	for i, raw := range row[2:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.HistoricalRecord{}, fmt.Errorf("bad numeric field %q: %w", raw, err)
		}
		vals[i] = v
	}
	return types.HistoricalRecord{
		StationCode:   row[0],
		Date:          date,
		MinTemp:       vals[0],
		MaxTemp:       vals[1],
		Precipitation: vals[2],
	}, nil
}

// SeriesBefore implements Store.
func (s *CSVStore) SeriesBefore(_ context.Context, stationCode string, target time.Time, days int) ([]types.HistoricalRecord, error) {
	recs := s.series[stationCode]
	target = types.CivilDate(target)

	// Binary search the first record on or after the target date.
	cut := sort.Search(len(recs), func(i int) bool {
		return !recs[i].Date.Before(target)
	})
	recs = recs[:cut]
	if days > 0 && len(recs) > days {
		recs = recs[len(recs)-days:]
	}

	out := make([]types.HistoricalRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// StationCodes returns the codes present in the store, sorted.
func (s *CSVStore) StationCodes() []string {
	codes := make([]string, 0, len(s.series))
	for code := range s.series {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
