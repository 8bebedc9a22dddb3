package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"frostwatch/internal/types"
)

// LoadStationsCSV reads the station metadata feed:
//
//	code,name,lat,lon,altitude_m,dedicated
//
// The table is reference data: loaded once at startup, never mutated.
func LoadStationsCSV(path string) ([]types.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stations file %s: %w", path, err)
	}
	defer f.Close()
	return ReadStationsCSV(f)
}

// ReadStationsCSV parses station metadata from r. The first row must be the
// header.
func ReadStationsCSV(r io.Reader) ([]types.Station, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading stations header: %w", err)
	}
	if header[0] != "code" {
		return nil, fmt.Errorf("unexpected stations header %v", header)
	}

	var stations []types.Station
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading stations row %d: %w", line, err)
		}
		line++

		lat, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("stations row %d: bad latitude %q", line, row[2])
		}
		lon, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("stations row %d: bad longitude %q", line, row[3])
		}
		alt, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("stations row %d: bad altitude %q", line, row[4])
		}
		dedicated, err := strconv.ParseBool(row[5])
		if err != nil {
			return nil, fmt.Errorf("stations row %d: bad dedicated flag %q", line, row[5])
		}

		stations = append(stations, types.Station{
			Code:      row[0],
			Name:      row[1],
			Latitude:  lat,
			Longitude: lon,
			Altitude:  alt,
			Dedicated: dedicated,
		})
	}

	if len(stations) == 0 {
		return nil, fmt.Errorf("stations file contains no stations")
	}
	return stations, nil
}
