package types

import (
	"time"
)

// BogotaZone is the system's fixed local time zone (UTC-5, no DST).
// All "tomorrow" calculations use this zone regardless of server locale.
var BogotaZone = time.FixedZone("America/Bogota", -5*60*60)

// GeoPoint is a latitude/longitude pair. It may be a station location or an
// arbitrary query point inside the validity polygon.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is the immutable reference record for one weather station.
// Loaded once at startup from the metadata feed; never mutated.
type Station struct {
	Code      string  `json:"code" db:"code"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"lat" db:"latitude"`
	Longitude float64 `json:"lon" db:"longitude"`
	Altitude  float64 `json:"altitude_m" db:"altitude"`

	// Dedicated marks the primary station that carries its own trained model
	// pair; all other stations score against the shared unified model.
	Dedicated bool `json:"dedicated" db:"dedicated"`
}

// Location returns the station's coordinates as a GeoPoint.
func (s Station) Location() GeoPoint {
	return GeoPoint{Lat: s.Latitude, Lon: s.Longitude}
}

// HistoricalRecord is one day of observations for one station. Records are
// append-only and unique per (station, date); they are the sole source of
// truth for feature derivation.
type HistoricalRecord struct {
	StationCode   string    `json:"station_code" db:"station_code"`
	Date          time.Time `json:"date" db:"observed_on"`
	MinTemp       float64   `json:"min_temp_c" db:"min_temp_c"`
	MaxTemp       float64   `json:"max_temp_c" db:"max_temp_c"`
	Precipitation float64   `json:"precipitation_mm" db:"precipitation_mm"`
}

// StationPrediction is the prediction output for a single station, or for an
// interpolated query point, on a specific target date.
type StationPrediction struct {
	StationCode      string    `json:"station_code,omitempty"`
	StationName      string    `json:"station_name,omitempty"`
	TargetDate       time.Time `json:"target_date"`
	Temperature      float64   `json:"temperature_c"`
	FrostProbability float64   `json:"frost_probability"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Location         *GeoPoint `json:"location,omitempty"`
}

// FeatureVector is an ordered set of named numeric features. Order matters:
// it must match the ordered feature list of the model that consumes it, and
// is validated there rather than silently coerced.
type FeatureVector struct {
	Names  []string
	Values []float64
}

// Len returns the number of features in the vector.
func (v FeatureVector) Len() int { return len(v.Names) }

// CivilDate truncates t to midnight in the system's fixed local zone.
// Target dates are calendar dates; everything downstream keys on this form.
func CivilDate(t time.Time) time.Time {
	t = t.In(BogotaZone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, BogotaZone)
}

// Tomorrow returns the default prediction target: the calendar day after
// "now" in the system's fixed local zone.
func Tomorrow(clock Clock) time.Time {
	return CivilDate(clock.Now()).AddDate(0, 0, 1)
}
