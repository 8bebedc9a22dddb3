// Package features derives model input vectors from station observation
// history. The builder produces, for a given target date, exactly the ordered
// feature list a trained model expects: calendar encodings, minimum
// temperature lags, rolling statistics, differences and trends, and the
// precipitation / maximum temperature extensions used by the frost
// classifier.
//
// Feature names form a fixed grammar (for example "tmin_lag_7",
// "tmin_mean_30", "doy_sin", "prec_sum_14"). A requested name outside the
// grammar is a schema mismatch, never silently skipped: feature drift between
// builder and artifact would corrupt predictions without it.
package features

import (
	"fmt"
	"time"

	"frostwatch/internal/types"
)

// Fixed parameter sets for the series features. These mirror the training
// pipeline and are not configurable.
var (
	// LagDays are the supported minimum temperature lag offsets.
	LagDays = []int{1, 2, 3, 7, 14, 21, 30}

	// RollingWindows are the supported trailing windows for minimum
	// temperature rolling statistics.
	RollingWindows = []int{3, 7, 14, 30}

	// DiffDays are the supported difference offsets.
	DiffDays = []int{1, 7, 30}

	// TrendWindows are the supported windows for trend slope, rolling range,
	// and rolling quantile features.
	TrendWindows = []int{7, 14, 30}

	// AuxWindows are the supported trailing windows for the precipitation and
	// maximum temperature extensions used by the frost classifier.
	AuxWindows = []int{3, 7, 14}

	// AuxLagDays are the supported precipitation lag offsets.
	AuxLagDays = []int{1, 2, 3, 7}
)

// MaxLookbackDays is the number of trailing observation days that guarantees
// every feature in the grammar can be produced. The 30-day difference needs
// the value 31 days before the target.
const MaxLookbackDays = 31

// featureDef describes one producible feature: the trailing days of history
// it needs and how to compute it.
type featureDef struct {
	lookback int
	compute  func() float64
}

// Builder derives feature vectors from ordered historical series. It is
// stateless and safe for concurrent use.
type Builder struct{}

// NewBuilder creates a feature Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces the feature vector for the target date from the station's
// ordered history, matching featureNames exactly (names and order).
//
// The series must be contiguous daily observations ending the day before the
// target date; the training data is imputed so gaps indicate a broken feed.
// It fails with insufficient_history when the series is too short (or does
// not reach the day before target), and with feature_schema_mismatch when a
// requested name is outside the feature grammar. Identical inputs always
// produce identical vectors.
func (b *Builder) Build(series []types.HistoricalRecord, target time.Time, featureNames []string) (types.FeatureVector, error) {
	if len(featureNames) == 0 {
		return types.FeatureVector{}, types.NewAppError(
			types.ErrCodeFeatureSchemaMismatch,
			"model feature list is empty",
			nil,
		)
	}

	target = types.CivilDate(target)
	if err := validateSeries(series, target); err != nil {
		return types.FeatureVector{}, err
	}

	tmin := make([]float64, len(series))
	tmax := make([]float64, len(series))
	prec := make([]float64, len(series))
	for i, rec := range series {
		tmin[i] = rec.MinTemp
		tmax[i] = rec.MaxTemp
		prec[i] = rec.Precipitation
	}

	defs := buildDefs(target, tmin, tmax, prec)

	vec := types.FeatureVector{
		Names:  make([]string, 0, len(featureNames)),
		Values: make([]float64, 0, len(featureNames)),
	}
	for _, name := range featureNames {
		def, ok := defs[name]
		if !ok {
			return types.FeatureVector{}, types.NewAppErrorWithDetails(
				types.ErrCodeFeatureSchemaMismatch,
				fmt.Sprintf("model expects feature %q which the builder cannot produce", name),
				nil,
				map[string]any{"feature": name},
			)
		}
		if def.lookback > len(series) {
			return types.FeatureVector{}, types.NewAppErrorWithDetails(
				types.ErrCodeInsufficientHistory,
				fmt.Sprintf("feature %q needs %d trailing days, series has %d", name, def.lookback, len(series)),
				nil,
				map[string]any{"feature": name, "required_days": def.lookback, "available_days": len(series)},
			)
		}
		vec.Names = append(vec.Names, name)
		vec.Values = append(vec.Values, def.compute())
	}
	return vec, nil
}

// validateSeries checks ordering, contiguity, and that the series ends the
// day before the target date.
func validateSeries(series []types.HistoricalRecord, target time.Time) error {
	if len(series) == 0 {
		return types.NewAppError(
			types.ErrCodeInsufficientHistory,
			"no historical observations available",
			nil,
		)
	}

	last := types.CivilDate(series[len(series)-1].Date)
	if !last.Equal(target.AddDate(0, 0, -1)) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeInsufficientHistory,
			"series does not reach the day before the target date",
			nil,
			map[string]any{
				"last_observation": last.Format("2006-01-02"),
				"target_date":      target.Format("2006-01-02"),
			},
		)
	}

	prev := types.CivilDate(series[0].Date)
	for _, rec := range series[1:] {
		d := types.CivilDate(rec.Date)
		if !d.Equal(prev.AddDate(0, 0, 1)) {
			return types.NewAppErrorWithDetails(
				types.ErrCodeInsufficientHistory,
				"series has a gap or is out of order",
				nil,
				map[string]any{"after": prev.Format("2006-01-02"), "got": d.Format("2006-01-02")},
			)
		}
		prev = d
	}
	return nil
}

// buildDefs assembles the full feature grammar for one (series, target) pair.
// Index convention: the last series element is the day before target, so
// "lag n" reads n elements from the end.
func buildDefs(target time.Time, tmin, tmax, prec []float64) map[string]featureDef {
	defs := make(map[string]featureDef, 96)
	cal := calendarFor(target)

	addCyclical := func(name string, value, period int) {
		s, c := cyclical(value, period)
		defs[name+"_sin"] = featureDef{compute: func() float64 { return s }}
		defs[name+"_cos"] = featureDef{compute: func() float64 { return c }}
	}

	// Calendar features are pure functions of the target date.
	defs["month"] = featureDef{compute: func() float64 { return float64(cal.month) }}
	defs["doy"] = featureDef{compute: func() float64 { return float64(cal.doy) }}
	defs["week"] = featureDef{compute: func() float64 { return float64(cal.week) }}
	defs["weekday"] = featureDef{compute: func() float64 { return float64(cal.weekday) }}
	defs["quarter"] = featureDef{compute: func() float64 { return float64(cal.quarter) }}
	addCyclical("month", cal.month, monthPeriod)
	addCyclical("doy", cal.doy, doyPeriod)
	addCyclical("week", cal.week, weekPeriod)
	addCyclical("weekday", cal.weekday, weekdayPeriod)

	lag := func(vals []float64, n int) float64 { return vals[len(vals)-n] }

	for _, n := range LagDays {
		n := n
		defs[fmt.Sprintf("tmin_lag_%d", n)] = featureDef{
			lookback: n,
			compute:  func() float64 { return lag(tmin, n) },
		}
	}

	for _, w := range RollingWindows {
		w := w
		defs[fmt.Sprintf("tmin_mean_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return mean(tail(tmin, w)) },
		}
		defs[fmt.Sprintf("tmin_std_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return sampleStd(tail(tmin, w)) },
		}
		defs[fmt.Sprintf("tmin_min_%d", w)] = featureDef{
			lookback: w,
			compute: func() float64 {
				lo, _ := minMax(tail(tmin, w))
				return lo
			},
		}
		defs[fmt.Sprintf("tmin_max_%d", w)] = featureDef{
			lookback: w,
			compute: func() float64 {
				_, hi := minMax(tail(tmin, w))
				return hi
			},
		}
	}

	// Differences: most recent value minus the value n days earlier.
	for _, n := range DiffDays {
		n := n
		defs[fmt.Sprintf("tmin_diff_%d", n)] = featureDef{
			lookback: n + 1,
			compute:  func() float64 { return lag(tmin, 1) - lag(tmin, n+1) },
		}
	}

	for _, w := range TrendWindows {
		w := w
		defs[fmt.Sprintf("tmin_trend_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return trendSlope(tail(tmin, w)) },
		}
		defs[fmt.Sprintf("tmin_range_%d", w)] = featureDef{
			lookback: w,
			compute: func() float64 {
				lo, hi := minMax(tail(tmin, w))
				return hi - lo
			},
		}
		defs[fmt.Sprintf("tmin_q25_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return quantile(tail(tmin, w), 0.25) },
		}
		defs[fmt.Sprintf("tmin_q75_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return quantile(tail(tmin, w), 0.75) },
		}
	}

	// Acceleration: second difference of the series at the most recent day.
	defs["tmin_accel"] = featureDef{
		lookback: 3,
		compute:  func() float64 { return lag(tmin, 1) - 2*lag(tmin, 2) + lag(tmin, 3) },
	}

	// Frost classifier extensions: precipitation and maximum temperature.
	for _, n := range AuxLagDays {
		n := n
		defs[fmt.Sprintf("prec_lag_%d", n)] = featureDef{
			lookback: n,
			compute:  func() float64 { return lag(prec, n) },
		}
	}
	for _, w := range AuxWindows {
		w := w
		defs[fmt.Sprintf("prec_mean_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return mean(tail(prec, w)) },
		}
		defs[fmt.Sprintf("prec_sum_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return sum(tail(prec, w)) },
		}
		defs[fmt.Sprintf("tmax_mean_%d", w)] = featureDef{
			lookback: w,
			compute:  func() float64 { return mean(tail(tmax, w)) },
		}
	}
	defs["prec_any"] = featureDef{
		lookback: 1,
		compute: func() float64 {
			if lag(prec, 1) > 0 {
				return 1
			}
			return 0
		},
	}
	defs["tmax_lag_1"] = featureDef{
		lookback: 1,
		compute:  func() float64 { return lag(tmax, 1) },
	}
	defs["tmax_diff_1"] = featureDef{
		lookback: 2,
		compute:  func() float64 { return lag(tmax, 1) - lag(tmax, 2) },
	}
	defs["thermal_range"] = featureDef{
		lookback: 1,
		compute:  func() float64 { return lag(tmax, 1) - lag(tmin, 1) },
	}

	return defs
}
