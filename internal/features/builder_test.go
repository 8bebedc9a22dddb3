package features

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frostwatch/internal/types"
)

// flatSeries builds days contiguous observations ending the day before
// target, with constant values.
func flatSeries(target time.Time, days int, tmin, tmax, prec float64) []types.HistoricalRecord {
	target = types.CivilDate(target)
	out := make([]types.HistoricalRecord, days)
	for i := 0; i < days; i++ {
		out[i] = types.HistoricalRecord{
			StationCode:   "21205880",
			Date:          target.AddDate(0, 0, i-days),
			MinTemp:       tmin,
			MaxTemp:       tmax,
			Precipitation: prec,
		}
	}
	return out
}

// rampSeries builds observations whose tmin increases by 1.0 per day,
// ending at end the day before target.
func rampSeries(target time.Time, days int, end float64) []types.HistoricalRecord {
	target = types.CivilDate(target)
	out := make([]types.HistoricalRecord, days)
	for i := 0; i < days; i++ {
		out[i] = types.HistoricalRecord{
			StationCode:   "21205880",
			Date:          target.AddDate(0, 0, i-days),
			MinTemp:       end - float64(days-1-i),
			MaxTemp:       end + 10,
			Precipitation: 0,
		}
	}
	return out
}

var testTarget = time.Date(2026, 1, 15, 0, 0, 0, 0, types.BogotaZone)

func TestBuild_MatchesRequestedSchema(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)
	names := []string{"tmin_lag_1", "tmin_mean_7", "doy_sin", "month"}

	vec, err := b.Build(series, testTarget, names)
	require.NoError(t, err)

	assert.Equal(t, names, vec.Names)
	assert.Len(t, vec.Values, len(names))
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder()
	series := rampSeries(testTarget, 40, 8)
	names := []string{"tmin_lag_1", "tmin_std_14", "tmin_trend_30", "tmin_q25_7", "weekday_cos"}

	first, err := b.Build(series, testTarget, names)
	require.NoError(t, err)
	second, err := b.Build(series, testTarget, names)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_LagValues(t *testing.T) {
	b := NewBuilder()
	// tmin of day (target - n) equals end - (n - 1) on a unit ramp.
	series := rampSeries(testTarget, 40, 20)

	vec, err := b.Build(series, testTarget, []string{
		"tmin_lag_1", "tmin_lag_2", "tmin_lag_7", "tmin_lag_30",
	})
	require.NoError(t, err)

	assert.InDelta(t, 20.0, vec.Values[0], 1e-12)
	assert.InDelta(t, 19.0, vec.Values[1], 1e-12)
	assert.InDelta(t, 14.0, vec.Values[2], 1e-12)
	assert.InDelta(t, -9.0, vec.Values[3], 1e-12)
}

func TestBuild_RollingStatsOnFlatSeries(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)

	vec, err := b.Build(series, testTarget, []string{
		"tmin_mean_30", "tmin_std_30", "tmin_min_7", "tmin_max_7",
		"tmin_range_14", "tmin_q25_14", "tmin_q75_14", "tmin_trend_30",
		"tmin_diff_7", "tmin_accel",
	})
	require.NoError(t, err)

	want := []float64{5, 0, 5, 5, 0, 5, 5, 0, 0, 0}
	for i, name := range vec.Names {
		assert.InDelta(t, want[i], vec.Values[i], 1e-12, "feature %s", name)
	}
}

func TestBuild_RollingStatsOnRamp(t *testing.T) {
	b := NewBuilder()
	series := rampSeries(testTarget, 40, 10)

	vec, err := b.Build(series, testTarget, []string{
		"tmin_mean_3",  // mean of {8, 9, 10}
		"tmin_std_3",   // sample std of a unit ramp is 1
		"tmin_trend_7", // unit slope
		"tmin_diff_1",  // 10 - 9
		"tmin_diff_30", // 10 - (-20)
		"tmin_range_7",
	})
	require.NoError(t, err)

	assert.InDelta(t, 9.0, vec.Values[0], 1e-12)
	assert.InDelta(t, 1.0, vec.Values[1], 1e-12)
	assert.InDelta(t, 1.0, vec.Values[2], 1e-12)
	assert.InDelta(t, 1.0, vec.Values[3], 1e-12)
	assert.InDelta(t, 30.0, vec.Values[4], 1e-12)
	assert.InDelta(t, 6.0, vec.Values[5], 1e-12)
}

func TestBuild_CalendarFeatures(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)

	// 2026-01-15 is a Thursday (weekday 3, Monday = 0), day-of-year 15.
	vec, err := b.Build(series, testTarget, []string{
		"month", "doy", "weekday", "quarter", "month_sin", "month_cos", "doy_sin",
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, vec.Values[0], 1e-12)
	assert.InDelta(t, 15.0, vec.Values[1], 1e-12)
	assert.InDelta(t, 3.0, vec.Values[2], 1e-12)
	assert.InDelta(t, 1.0, vec.Values[3], 1e-12)
	assert.InDelta(t, math.Sin(2*math.Pi/12), vec.Values[4], 1e-12)
	assert.InDelta(t, math.Cos(2*math.Pi/12), vec.Values[5], 1e-12)
	assert.InDelta(t, math.Sin(2*math.Pi*15/365), vec.Values[6], 1e-12)
}

func TestBuild_FrostExtensions(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)
	// Rain only on the last day before target.
	series[len(series)-1].Precipitation = 2.5

	vec, err := b.Build(series, testTarget, []string{
		"prec_lag_1", "prec_lag_2", "prec_sum_7", "prec_mean_7", "prec_any",
		"tmax_lag_1", "tmax_diff_1", "thermal_range", "tmax_mean_3",
	})
	require.NoError(t, err)

	assert.InDelta(t, 2.5, vec.Values[0], 1e-12)
	assert.InDelta(t, 0.0, vec.Values[1], 1e-12)
	assert.InDelta(t, 2.5, vec.Values[2], 1e-12)
	assert.InDelta(t, 2.5/7, vec.Values[3], 1e-12)
	assert.InDelta(t, 1.0, vec.Values[4], 1e-12)
	assert.InDelta(t, 18.0, vec.Values[5], 1e-12)
	assert.InDelta(t, 0.0, vec.Values[6], 1e-12)
	assert.InDelta(t, 13.0, vec.Values[7], 1e-12)
	assert.InDelta(t, 18.0, vec.Values[8], 1e-12)
}

func TestBuild_UnknownFeatureName(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)

	_, err := b.Build(series, testTarget, []string{"tmin_lag_1", "tmin_exotic_99"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeFeatureSchemaMismatch, appErr.Code)
	assert.Equal(t, "tmin_exotic_99", appErr.Details["feature"])
}

func TestBuild_UnsupportedParameterIsMismatch(t *testing.T) {
	// Well-formed names with out-of-grammar parameters must also fail.
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)

	for _, name := range []string{"tmin_lag_5", "tmin_mean_10", "prec_lag_14"} {
		_, err := b.Build(series, testTarget, []string{name})
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr), "feature %s", name)
		assert.Equal(t, types.ErrCodeFeatureSchemaMismatch, appErr.Code, "feature %s", name)
	}
}

func TestBuild_InsufficientHistory(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 10, 5, 18, 0)

	_, err := b.Build(series, testTarget, []string{"tmin_lag_30"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInsufficientHistory, appErr.Code)
	assert.Equal(t, 30, appErr.Details["required_days"])
	assert.Equal(t, 10, appErr.Details["available_days"])
}

func TestBuild_Diff30NeedsThirtyOneDays(t *testing.T) {
	b := NewBuilder()

	_, err := b.Build(flatSeries(testTarget, 30, 5, 18, 0), testTarget, []string{"tmin_diff_30"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInsufficientHistory, appErr.Code)

	_, err = b.Build(flatSeries(testTarget, 31, 5, 18, 0), testTarget, []string{"tmin_diff_30"})
	assert.NoError(t, err)
}

func TestBuild_SeriesMustEndDayBeforeTarget(t *testing.T) {
	b := NewBuilder()
	stale := flatSeries(testTarget.AddDate(0, 0, -2), 40, 5, 18, 0)

	_, err := b.Build(stale, testTarget, []string{"tmin_lag_1"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInsufficientHistory, appErr.Code)
}

func TestBuild_SeriesGapRejected(t *testing.T) {
	b := NewBuilder()
	series := flatSeries(testTarget, 40, 5, 18, 0)
	// Remove a middle day to create a gap.
	series = append(series[:20], series[21:]...)

	_, err := b.Build(series, testTarget, []string{"tmin_lag_1"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInsufficientHistory, appErr.Code)
}

func TestBuild_EmptySeries(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(nil, testTarget, []string{"month"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInsufficientHistory, appErr.Code)
}

func TestBuild_EmptySchema(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(flatSeries(testTarget, 40, 5, 18, 0), testTarget, nil)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeFeatureSchemaMismatch, appErr.Code)
}

func TestBuild_FullGrammarWithMaxLookback(t *testing.T) {
	// Every supported feature must be producible from MaxLookbackDays of
	// history.
	b := NewBuilder()
	series := rampSeries(testTarget, MaxLookbackDays, 12)

	var names []string
	for _, n := range LagDays {
		names = append(names, fmt.Sprintf("tmin_lag_%d", n))
	}
	for _, w := range RollingWindows {
		names = append(names,
			fmt.Sprintf("tmin_mean_%d", w), fmt.Sprintf("tmin_std_%d", w),
			fmt.Sprintf("tmin_min_%d", w), fmt.Sprintf("tmin_max_%d", w))
	}
	for _, n := range DiffDays {
		names = append(names, fmt.Sprintf("tmin_diff_%d", n))
	}
	for _, w := range TrendWindows {
		names = append(names,
			fmt.Sprintf("tmin_trend_%d", w), fmt.Sprintf("tmin_range_%d", w),
			fmt.Sprintf("tmin_q25_%d", w), fmt.Sprintf("tmin_q75_%d", w))
	}
	for _, n := range AuxLagDays {
		names = append(names, fmt.Sprintf("prec_lag_%d", n))
	}
	for _, w := range AuxWindows {
		names = append(names,
			fmt.Sprintf("prec_mean_%d", w), fmt.Sprintf("prec_sum_%d", w),
			fmt.Sprintf("tmax_mean_%d", w))
	}
	names = append(names,
		"tmin_accel", "prec_any", "tmax_lag_1", "tmax_diff_1", "thermal_range",
		"month", "doy", "week", "weekday", "quarter",
		"month_sin", "month_cos", "doy_sin", "doy_cos",
		"week_sin", "week_cos", "weekday_sin", "weekday_cos",
	)

	vec, err := b.Build(series, testTarget, names)
	require.NoError(t, err)
	assert.Equal(t, names, vec.Names)
	for i, v := range vec.Values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "feature %s is not finite", vec.Names[i])
	}
}
