package features

import (
	"math"
	"time"
)

// Cyclical period lengths for the calendar encodings. Day-of-year uses 365
// to match the encoding the models were trained with, leap years included.
const (
	monthPeriod   = 12
	doyPeriod     = 365
	weekPeriod    = 52
	weekdayPeriod = 7
)

// calendarFeatures holds the raw calendar components of a target date.
// weekday is Monday-based (Monday = 0) to match the training pipeline.
type calendarFeatures struct {
	month   int
	doy     int
	week    int
	weekday int
	quarter int
}

// calendarFor extracts the calendar components of the target date.
func calendarFor(target time.Time) calendarFeatures {
	_, isoWeek := target.ISOWeek()
	weekday := (int(target.Weekday()) + 6) % 7 // Monday = 0
	return calendarFeatures{
		month:   int(target.Month()),
		doy:     target.YearDay(),
		week:    isoWeek,
		weekday: weekday,
		quarter: (int(target.Month())-1)/3 + 1,
	}
}

// cyclical returns the sine and cosine encoding of value over period.
func cyclical(value, period int) (sin, cos float64) {
	theta := 2 * math.Pi * float64(value) / float64(period)
	return math.Sin(theta), math.Cos(theta)
}
