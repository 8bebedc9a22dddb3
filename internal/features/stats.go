package features

import (
	"math"
	"sort"
)

// tail returns the last n values of vals. Callers must have verified
// len(vals) >= n.
func tail(vals []float64, n int) []float64 {
	return vals[len(vals)-n:]
}

// mean returns the arithmetic mean of vals.
func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sum returns the total of vals.
func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// sampleStd returns the sample standard deviation (n-1 denominator) of vals,
// matching the rolling std the models were trained with. Returns 0 for
// windows of size 1.
func sampleStd(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// minMax returns the minimum and maximum of vals.
func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// quantile returns the q-th quantile of vals using linear interpolation
// between order statistics, matching the training pipeline's convention.
func quantile(vals []float64, q float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// trendSlope returns the least-squares linear slope of vals against their
// indices (0..n-1). Windows shorter than 5 values carry no meaningful trend
// and return 0, matching the training pipeline.
func trendSlope(vals []float64) float64 {
	n := len(vals)
	if n < 5 {
		return 0
	}
	// Closed-form simple linear regression over x = 0..n-1.
	xMean := float64(n-1) / 2
	yMean := mean(vals)
	var num, den float64
	for i, v := range vals {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
