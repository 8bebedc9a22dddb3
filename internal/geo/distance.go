package geo

import (
	"math"

	"frostwatch/internal/types"
)

// kmPerDegree is the approximate length of one degree of latitude in
// kilometers. Longitude degrees are scaled by cos(lat).
const kmPerDegree = 111.0

// DistanceKm returns the planar approximation of the distance between two
// points in kilometers. At municipal scale (a few tens of kilometers around
// 4.8 degrees N) the planar error against haversine is negligible, and the
// approximation matches the weighting the models were calibrated with.
func DistanceKm(a, b types.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * kmPerDegree
	dLon := (b.Lon - a.Lon) * kmPerDegree * math.Cos(a.Lat*math.Pi/180)
	return math.Sqrt(dLat*dLat + dLon*dLon)
}
