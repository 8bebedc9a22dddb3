// Package geo provides the spatial primitives for the prediction engine:
// the municipal validity polygon with its point-in-polygon test, and the
// planar distance approximation used for inverse-distance weighting.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"frostwatch/internal/types"
)

// boundaryEpsilon is the tolerance (in degrees) for treating a point as lying
// exactly on a polygon edge. Boundary points count as inside.
const boundaryEpsilon = 1e-9

// Polygon is a closed ring of vertices defining the validity area for
// interpolated predictions. It is loaded once at startup and never mutated.
// The ring may be stored open (first vertex not repeated at the end); Contains
// closes it implicitly.
type Polygon struct {
	vertices []types.GeoPoint
}

// NewPolygon builds a Polygon from a vertex ring. A trailing vertex equal to
// the first is dropped so the ring is stored open. At least three distinct
// vertices are required.
func NewPolygon(vertices []types.GeoPoint) (*Polygon, error) {
	if len(vertices) > 1 && vertices[0] == vertices[len(vertices)-1] {
		vertices = vertices[:len(vertices)-1]
	}
	if len(vertices) < 3 {
		return nil, fmt.Errorf("polygon requires at least 3 vertices, got %d", len(vertices))
	}
	ring := make([]types.GeoPoint, len(vertices))
	copy(ring, vertices)
	return &Polygon{vertices: ring}, nil
}

// Vertices returns a copy of the polygon ring.
func (p *Polygon) Vertices() []types.GeoPoint {
	out := make([]types.GeoPoint, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Contains reports whether the point lies inside the polygon using the
// ray-casting test: a horizontal ray cast from the point crosses the ring an
// odd number of times iff the point is inside. A point lying exactly on an
// edge (or vertex) is treated as inside; this tie-break is fixed and tested.
func (p *Polygon) Contains(pt types.GeoPoint) bool {
	n := len(p.vertices)

	// Boundary check first so edge points are deterministic regardless of
	// crossing parity.
	for i := 0; i < n; i++ {
		a := p.vertices[i]
		b := p.vertices[(i+1)%n]
		if onSegment(pt, a, b) {
			return true
		}
	}

	inside := false
	a := p.vertices[0]
	for i := 1; i <= n; i++ {
		b := p.vertices[i%n]
		if pt.Lon > math.Min(a.Lon, b.Lon) && pt.Lon <= math.Max(a.Lon, b.Lon) {
			if pt.Lat <= math.Max(a.Lat, b.Lat) && a.Lon != b.Lon {
				xint := (pt.Lon-a.Lon)*(b.Lat-a.Lat)/(b.Lon-a.Lon) + a.Lat
				if a.Lat == b.Lat || pt.Lat <= xint {
					inside = !inside
				}
			}
		}
		a = b
	}
	return inside
}

// onSegment reports whether pt lies on the segment [a, b] within
// boundaryEpsilon.
func onSegment(pt, a, b types.GeoPoint) bool {
	cross := (b.Lat-a.Lat)*(pt.Lon-a.Lon) - (b.Lon-a.Lon)*(pt.Lat-a.Lat)
	if math.Abs(cross) > boundaryEpsilon {
		return false
	}
	if pt.Lat < math.Min(a.Lat, b.Lat)-boundaryEpsilon || pt.Lat > math.Max(a.Lat, b.Lat)+boundaryEpsilon {
		return false
	}
	if pt.Lon < math.Min(a.Lon, b.Lon)-boundaryEpsilon || pt.Lon > math.Max(a.Lon, b.Lon)+boundaryEpsilon {
		return false
	}
	return true
}

// geoJSON mirrors the subset of the GeoJSON FeatureCollection structure the
// municipal boundary file uses. Coordinates are [lon, lat] per the GeoJSON
// spec and are flipped on load.
type geoJSON struct {
	Features []struct {
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// LoadPolygonFile reads the validity polygon from a GeoJSON FeatureCollection
// file containing a single Polygon feature (the first feature's outer ring).
func LoadPolygonFile(path string) (*Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading polygon file %s: %w", path, err)
	}
	return ParsePolygonGeoJSON(data)
}

// ParsePolygonGeoJSON parses a GeoJSON FeatureCollection into a Polygon.
func ParsePolygonGeoJSON(data []byte) (*Polygon, error) {
	var gj geoJSON
	if err := json.Unmarshal(data, &gj); err != nil {
		return nil, fmt.Errorf("parsing polygon geojson: %w", err)
	}
	if len(gj.Features) == 0 || len(gj.Features[0].Geometry.Coordinates) == 0 {
		return nil, fmt.Errorf("polygon geojson has no polygon feature")
	}
	ring := gj.Features[0].Geometry.Coordinates[0]
	vertices := make([]types.GeoPoint, 0, len(ring))
	for _, coord := range ring {
		if len(coord) < 2 {
			return nil, fmt.Errorf("polygon geojson has malformed coordinate %v", coord)
		}
		vertices = append(vertices, types.GeoPoint{Lat: coord[1], Lon: coord[0]})
	}
	return NewPolygon(vertices)
}
