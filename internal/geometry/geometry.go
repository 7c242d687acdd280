// Package geometry implements the Geometry Service (spec.md §4.1): parsing
// GeoJSON polygon encodings and answering point-in-polygon queries with the
// ray-casting rule. No third-party geometry library surfaced in the
// retrieved example pack, so this is a small, self-contained implementation
// over math.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
)

var ErrMalformedGeometry = fmt.Errorf("malformed geometry")

// Point is a (lon, lat) pair, matching the GeoJSON coordinate order used on
// the wire (spec.md §6: "Polygon coordinates are [lon, lat] pairs").
type Point struct {
	Lon float64
	Lat float64
}

// Region is the parsed, in-memory polygon a Store row's polygon_json decodes
// into. Only the outer ring is kept; spec.md §6 says extra rings are ignored.
type Region struct {
	Ring []Point
}

type geoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Parse decodes a GeoJSON "Polygon" object into a Region. It fails with
// ErrMalformedGeometry when the encoding is not a Polygon or its outer ring
// has fewer than 3 distinct vertices. An outer ring whose last vertex differs
// from its first is closed by appending the first vertex, not rejected.
func Parse(encoded string) (*Region, error) {
	var poly geoJSONPolygon
	if err := json.Unmarshal([]byte(encoded), &poly); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	if poly.Type != "" && poly.Type != "Polygon" {
		return nil, fmt.Errorf("%w: type %q is not Polygon", ErrMalformedGeometry, poly.Type)
	}
	if len(poly.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: no rings", ErrMalformedGeometry)
	}

	outer := poly.Coordinates[0]
	ring := make([]Point, 0, len(outer))
	for _, c := range outer {
		if len(c) < 2 {
			return nil, fmt.Errorf("%w: coordinate missing lat/lon", ErrMalformedGeometry)
		}
		ring = append(ring, Point{Lon: c[0], Lat: c[1]})
	}

	if err := validateRing(ring); err != nil {
		return nil, err
	}

	return &Region{Ring: closeRing(dedupeConsecutive(ring))}, nil
}

func dedupeConsecutive(ring []Point) []Point {
	out := make([]Point, 0, len(ring))
	for i, p := range ring {
		if i == 0 || p != ring[i-1] {
			out = append(out, p)
		}
	}
	return out
}

func closeRing(ring []Point) []Point {
	if len(ring) == 0 {
		return ring
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// validateRing enforces the invariant from spec.md §3: the vertex ring must
// have >= 4 vertices (>= 3 distinct) once closed.
func validateRing(ring []Point) error {
	distinct := map[Point]struct{}{}
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	// a trailing closing vertex equal to the first is a single map key, so
	// it is counted once
	if len(ring) >= 2 && ring[0] == ring[len(ring)-1] {
		delete(distinct, ring[0])
		distinct[ring[0]] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("%w: fewer than 3 distinct vertices", ErrMalformedGeometry)
	}
	return nil
}

// Contains reports whether (lat, lon) lies inside the region using the
// even-odd ray-casting rule. Points exactly on the boundary are treated as
// inside, per spec.md §4.1's deterministic tiebreak.
func Contains(r *Region, lat, lon float64) bool {
	if r == nil || len(r.Ring) < 4 {
		return false
	}
	if onBoundary(r.Ring, lat, lon) {
		return true
	}

	inside := false
	ring := r.Ring
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat

		if (yi > lat) != (yj > lat) {
			xIntersect := xi + (lat-yi)/(yj-yi)*(xj-xi)
			if lon < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

func onBoundary(ring []Point, lat, lon float64) bool {
	n := len(ring)
	const eps = 1e-9
	for i := 0; i < n-1; i++ {
		a, b := ring[i], ring[i+1]
		if onSegment(a, b, lon, lat, eps) {
			return true
		}
	}
	return false
}

func onSegment(a, b Point, x, y, eps float64) bool {
	// cross product near zero => collinear
	cross := (b.Lon-a.Lon)*(y-a.Lat) - (b.Lat-a.Lat)*(x-a.Lon)
	if math.Abs(cross) > eps {
		return false
	}
	minX, maxX := math.Min(a.Lon, b.Lon), math.Max(a.Lon, b.Lon)
	minY, maxY := math.Min(a.Lat, b.Lat), math.Max(a.Lat, b.Lat)
	return x >= minX-eps && x <= maxX+eps && y >= minY-eps && y <= maxY+eps
}

// CentroidAndExtent returns the (lat, lon) centroid of the ring's vertices
// and the largest of its lat/lon spans, in degrees. Deterministic: the mean
// of the distinct vertices, not an area-weighted centroid, so it does not
// depend on winding order or floating-point accumulation order.
func CentroidAndExtent(r *Region) (lat, lon, maxDimensionDeg float64) {
	if r == nil || len(r.Ring) == 0 {
		return 0, 0, 0
	}
	pts := r.Ring
	if pts[0] == pts[len(pts)-1] && len(pts) > 1 {
		pts = pts[:len(pts)-1]
	}

	minLat, maxLat := pts[0].Lat, pts[0].Lat
	minLon, maxLon := pts[0].Lon, pts[0].Lon
	var sumLat, sumLon float64
	for _, p := range pts {
		sumLat += p.Lat
		sumLon += p.Lon
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	lat = sumLat / float64(len(pts))
	lon = sumLon / float64(len(pts))
	maxDimensionDeg = math.Max(maxLat-minLat, maxLon-minLon)
	return
}

// Encode renders a Region back into a GeoJSON Polygon object, used when the
// Store needs to round-trip a repaired/normalized ring.
func Encode(r *Region) (string, error) {
	coords := make([][]float64, 0, len(r.Ring))
	for _, p := range r.Ring {
		coords = append(coords, []float64{p.Lon, p.Lat})
	}
	out := geoJSONPolygon{Type: "Polygon", Coordinates: [][][]float64{coords}}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
