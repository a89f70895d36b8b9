// Package geo wraps orb for the handful of spherical checks clustering and
// location matching need. Points are orb.Point{lon, lat} in degrees; distances are meters
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Point builds an orb point from latitude and longitude (note the argument order)
func Point(lat, lon float64) orb.Point { return orb.Point{lon, lat} }

// ValidLatLon reports whether lat/lon are finite and within WGS84 ranges
func ValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Distance is the haversine distance between two points
func Distance(a, b orb.Point) float64 { return geo.DistanceHaversine(a, b) }

// Clamp returns the point of b closest to p in lon/lat space
func Clamp(b orb.Bound, p orb.Point) orb.Point {
	return orb.Point{
		math.Min(math.Max(p[0], b.Min[0]), b.Max[0]),
		math.Min(math.Max(p[1], b.Min[1]), b.Max[1]),
	}
}

// DistanceToBound is the haversine distance from p to the nearest point of b; 0 when inside
func DistanceToBound(b orb.Bound, p orb.Point) float64 {
	if b.Contains(p) {
		return 0
	}
	return geo.DistanceHaversine(p, Clamp(b, p))
}

// WithinExpanded reports whether p lies inside b grown by meters on every side
func WithinExpanded(b orb.Bound, p orb.Point, meters float64) bool {
	return DistanceToBound(b, p) <= meters
}

// CircleIntersectsBound reports whether the circle (center, radius) touches b
func CircleIntersectsBound(center orb.Point, radius float64, b orb.Bound) bool {
	return DistanceToBound(b, center) <= radius
}

// SearchBox returns a degree box around p that contains every point within
// meters of it. It is a prefilter only; callers confirm with an exact check.
// The longitude span becomes the full range near the poles and when the box
// would cross the antimeridian (orb wraps it, leaving Min > Max)
func SearchBox(p orb.Point, meters float64) orb.Bound {
	b := geo.NewBoundAroundPoint(p, meters)
	if b.Min[1] < -90 {
		b.Min[1] = -90
	}
	if b.Max[1] > 90 {
		b.Max[1] = 90
	}
	if b.Min[0] > b.Max[0] || b.Min[0] < -180 || b.Max[0] > 180 || b.Min[1] <= -90 || b.Max[1] >= 90 {
		b.Min[0], b.Max[0] = -180, 180
	}
	return b
}

// Intersects reports whether two bounds overlap (edges count)
func Intersects(a, b orb.Bound) bool { return a.Intersects(b) }

// BoundOf returns the degenerate bound of a single point
func BoundOf(p orb.Point) orb.Bound { return orb.Bound{Min: p, Max: p} }
