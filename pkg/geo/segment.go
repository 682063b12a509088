package geo

import (
	"github.com/golang/geo/s2"
)

// ClosestSegmentPoint projects a query position onto the segment (a, b),
// clamped to the segment's extent. It returns the projected position and
// the relative offset 0..1 of the projection along the segment.
func ClosestSegmentPoint(queryLat, queryLon, aLat, aLon, bLat, bLon float64) (float64, float64, float64) {
	if aLat == bLat && aLon == bLon {
		return aLat, aLon, 0
	}

	query := s2.PointFromLatLng(s2.LatLngFromDegrees(queryLat, queryLon))
	segA := s2.PointFromLatLng(s2.LatLngFromDegrees(aLat, aLon))
	segB := s2.PointFromLatLng(s2.LatLngFromDegrees(bLat, bLon))

	projection := s2.Project(query, segA, segB)
	projLatLng := s2.LatLngFromPoint(projection)
	lat := projLatLng.Lat.Degrees()
	lon := projLatLng.Lng.Degrees()

	segLen := HaversineDistance(aLat, aLon, bLat, bLon)
	relOffset := 0.0
	if segLen > 0 {
		relOffset = HaversineDistance(aLat, aLon, lat, lon) / segLen
	}
	if relOffset > 1 {
		relOffset = 1
	}
	return lat, lon, relOffset
}
