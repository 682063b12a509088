package geo

import "math"

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

func NewBBox(minLat, minLon, maxLat, maxLon float64) BBox {
	return BBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

// EmptyBBox returns a box that extends to nothing.
func EmptyBBox() BBox {
	return BBox{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

func (b BBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ExtendWith grows the box to cover the given position.
func (b BBox) ExtendWith(lat, lon float64) BBox {
	return BBox{
		MinLat: math.Min(b.MinLat, lat),
		MinLon: math.Min(b.MinLon, lon),
		MaxLat: math.Max(b.MaxLat, lat),
		MaxLon: math.Max(b.MaxLon, lon),
	}
}

// ExtendWithBBox grows the box to cover another box.
func (b BBox) ExtendWithBBox(bb BBox) BBox {
	return BBox{
		MinLat: math.Min(b.MinLat, bb.MinLat),
		MinLon: math.Min(b.MinLon, bb.MinLon),
		MaxLat: math.Max(b.MaxLat, bb.MaxLat),
		MaxLon: math.Max(b.MaxLon, bb.MaxLon),
	}
}

// MinDistance returns a lower bound, in meters, on the distance from the
// position to any point inside the box. The position is clamped into the
// box, so the bound never exceeds the true distance to any interior point.
func (b BBox) MinDistance(lat, lon float64) float64 {
	clampedLat := math.Max(b.MinLat, math.Min(b.MaxLat, lat))
	clampedLon := math.Max(b.MinLon, math.Min(b.MaxLon, lon))
	if clampedLat == lat && clampedLon == lon {
		return 0
	}
	return HaversineDistance(lat, lon, clampedLat, clampedLon)
}
