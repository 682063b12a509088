package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineDistance(t *testing.T) {
	// Tugu Yogyakarta -> Malioboro, roughly 1.1km apart
	dist := HaversineDistance(-7.782916, 110.367033, -7.792459, 110.365651)
	assert.InDelta(t, 1070, dist, 40)

	assert.Equal(t, 0.0, HaversineDistance(-7.78, 110.36, -7.78, 110.36))
}

func TestBearingTo(t *testing.T) {
	// due east along the equator
	assert.InDelta(t, 90.0, BearingTo(0, 0, 0, 1), 0.01)
	// due north
	assert.InDelta(t, 0.0, BearingTo(0, 0, 1, 0), 0.01)
	// due south
	assert.InDelta(t, 180.0, BearingTo(1, 0, 0, 0), 0.01)
}

func TestClosestSegmentPointProjection(t *testing.T) {
	// horizontal segment along the equator, query above the middle
	lat, lon, offset := ClosestSegmentPoint(0.001, 0.0005, 0, 0, 0, 0.001)
	assert.InDelta(t, 0.0, lat, 1e-6)
	assert.InDelta(t, 0.0005, lon, 1e-6)
	assert.InDelta(t, 0.5, offset, 0.01)
}

func TestClosestSegmentPointClamped(t *testing.T) {
	// query beyond segment end projects onto the end point
	lat, lon, offset := ClosestSegmentPoint(0, 0.002, 0, 0, 0, 0.001)
	assert.InDelta(t, 0.0, lat, 1e-6)
	assert.InDelta(t, 0.001, lon, 1e-6)
	assert.InDelta(t, 1.0, offset, 1e-3)
}

func TestClosestSegmentPointDegenerate(t *testing.T) {
	lat, lon, offset := ClosestSegmentPoint(1, 1, 2, 2, 2, 2)
	require.Equal(t, 2.0, lat)
	require.Equal(t, 2.0, lon)
	require.Equal(t, 0.0, offset)
}

func TestBBoxMinDistanceIsLowerBound(t *testing.T) {
	box := NewBBox(-1, -1, 1, 1)

	// inside the box the bound is zero
	assert.Equal(t, 0.0, box.MinDistance(0.5, -0.2))

	// outside, the bound never exceeds the distance to any interior point
	lowerBound := box.MinDistance(3, 0)
	for _, p := range [][2]float64{{1, 0}, {0, 0}, {1, 1}, {-1, -1}, {0.3, 0.7}} {
		assert.LessOrEqual(t, lowerBound, HaversineDistance(3, 0, p[0], p[1]))
	}
}

func TestBBoxExtend(t *testing.T) {
	box := EmptyBBox()
	require.True(t, box.IsEmpty())

	box = box.ExtendWith(1, 2)
	box = box.ExtendWith(-1, 5)
	require.False(t, box.IsEmpty())
	assert.Equal(t, NewBBox(-1, 2, 1, 5), box)
	assert.True(t, box.Contains(0, 3))
	assert.False(t, box.Contains(2, 3))
}
