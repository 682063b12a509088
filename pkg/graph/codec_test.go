package graph

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
)

func TestZigZag(t *testing.T) {
	assert.Equal(t, uint64(0), EncodeZigZag(0))
	assert.Equal(t, int64(0), DecodeZigZag(0))
	assert.Equal(t, uint64(1), EncodeZigZag(-1))
	assert.Equal(t, uint64(2), EncodeZigZag(1))

	for i := 0; i < 1000; i++ {
		v := rand.Int64() - rand.Int64()
		assert.Equal(t, v, DecodeZigZag(EncodeZigZag(v)))
	}
}

func TestGeometryBlockRoundTrip(t *testing.T) {
	block := &GeometryBlock{
		Geometries: [][]datastructure.Coordinate{
			{
				datastructure.NewCoordinate(-7.782916, 110.367033),
				datastructure.NewCoordinate(-7.783211, 110.368101),
				datastructure.NewCoordinate(-7.784002, 110.368099),
			},
			{},
			{
				datastructure.NewCoordinate(52.520008, 13.404954),
				datastructure.NewCoordinate(52.519899, 13.404111),
			},
		},
	}

	decoded, err := decodeGeometryBlock(encodeGeometryBlock(block))
	require.NoError(t, err)
	require.Len(t, decoded.Geometries, 3)
	for i, points := range block.Geometries {
		require.Len(t, decoded.Geometries[i], len(points))
		for j, p := range points {
			// positions survive at micro-degree resolution
			assert.InDelta(t, p.Lat, decoded.Geometries[i][j].Lat, 1e-6)
			assert.InDelta(t, p.Lon, decoded.Geometries[i][j].Lon, 1e-6)
		}
	}
}

func TestNodeBlockRoundTrip(t *testing.T) {
	block := &NodeBlock{
		Nodes: []Node{
			{
				FirstEdge:        0,
				LastEdge:         2,
				GeometryID:       NewElementID(NewBlockID(0, 3), 7),
				NameID:           InvalidElementID(),
				Weight:           150,
				TravelMode:       1,
				GeometryReversed: true,
			},
			{
				FirstEdge:  2,
				LastEdge:   2,
				GeometryID: NewElementID(NewBlockID(0, 3), 8),
				NameID:     NewElementID(NewBlockID(0, 1), 0),
				Weight:     40,
			},
		},
		Edges: []Edge{
			{
				TargetID: NewElementID(NewBlockID(0, 0), 1),
				ViaID:    InvalidElementID(),
				Weight:   200,
				TurnCode: 3,
				Forward:  true,
			},
			{
				TargetID:   NewElementID(NewBlockID(0, 5), 9),
				ViaID:      NewElementID(NewBlockID(0, 0), 1),
				Weight:     340,
				Contracted: true,
				Forward:    true,
				Backward:   true,
			},
		},
	}

	decoded, err := decodeNodeBlock(encodeNodeBlock(block), 4)
	require.NoError(t, err)
	require.Len(t, decoded.Nodes, 2)
	require.Len(t, decoded.Edges, 2)

	// decoding stamps the owning package id into every local reference
	assert.Equal(t, int32(4), decoded.Nodes[0].GeometryID.Block.PackageID)
	assert.True(t, decoded.Nodes[0].GeometryReversed)
	assert.False(t, decoded.Nodes[0].NameID.Valid())
	assert.Equal(t, int32(0), decoded.Nodes[1].NameID.Index)

	assert.True(t, decoded.Edges[1].Contracted)
	assert.True(t, decoded.Edges[1].ViaID.Valid())
	assert.Equal(t, int32(4), decoded.Edges[1].TargetID.Block.PackageID)
	assert.Equal(t, uint8(3), decoded.Edges[0].TurnCode)
	assert.False(t, decoded.Edges[0].Backward)
}

func TestDecodeNodeBlockRejectsBadEdgeRange(t *testing.T) {
	block := &NodeBlock{
		Nodes: []Node{{FirstEdge: 0, LastEdge: 5, GeometryID: InvalidElementID(), NameID: InvalidElementID()}},
	}
	_, err := decodeNodeBlock(encodeNodeBlock(block), 0)
	require.ErrorIs(t, err, ErrInvalidPackage)
}

func TestDecodeTruncatedBlock(t *testing.T) {
	block := &NameBlock{Names: []string{"Jalan Malioboro", "Margo Utomo"}}
	encoded := encodeNameBlock(block)

	_, err := decodeNameBlock(encoded[:len(encoded)-4])
	require.ErrorIs(t, err, ErrInvalidPackage)

	decoded, err := decodeNameBlock(encoded)
	require.NoError(t, err)
	assert.Equal(t, block.Names, decoded.Names)
}

func TestGlobalNodeBlockRoundTrip(t *testing.T) {
	block := &GlobalNodeBlock{
		Refs: []GlobalNodeRef{
			{PackageName: "yogyakarta", NodeBlock: 2, NodeIndex: 17},
			{PackageName: "sleman", NodeBlock: 0, NodeIndex: 3},
		},
	}
	decoded, err := decodeGlobalNodeBlock(encodeGlobalNodeBlock(block))
	require.NoError(t, err)
	assert.Equal(t, block.Refs, decoded.Refs)
}
