package graph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/geo"
)

// Block payloads use little-endian fixed-width fields for structure and
// zigzag-delta uvarints for coordinate streams.

const noneIndex = math.MaxUint32

// EncodeZigZag folds a signed value into an unsigned one with small
// magnitudes staying small, so deltas varint-encode compactly.
func EncodeZigZag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func DecodeZigZag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

type byteReader struct {
	buf []byte
	off int
	err error
}

func (r *byteReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: truncated %s at offset %d", ErrInvalidPackage, what, r.off)
	}
}

func (r *byteReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.buf) {
		r.fail("u8")
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *byteReader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.buf) {
		r.fail("u16")
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *byteReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.fail("u32")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *byteReader) i32() int32 {
	return int32(r.u32())
}

func (r *byteReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.buf) {
		r.fail("u64")
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *byteReader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.fail("uvarint")
		return 0
	}
	r.off += n
	return v
}

func (r *byteReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.fail("bytes")
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

// elementRef reads a (block, element) pair with the owning package id
// stamped in. A stored index of noneIndex in both fields decodes to the
// absent sentinel.
func (r *byteReader) elementRef(packageID int32) ElementID {
	block := r.u32()
	index := r.u32()
	if block == noneIndex && index == noneIndex {
		return InvalidElementID()
	}
	return NewElementID(NewBlockID(packageID, int32(block)), int32(index))
}

func (r *byteReader) bbox() geo.BBox {
	minLat := float64(r.i32()) / CoordinateScale
	minLon := float64(r.i32()) / CoordinateScale
	maxLat := float64(r.i32()) / CoordinateScale
	maxLon := float64(r.i32()) / CoordinateScale
	return geo.NewBBox(minLat, minLon, maxLat, maxLon)
}

const (
	nodeFlagGeometryReversed = 1 << 0

	edgeFlagContracted   = 1 << 0
	edgeFlagForward      = 1 << 1
	edgeFlagBackward     = 1 << 2
	edgeFlagTargetGlobal = 1 << 3
)

func decodeNodeBlock(data []byte, packageID int32) (*NodeBlock, error) {
	r := &byteReader{buf: data}

	nodeCount := int(r.u32())
	edgeCount := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}

	block := &NodeBlock{
		Nodes: make([]Node, 0, nodeCount),
		Edges: make([]Edge, 0, edgeCount),
	}
	for i := 0; i < nodeCount; i++ {
		firstEdge := r.i32()
		lastEdge := r.i32()
		geometryID := r.elementRef(packageID)
		nameID := r.elementRef(packageID)
		weight := r.u32()
		flags := r.u8()
		travelMode := r.u8()
		if r.err != nil {
			return nil, r.err
		}
		if firstEdge < 0 || lastEdge < firstEdge || int(lastEdge) > edgeCount {
			return nil, fmt.Errorf("%w: node %d edge range [%d, %d) outside %d edges",
				ErrInvalidPackage, i, firstEdge, lastEdge, edgeCount)
		}
		block.Nodes = append(block.Nodes, Node{
			FirstEdge:        firstEdge,
			LastEdge:         lastEdge,
			GeometryID:       geometryID,
			NameID:           nameID,
			Weight:           weight,
			TravelMode:       travelMode,
			GeometryReversed: flags&nodeFlagGeometryReversed != 0,
		})
	}
	for i := 0; i < edgeCount; i++ {
		targetID := r.elementRef(packageID)
		viaID := r.elementRef(packageID)
		weight := r.u32()
		turnCode := r.u8()
		flags := r.u8()
		if r.err != nil {
			return nil, r.err
		}
		edge := Edge{
			TargetID:     targetID,
			ViaID:        viaID,
			Weight:       weight,
			TurnCode:     turnCode,
			Contracted:   flags&edgeFlagContracted != 0,
			Forward:      flags&edgeFlagForward != 0,
			Backward:     flags&edgeFlagBackward != 0,
			TargetGlobal: flags&edgeFlagTargetGlobal != 0,
		}
		if edge.Contracted && !edge.ViaID.Valid() {
			return nil, fmt.Errorf("%w: contracted edge %d without via node", ErrInvalidPackage, i)
		}
		block.Edges = append(block.Edges, edge)
	}
	return block, nil
}

func decodeGeometryBlock(data []byte) (*GeometryBlock, error) {
	r := &byteReader{buf: data}

	count := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	block := &GeometryBlock{Geometries: make([][]datastructure.Coordinate, 0, count)}
	for i := 0; i < count; i++ {
		pointCount := int(r.uvarint())
		points := make([]datastructure.Coordinate, 0, pointCount)
		var lat, lon int64
		for j := 0; j < pointCount; j++ {
			lat += DecodeZigZag(r.uvarint())
			lon += DecodeZigZag(r.uvarint())
			points = append(points, datastructure.NewCoordinate(
				float64(lat)/CoordinateScale,
				float64(lon)/CoordinateScale,
			))
		}
		if r.err != nil {
			return nil, r.err
		}
		block.Geometries = append(block.Geometries, points)
	}
	return block, nil
}

func decodeNameBlock(data []byte) (*NameBlock, error) {
	r := &byteReader{buf: data}

	count := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	block := &NameBlock{Names: make([]string, 0, count)}
	for i := 0; i < count; i++ {
		length := int(r.uvarint())
		raw := r.bytes(length)
		if r.err != nil {
			return nil, r.err
		}
		block.Names = append(block.Names, string(raw))
	}
	return block, nil
}

func decodeGlobalNodeBlock(data []byte) (*GlobalNodeBlock, error) {
	r := &byteReader{buf: data}

	count := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	block := &GlobalNodeBlock{Refs: make([]GlobalNodeRef, 0, count)}
	for i := 0; i < count; i++ {
		nameLen := int(r.uvarint())
		name := r.bytes(nameLen)
		nodeBlock := r.i32()
		nodeIndex := r.i32()
		if r.err != nil {
			return nil, r.err
		}
		block.Refs = append(block.Refs, GlobalNodeRef{
			PackageName: string(name),
			NodeBlock:   nodeBlock,
			NodeIndex:   nodeIndex,
		})
	}
	return block, nil
}

func decodeRTreeNodeBlock(data []byte, packageID int32) (*RTreeNodeBlock, error) {
	r := &byteReader{buf: data}

	count := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	block := &RTreeNodeBlock{Nodes: make([]RTreeNode, 0, count)}
	for i := 0; i < count; i++ {
		childCount := int(r.u32())
		leafCount := int(r.u32())
		node := RTreeNode{}
		if childCount > 0 {
			node.Children = make([]RTreeChild, 0, childCount)
		}
		for j := 0; j < childCount; j++ {
			box := r.bbox()
			child := r.elementRef(packageID)
			node.Children = append(node.Children, RTreeChild{Box: box, Child: child})
		}
		if leafCount > 0 {
			node.Leaves = make([]RTreeLeaf, 0, leafCount)
		}
		for j := 0; j < leafCount; j++ {
			box := r.bbox()
			nodeBlock := r.i32()
			node.Leaves = append(node.Leaves, RTreeLeaf{
				Box:       box,
				NodeBlock: NewBlockID(packageID, nodeBlock),
			})
		}
		if r.err != nil {
			return nil, r.err
		}
		block.Nodes = append(block.Nodes, node)
	}
	return block, nil
}

// Encoding mirrors of the decoders, used by the package writer.

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *byteWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) i32(v int32)  { w.u32(uint32(v)) }
func (w *byteWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *byteWriter) uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *byteWriter) elementRef(id ElementID) {
	if !id.Valid() {
		w.u32(noneIndex)
		w.u32(noneIndex)
		return
	}
	w.u32(uint32(id.Block.BlockIndex))
	w.u32(uint32(id.Index))
}

func (w *byteWriter) bbox(b geo.BBox) {
	w.i32(int32(math.Round(b.MinLat * CoordinateScale)))
	w.i32(int32(math.Round(b.MinLon * CoordinateScale)))
	w.i32(int32(math.Round(b.MaxLat * CoordinateScale)))
	w.i32(int32(math.Round(b.MaxLon * CoordinateScale)))
}

func encodeNodeBlock(block *NodeBlock) []byte {
	w := &byteWriter{}
	w.u32(uint32(len(block.Nodes)))
	w.u32(uint32(len(block.Edges)))
	for _, n := range block.Nodes {
		w.i32(n.FirstEdge)
		w.i32(n.LastEdge)
		w.elementRef(n.GeometryID)
		w.elementRef(n.NameID)
		w.u32(n.Weight)
		var flags uint8
		if n.GeometryReversed {
			flags |= nodeFlagGeometryReversed
		}
		w.u8(flags)
		w.u8(n.TravelMode)
	}
	for _, e := range block.Edges {
		w.elementRef(e.TargetID)
		w.elementRef(e.ViaID)
		w.u32(e.Weight)
		w.u8(e.TurnCode)
		var flags uint8
		if e.Contracted {
			flags |= edgeFlagContracted
		}
		if e.Forward {
			flags |= edgeFlagForward
		}
		if e.Backward {
			flags |= edgeFlagBackward
		}
		if e.TargetGlobal {
			flags |= edgeFlagTargetGlobal
		}
		w.u8(flags)
	}
	return w.buf
}

func encodeGeometryBlock(block *GeometryBlock) []byte {
	w := &byteWriter{}
	w.u32(uint32(len(block.Geometries)))
	for _, points := range block.Geometries {
		w.uvarint(uint64(len(points)))
		var prevLat, prevLon int64
		for _, p := range points {
			lat := int64(math.Round(p.Lat * CoordinateScale))
			lon := int64(math.Round(p.Lon * CoordinateScale))
			w.uvarint(EncodeZigZag(lat - prevLat))
			w.uvarint(EncodeZigZag(lon - prevLon))
			prevLat, prevLon = lat, lon
		}
	}
	return w.buf
}

func encodeNameBlock(block *NameBlock) []byte {
	w := &byteWriter{}
	w.u32(uint32(len(block.Names)))
	for _, name := range block.Names {
		w.uvarint(uint64(len(name)))
		w.buf = append(w.buf, name...)
	}
	return w.buf
}

func encodeGlobalNodeBlock(block *GlobalNodeBlock) []byte {
	w := &byteWriter{}
	w.u32(uint32(len(block.Refs)))
	for _, ref := range block.Refs {
		w.uvarint(uint64(len(ref.PackageName)))
		w.buf = append(w.buf, ref.PackageName...)
		w.i32(ref.NodeBlock)
		w.i32(ref.NodeIndex)
	}
	return w.buf
}

func encodeRTreeNodeBlock(block *RTreeNodeBlock) []byte {
	w := &byteWriter{}
	w.u32(uint32(len(block.Nodes)))
	for _, node := range block.Nodes {
		w.u32(uint32(len(node.Children)))
		w.u32(uint32(len(node.Leaves)))
		for _, child := range node.Children {
			w.bbox(child.Box)
			w.elementRef(child.Child)
		}
		for _, leaf := range node.Leaves {
			w.bbox(leaf.Box)
			w.i32(leaf.NodeBlock.BlockIndex)
		}
	}
	return w.buf
}
