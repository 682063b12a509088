package graph

import (
	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/geo"
)

// CoordinateScale converts between fixed-point wire coordinates and
// degrees. One unit is a micro-degree.
const CoordinateScale = 1e6

// BlockID addresses one block inside one loaded package.
type BlockID struct {
	PackageID  int32
	BlockIndex int32
}

func NewBlockID(packageID, blockIndex int32) BlockID {
	return BlockID{PackageID: packageID, BlockIndex: blockIndex}
}

// ElementID addresses one element inside one block. An Index of -1 marks
// an absent reference.
type ElementID struct {
	Block BlockID
	Index int32
}

func NewElementID(block BlockID, index int32) ElementID {
	return ElementID{Block: block, Index: index}
}

func (e ElementID) Valid() bool {
	return e.Index >= 0 && e.Block.BlockIndex >= 0
}

// InvalidElementID returns the absent-reference sentinel.
func InvalidElementID() ElementID {
	return ElementID{Block: BlockID{PackageID: -1, BlockIndex: -1}, Index: -1}
}

// The five addressable content kinds all share the ElementID shape. The
// aliases keep signatures honest about which kind they expect.
type (
	NodeID       = ElementID
	GeometryID   = ElementID
	NameID       = ElementID
	GlobalNodeID = ElementID
	RTreeNodeID  = ElementID
)

// Node is one directed road segment in the edge-expanded graph. Weight is
// the cost of traversing the segment itself, in tenths of a second.
type Node struct {
	FirstEdge        int32
	LastEdge         int32 // exclusive, into the owning block's edge array
	GeometryID       GeometryID
	NameID           NameID
	Weight           uint32
	TravelMode       uint8
	GeometryReversed bool
}

// Edge connects two nodes. A contracted edge is a shortcut that stands in
// for the two edges meeting at ViaID. When TargetGlobal is set, TargetID
// addresses a global-node entry instead of a node.
type Edge struct {
	TargetID     NodeID
	ViaID        NodeID
	Weight       uint32
	TurnCode     uint8
	Contracted   bool
	Forward      bool
	Backward     bool
	TargetGlobal bool
}

// NodeBlock holds a fixed-partition run of nodes and their edges. Node
// FirstEdge/LastEdge index into Edges.
type NodeBlock struct {
	Nodes []Node
	Edges []Edge
}

// GeometryBlock holds decoded segment polylines in degrees, stored
// orientation.
type GeometryBlock struct {
	Geometries [][]datastructure.Coordinate
}

// NameBlock holds street names.
type NameBlock struct {
	Names []string
}

// GlobalNodeRef names a node in a neighbouring package by package name and
// local address. The package id stays unresolved until the neighbour is
// looked up at query time.
type GlobalNodeRef struct {
	PackageName string
	NodeBlock   int32
	NodeIndex   int32
}

// GlobalNodeBlock holds the cross-package stitching table of one package.
type GlobalNodeBlock struct {
	Refs []GlobalNodeRef
}

// RTreeChild points at a lower r-tree node covering Box.
type RTreeChild struct {
	Box   geo.BBox
	Child RTreeNodeID
}

// RTreeLeaf points at a node block whose segments all lie inside Box.
type RTreeLeaf struct {
	Box       geo.BBox
	NodeBlock BlockID
}

// RTreeNode is one level of the spatial index. Exactly one of Children and
// Leaves is populated.
type RTreeNode struct {
	Children []RTreeChild
	Leaves   []RTreeLeaf
}

// RTreeNodeBlock holds a run of r-tree nodes. The root of a package's tree
// is always element 0 of block 0.
type RTreeNodeBlock struct {
	Nodes []RTreeNode
}

// NodePtr pairs a node with the block that owns it. Holding the pointer
// keeps the block alive even after the cache evicts it.
type NodePtr struct {
	block *NodeBlock
	index int32
	id    NodeID
}

func newNodePtr(block *NodeBlock, id NodeID) NodePtr {
	return NodePtr{block: block, index: id.Index, id: id}
}

func (p NodePtr) Valid() bool {
	return p.block != nil
}

func (p NodePtr) ID() NodeID {
	return p.id
}

func (p NodePtr) Node() *Node {
	return &p.block.Nodes[p.index]
}

// Edges returns the node's outgoing edge slice, shared with the block.
func (p NodePtr) Edges() []Edge {
	n := p.Node()
	return p.block.Edges[n.FirstEdge:n.LastEdge]
}

// NearestNode is one result of a nearest-node search: the snapped position
// on the node's geometry, the segment it lies on and the relative offset
// 0..1 along that segment.
type NearestNode struct {
	Position     datastructure.Coordinate
	NodeID       NodeID
	SegmentIndex int
	RelPos       float64
	Distance     float64
}
