package graph

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/DataDog/zstd"
	"github.com/cespare/xxhash/v2"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/geo"
)

// BuilderEdge is one outgoing edge of a node being written. Target and Via
// are ordinals of nodes previously added to the same writer. A non-empty
// ExternalPackage makes the edge cross-package: it then targets the node
// at (ExternalBlock, ExternalIndex) of the named neighbour.
type BuilderEdge struct {
	Target          int
	ExternalPackage string
	ExternalBlock   int32
	ExternalIndex   int32
	Weight          uint32
	TurnCode        uint8
	Contracted      bool
	Via             int
	Forward         bool
	Backward        bool
}

// BuilderNode is one node being written.
type BuilderNode struct {
	Geometry   []datastructure.Coordinate
	Name       string
	Weight     uint32
	TravelMode uint8
	Edges      []BuilderEdge
}

// PackageWriter assembles and serializes one graph package. Nodes are
// partitioned into blocks of BlockSize in insertion order, so node
// addresses are known up front via NodeAddress.
type PackageWriter struct {
	BlockSize      int
	RTreeFanout    int
	RTreeBlockSize int
	Compress       bool

	name  string
	nodes []BuilderNode
}

func NewPackageWriter(name string) *PackageWriter {
	return &PackageWriter{
		BlockSize:      256,
		RTreeFanout:    8,
		RTreeBlockSize: 32,
		Compress:       true,
		name:           name,
	}
}

// AddNode appends a node and returns its ordinal.
func (w *PackageWriter) AddNode(n BuilderNode) int {
	w.nodes = append(w.nodes, n)
	return len(w.nodes) - 1
}

func (w *PackageWriter) NodeCount() int {
	return len(w.nodes)
}

// AddEdge appends an outgoing edge to a previously added node. Targets may
// refer to nodes not added yet, they are validated when writing.
func (w *PackageWriter) AddEdge(from int, e BuilderEdge) {
	w.nodes[from].Edges = append(w.nodes[from].Edges, e)
}

// NodeAddress returns the (block, element) address an ordinal serializes
// to.
func (w *PackageWriter) NodeAddress(ordinal int) (blockIndex, elementIndex int32) {
	return int32(ordinal / w.BlockSize), int32(ordinal % w.BlockSize)
}

func (w *PackageWriter) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create package %s: %w", path, err)
	}
	if err := w.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (w *PackageWriter) Write(out io.Writer) error {
	if w.name == "" {
		return fmt.Errorf("%w: empty package name", ErrInvalidPackage)
	}

	nodeBlocks, geometryBlocks, nameBlocks, globalBlock, blockBoxes, err := w.buildBlocks()
	if err != nil {
		return err
	}
	rtreeBlocks := w.buildRTree(blockBoxes)

	packageBox := geo.EmptyBBox()
	for _, box := range blockBoxes {
		packageBox = packageBox.ExtendWithBBox(box)
	}
	if packageBox.IsEmpty() {
		packageBox = geo.NewBBox(0, 0, 0, 0)
	}

	var chunks [chunkKindCount][][]byte
	for _, b := range nodeBlocks {
		chunks[chunkNode] = append(chunks[chunkNode], encodeNodeBlock(b))
	}
	for _, b := range geometryBlocks {
		chunks[chunkGeometry] = append(chunks[chunkGeometry], encodeGeometryBlock(b))
	}
	for _, b := range nameBlocks {
		chunks[chunkName] = append(chunks[chunkName], encodeNameBlock(b))
	}
	chunks[chunkGlobalNode] = append(chunks[chunkGlobalNode], encodeGlobalNodeBlock(globalBlock))
	for _, b := range rtreeBlocks {
		chunks[chunkRTreeNode] = append(chunks[chunkRTreeNode], encodeRTreeNodeBlock(b))
	}

	// Compress and checksum the stored payloads, then lay them out after
	// the header and chunk tables.
	var spans [chunkKindCount][]blockSpan
	var payloads [][]byte
	headerLen := 4 + 4 + 2 + len(w.name) + 16
	tablesLen := 0
	for kind := range chunks {
		tablesLen += 4 + len(chunks[kind])*21
	}
	offset := uint64(headerLen + tablesLen)

	for kind, blocks := range chunks {
		for _, plain := range blocks {
			stored := plain
			var flags uint8
			if w.Compress {
				compressed, err := zstd.Compress(nil, plain)
				if err != nil {
					return fmt.Errorf("compress block: %w", err)
				}
				if len(compressed) < len(plain) {
					stored = compressed
					flags |= blockFlagZstd
				}
			}
			spans[kind] = append(spans[kind], blockSpan{
				offset:   offset,
				length:   uint32(len(stored)),
				checksum: xxhash.Sum64(stored),
				flags:    flags,
			})
			payloads = append(payloads, stored)
			offset += uint64(len(stored))
		}
	}

	header := &byteWriter{}
	header.buf = append(header.buf, packageMagic[:]...)
	header.u32(FormatVersion)
	header.u16(uint16(len(w.name)))
	header.buf = append(header.buf, w.name...)
	header.bbox(packageBox)
	for kind := range spans {
		header.u32(uint32(len(spans[kind])))
		for _, span := range spans[kind] {
			header.u64(span.offset)
			header.u32(span.length)
			header.u64(span.checksum)
			header.u8(span.flags)
		}
	}

	if _, err := out.Write(header.buf); err != nil {
		return fmt.Errorf("write package header: %w", err)
	}
	for _, payload := range payloads {
		if _, err := out.Write(payload); err != nil {
			return fmt.Errorf("write package block: %w", err)
		}
	}
	return nil
}

func (w *PackageWriter) buildBlocks() ([]*NodeBlock, []*GeometryBlock, []*NameBlock, *GlobalNodeBlock, []geo.BBox, error) {
	blockCount := (len(w.nodes) + w.BlockSize - 1) / w.BlockSize

	nodeBlocks := make([]*NodeBlock, 0, blockCount)
	geometryBlocks := make([]*GeometryBlock, 0, blockCount)
	nameBlocks := make([]*NameBlock, 0, blockCount)
	blockBoxes := make([]geo.BBox, 0, blockCount)
	globalBlock := &GlobalNodeBlock{}
	globalIndex := make(map[GlobalNodeRef]int32)

	nodeID := func(ordinal int) NodeID {
		block, elem := w.NodeAddress(ordinal)
		return NewElementID(NewBlockID(0, block), elem)
	}

	for b := 0; b < blockCount; b++ {
		first := b * w.BlockSize
		last := min(first+w.BlockSize, len(w.nodes))

		nodeBlock := &NodeBlock{}
		geometryBlock := &GeometryBlock{}
		nameBlock := &NameBlock{}
		nameIndex := make(map[string]int32)
		box := geo.EmptyBBox()

		for ordinal := first; ordinal < last; ordinal++ {
			src := w.nodes[ordinal]
			local := int32(ordinal - first)

			geometryBlock.Geometries = append(geometryBlock.Geometries, src.Geometry)
			for _, p := range src.Geometry {
				box = box.ExtendWith(p.Lat, p.Lon)
			}

			nameID := InvalidElementID()
			if src.Name != "" {
				idx, ok := nameIndex[src.Name]
				if !ok {
					idx = int32(len(nameBlock.Names))
					nameBlock.Names = append(nameBlock.Names, src.Name)
					nameIndex[src.Name] = idx
				}
				nameID = NewElementID(NewBlockID(0, int32(b)), idx)
			}

			firstEdge := int32(len(nodeBlock.Edges))
			for _, e := range src.Edges {
				edge := Edge{
					Weight:     e.Weight,
					TurnCode:   e.TurnCode,
					Contracted: e.Contracted,
					Forward:    e.Forward,
					Backward:   e.Backward,
					ViaID:      InvalidElementID(),
				}
				if e.ExternalPackage != "" {
					ref := GlobalNodeRef{
						PackageName: e.ExternalPackage,
						NodeBlock:   e.ExternalBlock,
						NodeIndex:   e.ExternalIndex,
					}
					idx, ok := globalIndex[ref]
					if !ok {
						idx = int32(len(globalBlock.Refs))
						globalBlock.Refs = append(globalBlock.Refs, ref)
						globalIndex[ref] = idx
					}
					edge.TargetID = NewElementID(NewBlockID(0, 0), idx)
					edge.TargetGlobal = true
				} else {
					if e.Target < 0 || e.Target >= len(w.nodes) {
						return nil, nil, nil, nil, nil, fmt.Errorf("%w: edge of node %d targets unknown node %d",
							ErrInvalidPackage, ordinal, e.Target)
					}
					edge.TargetID = nodeID(e.Target)
				}
				if e.Contracted {
					if e.Via < 0 || e.Via >= len(w.nodes) {
						return nil, nil, nil, nil, nil, fmt.Errorf("%w: contracted edge of node %d has unknown via node %d",
							ErrInvalidPackage, ordinal, e.Via)
					}
					edge.ViaID = nodeID(e.Via)
				}
				nodeBlock.Edges = append(nodeBlock.Edges, edge)
			}

			nodeBlock.Nodes = append(nodeBlock.Nodes, Node{
				FirstEdge:  firstEdge,
				LastEdge:   int32(len(nodeBlock.Edges)),
				GeometryID: NewElementID(NewBlockID(0, int32(b)), local),
				NameID:     nameID,
				Weight:     src.Weight,
				TravelMode: src.TravelMode,
			})
		}

		nodeBlocks = append(nodeBlocks, nodeBlock)
		geometryBlocks = append(geometryBlocks, geometryBlock)
		nameBlocks = append(nameBlocks, nameBlock)
		blockBoxes = append(blockBoxes, box)
	}
	return nodeBlocks, geometryBlocks, nameBlocks, globalBlock, blockBoxes, nil
}

type rtreeBuildNode struct {
	box      geo.BBox
	children []*rtreeBuildNode
	leaves   []RTreeLeaf
	ordinal  int
}

// buildRTree packs the per-block bounding boxes into an r-tree using
// sort-tile-recursive grouping, then lays the nodes out breadth-first so
// the root serializes as element 0 of block 0.
func (w *PackageWriter) buildRTree(blockBoxes []geo.BBox) []*RTreeNodeBlock {
	var leaves []RTreeLeaf
	for b, box := range blockBoxes {
		if box.IsEmpty() {
			continue
		}
		leaves = append(leaves, RTreeLeaf{Box: box, NodeBlock: NewBlockID(0, int32(b))})
	}

	level := strPackLeaves(leaves, w.RTreeFanout)
	for len(level) > 1 {
		level = strPackNodes(level, w.RTreeFanout)
	}
	root := level[0]

	// Breadth-first layout.
	var ordered []*rtreeBuildNode
	queue := []*rtreeBuildNode{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		node.ordinal = len(ordered)
		ordered = append(ordered, node)
		queue = append(queue, node.children...)
	}

	blockCount := (len(ordered) + w.RTreeBlockSize - 1) / w.RTreeBlockSize
	blocks := make([]*RTreeNodeBlock, blockCount)
	for i := range blocks {
		blocks[i] = &RTreeNodeBlock{}
	}
	for _, node := range ordered {
		out := RTreeNode{Leaves: node.leaves}
		for _, child := range node.children {
			childID := NewElementID(
				NewBlockID(0, int32(child.ordinal/w.RTreeBlockSize)),
				int32(child.ordinal%w.RTreeBlockSize),
			)
			out.Children = append(out.Children, RTreeChild{Box: child.box, Child: childID})
		}
		blocks[node.ordinal/w.RTreeBlockSize].Nodes = append(blocks[node.ordinal/w.RTreeBlockSize].Nodes, out)
	}
	return blocks
}

// strPackLeaves groups leaf entries into bottom-level r-tree nodes.
func strPackLeaves(leaves []RTreeLeaf, fanout int) []*rtreeBuildNode {
	if len(leaves) == 0 {
		return []*rtreeBuildNode{{box: geo.EmptyBBox()}}
	}

	parents := (len(leaves) + fanout - 1) / fanout
	sliceCount := int(math.Ceil(math.Sqrt(float64(parents))))
	sliceSize := sliceCount * fanout

	sorted := make([]RTreeLeaf, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool {
		return boxCenterLon(sorted[i].Box) < boxCenterLon(sorted[j].Box)
	})

	var nodes []*rtreeBuildNode
	for start := 0; start < len(sorted); start += sliceSize {
		slice := sorted[start:min(start+sliceSize, len(sorted))]
		sort.Slice(slice, func(i, j int) bool {
			return boxCenterLat(slice[i].Box) < boxCenterLat(slice[j].Box)
		})
		for run := 0; run < len(slice); run += fanout {
			group := slice[run:min(run+fanout, len(slice))]
			node := &rtreeBuildNode{box: geo.EmptyBBox()}
			node.leaves = append(node.leaves, group...)
			for _, leaf := range group {
				node.box = node.box.ExtendWithBBox(leaf.Box)
			}
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// strPackNodes groups one r-tree level into the next one up.
func strPackNodes(level []*rtreeBuildNode, fanout int) []*rtreeBuildNode {
	parents := (len(level) + fanout - 1) / fanout
	sliceCount := int(math.Ceil(math.Sqrt(float64(parents))))
	sliceSize := sliceCount * fanout

	sorted := make([]*rtreeBuildNode, len(level))
	copy(sorted, level)
	sort.Slice(sorted, func(i, j int) bool {
		return boxCenterLon(sorted[i].box) < boxCenterLon(sorted[j].box)
	})

	var nodes []*rtreeBuildNode
	for start := 0; start < len(sorted); start += sliceSize {
		slice := sorted[start:min(start+sliceSize, len(sorted))]
		sort.Slice(slice, func(i, j int) bool {
			return boxCenterLat(slice[i].box) < boxCenterLat(slice[j].box)
		})
		for run := 0; run < len(slice); run += fanout {
			group := slice[run:min(run+fanout, len(slice))]
			node := &rtreeBuildNode{box: geo.EmptyBBox()}
			node.children = append(node.children, group...)
			for _, child := range group {
				node.box = node.box.ExtendWithBBox(child.box)
			}
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func boxCenterLat(b geo.BBox) float64 {
	return (b.MinLat + b.MaxLat) / 2
}

func boxCenterLon(b geo.BBox) float64 {
	return (b.MinLon + b.MaxLon) / 2
}
