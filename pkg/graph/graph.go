package graph

import (
	"sync"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/util"
)

// Settings sizes the per-kind block caches, in blocks.
type Settings struct {
	NodeBlockCacheSize       int
	GeometryBlockCacheSize   int
	NameBlockCacheSize       int
	GlobalNodeBlockCacheSize int
	RTreeNodeBlockCacheSize  int
}

func DefaultSettings() Settings {
	return Settings{
		NodeBlockCacheSize:       512 * 16,
		GeometryBlockCacheSize:   512 * 16,
		NameBlockCacheSize:       64 * 16,
		GlobalNodeBlockCacheSize: 64 * 16,
		RTreeNodeBlockCacheSize:  16 * 16,
	}
}

// RoutingGraph is the query facade over a set of imported packages. All
// lookups go through per-kind LRU block caches behind one coarse lock, so
// callers see identical results whether a block is cached or reloaded.
type RoutingGraph struct {
	mu      sync.Mutex
	manager *PackageManager

	nodeBlocks       *blockCache[*NodeBlock]
	geometryBlocks   *blockCache[*GeometryBlock]
	nameBlocks       *blockCache[*NameBlock]
	globalNodeBlocks *blockCache[*GlobalNodeBlock]
	rtreeNodeBlocks  *blockCache[*RTreeNodeBlock]
}

func NewRoutingGraph(settings Settings) *RoutingGraph {
	g := &RoutingGraph{manager: NewPackageManager()}
	g.nodeBlocks = newBlockCache(settings.NodeBlockCacheSize, func(id BlockID) (*NodeBlock, error) {
		data, err := g.readBlockLocked(chunkNode, id)
		if err != nil {
			return nil, err
		}
		return decodeNodeBlock(data, id.PackageID)
	})
	g.geometryBlocks = newBlockCache(settings.GeometryBlockCacheSize, func(id BlockID) (*GeometryBlock, error) {
		data, err := g.readBlockLocked(chunkGeometry, id)
		if err != nil {
			return nil, err
		}
		return decodeGeometryBlock(data)
	})
	g.nameBlocks = newBlockCache(settings.NameBlockCacheSize, func(id BlockID) (*NameBlock, error) {
		data, err := g.readBlockLocked(chunkName, id)
		if err != nil {
			return nil, err
		}
		return decodeNameBlock(data)
	})
	g.globalNodeBlocks = newBlockCache(settings.GlobalNodeBlockCacheSize, func(id BlockID) (*GlobalNodeBlock, error) {
		data, err := g.readBlockLocked(chunkGlobalNode, id)
		if err != nil {
			return nil, err
		}
		return decodeGlobalNodeBlock(data)
	})
	g.rtreeNodeBlocks = newBlockCache(settings.RTreeNodeBlockCacheSize, func(id BlockID) (*RTreeNodeBlock, error) {
		data, err := g.readBlockLocked(chunkRTreeNode, id)
		if err != nil {
			return nil, err
		}
		return decodeRTreeNodeBlock(data, id.PackageID)
	})
	return g
}

func (g *RoutingGraph) readBlockLocked(kind chunkKind, id BlockID) ([]byte, error) {
	pkg, err := g.manager.packageByID(id.PackageID)
	if err != nil {
		return nil, err
	}
	return pkg.readBlock(kind, id.BlockIndex)
}

// ImportFile imports one package file into the graph.
func (g *RoutingGraph) ImportFile(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.manager.ImportFile(path)
}

// ImportDirectory imports every package file in a directory, applying the
// override rule and skipping packages that fail to import.
func (g *RoutingGraph) ImportDirectory(dir string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.manager.ImportDirectory(dir)
}

// Packages returns the imported packages.
func (g *RoutingGraph) Packages() []*Package {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.manager.Packages()
}

// Close releases the package files.
func (g *RoutingGraph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.manager.Close()
}

// GetNode resolves a node address into a NodePtr that stays usable after
// the owning block falls out of the cache.
func (g *RoutingGraph) GetNode(id NodeID) (NodePtr, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getNodeLocked(id)
}

func (g *RoutingGraph) getNodeLocked(id NodeID) (NodePtr, error) {
	block, err := g.nodeBlocks.get(id.Block)
	if err != nil {
		return NodePtr{}, err
	}
	if id.Index < 0 || int(id.Index) >= len(block.Nodes) {
		return NodePtr{}, outOfBoundsError("node", id, len(block.Nodes))
	}
	return newNodePtr(block, id), nil
}

// GetNodeName returns the street name of a node, or an empty string when
// the node carries no name.
func (g *RoutingGraph) GetNodeName(node *Node) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getNodeNameLocked(node)
}

func (g *RoutingGraph) getNodeNameLocked(node *Node) (string, error) {
	if !node.NameID.Valid() {
		return "", nil
	}
	block, err := g.nameBlocks.get(node.NameID.Block)
	if err != nil {
		return "", err
	}
	if int(node.NameID.Index) >= len(block.Names) {
		return "", nil
	}
	return block.Names[node.NameID.Index], nil
}

// GetNodeGeometry returns the node's polyline in travel order. The slice
// is a copy, callers may modify it.
func (g *RoutingGraph) GetNodeGeometry(node *Node) ([]datastructure.Coordinate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getNodeGeometryLocked(node)
}

func (g *RoutingGraph) getNodeGeometryLocked(node *Node) ([]datastructure.Coordinate, error) {
	if !node.GeometryID.Valid() {
		return nil, nil
	}
	block, err := g.geometryBlocks.get(node.GeometryID.Block)
	if err != nil {
		return nil, err
	}
	if int(node.GeometryID.Index) >= len(block.Geometries) {
		return nil, outOfBoundsError("geometry", node.GeometryID, len(block.Geometries))
	}
	points := block.Geometries[node.GeometryID.Index]
	if node.GeometryReversed {
		return util.ReverseG(points), nil
	}
	out := make([]datastructure.Coordinate, len(points))
	copy(out, points)
	return out, nil
}

// ResolveGlobalNode resolves a cross-package reference to a node in a
// neighbouring package. It reports ok=false when the neighbouring package
// is not loaded, which callers treat as the edge not existing.
func (g *RoutingGraph) ResolveGlobalNode(id GlobalNodeID) (NodeID, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolveGlobalNodeLocked(id)
}

func (g *RoutingGraph) resolveGlobalNodeLocked(id GlobalNodeID) (NodeID, bool, error) {
	block, err := g.globalNodeBlocks.get(id.Block)
	if err != nil {
		return NodeID{}, false, err
	}
	if id.Index < 0 || int(id.Index) >= len(block.Refs) {
		return NodeID{}, false, outOfBoundsError("globalnode", id, len(block.Refs))
	}
	ref := block.Refs[id.Index]
	pkg, ok := g.manager.packageByName(ref.PackageName)
	if !ok {
		return NodeID{}, false, nil
	}
	return NewElementID(NewBlockID(pkg.id, ref.NodeBlock), ref.NodeIndex), true, nil
}

// CacheStats reports hit and miss counters per block cache, keyed by
// content kind.
type CacheStats struct {
	Hits     uint64
	Misses   uint64
	Len      int
	Capacity int
}

func (g *RoutingGraph) CacheStats() map[string]CacheStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := make(map[string]CacheStats, 5)
	collect := func(name string, hits, misses uint64, length, capacity int) {
		stats[name] = CacheStats{Hits: hits, Misses: misses, Len: length, Capacity: capacity}
	}
	h, m := g.nodeBlocks.stats()
	collect("node", h, m, g.nodeBlocks.len(), g.nodeBlocks.capacity)
	h, m = g.geometryBlocks.stats()
	collect("geometry", h, m, g.geometryBlocks.len(), g.geometryBlocks.capacity)
	h, m = g.nameBlocks.stats()
	collect("name", h, m, g.nameBlocks.len(), g.nameBlocks.capacity)
	h, m = g.globalNodeBlocks.stats()
	collect("globalnode", h, m, g.globalNodeBlocks.len(), g.globalNodeBlocks.capacity)
	h, m = g.rtreeNodeBlocks.stats()
	collect("rtree", h, m, g.rtreeNodeBlocks.len(), g.rtreeNodeBlocks.capacity)
	return stats
}
