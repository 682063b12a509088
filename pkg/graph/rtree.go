package graph

import (
	"math"
	"sort"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/geo"
)

// nearestTieMargin keeps every candidate within this many meters of the
// best match, so callers can disambiguate snaps that land on overlapping
// segments of different roads.
const nearestTieMargin = 1.0

// rtreeQueueItem is one frontier entry of the best-first search, either an
// r-tree node still to expand or a node block to scan.
type rtreeQueueItem struct {
	node      RTreeNodeID
	leafBlock BlockID
	isLeaf    bool
}

// FindNearestNode snaps a position onto the road network. It returns the
// best match plus every candidate within the tie margin, ordered by
// distance, or an empty slice when no package covers the position. The
// search walks the per-package r-trees best-first on bounding box distance,
// so only blocks that can still beat the current best are ever loaded.
func (g *RoutingGraph) FindNearestNode(pos datastructure.Coordinate) ([]NearestNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	frontier := datastructure.NewMinHeap[rtreeQueueItem]()
	for _, pkg := range g.manager.Packages() {
		if pkg.blockCount(chunkRTreeNode) == 0 {
			continue
		}
		root := NewElementID(NewBlockID(pkg.id, 0), 0)
		rank := pkg.bbox.MinDistance(pos.Lat, pos.Lon)
		frontier.Insert(datastructure.NewPriorityQueueNode(rank, rtreeQueueItem{node: root}))
	}

	best := math.Inf(1)
	var candidates []NearestNode

	for frontier.Size() > 0 {
		top, _ := frontier.ExtractMin()
		if top.Rank > best+nearestTieMargin {
			break
		}

		if top.Item.isLeaf {
			found, err := g.scanNodeBlockLocked(top.Item.leafBlock, pos)
			if err != nil {
				return nil, err
			}
			for _, cand := range found {
				if cand.Distance < best {
					best = cand.Distance
				}
				candidates = append(candidates, cand)
			}
			continue
		}

		block, err := g.rtreeNodeBlocks.get(top.Item.node.Block)
		if err != nil {
			return nil, err
		}
		if int(top.Item.node.Index) >= len(block.Nodes) {
			return nil, outOfBoundsError("rtree", top.Item.node, len(block.Nodes))
		}
		node := block.Nodes[top.Item.node.Index]
		for _, child := range node.Children {
			rank := child.Box.MinDistance(pos.Lat, pos.Lon)
			if rank > best+nearestTieMargin {
				continue
			}
			frontier.Insert(datastructure.NewPriorityQueueNode(rank, rtreeQueueItem{node: child.Child}))
		}
		for _, leaf := range node.Leaves {
			rank := leaf.Box.MinDistance(pos.Lat, pos.Lon)
			if rank > best+nearestTieMargin {
				continue
			}
			frontier.Insert(datastructure.NewPriorityQueueNode(rank, rtreeQueueItem{leafBlock: leaf.NodeBlock, isLeaf: true}))
		}
	}

	results := candidates[:0]
	for _, cand := range candidates {
		if cand.Distance <= best+nearestTieMargin {
			results = append(results, cand)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results, nil
}

// scanNodeBlockLocked projects the query onto every segment of every node
// in the block and returns the best snap per node.
func (g *RoutingGraph) scanNodeBlockLocked(blockID BlockID, pos datastructure.Coordinate) ([]NearestNode, error) {
	block, err := g.nodeBlocks.get(blockID)
	if err != nil {
		return nil, err
	}

	var found []NearestNode
	for i := range block.Nodes {
		node := &block.Nodes[i]
		points, err := g.getNodeGeometryLocked(node)
		if err != nil {
			return nil, err
		}
		if len(points) < 2 {
			continue
		}

		bestDist := math.Inf(1)
		var bestCand NearestNode
		for seg := 0; seg < len(points)-1; seg++ {
			lat, lon, rel := geo.ClosestSegmentPoint(
				pos.Lat, pos.Lon,
				points[seg].Lat, points[seg].Lon,
				points[seg+1].Lat, points[seg+1].Lon,
			)
			dist := geo.HaversineDistance(pos.Lat, pos.Lon, lat, lon)
			if dist < bestDist {
				bestDist = dist
				bestCand = NearestNode{
					Position:     datastructure.NewCoordinate(lat, lon),
					NodeID:       NewElementID(blockID, int32(i)),
					SegmentIndex: seg,
					RelPos:       rel,
					Distance:     dist,
				}
			}
		}
		if !math.IsInf(bestDist, 1) {
			found = append(found, bestCand)
		}
	}
	return found, nil
}
