package routingalgorithm

import (
	"fmt"
	"math"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/graph"
	"github.com/fahmi-aa/routepack/pkg/util"
)

type cameFromPair struct {
	Edge  graph.Edge
	Prev  graph.NodeID
	Valid bool
}

// pathEdge is one non-contracted edge of an unpacked path, in travel
// order.
type pathEdge struct {
	From graph.NodeID
	To   graph.NodeID
	Edge graph.Edge
}

// resolveTarget turns an edge target into a node address. Cross-package
// targets whose neighbour package is not loaded resolve to ok=false and
// the edge is treated as absent.
func (rf *RouteFinder) resolveTarget(edge graph.Edge) (graph.NodeID, bool, error) {
	if !edge.TargetGlobal {
		return edge.TargetID, true, nil
	}
	return rf.g.ResolveGlobalNode(edge.TargetID)
}

// shortestPath runs a bidirectional Dijkstra over the contraction
// hierarchy. The forward search follows forward-traversable edges from the
// start, the backward search follows backward-traversable edges from the
// target, both only ever climb upward in the hierarchy. The winning path
// through the best common vertex is unpacked into real edges afterwards.
func (rf *RouteFinder) shortestPath(from, to graph.NodeID) ([]pathEdge, float64, bool, error) {
	if from == to {
		return nil, 0, true, nil
	}

	forwQ := datastructure.NewMinHeap[graph.NodeID]()
	backQ := datastructure.NewMinHeap[graph.NodeID]()

	df := map[graph.NodeID]float64{from: 0}
	db := map[graph.NodeID]float64{to: 0}

	forwQ.Insert(datastructure.NewPriorityQueueNode(0, from))
	backQ.Insert(datastructure.NewPriorityQueueNode(0, to))

	cameFromf := map[graph.NodeID]cameFromPair{from: {}}
	cameFromb := map[graph.NodeID]cameFromPair{to: {}}

	estimate := math.MaxFloat64
	var bestCommonVertex graph.NodeID
	foundMeeting := false

	frontFinished := false
	backFinished := false
	frontier, otherFrontier := forwQ, backQ
	turnF := true

	for {
		if frontier.Size() == 0 {
			if turnF {
				frontFinished = true
			} else {
				backFinished = true
			}
		}
		if otherFrontier.Size() == 0 {
			if turnF {
				backFinished = true
			} else {
				frontFinished = true
			}
		}
		if frontFinished && backFinished {
			break
		}

		if smallest, ok := frontier.GetMin(); ok && smallest.Rank >= estimate {
			if turnF {
				frontFinished = true
			} else {
				backFinished = true
			}
		} else if ok {
			node, _ := frontier.ExtractMin()

			ptr, err := rf.g.GetNode(node.Item)
			if err != nil {
				return nil, 0, false, err
			}
			for _, edge := range ptr.Edges() {
				if turnF && !edge.Forward {
					continue
				}
				if !turnF && !edge.Backward {
					continue
				}
				target, ok, err := rf.resolveTarget(edge)
				if err != nil {
					return nil, 0, false, err
				}
				if !ok {
					continue
				}

				dist, cameFrom := df, cameFromf
				distOther := db
				if !turnF {
					dist, cameFrom = db, cameFromb
					distOther = df
				}

				newCost := dist[node.Item] + float64(edge.Weight)
				old, seen := dist[target]
				if !seen {
					dist[target] = newCost
					frontier.Insert(datastructure.NewPriorityQueueNode(newCost, target))
					cameFrom[target] = cameFromPair{Edge: edge, Prev: node.Item, Valid: true}
				} else if newCost < old {
					dist[target] = newCost
					frontier.DecreaseKey(datastructure.NewPriorityQueueNode(newCost, target))
					cameFrom[target] = cameFromPair{Edge: edge, Prev: node.Item, Valid: true}
				}

				if otherCost, met := distOther[target]; met {
					if pathCost := newCost + otherCost; pathCost < estimate {
						estimate = pathCost
						bestCommonVertex = target
						foundMeeting = true
					}
				}
			}
		}

		otherStillRunning := (turnF && !backFinished) || (!turnF && !frontFinished)
		if otherStillRunning {
			frontier, otherFrontier = otherFrontier, frontier
			turnF = !turnF
		}
	}

	if !foundMeeting {
		return nil, 0, false, nil
	}

	path, err := rf.unpackPath(bestCommonVertex, cameFromf, cameFromb)
	if err != nil {
		return nil, 0, false, err
	}
	return path, estimate, true, nil
}

// unpackPath rebuilds the winning path through the common vertex and
// expands every shortcut into the real edges it stands for. Only edges on
// the winning path are ever expanded.
func (rf *RouteFinder) unpackPath(commonVertex graph.NodeID,
	cameFromf, cameFromb map[graph.NodeID]cameFromPair) ([]pathEdge, error) {

	// the forward chain walks common -> start, reverse it into travel order
	type chainEntry struct {
		prev graph.NodeID
		edge graph.Edge
	}
	var forwardChain []chainEntry
	v := commonVertex
	for {
		pair, ok := cameFromf[v]
		if !ok || !pair.Valid {
			break
		}
		forwardChain = append(forwardChain, chainEntry{prev: pair.Prev, edge: pair.Edge})
		v = pair.Prev
	}
	forwardChain = util.ReverseG(forwardChain)

	var path []pathEdge
	for _, entry := range forwardChain {
		if err := rf.expandForward(entry.prev, entry.edge, &path); err != nil {
			return nil, err
		}
	}

	// the backward chain already runs common -> target in travel order
	v = commonVertex
	for {
		pair, ok := cameFromb[v]
		if !ok || !pair.Valid {
			break
		}
		if err := rf.expandBackward(pair.Prev, pair.Edge, &path); err != nil {
			return nil, err
		}
		v = pair.Prev
	}
	return path, nil
}

// expandForward emits the real edges of traveling edge from its stored
// source u to its stored target.
func (rf *RouteFinder) expandForward(u graph.NodeID, edge graph.Edge, path *[]pathEdge) error {
	v, ok, err := rf.resolveTarget(edge)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unpack: unresolved edge target on winning path")
	}
	if !edge.Contracted {
		*path = append(*path, pathEdge{From: u, To: v, Edge: edge})
		return nil
	}

	via := edge.ViaID
	first, err := rf.findEdge(u, via, true)
	if err != nil {
		return err
	}
	second, err := rf.findEdge(via, v, true)
	if err != nil {
		return err
	}
	if err := rf.expandForward(u, first, path); err != nil {
		return err
	}
	return rf.expandForward(via, second, path)
}

// expandBackward emits the real edges of traveling edge against its stored
// orientation, target to source u.
func (rf *RouteFinder) expandBackward(u graph.NodeID, edge graph.Edge, path *[]pathEdge) error {
	v, ok, err := rf.resolveTarget(edge)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unpack: unresolved edge target on winning path")
	}
	if !edge.Contracted {
		*path = append(*path, pathEdge{From: v, To: u, Edge: edge})
		return nil
	}

	// stored chain is u -> via -> v, traveled v -> via -> u
	via := edge.ViaID
	second, err := rf.findEdge(via, v, false)
	if err != nil {
		return err
	}
	first, err := rf.findEdge(u, via, false)
	if err != nil {
		return err
	}
	if err := rf.expandBackward(via, second, path); err != nil {
		return err
	}
	return rf.expandBackward(u, first, path)
}

// findEdge locates the cheapest stored edge from u to target traversable
// in the wanted direction. Shortcut components are always stored alongside
// the shortcut, a miss means the package data is inconsistent.
func (rf *RouteFinder) findEdge(u, target graph.NodeID, wantForward bool) (graph.Edge, error) {
	ptr, err := rf.g.GetNode(u)
	if err != nil {
		return graph.Edge{}, err
	}

	var best graph.Edge
	found := false
	for _, edge := range ptr.Edges() {
		if wantForward && !edge.Forward {
			continue
		}
		if !wantForward && !edge.Backward {
			continue
		}
		candidate, ok, err := rf.resolveTarget(edge)
		if err != nil {
			return graph.Edge{}, err
		}
		if !ok || candidate != target {
			continue
		}
		if !found || edge.Weight < best.Weight {
			best = edge
			found = true
		}
	}
	if !found {
		return graph.Edge{}, fmt.Errorf("unpack: missing shortcut component between %v and %v", u, target)
	}
	return best, nil
}
