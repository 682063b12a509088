package routingalgorithm

import (
	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/graph"
)

// RoutingGraph is the graph access the route finder needs. Satisfied by
// graph.RoutingGraph.
type RoutingGraph interface {
	GetNode(id graph.NodeID) (graph.NodePtr, error)
	GetNodeName(node *graph.Node) (string, error)
	GetNodeGeometry(node *graph.Node) ([]datastructure.Coordinate, error)
	ResolveGlobalNode(id graph.GlobalNodeID) (graph.NodeID, bool, error)
	FindNearestNode(pos datastructure.Coordinate) ([]graph.NearestNode, error)
}
