package service

import (
	"context"
	"errors"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/engine/routingalgorithm"
	"github.com/fahmi-aa/routepack/pkg/graph"
	"github.com/fahmi-aa/routepack/pkg/logger"
)

var log = logger.GetLogger("service")

// ErrNotCovered marks a query position outside every loaded package.
var ErrNotCovered = errors.New("position is not covered by the loaded packages")

type RouteFinder interface {
	Find(query routingalgorithm.RoutingQuery) (routingalgorithm.RoutingResult, error)
}

type NearestSearcher interface {
	FindNearestNode(pos datastructure.Coordinate) ([]graph.NearestNode, error)
	GetNode(id graph.NodeID) (graph.NodePtr, error)
	GetNodeName(node *graph.Node) (string, error)
}

type NavigationService struct {
	finder RouteFinder
	g      NearestSearcher
}

func NewNavigationService(finder RouteFinder, g NearestSearcher) *NavigationService {
	return &NavigationService{finder: finder, g: g}
}

// Route finds a route through the given positions and returns the result
// along with its encoded polyline.
func (s *NavigationService) Route(ctx context.Context, positions []datastructure.Coordinate) (routingalgorithm.RoutingResult, string, error) {
	result, err := s.finder.Find(routingalgorithm.RoutingQuery{Positions: positions})
	if err != nil {
		log.Errorf("route query failed: %v", err)
		return routingalgorithm.RoutingResult{}, "", err
	}
	if result.Status != routingalgorithm.StatusOK {
		return result, "", nil
	}
	return result, datastructure.CreatePolyline(result.Geometry), nil
}

// NearestResult is one snapped candidate with its street name resolved.
type NearestResult struct {
	Snap       graph.NearestNode
	StreetName string
}

// Nearest snaps a position onto the road network and resolves the street
// names of all candidates within the tie margin.
func (s *NavigationService) Nearest(ctx context.Context, lat, lon float64) ([]NearestResult, error) {
	candidates, err := s.g.FindNearestNode(datastructure.NewCoordinate(lat, lon))
	if err != nil {
		log.Errorf("nearest query failed: %v", err)
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNotCovered
	}

	results := make([]NearestResult, 0, len(candidates))
	for _, cand := range candidates {
		ptr, err := s.g.GetNode(cand.NodeID)
		if err != nil {
			return nil, err
		}
		name, err := s.g.GetNodeName(ptr.Node())
		if err != nil {
			return nil, err
		}
		results = append(results, NearestResult{Snap: cand, StreetName: name})
	}
	return results, nil
}
