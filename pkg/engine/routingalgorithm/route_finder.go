package routingalgorithm

import (
	"errors"
	"math"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/geo"
	"github.com/fahmi-aa/routepack/pkg/graph"
	"github.com/fahmi-aa/routepack/pkg/guidance"
	"github.com/fahmi-aa/routepack/pkg/util"
)

// edge weights are stored in tenths of a second
const weightToSeconds = 0.1

type Status int

const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}
	return "FAILED"
}

// RoutingQuery asks for a route visiting Positions in order. Positions
// between the first and last are via points.
type RoutingQuery struct {
	Positions []datastructure.Coordinate
}

// RoutingResult is a finished route. StatusFailed means no route connects
// the query positions on the loaded packages, which is a result, not an
// error.
type RoutingResult struct {
	Status       Status
	Geometry     []datastructure.Coordinate
	Instructions []guidance.Instruction
	Distance     float64 // meters
	Time         float64 // seconds
}

func failedResult() RoutingResult {
	return RoutingResult{Status: StatusFailed}
}

// RouteFinder answers routing queries over a RoutingGraph.
type RouteFinder struct {
	g RoutingGraph
}

func NewRouteFinder(g RoutingGraph) *RouteFinder {
	return &RouteFinder{g: g}
}

type leg struct {
	geometry     []datastructure.Coordinate
	instructions []guidance.Instruction
	distance     float64
	time         float64
}

// Find snaps every query position onto the network, routes the legs
// between consecutive positions and joins them into one result. A leg
// that cannot be routed fails the whole query.
func (rf *RouteFinder) Find(query RoutingQuery) (RoutingResult, error) {
	if len(query.Positions) < 2 {
		return failedResult(), errors.New("routing query needs at least two positions")
	}

	snaps := make([]graph.NearestNode, len(query.Positions))
	for i, pos := range query.Positions {
		candidates, err := rf.g.FindNearestNode(pos)
		if err != nil {
			return failedResult(), err
		}
		if len(candidates) == 0 {
			return failedResult(), nil
		}
		snaps[i] = candidates[0]
	}

	result := RoutingResult{Status: StatusOK}
	for i := 1; i < len(snaps); i++ {
		lastLeg := i == len(snaps)-1
		l, found, err := rf.routeLeg(snaps[i-1], snaps[i])
		if err != nil {
			return failedResult(), err
		}
		if !found {
			return failedResult(), nil
		}

		legGeometry := l.geometry
		offset := len(result.Geometry)
		if offset > 0 {
			// consecutive legs share the via position
			legGeometry = legGeometry[1:]
			offset--
		}
		result.Geometry = append(result.Geometry, legGeometry...)

		for _, ins := range l.instructions {
			if offset > 0 && ins.Type == guidance.HeadOn {
				continue
			}
			if !lastLeg && ins.Type == guidance.ReachedYourDestination {
				ins = guidance.NewInstruction(guidance.ReachViaLocation, ins.StreetName, ins.Distance, ins.Time, ins.GeometryIndex)
			}
			ins.GeometryIndex += offset
			result.Instructions = append(result.Instructions, ins)
		}
		result.Distance += l.distance
		result.Time += l.time
	}
	result.Distance = util.RoundFloat(result.Distance, 2)
	result.Time = util.RoundFloat(result.Time, 2)
	return result, nil
}

// routeLeg routes between two snapped positions and renders the leg's
// geometry and instructions.
func (rf *RouteFinder) routeLeg(from, to graph.NearestNode) (leg, bool, error) {
	if from.NodeID == to.NodeID {
		return rf.trivialLeg(from, to)
	}

	path, cost, found, err := rf.shortestPath(from.NodeID, to.NodeID)
	if err != nil {
		return leg{}, false, err
	}
	if !found {
		return leg{}, false, nil
	}

	l := leg{
		geometry: []datastructure.Coordinate{from.Position},
		time:     cost * weightToSeconds,
	}

	startName, err := rf.nodeName(from.NodeID)
	if err != nil {
		return leg{}, false, err
	}
	l.instructions = append(l.instructions, guidance.NewInstruction(guidance.HeadOn, startName, 0, 0, 0))

	segmentDistance := 0.0
	segmentTime := 0.0
	for _, pe := range path {
		ptr, err := rf.g.GetNode(pe.To)
		if err != nil {
			return leg{}, false, err
		}
		points, err := rf.g.GetNodeGeometry(ptr.Node())
		if err != nil {
			return leg{}, false, err
		}

		maneuverIndex := len(l.geometry) - 1
		contribution := 0.0
		for _, p := range points {
			last := l.geometry[len(l.geometry)-1]
			contribution += geo.HaversineDistance(last.Lat, last.Lon, p.Lat, p.Lon)
			l.geometry = append(l.geometry, p)
		}
		l.distance += contribution

		turn := guidance.TurnType(pe.Edge.TurnCode)
		if !turn.Silent() {
			name, err := rf.g.GetNodeName(ptr.Node())
			if err != nil {
				return leg{}, false, err
			}
			l.instructions = append(l.instructions,
				guidance.NewInstruction(turn, name, util.RoundFloat(segmentDistance, 2), util.RoundFloat(segmentTime, 2), maneuverIndex))
			segmentDistance = 0
			segmentTime = 0
		}
		segmentDistance += contribution
		segmentTime += float64(pe.Edge.Weight) * weightToSeconds
	}

	last := l.geometry[len(l.geometry)-1]
	connector := geo.HaversineDistance(last.Lat, last.Lon, to.Position.Lat, to.Position.Lon)
	l.distance += connector
	segmentDistance += connector
	l.geometry = append(l.geometry, to.Position)

	endName, err := rf.nodeName(to.NodeID)
	if err != nil {
		return leg{}, false, err
	}
	l.instructions = append(l.instructions, guidance.NewInstruction(
		guidance.ReachedYourDestination, endName,
		util.RoundFloat(segmentDistance, 2), util.RoundFloat(segmentTime, 2), len(l.geometry)-1))
	return l, true, nil
}

// trivialLeg handles both endpoints snapping onto the same node.
func (rf *RouteFinder) trivialLeg(from, to graph.NearestNode) (leg, bool, error) {
	ptr, err := rf.g.GetNode(from.NodeID)
	if err != nil {
		return leg{}, false, err
	}
	name, err := rf.g.GetNodeName(ptr.Node())
	if err != nil {
		return leg{}, false, err
	}

	distance := geo.HaversineDistance(from.Position.Lat, from.Position.Lon, to.Position.Lat, to.Position.Lon)
	time := float64(ptr.Node().Weight) * weightToSeconds * math.Abs(to.RelPos-from.RelPos)
	l := leg{
		geometry: []datastructure.Coordinate{from.Position, to.Position},
		distance: distance,
		time:     time,
		instructions: []guidance.Instruction{
			guidance.NewInstruction(guidance.HeadOn, name, 0, 0, 0),
			guidance.NewInstruction(guidance.ReachedYourDestination, name, util.RoundFloat(distance, 2), util.RoundFloat(time, 2), 1),
		},
	}
	return l, true, nil
}

func (rf *RouteFinder) nodeName(id graph.NodeID) (string, error) {
	ptr, err := rf.g.GetNode(id)
	if err != nil {
		return "", err
	}
	return rf.g.GetNodeName(ptr.Node())
}
