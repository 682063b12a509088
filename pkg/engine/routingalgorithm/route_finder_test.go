package routingalgorithm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmi-aa/routepack/pkg/datastructure"
	"github.com/fahmi-aa/routepack/pkg/graph"
	"github.com/fahmi-aa/routepack/pkg/guidance"
)

func segment(lat, lonFrom, lonTo float64) []datastructure.Coordinate {
	return []datastructure.Coordinate{
		datastructure.NewCoordinate(lat, lonFrom),
		datastructure.NewCoordinate(lat, lonTo),
	}
}

// connect wires a traversable connection from -> to: a forward edge stored
// at from and its backward counterpart stored at to.
func connect(w *graph.PackageWriter, from, to int, weight uint32, turn guidance.TurnType) {
	w.AddEdge(from, graph.BuilderEdge{Target: to, Weight: weight, TurnCode: uint8(turn), Forward: true})
	w.AddEdge(to, graph.BuilderEdge{Target: from, Weight: weight, TurnCode: uint8(turn), Backward: true})
}

func importGraph(t *testing.T, writers ...*graph.PackageWriter) *graph.RoutingGraph {
	t.Helper()

	dir := t.TempDir()
	g := graph.NewRoutingGraph(graph.DefaultSettings())
	t.Cleanup(func() { g.Close() })
	for _, w := range writers {
		path := filepath.Join(dir, t.Name()+graph.PackageExtension)
		require.NoError(t, w.WriteFile(path))
		require.NoError(t, g.ImportFile(path))
		dir = t.TempDir()
	}
	return g
}

// chainWriter builds a one way street of n segments along latitude lat,
// each 0.001 degrees of longitude long.
func chainWriter(name string, lat float64, n int, turns map[int]guidance.TurnType) *graph.PackageWriter {
	w := graph.NewPackageWriter(name)
	w.BlockSize = 2
	for i := 0; i < n; i++ {
		lon := float64(i) * 0.001
		w.AddNode(graph.BuilderNode{
			Geometry: segment(lat, lon, lon+0.001),
			Name:     "Jalan Margo Utomo",
			Weight:   100,
		})
	}
	for i := 0; i+1 < n; i++ {
		turn := guidance.NoTurn
		if turns != nil {
			turn = turns[i]
		}
		connect(w, i, i+1, 100, turn)
	}
	return w
}

func TestFindSimpleRoute(t *testing.T) {
	g := importGraph(t, chainWriter("chain", 0, 4, map[int]guidance.TurnType{1: guidance.TurnRight}))
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0.0001, 0.0005),
		datastructure.NewCoordinate(0.0001, 0.0035),
	}})
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)

	// snapped endpoints bound the geometry
	require.NotEmpty(t, result.Geometry)
	assert.InDelta(t, 0.0005, result.Geometry[0].Lon, 1e-5)
	assert.InDelta(t, 0.0035, result.Geometry[len(result.Geometry)-1].Lon, 1e-5)

	require.GreaterOrEqual(t, len(result.Instructions), 3)
	assert.Equal(t, guidance.HeadOn, result.Instructions[0].Type)
	assert.Equal(t, guidance.TurnRight, result.Instructions[1].Type)
	assert.Equal(t, "Turn right onto Jalan Margo Utomo", result.Instructions[1].Description)
	last := result.Instructions[len(result.Instructions)-1]
	assert.Equal(t, guidance.ReachedYourDestination, last.Type)
	assert.Equal(t, len(result.Geometry)-1, last.GeometryIndex)

	// per instruction distances sum up to the route total
	var instructionDist float64
	for _, ins := range result.Instructions {
		instructionDist += ins.Distance
	}
	assert.InDelta(t, result.Distance, instructionDist, 0.1)

	// three traversed connections, 0.1s per weight unit
	assert.InDelta(t, 30.0, result.Time, 0.01)
	// half the first segment, three full segments, then back from the end
	// of the last one to the snapped destination
	assert.InDelta(t, 445, result.Distance, 30)
}

func TestFindExpandsShortcuts(t *testing.T) {
	// a -> b -> c with an overriding shortcut a -> c via b
	w := graph.NewPackageWriter("shortcut")
	w.BlockSize = 2
	a := w.AddNode(graph.BuilderNode{Geometry: segment(0, 0.000, 0.001), Weight: 100})
	b := w.AddNode(graph.BuilderNode{Geometry: segment(0, 0.001, 0.002), Weight: 100})
	c := w.AddNode(graph.BuilderNode{Geometry: segment(0, 0.002, 0.003), Weight: 100})
	connect(w, a, b, 150, guidance.NoTurn)
	connect(w, b, c, 150, guidance.TurnLeft)
	w.AddEdge(a, graph.BuilderEdge{Target: c, Weight: 200, Contracted: true, Via: b, Forward: true})
	w.AddEdge(c, graph.BuilderEdge{Target: a, Weight: 200, Contracted: true, Via: b, Backward: true})

	g := importGraph(t, w)
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0.0002),
		datastructure.NewCoordinate(0, 0.0028),
	}})
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)

	// the shortcut wins the search but the rendered route runs through b's
	// segment and keeps b's turn instruction
	var lons []float64
	for _, p := range result.Geometry {
		lons = append(lons, p.Lon)
	}
	assert.Contains(t, lons, 0.001)
	assert.Contains(t, lons, 0.002)

	var turns []guidance.TurnType
	for _, ins := range result.Instructions {
		turns = append(turns, ins.Type)
	}
	assert.Contains(t, turns, guidance.TurnLeft)

	// search cost is the shortcut weight, not the sum of its components
	assert.InDelta(t, 20.0, result.Time, 0.01)
}

func TestFindNoRoute(t *testing.T) {
	// two disconnected chains far apart
	w := graph.NewPackageWriter("islands")
	w.BlockSize = 2
	a := w.AddNode(graph.BuilderNode{Geometry: segment(0, 0.000, 0.001), Weight: 100})
	b := w.AddNode(graph.BuilderNode{Geometry: segment(0, 0.001, 0.002), Weight: 100})
	connect(w, a, b, 100, guidance.NoTurn)
	w.AddNode(graph.BuilderNode{Geometry: segment(0.1, 0.000, 0.001), Weight: 100})

	g := importGraph(t, w)
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0.0005),
		datastructure.NewCoordinate(0.1, 0.0005),
	}})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, result.Geometry)
	assert.Empty(t, result.Instructions)
}

func TestFindWithViaPoint(t *testing.T) {
	g := importGraph(t, chainWriter("chain", 0, 6, nil))
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0.0005),
		datastructure.NewCoordinate(0, 0.0030),
		datastructure.NewCoordinate(0, 0.0055),
	}})
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)

	var heads, vias, dests int
	for _, ins := range result.Instructions {
		switch ins.Type {
		case guidance.HeadOn:
			heads++
		case guidance.ReachViaLocation:
			vias++
		case guidance.ReachedYourDestination:
			dests++
		}
	}
	assert.Equal(t, 1, heads)
	assert.Equal(t, 1, vias)
	assert.Equal(t, 1, dests)

	// geometry indexes stay within the joined geometry and increase
	prev := -1
	for _, ins := range result.Instructions {
		assert.Less(t, ins.GeometryIndex, len(result.Geometry))
		assert.GreaterOrEqual(t, ins.GeometryIndex, prev)
		prev = ins.GeometryIndex
	}
}

func TestFindSameSegment(t *testing.T) {
	g := importGraph(t, chainWriter("chain", 0, 2, nil))
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0.0002),
		datastructure.NewCoordinate(0, 0.0008),
	}})
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Geometry, 2)
	// ~67m along the segment
	assert.InDelta(t, 67, result.Distance, 5)
	assert.Equal(t, guidance.ReachedYourDestination, result.Instructions[len(result.Instructions)-1].Type)
}

func TestFindUnsnappablePosition(t *testing.T) {
	g := graph.NewRoutingGraph(graph.DefaultSettings())
	defer g.Close()
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0),
		datastructure.NewCoordinate(1, 1),
	}})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestFindRejectsShortQuery(t *testing.T) {
	g := graph.NewRoutingGraph(graph.DefaultSettings())
	defer g.Close()
	rf := NewRouteFinder(g)

	_, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0),
	}})
	assert.Error(t, err)
}

func crossPackagePair() (*graph.PackageWriter, *graph.PackageWriter) {
	// west holds segments 0 and 2, east holds the segment 1 bridging them
	west := graph.NewPackageWriter("west")
	west.BlockSize = 2
	w1 := west.AddNode(graph.BuilderNode{Geometry: segment(0, 0.000, 0.001), Weight: 100})
	w2 := west.AddNode(graph.BuilderNode{Geometry: segment(0, 0.002, 0.003), Weight: 100})
	west.AddEdge(w1, graph.BuilderEdge{ExternalPackage: "east", ExternalBlock: 0, ExternalIndex: 0, Weight: 100, Forward: true})
	west.AddEdge(w2, graph.BuilderEdge{ExternalPackage: "east", ExternalBlock: 0, ExternalIndex: 0, Weight: 100, Backward: true})

	east := graph.NewPackageWriter("east")
	east.BlockSize = 2
	e := east.AddNode(graph.BuilderNode{Geometry: segment(0, 0.001, 0.002), Weight: 100})
	east.AddEdge(e, graph.BuilderEdge{ExternalPackage: "west", ExternalBlock: 0, ExternalIndex: 1, Weight: 100, Forward: true})
	east.AddEdge(e, graph.BuilderEdge{ExternalPackage: "west", ExternalBlock: 0, ExternalIndex: 0, Weight: 100, Backward: true})
	return west, east
}

func TestFindAcrossPackages(t *testing.T) {
	west, east := crossPackagePair()
	g := importGraph(t, west, east)
	rf := NewRouteFinder(g)

	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0.0005),
		datastructure.NewCoordinate(0, 0.0025),
	}})
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)

	// the route crosses the east package's bridging segment
	var lons []float64
	for _, p := range result.Geometry {
		lons = append(lons, p.Lon)
	}
	assert.Contains(t, lons, 0.002)
}

func TestFindMissingNeighbourPackageFailsCleanly(t *testing.T) {
	west, _ := crossPackagePair()
	g := importGraph(t, west)
	rf := NewRouteFinder(g)

	// the only connection between the two west segments runs through the
	// unloaded east package, its edges resolve to nothing
	result, err := rf.Find(RoutingQuery{Positions: []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0.0005),
		datastructure.NewCoordinate(0, 0.0025),
	}})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}
