package routing

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
)

func pt(lat, lng float64) graph.LatLng { return graph.LatLng{Lat: lat, Lng: lng} }

// randomGraph builds n nodes scattered over a few kilometres with m random
// directed edges. Weights are at least the great-circle length of the edge,
// so the A* heuristic is admissible.
func randomGraph(t testing.TB, seed uint64, n, m int) *graph.RoadGraph {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed*7+1))
	g := graph.New()
	for i := range n {
		g.AddNode(graph.NodeID(fmt.Sprintf("n%02d", i)), pt(49.2+r.Float64()*0.05, -123.1+r.Float64()*0.05))
	}
	for i := range m {
		u := graph.NodeID(fmt.Sprintf("n%02d", r.IntN(n)))
		v := graph.NodeID(fmt.Sprintf("n%02d", r.IntN(n)))
		if u == v {
			continue
		}
		w := geo.Distance(g.Nodes[u].Position, g.Nodes[v].Position) * (1 + r.Float64())
		g.AddEdge(graph.EdgeID(fmt.Sprintf("e%03d", i)), u, v, w)
	}
	return g
}

// shortest computes reference distances from start with Bellman-Ford.
// weight selects the cost of an edge.
func shortest(g *graph.RoadGraph, start graph.NodeID, weight func(*graph.Edge) float64) map[graph.NodeID]float64 {
	dist := map[graph.NodeID]float64{start: 0}
	for range len(g.Nodes) {
		changed := false
		for _, e := range g.Edges {
			if _, ok := g.Nodes[e.To]; !ok {
				continue
			}
			du, ok := dist[e.From]
			if !ok {
				continue
			}
			dv, seen := dist[e.To]
			if !seen {
				dv = math.Inf(1)
			}
			if du+weight(e) < dv {
				dist[e.To] = du + weight(e)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return dist
}

func hops(*graph.Edge) float64       { return 1 }
func weightOf(e *graph.Edge) float64 { return e.Weight }
func ids(steps []Step) (out []string) {
	for _, s := range steps {
		out = append(out, fmt.Sprintf("%s/%s", s.EdgeID, s.NodeID))
	}
	return out
}
