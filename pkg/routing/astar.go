package routing

import (
	"math"

	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
	"route_visualizer/pkg/pq"
)

// openEntry is a heap slot. f is fixed when the entry is pushed; a node
// whose cost improves gets a new entry and the old one goes stale.
type openEntry struct {
	node graph.NodeID
	f    float64
}

// astar finds a least-weight path using the great-circle distance to the
// goal as heuristic. Equal-f entries come out in heap order, which is not
// a stable rule.
func astar(g *graph.RoadGraph, start, goal graph.NodeID) *Result {
	res := &Result{Steps: []Step{}}
	if _, ok := g.Nodes[start]; !ok {
		return res
	}
	goalNode, ok := g.Nodes[goal]
	if !ok {
		return res
	}

	h := func(id graph.NodeID) float64 {
		n, ok := g.Nodes[id]
		if !ok {
			return 0
		}
		return geo.Distance(n.Position, goalNode.Position)
	}

	gScore := map[graph.NodeID]float64{start: 0}
	cameFrom := make(map[graph.NodeID]predecessor)
	closed := make(map[graph.NodeID]bool)
	open := pq.New(func(e openEntry) float64 { return e.f })
	open.Push(openEntry{node: start, f: h(start)})

	for {
		top, ok := open.Pop()
		if !ok {
			return res
		}
		cur := top.node
		if closed[cur] {
			continue
		}
		if cur == goal {
			res.Found = true
			res.Path = reconstructPath(cameFrom, start, goal)
			return res
		}
		closed[cur] = true

		for _, eid := range g.Nodes[cur].Neighbors {
			e, ok := traversable(g, eid)
			if !ok || closed[e.To] {
				continue
			}
			tentative := gScore[cur] + e.Weight
			best, seen := gScore[e.To]
			if !seen {
				best = math.Inf(1)
			}
			if tentative >= best {
				continue
			}
			cameFrom[e.To] = predecessor{node: cur, edge: eid}
			gScore[e.To] = tentative
			res.Steps = append(res.Steps, Step{Type: StepVisit, EdgeID: eid, NodeID: e.To})
			open.Push(openEntry{node: e.To, f: tentative + h(e.To)})
		}
	}
}
