package routing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"route_visualizer/pkg/graph"
)

// ErrUnknownAlgorithm is returned for an algorithm name Search does not know.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Algorithm selects the search strategy.
type Algorithm string

const (
	BFS   Algorithm = "bfs"
	DFS   Algorithm = "dfs"
	AStar Algorithm = "astar"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{BFS, DFS, AStar}

// ParseAlgorithm maps a case-insensitive name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Algorithms, a) {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
	return a, nil
}

// StepType tags a trace step.
type StepType string

const (
	StepVisit StepType = "visit"
	// StepBacktrack is reserved for consumers; no algorithm emits it.
	StepBacktrack StepType = "backtrack"
)

// Step is one discovery event: EdgeID was followed to reach NodeID.
type Step struct {
	Type   StepType     `json:"type"`
	EdgeID graph.EdgeID `json:"edgeId"`
	NodeID graph.NodeID `json:"nodeId"`
}

// Result is the outcome of a search. Path is nil when no path was found;
// a path from a node to itself is empty but not nil.
type Result struct {
	Steps []Step         `json:"steps"`
	Path  []graph.EdgeID `json:"path"`
	Found bool           `json:"found"`
}

// Search runs algo from start to goal over g. Absent or unreachable nodes
// are reported through Found, never as errors.
func Search(g *graph.RoadGraph, start, goal graph.NodeID, algo Algorithm) (*Result, error) {
	switch algo {
	case BFS:
		return traverse(g, start, goal, &queue{}, markOnPush), nil
	case DFS:
		return traverse(g, start, goal, &stack{}, markOnPop), nil
	case AStar:
		return astar(g, start, goal), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

// predecessor records how a node was reached.
type predecessor struct {
	node graph.NodeID
	edge graph.EdgeID
}

// reconstructPath walks cameFrom back from goal to start and returns the
// edges in travel order.
func reconstructPath(cameFrom map[graph.NodeID]predecessor, start, goal graph.NodeID) []graph.EdgeID {
	path := []graph.EdgeID{}
	for cur := goal; cur != start; {
		p, ok := cameFrom[cur]
		if !ok || len(path) > len(cameFrom) {
			return nil
		}
		path = append(path, p.edge)
		cur = p.node
	}
	slices.Reverse(path)
	return path
}

// traversable returns e when it exists and both its endpoints resolve.
func traversable(g *graph.RoadGraph, id graph.EdgeID) (*graph.Edge, bool) {
	e, ok := g.Edges[id]
	if !ok {
		return nil, false
	}
	if from, to := g.Endpoints(e); from == nil || to == nil {
		return nil, false
	}
	return e, true
}

// Cost sums the weights of the path's edges. Missing edges count as zero.
func (r *Result) Cost(g *graph.RoadGraph) float64 {
	var total float64
	for _, id := range r.Path {
		if e, ok := g.Edges[id]; ok {
			total += e.Weight
		}
	}
	return total
}

// Validate checks that the path is a chain of existing edges leading from
// start to goal.
func (r *Result) Validate(g *graph.RoadGraph, start, goal graph.NodeID) error {
	if !r.Found {
		if r.Path != nil {
			return errors.New("path present on a not-found result")
		}
		return nil
	}
	if r.Path == nil {
		return errors.New("found result without a path")
	}
	cur := start
	for i, id := range r.Path {
		e, ok := g.Edges[id]
		if !ok {
			return fmt.Errorf("path[%d]: unknown edge %q", i, id)
		}
		if e.From != cur {
			return fmt.Errorf("path[%d]: edge %q starts at %q, want %q", i, id, e.From, cur)
		}
		cur = e.To
	}
	if cur != goal {
		return fmt.Errorf("path ends at %q, want %q", cur, goal)
	}
	return nil
}
