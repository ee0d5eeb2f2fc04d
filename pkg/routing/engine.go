package routing

import (
	"context"
	"fmt"

	"route_visualizer/pkg/graph"
)

// Route is a search between two snapped points.
type Route struct {
	Start     SnapResult
	Goal      SnapResult
	Algorithm Algorithm
	Result    *Result
}

// Router answers snap and search queries for one graph.
type Router interface {
	Graph() *graph.RoadGraph
	Snap(p graph.LatLng) (SnapResult, error)
	Route(ctx context.Context, start, end graph.LatLng, algo Algorithm) (*Route, error)
}

// Engine implements Router over a graph and its segment index.
type Engine struct {
	g     *graph.RoadGraph
	index *Index
}

// NewEngine indexes g for snapping.
func NewEngine(g *graph.RoadGraph) *Engine {
	return &Engine{g: g, index: NewIndex(g)}
}

func (e *Engine) Graph() *graph.RoadGraph { return e.g }

func (e *Engine) Snap(p graph.LatLng) (SnapResult, error) {
	return e.index.Snap(p)
}

// Route snaps both points onto the network and searches between the
// snapped nodes. The search itself cannot be interrupted; ctx is only
// checked before it starts.
func (e *Engine) Route(ctx context.Context, start, end graph.LatLng, algo Algorithm) (*Route, error) {
	from, err := e.index.Snap(start)
	if err != nil {
		return nil, fmt.Errorf("snap start: %w", err)
	}
	to, err := e.index.Snap(end)
	if err != nil {
		return nil, fmt.Errorf("snap end: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := Search(e.g, from.Node.ID, to.Node.ID, algo)
	if err != nil {
		return nil, err
	}
	return &Route{Start: from, Goal: to, Algorithm: algo, Result: res}, nil
}
