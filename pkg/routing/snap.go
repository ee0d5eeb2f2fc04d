package routing

import (
	"errors"

	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
)

// ErrNoEdges is returned when there is no edge to snap to.
var ErrNoEdges = errors.New("graph has no snappable edges")

// SnapResult is a point resolved onto the road network.
type SnapResult struct {
	Node      *graph.Node  // nearer endpoint of Edge
	Edge      *graph.Edge  // edge holding the closest segment
	Projected graph.LatLng // closest point on Edge's geometry
	Segment   int          // index of the segment's first vertex
	T         float64      // position along the segment, in [0,1]
	DistSq    float64      // squared planar distance in degrees
}

// candidate is one projected point during a nearest-segment search.
type candidate struct {
	order   int // position of the edge in EdgeIDs
	segment int
	edge    *graph.Edge
	proj    graph.LatLng
	t       float64
	distSq  float64
}

// before reports whether c beats o: strictly closer, or equally close and
// earlier in scan order.
func (c candidate) before(o candidate) bool {
	if c.distSq != o.distSq {
		return c.distSq < o.distSq
	}
	if c.order != o.order {
		return c.order < o.order
	}
	return c.segment < o.segment
}

// edgeShape returns the polyline to snap against. Empty geometry falls back
// to the straight line between the endpoints. ok is false when neither
// endpoint resolves, since such an edge can never yield a node.
func edgeShape(g *graph.RoadGraph, e *graph.Edge) (shape []graph.LatLng, ok bool) {
	from, to := g.Endpoints(e)
	if from == nil && to == nil {
		return nil, false
	}
	if len(e.Geometry) > 0 {
		return e.Geometry, true
	}
	switch {
	case from != nil && to != nil:
		return []graph.LatLng{from.Position, to.Position}, true
	case from != nil:
		return []graph.LatLng{from.Position}, true
	default:
		return []graph.LatLng{to.Position}, true
	}
}

// segmentAt returns the endpoints of segment i of shape. A single-vertex
// shape is a zero-length segment.
func segmentAt(shape []graph.LatLng, i int) (a, b graph.LatLng) {
	if len(shape) == 1 {
		return shape[0], shape[0]
	}
	return shape[i], shape[i+1]
}

func segmentCount(shape []graph.LatLng) int {
	if len(shape) == 1 {
		return 1
	}
	return len(shape) - 1
}

func project(p graph.LatLng, shape []graph.LatLng, order, seg int, e *graph.Edge) candidate {
	a, b := segmentAt(shape, seg)
	proj, t, d := geo.ProjectOnSegment(p, a, b)
	return candidate{order: order, segment: seg, edge: e, proj: proj, t: t, distSq: d}
}

// result turns the winning candidate into a SnapResult, choosing the
// endpoint nearer to the projected point. Ties go to From.
func (c candidate) result(g *graph.RoadGraph) SnapResult {
	from, to := g.Endpoints(c.edge)
	node := from
	switch {
	case from == nil:
		node = to
	case to != nil && geo.PlanarDistSq(c.proj, to.Position) < geo.PlanarDistSq(c.proj, from.Position):
		node = to
	}
	return SnapResult{
		Node:      node,
		Edge:      c.edge,
		Projected: c.proj,
		Segment:   c.segment,
		T:         c.t,
		DistSq:    c.distSq,
	}
}

// Snap finds the point on the road network closest to p by scanning every
// segment of every edge. Distances are planar in degree space.
func Snap(g *graph.RoadGraph, p graph.LatLng) (SnapResult, error) {
	var best candidate
	found := false

	for order, id := range g.EdgeIDs() {
		e := g.Edges[id]
		shape, ok := edgeShape(g, e)
		if !ok {
			continue
		}
		for seg := range segmentCount(shape) {
			c := project(p, shape, order, seg, e)
			if !found || c.distSq < best.distSq {
				best, found = c, true
			}
		}
	}

	if !found {
		return SnapResult{}, ErrNoEdges
	}
	return best.result(g), nil
}
