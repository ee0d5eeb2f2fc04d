package routing

import (
	"github.com/tidwall/rtree"

	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
)

// segmentRef locates one segment of one edge.
type segmentRef struct {
	order   int
	segment int
}

// Index answers the same queries as Snap using an R-tree of segment
// bounding boxes. Results are identical to Snap, including ties.
type Index struct {
	g      *graph.RoadGraph
	edges  []*graph.Edge
	shapes [][]graph.LatLng
	tree   rtree.RTreeG[segmentRef]
}

// NewIndex builds a segment index over g. Edges that Snap would skip are
// left out.
func NewIndex(g *graph.RoadGraph) *Index {
	ids := g.EdgeIDs()
	idx := &Index{
		g:      g,
		edges:  make([]*graph.Edge, len(ids)),
		shapes: make([][]graph.LatLng, len(ids)),
	}
	for order, id := range ids {
		e := g.Edges[id]
		shape, ok := edgeShape(g, e)
		if !ok {
			continue
		}
		idx.edges[order] = e
		idx.shapes[order] = shape
		for seg := range segmentCount(shape) {
			a, b := segmentAt(shape, seg)
			lo := [2]float64{min(a.Lat, b.Lat), min(a.Lng, b.Lng)}
			hi := [2]float64{max(a.Lat, b.Lat), max(a.Lng, b.Lng)}
			idx.tree.Insert(lo, hi, segmentRef{order: order, segment: seg})
		}
	}
	return idx
}

// Len returns the number of indexed segments.
func (idx *Index) Len() int { return idx.tree.Len() }

// Snap returns the point on the network closest to p.
func (idx *Index) Snap(p graph.LatLng) (SnapResult, error) {
	target := [2]float64{p.Lat, p.Lng}
	segDist := func(_, _ [2]float64, ref segmentRef) float64 {
		a, b := segmentAt(idx.shapes[ref.order], ref.segment)
		_, _, d := geo.ProjectOnSegment(p, a, b)
		return d
	}

	var best candidate
	found := false
	idx.tree.Nearby(
		rtree.BoxDist(target, target, segDist),
		func(_, _ [2]float64, ref segmentRef, dist float64) bool {
			// Items arrive in ascending distance; keep going only to
			// collect exact ties.
			if found && dist > best.distSq {
				return false
			}
			c := project(p, idx.shapes[ref.order], ref.order, ref.segment, idx.edges[ref.order])
			if !found || c.before(best) {
				best, found = c, true
			}
			return true
		},
	)

	if !found {
		return SnapResult{}, ErrNoEdges
	}
	return best.result(idx.g), nil
}
