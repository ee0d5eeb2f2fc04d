// Package graph holds the immutable in-memory road graph that every search
// and snap runs against. A RoadGraph is built once per city and replaced
// wholesale, never mutated, so it is safe to share between goroutines.
package graph

import (
	"sort"
	"sync"

	"route_visualizer/pkg/geo"
)

// LatLng is a geographic coordinate in degrees.
type LatLng = geo.LatLng

// NodeID identifies a node. Ids are opaque strings from the graph provider.
type NodeID string

// EdgeID identifies a directed edge.
type EdgeID string

// Node is an intersection or dead end of the road network.
type Node struct {
	ID        NodeID   `json:"id"`
	Position  LatLng   `json:"position"`
	Neighbors []EdgeID `json:"neighbors"` // outgoing edges, in input order
}

// Edge is a directed road segment. Two-way roads are two opposing edges
// with reversed geometry.
type Edge struct {
	ID       EdgeID   `json:"id"`
	From     NodeID   `json:"from"`
	To       NodeID   `json:"to"`
	Weight   float64  `json:"weight"`   // meters
	Geometry []LatLng `json:"geometry"` // from -> to, inclusive
}

// RoadGraph maps ids to nodes and edges. References between them are not
// validated: an edge may name a node that does not exist.
type RoadGraph struct {
	Nodes map[NodeID]*Node
	Edges map[EdgeID]*Edge

	orderOnce sync.Once
	edgeOrder []EdgeID
}

// Raw is the provider's keyed document before it is turned into a RoadGraph.
type Raw struct {
	Nodes map[string]Node `json:"nodes"`
	Edges map[string]Edge `json:"edges"`
}

// Parse builds a RoadGraph from raw keyed records. Records are keyed by
// their map key; no structural validation is performed.
func Parse(raw Raw) *RoadGraph {
	g := &RoadGraph{
		Nodes: make(map[NodeID]*Node, len(raw.Nodes)),
		Edges: make(map[EdgeID]*Edge, len(raw.Edges)),
	}
	for key, n := range raw.Nodes {
		if n.ID == "" {
			n.ID = NodeID(key)
		}
		g.Nodes[NodeID(key)] = &n
	}
	for key, e := range raw.Edges {
		if e.ID == "" {
			e.ID = EdgeID(key)
		}
		g.Edges[EdgeID(key)] = &e
	}
	return g
}

// Raw converts the graph back into its keyed document form.
func (g *RoadGraph) Raw() Raw {
	raw := Raw{
		Nodes: make(map[string]Node, len(g.Nodes)),
		Edges: make(map[string]Edge, len(g.Edges)),
	}
	for id, n := range g.Nodes {
		raw.Nodes[string(id)] = *n
	}
	for id, e := range g.Edges {
		raw.Edges[string(id)] = *e
	}
	return raw
}

// EdgeIDs returns all edge ids in ascending order. The slice is computed
// once and shared; callers must not modify it.
func (g *RoadGraph) EdgeIDs() []EdgeID {
	g.orderOnce.Do(func() {
		ids := make([]EdgeID, 0, len(g.Edges))
		for id := range g.Edges {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		g.edgeOrder = ids
	})
	return g.edgeOrder
}

// Endpoints resolves an edge's from and to nodes. Either may be nil.
func (g *RoadGraph) Endpoints(e *Edge) (from, to *Node) {
	return g.Nodes[e.From], g.Nodes[e.To]
}

// Stats summarizes a graph.
type Stats struct {
	NumNodes          int `json:"num_nodes"`
	NumEdges          int `json:"num_edges"`
	DanglingEdges     int `json:"dangling_edges"`     // from or to does not resolve
	DanglingNeighbors int `json:"dangling_neighbors"` // neighbor entries with no edge
}

// Stats counts nodes, edges and unresolved references.
func (g *RoadGraph) Stats() Stats {
	s := Stats{NumNodes: len(g.Nodes), NumEdges: len(g.Edges)}
	for _, e := range g.Edges {
		from, to := g.Endpoints(e)
		if from == nil || to == nil {
			s.DanglingEdges++
		}
	}
	for _, n := range g.Nodes {
		for _, eid := range n.Neighbors {
			if _, ok := g.Edges[eid]; !ok {
				s.DanglingNeighbors++
			}
		}
	}
	return s
}

// New returns an empty graph for assembly in code.
func New() *RoadGraph {
	return &RoadGraph{
		Nodes: make(map[NodeID]*Node),
		Edges: make(map[EdgeID]*Edge),
	}
}

// AddNode inserts or replaces a node. Like AddEdge it is a construction
// helper and must not be used once the graph is shared.
func (g *RoadGraph) AddNode(id NodeID, pos LatLng) *Node {
	n := &Node{ID: id, Position: pos, Neighbors: []EdgeID{}}
	g.Nodes[id] = n
	return n
}

// AddEdge inserts a directed edge and appends it to the from node's
// neighbors when that node exists. Geometry defaults to the straight line
// between the endpoints when both resolve.
func (g *RoadGraph) AddEdge(id EdgeID, from, to NodeID, weight float64, geometry ...LatLng) *Edge {
	e := &Edge{ID: id, From: from, To: to, Weight: weight, Geometry: geometry}
	if len(geometry) == 0 {
		if a, b := g.Nodes[from], g.Nodes[to]; a != nil && b != nil {
			e.Geometry = []LatLng{a.Position, b.Position}
		}
	}
	g.Edges[id] = e
	if n, ok := g.Nodes[from]; ok {
		n.Neighbors = append(n.Neighbors, id)
	}
	return e
}
