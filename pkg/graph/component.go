package graph

import "sort"

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []int
	rank   []byte // byte is sufficient: rank stays below ~30 for realistic graphs
	size   []int
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	size := make([]int, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in x's set.
func (uf *UnionFind) Size(x int) int {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the ids of the nodes in the largest weakly
// connected component, sorted. Dangling edges are ignored.
func LargestComponent(g *RoadGraph) []NodeID {
	if len(g.Nodes) == 0 {
		return nil
	}

	ids := make([]NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	index := make(map[NodeID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	uf := NewUnionFind(len(ids))
	for _, e := range g.Edges {
		u, okU := index[e.From]
		v, okV := index[e.To]
		if okU && okV {
			uf.Union(u, v)
		}
	}

	// Ties go to the component holding the smallest node id.
	bestRoot, bestSize := -1, 0
	for i := range ids {
		root := uf.Find(i)
		if s := uf.Size(root); s > bestSize {
			bestRoot, bestSize = root, s
		}
	}

	nodes := make([]NodeID, 0, bestSize)
	for i, id := range ids {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, id)
		}
	}
	return nodes
}

// FilterToComponent returns a new graph holding only the given nodes and the
// edges running between them. Neighbor lists keep their order.
func FilterToComponent(g *RoadGraph, nodes []NodeID) *RoadGraph {
	keep := make(map[NodeID]bool, len(nodes))
	for _, id := range nodes {
		keep[id] = true
	}

	out := &RoadGraph{
		Nodes: make(map[NodeID]*Node, len(nodes)),
		Edges: make(map[EdgeID]*Edge),
	}
	for id, e := range g.Edges {
		if keep[e.From] && keep[e.To] {
			cp := *e
			out.Edges[id] = &cp
		}
	}
	for _, id := range nodes {
		n, ok := g.Nodes[id]
		if !ok {
			continue
		}
		cp := *n
		cp.Neighbors = make([]EdgeID, 0, len(n.Neighbors))
		for _, eid := range n.Neighbors {
			if _, ok := out.Edges[eid]; ok {
				cp.Neighbors = append(cp.Neighbors, eid)
			}
		}
		out.Nodes[id] = &cp
	}
	return out
}
