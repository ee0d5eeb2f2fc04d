package routing

import "route_visualizer/pkg/graph"

// frontier holds discovered nodes waiting to be expanded.
type frontier interface {
	push(graph.NodeID)
	pop() (graph.NodeID, bool)
}

// queue is a FIFO frontier.
type queue struct {
	items []graph.NodeID
	head  int
}

func (q *queue) push(id graph.NodeID) { q.items = append(q.items, id) }

func (q *queue) pop() (graph.NodeID, bool) {
	if q.head == len(q.items) {
		return "", false
	}
	id := q.items[q.head]
	q.head++
	return id, true
}

// stack is a LIFO frontier.
type stack struct {
	items []graph.NodeID
}

func (s *stack) push(id graph.NodeID) { s.items = append(s.items, id) }

func (s *stack) pop() (graph.NodeID, bool) {
	n := len(s.items)
	if n == 0 {
		return "", false
	}
	id := s.items[n-1]
	s.items = s.items[:n-1]
	return id, true
}

// marking decides when a node counts as visited.
type marking int

const (
	// markOnPush marks a node as soon as it is discovered, so it is
	// queued at most once.
	markOnPush marking = iota
	// markOnPop marks a node when it is expanded. A node may sit in the
	// frontier several times; later copies are dropped when popped.
	markOnPop
)

// traverse is the unweighted search shared by BFS and DFS. The goal is
// tested when a node leaves the frontier.
func traverse(g *graph.RoadGraph, start, goal graph.NodeID, f frontier, mark marking) *Result {
	res := &Result{Steps: []Step{}}
	if _, ok := g.Nodes[start]; !ok {
		return res
	}

	visited := make(map[graph.NodeID]bool)
	cameFrom := make(map[graph.NodeID]predecessor)

	f.push(start)
	if mark == markOnPush {
		visited[start] = true
	}

	for {
		cur, ok := f.pop()
		if !ok {
			return res
		}
		if mark == markOnPop {
			if visited[cur] {
				continue
			}
			visited[cur] = true
		}
		if cur == goal {
			res.Found = true
			res.Path = reconstructPath(cameFrom, start, goal)
			return res
		}

		for _, eid := range g.Nodes[cur].Neighbors {
			e, ok := traversable(g, eid)
			if !ok || visited[e.To] {
				continue
			}
			if mark == markOnPush {
				visited[e.To] = true
			}
			cameFrom[e.To] = predecessor{node: cur, edge: eid}
			res.Steps = append(res.Steps, Step{Type: StepVisit, EdgeID: eid, NodeID: e.To})
			f.push(e.To)
		}
	}
}
