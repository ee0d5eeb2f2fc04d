package graph

import (
	"fmt"
	"strconv"

	"github.com/paulmach/osm"

	"route_visualizer/pkg/geo"
	osmparser "route_visualizer/pkg/osm"
)

const (
	coordPlaces  = 5 // ~1 m; keeps graph JSON small
	weightPlaces = 2
)

// Build creates a RoadGraph from parsed OSM edges.
//
// Edge ids are "<from>-<to>-<key>" where key counts parallel edges between
// the same ordered pair of nodes. Each node's neighbors follow the order in
// which its outgoing edges were parsed.
func Build(result *osmparser.ParseResult) *RoadGraph {
	g := &RoadGraph{
		Nodes: make(map[NodeID]*Node),
		Edges: make(map[EdgeID]*Edge, len(result.Edges)),
	}

	addNode := func(id osm.NodeID) *Node {
		nid := nodeID(id)
		if n, ok := g.Nodes[nid]; ok {
			return n
		}
		n := &Node{
			ID: nid,
			Position: LatLng{
				Lat: geo.Round(result.NodeLat[id], coordPlaces),
				Lng: geo.Round(result.NodeLon[id], coordPlaces),
			},
			Neighbors: []EdgeID{},
		}
		g.Nodes[nid] = n
		return n
	}

	type pairKey struct{ from, to osm.NodeID }
	parallel := make(map[pairKey]int)

	for i := range result.Edges {
		re := &result.Edges[i]
		from := addNode(re.FromNodeID)
		to := addNode(re.ToNodeID)

		pk := pairKey{re.FromNodeID, re.ToNodeID}
		key := parallel[pk]
		parallel[pk]++

		eid := EdgeID(fmt.Sprintf("%s-%s-%d", from.ID, to.ID, key))

		geometry := make([]LatLng, 0, len(re.ShapeLats)+2)
		geometry = append(geometry, from.Position)
		for k := range re.ShapeLats {
			geometry = append(geometry, LatLng{
				Lat: geo.Round(re.ShapeLats[k], coordPlaces),
				Lng: geo.Round(re.ShapeLons[k], coordPlaces),
			})
		}
		geometry = append(geometry, to.Position)

		g.Edges[eid] = &Edge{
			ID:       eid,
			From:     from.ID,
			To:       to.ID,
			Weight:   geo.Round(re.Length, weightPlaces),
			Geometry: geometry,
		}
		from.Neighbors = append(from.Neighbors, eid)
	}

	return g
}

func nodeID(id osm.NodeID) NodeID {
	return NodeID(strconv.FormatInt(int64(id), 10))
}
