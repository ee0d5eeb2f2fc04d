package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"route_visualizer/pkg/geo"
)

// RawEdge is a directed road edge between two intersections, parsed from
// OSM ways. Intermediate way nodes become shape points.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	WayID      osm.WayID
	Length     float64   // meters along the shape
	ShapeLats  []float64 // intermediate shape node latitudes (excluding from/to)
	ShapeLons  []float64 // intermediate shape node longitudes (excluding from/to)
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// Network selects which ways are kept.
type Network string

const (
	// NetworkDrive keeps ways open to cars.
	NetworkDrive Network = "drive"
	// NetworkAll keeps every way tagged as a highway.
	NetworkAll Network = "all"
)

// ParseNetwork validates a network name. The empty string means NetworkAll.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case "", NetworkAll:
		return NetworkAll, nil
	case NetworkDrive:
		return NetworkDrive, nil
	}
	return "", fmt.Errorf("unknown network %q (want drive or all)", s)
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// nonRoads are highway values that never carry traffic.
var nonRoads = map[string]bool{
	"proposed":     true,
	"construction": true,
	"abandoned":    true,
	"platform":     true,
	"raceway":      true,
	"razed":        true,
}

// isRoutable returns true if the way belongs to the requested network.
func isRoutable(tags osm.Tags, network Network) bool {
	hw := tags.Find("highway")
	if hw == "" || nonRoads[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	if network == NetworkAll {
		return true
	}

	if !carHighways[hw] {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent; skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during pass 1.
type wayInfo struct {
	ID       osm.WayID
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox    BBox    // if non-zero, filter edges to this bounding box
	Network Network // defaults to NetworkAll
}

// Parse reads an OSM PBF file and returns directed edges between
// intersections. The reader is consumed twice (seeks back to start for the
// second pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Network == "" {
		opt.Network = NetworkAll
	}

	ways, refCount, err := scanWays(ctx, rs, opt.Network)
	if err != nil {
		return nil, err
	}
	slog.Info("pass 1 complete", "ways", len(ways), "referenced_nodes", len(refCount))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}
	nodeLat, nodeLon, err := scanNodes(ctx, rs, refCount)
	if err != nil {
		return nil, err
	}
	slog.Info("pass 2 complete", "coordinates", len(nodeLat))

	edges, stats := splitWays(ways, refCount, nodeLat, nodeLon, opt.BBox)
	if stats.missingCoords > 0 {
		slog.Warn("skipped way pieces with missing node coordinates", "count", stats.missingCoords)
	}
	if stats.bboxFiltered > 0 {
		slog.Info("filtered edges outside bounding box", "count", stats.bboxFiltered)
	}
	slog.Info("built directed edges", "edges", len(edges))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}

// scanWays collects routable ways and counts how many times each node is
// referenced. A node referenced more than once is an intersection.
func scanWays(ctx context.Context, r io.Reader, network Network) ([]wayInfo, map[osm.NodeID]int, error) {
	refCount := make(map[osm.NodeID]int)
	var ways []wayInfo

	scanner := osmpbf.New(ctx, r, 1)
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isRoutable(w.Tags, network) || len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			refCount[wn.ID]++
		}
		// Way endpoints always terminate an edge.
		refCount[nodeIDs[0]]++
		refCount[nodeIDs[len(nodeIDs)-1]]++

		ways = append(ways, wayInfo{
			ID:       w.ID,
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	return ways, refCount, nil
}

// scanNodes collects coordinates for referenced nodes only.
func scanNodes(ctx context.Context, r io.Reader, wanted map[osm.NodeID]int) (map[osm.NodeID]float64, map[osm.NodeID]float64, error) {
	nodeLat := make(map[osm.NodeID]float64, len(wanted))
	nodeLon := make(map[osm.NodeID]float64, len(wanted))

	scanner := osmpbf.New(ctx, r, 1)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := wanted[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	return nodeLat, nodeLon, nil
}

type splitStats struct {
	missingCoords int
	bboxFiltered  int
}

// splitWays cuts every way at intersection nodes and emits one edge per
// piece and permitted direction.
func splitWays(ways []wayInfo, refCount map[osm.NodeID]int, nodeLat, nodeLon map[osm.NodeID]float64, bbox BBox) ([]RawEdge, splitStats) {
	var edges []RawEdge
	var stats splitStats
	useBBox := !bbox.IsZero()

	for _, w := range ways {
		start := 0
		for i := 1; i < len(w.NodeIDs); i++ {
			if i < len(w.NodeIDs)-1 && refCount[w.NodeIDs[i]] < 2 {
				continue
			}
			piece := w.NodeIDs[start : i+1]
			start = i

			shape, ok := pieceShape(piece, nodeLat, nodeLon)
			if !ok {
				stats.missingCoords++
				continue
			}
			first, last := shape[0], shape[len(shape)-1]
			if useBBox && (!bbox.Contains(first.Lat, first.Lng) || !bbox.Contains(last.Lat, last.Lng)) {
				stats.bboxFiltered++
				continue
			}

			length := geo.PolylineLength(shape)
			if w.Forward {
				edges = append(edges, newRawEdge(w.ID, piece[0], piece[len(piece)-1], length, shape))
			}
			if w.Backward {
				reversed := make([]geo.LatLng, len(shape))
				for k := range shape {
					reversed[k] = shape[len(shape)-1-k]
				}
				edges = append(edges, newRawEdge(w.ID, piece[len(piece)-1], piece[0], length, reversed))
			}
		}
	}
	return edges, stats
}

func pieceShape(piece []osm.NodeID, nodeLat, nodeLon map[osm.NodeID]float64) ([]geo.LatLng, bool) {
	shape := make([]geo.LatLng, len(piece))
	for k, id := range piece {
		lat, ok := nodeLat[id]
		if !ok {
			return nil, false
		}
		shape[k] = geo.LatLng{Lat: lat, Lng: nodeLon[id]}
	}
	return shape, true
}

func newRawEdge(way osm.WayID, from, to osm.NodeID, length float64, shape []geo.LatLng) RawEdge {
	e := RawEdge{
		FromNodeID: from,
		ToNodeID:   to,
		WayID:      way,
		Length:     length,
	}
	if n := len(shape) - 2; n > 0 {
		e.ShapeLats = make([]float64, n)
		e.ShapeLons = make([]float64, n)
		for k := 0; k < n; k++ {
			e.ShapeLats[k] = shape[k+1].Lat
			e.ShapeLons[k] = shape[k+1].Lng
		}
	}
	return e
}
