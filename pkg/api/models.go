package api

import (
	"route_visualizer/pkg/graph"
	"route_visualizer/pkg/playback"
	"route_visualizer/pkg/routing"
)

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (ll LatLngJSON) point() graph.LatLng { return graph.LatLng{Lat: ll.Lat, Lng: ll.Lng} }

// SnapRequest is the JSON body for POST /api/cities/{id}/snap.
type SnapRequest struct {
	LatLngJSON
}

// SnapResponse is the JSON response for a successful snap.
type SnapResponse struct {
	NodeID         graph.NodeID `json:"node_id"`
	EdgeID         graph.EdgeID `json:"edge_id"`
	Projected      LatLngJSON   `json:"projected"`
	DistanceMeters float64      `json:"distance_meters"`
}

// SearchRequest is the JSON body for POST /api/cities/{id}/search.
// Algorithm defaults to astar.
type SearchRequest struct {
	Start     LatLngJSON `json:"start"`
	End       LatLngJSON `json:"end"`
	Algorithm string     `json:"algorithm"`
}

// SearchResponse is the JSON response for a search.
type SearchResponse struct {
	Algorithm  routing.Algorithm `json:"algorithm"`
	StartNode  graph.NodeID      `json:"start_node"`
	GoalNode   graph.NodeID      `json:"goal_node"`
	Found      bool              `json:"found"`
	Path       []graph.EdgeID    `json:"path"`
	Steps      []routing.Step    `json:"steps"`
	CostMeters float64           `json:"cost_meters"`
}

// PlayRequest is a client message on the playback socket. Action is
// "play" or "stop".
type PlayRequest struct {
	Action    string     `json:"action"`
	Start     LatLngJSON `json:"start"`
	End       LatLngJSON `json:"end"`
	Algorithm string     `json:"algorithm"`
}

// Playback socket message types.
const (
	MsgSession = "session"
	MsgExplore = "explore"
	MsgPath    = "path"
	MsgDone    = "done"
	MsgError   = "error"
)

// PlayMessage is a server message on the playback socket.
type PlayMessage struct {
	Type      string                `json:"type"`
	SessionID string                `json:"session_id,omitempty"`
	Edges     []playback.TracedEdge `json:"edges,omitempty"`
	Summary   *PlaySummary          `json:"summary,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// PlaySummary closes a playback.
type PlaySummary struct {
	Algorithm  routing.Algorithm `json:"algorithm"`
	StartNode  graph.NodeID      `json:"start_node"`
	GoalNode   graph.NodeID      `json:"goal_node"`
	Found      bool              `json:"found"`
	Steps      int               `json:"steps"`
	PathEdges  int               `json:"path_edges"`
	CostMeters float64           `json:"cost_meters"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Cities map[string]graph.Stats `json:"cities"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
