package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route_visualizer/pkg/catalog"
	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
	"route_visualizer/pkg/routing"
)

// mockRouter implements routing.Router for testing.
type mockRouter struct {
	g     *graph.RoadGraph
	route *routing.Route
	snap  routing.SnapResult
	err   error
}

func (m *mockRouter) Graph() *graph.RoadGraph { return m.g }

func (m *mockRouter) Snap(graph.LatLng) (routing.SnapResult, error) { return m.snap, m.err }

func (m *mockRouter) Route(ctx context.Context, start, end graph.LatLng, algo routing.Algorithm) (*routing.Route, error) {
	return m.route, m.err
}

// gridGraph is a 3x3 grid of two-way streets, 0.001 degrees apart.
// Node ids are "r<row>c<col>".
func gridGraph() *graph.RoadGraph {
	g := graph.New()
	id := func(r, c int) graph.NodeID { return graph.NodeID(fmt.Sprintf("r%dc%d", r, c)) }
	for r := range 3 {
		for c := range 3 {
			g.AddNode(id(r, c), geo.LatLng{Lat: 49.200 + float64(r)*0.001, Lng: -123.100 + float64(c)*0.001})
		}
	}
	link := func(a, b graph.NodeID) {
		w := geo.Round(geo.Distance(g.Nodes[a].Position, g.Nodes[b].Position), 2) + 1
		g.AddEdge(graph.EdgeID(fmt.Sprintf("%s-%s-0", a, b)), a, b, w)
		g.AddEdge(graph.EdgeID(fmt.Sprintf("%s-%s-0", b, a)), b, a, w)
	}
	for r := range 3 {
		for c := range 3 {
			if c < 2 {
				link(id(r, c), id(r, c+1))
			}
			if r < 2 {
				link(id(r, c), id(r+1, c))
			}
		}
	}
	return g
}

func testCatalog() *catalog.Catalog {
	c, err := catalog.Parse([]byte(`
cities:
  - id: testville
    name: Testville
    center: {lat: 49.201, lng: -123.099}
    zoom: 15
    bounds: {south: 49.19, west: -123.11, north: 49.21, east: -123.09}
    min_zoom: 12
    max_zoom: 20
  - id: ghosttown
`))
	if err != nil {
		panic(err)
	}
	return c
}

func newTestHandlers(t *testing.T, routers map[string]routing.Router, opts ...HandlerOption) *Handlers {
	t.Helper()
	return NewHandlers(testCatalog(), t.TempDir(), routers, NewMetrics(), opts...)
}

func realRouters() map[string]routing.Router {
	return map[string]routing.Router{"testville": routing.NewEngine(gridGraph())}
}

func postJSON(target, body string) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleSearch_Success(t *testing.T) {
	h := newTestHandlers(t, realRouters())

	body := `{"start":{"lat":49.2,"lng":-123.1},"end":{"lat":49.202,"lng":-123.098},"algorithm":"bfs"}`
	req := postJSON("/api/cities/testville/search", body)
	req.SetPathValue("id", "testville")
	w := httptest.NewRecorder()

	h.HandleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Found {
		t.Fatal("Found = false, want true")
	}
	if resp.StartNode != "r0c0" || resp.GoalNode != "r2c2" {
		t.Errorf("nodes = %s -> %s, want r0c0 -> r2c2", resp.StartNode, resp.GoalNode)
	}
	if len(resp.Path) != 4 {
		t.Errorf("Path length = %d, want 4", len(resp.Path))
	}
	if len(resp.Steps) == 0 {
		t.Error("Steps is empty")
	}
	if resp.CostMeters <= 0 {
		t.Errorf("CostMeters = %f, want > 0", resp.CostMeters)
	}
}

func TestHandleSearch_DefaultsToAStar(t *testing.T) {
	h := newTestHandlers(t, realRouters())

	body := `{"start":{"lat":49.2,"lng":-123.1},"end":{"lat":49.201,"lng":-123.1}}`
	req := postJSON("/api/cities/testville/search", body)
	req.SetPathValue("id", "testville")
	w := httptest.NewRecorder()

	h.HandleSearch(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, routing.AStar, resp.Algorithm)
	assert.Equal(t, []graph.EdgeID{"r0c0-r1c0-0"}, resp.Path)
}

func TestHandleSearch_NotFoundHasNullPath(t *testing.T) {
	g := gridGraph()
	g.AddNode("island", geo.LatLng{Lat: 49.205, Lng: -123.095})
	g.AddEdge("island-loop", "island", "island", 1, geo.LatLng{Lat: 49.205, Lng: -123.095}, geo.LatLng{Lat: 49.2051, Lng: -123.095})
	h := newTestHandlers(t, map[string]routing.Router{"testville": routing.NewEngine(g)})

	body := `{"start":{"lat":49.2,"lng":-123.1},"end":{"lat":49.205,"lng":-123.095},"algorithm":"dfs"}`
	req := postJSON("/api/cities/testville/search", body)
	req.SetPathValue("id", "testville")
	w := httptest.NewRecorder()

	h.HandleSearch(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"path":null`)
	assert.Contains(t, w.Body.String(), `"found":false`)
}

func TestHandleSearch_BadRequests(t *testing.T) {
	h := newTestHandlers(t, realRouters())

	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    string
		wantField   string
	}{
		{"invalid json", "not json", "application/json", "invalid_request", ""},
		{"missing content type", `{"start":{"lat":1,"lng":1},"end":{"lat":1,"lng":1}}`, "", "invalid_request", ""},
		{"start out of bounds", `{"start":{"lat":91,"lng":1},"end":{"lat":1,"lng":1}}`, "application/json", "invalid_coordinates", "start"},
		{"end out of bounds", `{"start":{"lat":1,"lng":1},"end":{"lat":1,"lng":181}}`, "application/json", "invalid_coordinates", "end"},
		{"unknown algorithm", `{"start":{"lat":1,"lng":1},"end":{"lat":1,"lng":1},"algorithm":"dijkstra"}`, "application/json", "unknown_algorithm", "algorithm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/cities/testville/search", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.SetPathValue("id", "testville")
			w := httptest.NewRecorder()

			h.HandleSearch(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.wantField, resp.Field)
		})
	}
}

func TestHandleSearch_RouterErrors(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		wantCode string
	}{
		{routing.ErrNoEdges, http.StatusServiceUnavailable, "graph_not_loaded"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		h := newTestHandlers(t, map[string]routing.Router{"testville": &mockRouter{g: graph.New(), err: tt.err}})

		req := postJSON("/api/cities/testville/search", `{"start":{"lat":1,"lng":1},"end":{"lat":1,"lng":1}}`)
		req.SetPathValue("id", "testville")
		w := httptest.NewRecorder()

		h.HandleSearch(w, req)

		assert.Equal(t, tt.status, w.Code, tt.wantCode)
		assert.Contains(t, w.Body.String(), tt.wantCode)
	}
}

func TestHandleSearch_UnknownAndUnloadedCity(t *testing.T) {
	h := newTestHandlers(t, realRouters())
	body := `{"start":{"lat":1,"lng":1},"end":{"lat":1,"lng":1}}`

	req := postJSON("/api/cities/atlantis/search", body)
	req.SetPathValue("id", "atlantis")
	w := httptest.NewRecorder()
	h.HandleSearch(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = postJSON("/api/cities/ghosttown/search", body)
	req.SetPathValue("id", "ghosttown")
	w = httptest.NewRecorder()
	h.HandleSearch(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "graph_not_loaded")
}

func TestHandleSnap(t *testing.T) {
	h := newTestHandlers(t, realRouters())

	req := postJSON("/api/cities/testville/snap", `{"lat":49.2004,"lng":-123.1001}`)
	req.SetPathValue("id", "testville")
	w := httptest.NewRecorder()

	h.HandleSnap(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SnapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, graph.NodeID("r0c0"), resp.NodeID)
	assert.Equal(t, graph.EdgeID("r0c0-r1c0-0"), resp.EdgeID)
	assert.InDelta(t, 49.2004, resp.Projected.Lat, 1e-9)
	assert.InDelta(t, -123.1, resp.Projected.Lng, 1e-9)
	assert.InDelta(t, 7.3, resp.DistanceMeters, 0.1)
}

func TestHandleSnap_EmptyGraph(t *testing.T) {
	h := newTestHandlers(t, map[string]routing.Router{"testville": routing.NewEngine(graph.New())})

	req := postJSON("/api/cities/testville/snap", `{"lat":49.2,"lng":-123.1}`)
	req.SetPathValue("id", "testville")
	w := httptest.NewRecorder()

	h.HandleSnap(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "graph_not_loaded")
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	h := newTestHandlers(t, realRouters())

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Cities, "testville")
	assert.Equal(t, 9, resp.Cities["testville"].NumNodes)
	assert.Equal(t, 24, resp.Cities["testville"].NumEdges)
}

func TestHandleCities(t *testing.T) {
	h := newTestHandlers(t, nil)

	req := httptest.NewRequest("GET", "/api/cities", nil)
	w := httptest.NewRecorder()

	h.HandleCities(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var cities []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cities))
	require.Len(t, cities, 2)
	assert.Equal(t, "testville", cities[0]["id"])
	assert.Equal(t, 12.0, cities[0]["minZoom"])
	assert.NotContains(t, cities[0], "graph_file")
}

func TestHandleTiles_Range(t *testing.T) {
	h := newTestHandlers(t, nil)
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(h.dataDir, "testville.pmtiles"), data, 0o644))

	req := httptest.NewRequest("GET", "/api/cities/testville/tiles", nil)
	req.SetPathValue("id", "testville")
	req.Header.Set("Range", "bytes=10-19")
	w := httptest.NewRecorder()

	h.HandleTiles(w, req)

	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, data[10:20], w.Body.Bytes())
	assert.Equal(t, "bytes 10-19/256", w.Header().Get("Content-Range"))
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
}

func TestHandleGraph(t *testing.T) {
	h := newTestHandlers(t, nil)
	g := gridGraph()
	require.NoError(t, graph.WriteFile(filepath.Join(h.dataDir, "testville-graph.json"), g))

	req := httptest.NewRequest("GET", "/api/cities/testville/graph", nil)
	req.SetPathValue("id", "testville")
	w := httptest.NewRecorder()

	h.HandleGraph(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	got, err := graph.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, g.Stats(), got.Stats())
}

func TestHandleGraph_NotFound(t *testing.T) {
	h := newTestHandlers(t, nil)

	for _, id := range []string{"testville", "atlantis"} {
		req := httptest.NewRequest("GET", "/api/cities/"+id+"/graph", nil)
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()

		h.HandleGraph(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}
