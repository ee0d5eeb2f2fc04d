package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"route_visualizer/pkg/catalog"
	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
	"route_visualizer/pkg/playback"
	"route_visualizer/pkg/routing"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	catalog *catalog.Catalog
	dataDir string
	routers map[string]routing.Router
	stats   StatsResponse
	metrics *Metrics

	upgrader      websocket.Upgrader
	frameInterval time.Duration
	playOpts      []playback.Option
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithFrameInterval sets how often playback sockets tick.
func WithFrameInterval(d time.Duration) HandlerOption {
	return func(h *Handlers) {
		if d > 0 {
			h.frameInterval = d
		}
	}
}

// WithPlaybackOptions passes options to every playback scheduler.
func WithPlaybackOptions(opts ...playback.Option) HandlerOption {
	return func(h *Handlers) { h.playOpts = append(h.playOpts, opts...) }
}

// WithAllowedOrigin accepts playback sockets from origin, or from anywhere
// when origin is "*". Without it only same-origin sockets are accepted.
func WithAllowedOrigin(origin string) HandlerOption {
	return func(h *Handlers) {
		switch origin {
		case "":
		case "*":
			h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
		default:
			h.upgrader.CheckOrigin = func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			}
		}
	}
}

// NewHandlers creates handlers for the cities in cat. routers holds one
// Router per city whose graph is loaded; files are served from dataDir.
func NewHandlers(cat *catalog.Catalog, dataDir string, routers map[string]routing.Router, metrics *Metrics, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		catalog:       cat,
		dataDir:       dataDir,
		routers:       routers,
		stats:         StatsResponse{Cities: make(map[string]graph.Stats, len(routers))},
		metrics:       metrics,
		frameInterval: 16 * time.Millisecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 64 << 10,
		},
	}
	for id, r := range routers {
		h.stats.Cities[id] = r.Graph().Stats()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

// HandleCities handles GET /api/cities.
func (h *Handlers) HandleCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Cities)
}

// HandleGraph handles GET /api/cities/{id}/graph.
func (h *Handlers) HandleGraph(w http.ResponseWriter, r *http.Request) {
	h.serveCityFile(w, r, "application/json", catalog.City.GraphPath)
}

// HandleTiles handles GET /api/cities/{id}/tiles. Byte ranges are
// supported so map clients can read the archive piecewise.
func (h *Handlers) HandleTiles(w http.ResponseWriter, r *http.Request) {
	h.serveCityFile(w, r, "application/octet-stream", catalog.City.TilesPath)
}

func (h *Handlers) serveCityFile(w http.ResponseWriter, r *http.Request, contentType string, pathOf func(catalog.City, string) string) {
	city, err := h.catalog.Lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_city", "id")
		return
	}

	path := pathOf(city, h.dataDir)
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file_not_found", "")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file_not_found", "")
		return
	}

	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// HandleSnap handles POST /api/cities/{id}/snap.
func (h *Handlers) HandleSnap(w http.ResponseWriter, r *http.Request) {
	router, ok := h.router(w, r)
	if !ok {
		return
	}

	var req SnapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.LatLngJSON); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "")
		return
	}

	res, err := router.Snap(req.point())
	if err != nil {
		writeRoutingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SnapResponse{
		NodeID:         res.Node.ID,
		EdgeID:         res.Edge.ID,
		Projected:      LatLngJSON{Lat: res.Projected.Lat, Lng: res.Projected.Lng},
		DistanceMeters: geo.Distance(req.point(), res.Projected),
	})
}

// HandleSearch handles POST /api/cities/{id}/search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	router, ok := h.router(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	algo, field, err := parseQuery(req.Start, req.End, req.Algorithm)
	if err != nil {
		writeRoutingError(w, err, field)
		return
	}

	start := time.Now()
	route, err := router.Route(r.Context(), req.Start.point(), req.End.point(), algo)
	if err != nil {
		h.metrics.ObserveSearch(algo, nil, time.Since(start))
		writeRoutingError(w, err)
		return
	}
	res := route.Result
	h.metrics.ObserveSearch(algo, res, time.Since(start))

	writeJSON(w, http.StatusOK, SearchResponse{
		Algorithm:  algo,
		StartNode:  route.Start.Node.ID,
		GoalNode:   route.Goal.Node.ID,
		Found:      res.Found,
		Path:       res.Path,
		Steps:      res.Steps,
		CostMeters: res.Cost(router.Graph()),
	})
}

// HandlePlay handles GET /api/cities/{id}/play by upgrading to a
// WebSocket and streaming playbacks until the client goes away.
func (h *Handlers) HandlePlay(w http.ResponseWriter, r *http.Request) {
	router, ok := h.router(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s := newPlaySession(conn, router, h.metrics, h.playOpts...)
	slog.Info("playback session started", "city", r.PathValue("id"), "session", s.id)
	s.run(r.Context(), h.frameInterval)
	slog.Info("playback session ended", "session", s.id)
}

// router resolves the city in the request path, writing an error response
// when it is unknown or has no graph loaded.
func (h *Handlers) router(w http.ResponseWriter, r *http.Request) (routing.Router, bool) {
	id := r.PathValue("id")
	if _, err := h.catalog.Lookup(id); err != nil {
		writeError(w, http.StatusNotFound, "unknown_city", "id")
		return nil, false
	}
	router, ok := h.routers[id]
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "graph_not_loaded", "")
		return nil, false
	}
	return router, true
}

// parseQuery validates the endpoints and algorithm of a search. An empty
// algorithm selects A*.
func parseQuery(start, end LatLngJSON, name string) (routing.Algorithm, string, error) {
	if err := validateCoord(start); err != nil {
		return "", "start", err
	}
	if err := validateCoord(end); err != nil {
		return "", "end", err
	}
	if name == "" {
		return routing.AStar, "", nil
	}
	algo, err := routing.ParseAlgorithm(name)
	if err != nil {
		return "", "algorithm", err
	}
	return algo, "", nil
}

var errInvalidCoordinates = errors.New("invalid coordinates")

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errInvalidCoordinates
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errInvalidCoordinates
	}
	return nil
}

// errorCode maps an error to a status and a stable error code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidCoordinates):
		return http.StatusBadRequest, "invalid_coordinates"
	case errors.Is(err, routing.ErrUnknownAlgorithm):
		return http.StatusBadRequest, "unknown_algorithm"
	case errors.Is(err, routing.ErrNoEdges):
		return http.StatusServiceUnavailable, "graph_not_loaded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeRoutingError(w http.ResponseWriter, err error, field ...string) {
	status, code := errorCode(err)
	f := ""
	if len(field) > 0 {
		f = field[0]
	}
	writeError(w, status, code, f)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
