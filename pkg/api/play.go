package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"route_visualizer/pkg/playback"
	"route_visualizer/pkg/routing"
)

const playWriteTimeout = 10 * time.Second

// playSession drives playbacks over one socket. Everything except reading
// runs on the goroutine executing run, which owns the frame loop, the
// scheduler and all writes.
type playSession struct {
	id      string
	conn    *websocket.Conn
	router  routing.Router
	metrics *Metrics
	loop    *playback.Loop
	sched   *playback.Scheduler

	cancel context.CancelFunc
	failed bool
}

func newPlaySession(conn *websocket.Conn, router routing.Router, metrics *Metrics, opts ...playback.Option) *playSession {
	loop := playback.NewLoop()
	return &playSession{
		id:      uuid.New().String(),
		conn:    conn,
		router:  router,
		metrics: metrics,
		loop:    loop,
		sched:   playback.NewScheduler(loop, opts...),
	}
}

// run serves the socket until the client disconnects, a write fails or
// ctx is done.
func (s *playSession) run(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel

	cmds := make(chan func())
	go s.read(ctx, cancel, cmds)

	s.send(PlayMessage{Type: MsgSession, SessionID: s.id})
	s.loop.Run(ctx, interval, cmds)

	if s.sched.Active() {
		s.sched.Stop()
		s.metrics.ObservePlayback("stopped")
	}
}

// read decodes client messages and hands them to the loop goroutine.
func (s *playSession) read(ctx context.Context, cancel context.CancelFunc, cmds chan<- func()) {
	defer cancel()
	for {
		var req PlayRequest
		if err := s.conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("playback read ended", "session", s.id, "error", err)
			}
			return
		}
		select {
		case cmds <- func() { s.handle(req) }:
		case <-ctx.Done():
			return
		}
	}
}

func (s *playSession) handle(req PlayRequest) {
	switch req.Action {
	case "play":
		s.play(req)
	case "stop":
		if s.sched.Active() {
			s.sched.Stop()
			s.metrics.ObservePlayback("stopped")
		}
	default:
		s.send(PlayMessage{Type: MsgError, Error: "unknown_action"})
	}
}

func (s *playSession) play(req PlayRequest) {
	if s.sched.Active() {
		s.sched.Stop()
		s.metrics.ObservePlayback("stopped")
	}

	algo, _, err := parseQuery(req.Start, req.End, req.Algorithm)
	if err != nil {
		_, code := errorCode(err)
		s.send(PlayMessage{Type: MsgError, Error: code})
		return
	}

	start := time.Now()
	route, err := s.router.Route(context.Background(), req.Start.point(), req.End.point(), algo)
	if err != nil {
		s.metrics.ObserveSearch(algo, nil, time.Since(start))
		_, code := errorCode(err)
		s.send(PlayMessage{Type: MsgError, Error: code})
		return
	}
	res := route.Result
	s.metrics.ObserveSearch(algo, res, time.Since(start))

	summary := &PlaySummary{
		Algorithm:  algo,
		StartNode:  route.Start.Node.ID,
		GoalNode:   route.Goal.Node.ID,
		Found:      res.Found,
		Steps:      len(res.Steps),
		PathEdges:  len(res.Path),
		CostMeters: res.Cost(s.router.Graph()),
	}

	s.metrics.ObservePlayback("started")
	s.sched.Play(res, s.router.Graph(), s, func() {
		s.metrics.ObservePlayback("completed")
		s.send(PlayMessage{Type: MsgDone, Summary: summary})
	})
}

func (s *playSession) Explore(batch []playback.TracedEdge) {
	s.send(PlayMessage{Type: MsgExplore, Edges: batch})
}

func (s *playSession) Path(edges []playback.TracedEdge) {
	s.send(PlayMessage{Type: MsgPath, Edges: edges})
}

// send writes one message. After the first failed write the session is
// torn down and further sends are dropped.
func (s *playSession) send(msg PlayMessage) {
	if s.failed {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(playWriteTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Warn("playback write failed", "session", s.id, "error", err)
		s.failed = true
		if s.cancel != nil {
			s.cancel()
		}
	}
}
