package playback

import (
	"fmt"
	"math"

	"route_visualizer/pkg/graph"
	"route_visualizer/pkg/routing"
)

const (
	DefaultEdgesPerTick = 300
	DefaultBatchSize    = 3000

	// PathColor is the colour of every edge in a path delivery.
	PathColor = "#ffffff"

	exploreHue     = 140
	lightnessStart = 25
	lightnessEnd   = 65
)

// TracedEdge is an edge as handed to a sink.
type TracedEdge struct {
	EdgeID   graph.EdgeID   `json:"edgeId"`
	Geometry []graph.LatLng `json:"geometry"`
	Color    string         `json:"color"`
}

// Sink receives a playback. Explore is called with each exploration batch
// in discovery order, then Path once with the result path.
type Sink interface {
	Explore(batch []TracedEdge)
	Path(edges []TracedEdge)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithEdgesPerTick caps how many edges are added to the batch per tick.
func WithEdgesPerTick(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.perTick = n
		}
	}
}

// WithBatchSize sets how many edges accumulate before a batch is flushed.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// Scheduler replays one search result at a time. Its methods must be
// called from the goroutine that drives its Frames.
type Scheduler struct {
	frames    Frames
	perTick   int
	batchSize int

	frame   FrameID
	active  bool
	session uint64
}

// NewScheduler returns a scheduler that yields on frames.
func NewScheduler(frames Frames, opts ...Option) *Scheduler {
	s := &Scheduler{
		frames:    frames,
		perTick:   DefaultEdgesPerTick,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports whether a playback is in flight.
func (s *Scheduler) Active() bool { return s.active }

// Stop cancels the playback in flight, if any. Its completion callback
// will not run.
func (s *Scheduler) Stop() {
	if !s.active {
		return
	}
	s.frames.CancelFrame(s.frame)
	s.active = false
	s.session++
}

// Play stops any active playback and starts replaying res. Exploration
// batches go to sink first, then the path one tick after the last batch,
// then onComplete runs once. onComplete may be nil.
func (s *Scheduler) Play(res *routing.Result, g *graph.RoadGraph, sink Sink, onComplete func()) {
	s.Stop()
	s.session++
	session := s.session
	s.active = true

	edges := UniqueEdges(res, g)
	path := PathEdges(res, g)

	cursor := 0
	var batch []TracedEdge
	var explore, finish func()

	explore = func() {
		if session != s.session {
			return
		}
		n := min(s.perTick, s.batchSize-len(batch), len(edges)-cursor)
		batch = append(batch, edges[cursor:cursor+n]...)
		cursor += n

		if len(batch) > 0 && (len(batch) >= s.batchSize || cursor == len(edges)) {
			out := batch
			batch = nil
			sink.Explore(out)
			if session != s.session {
				return
			}
		}

		if cursor < len(edges) {
			s.frame = s.frames.RequestFrame(explore)
			return
		}
		s.frame = s.frames.RequestFrame(finish)
	}

	finish = func() {
		if session != s.session {
			return
		}
		if path != nil {
			sink.Path(path)
			if session != s.session {
				return
			}
		}
		s.active = false
		if onComplete != nil {
			onComplete()
		}
	}

	s.frame = s.frames.RequestFrame(explore)
}

// UniqueEdges resolves the trace of res into the edges it touched, in
// first-seen order. Steps whose edge is not in g are dropped.
func UniqueEdges(res *routing.Result, g *graph.RoadGraph) []TracedEdge {
	seen := make(map[graph.EdgeID]bool, len(res.Steps))
	out := make([]TracedEdge, 0, len(res.Steps))
	for i, step := range res.Steps {
		if seen[step.EdgeID] {
			continue
		}
		seen[step.EdgeID] = true

		e, ok := g.Edges[step.EdgeID]
		if !ok {
			continue
		}
		out = append(out, TracedEdge{
			EdgeID:   e.ID,
			Geometry: e.Geometry,
			Color:    StepColor(i, len(res.Steps)),
		})
	}
	return out
}

// PathEdges resolves the path of res. It returns nil when res has no path.
func PathEdges(res *routing.Result, g *graph.RoadGraph) []TracedEdge {
	if res.Path == nil {
		return nil
	}
	out := make([]TracedEdge, 0, len(res.Path))
	for _, id := range res.Path {
		if e, ok := g.Edges[id]; ok {
			out = append(out, TracedEdge{EdgeID: e.ID, Geometry: e.Geometry, Color: PathColor})
		}
	}
	return out
}

// StepColor shades step i of total from dark to light green.
func StepColor(i, total int) string {
	t := 0.0
	if total > 1 {
		t = float64(i) / float64(total-1)
	}
	l := lightnessStart + t*(lightnessEnd-lightnessStart)
	return fmt.Sprintf("hsl(%d, 90%%, %d%%)", exploreHue, int(math.Floor(l+0.5)))
}
