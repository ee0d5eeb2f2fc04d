package api

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"route_visualizer/pkg/routing"
)

// Metrics is the server's set of prometheus collectors. Collectors are
// created unregistered; Register attaches them to a registry once.
type Metrics struct {
	mu         sync.Mutex
	registered bool

	searches       *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	traceSteps     prometheus.Histogram
	playbacks      *prometheus.CounterVec
}

// NewMetrics creates the collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routeviz_searches_total",
			Help: "Searches run, by algorithm and outcome",
		}, []string{"algorithm", "outcome"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "routeviz_search_duration_seconds",
			Help:    "Time spent snapping and searching",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"algorithm"}),
		traceSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "routeviz_trace_steps",
			Help:    "Steps recorded per search",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		playbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routeviz_playbacks_total",
			Help: "Trace playbacks, by event",
		}, []string{"event"}),
	}
}

// Register adds the collectors to reg. Calling it again is a no-op.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{m.searches, m.searchDuration, m.traceSteps, m.playbacks} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	m.registered = true
	return nil
}

// ObserveSearch records a finished search. res is nil when it failed.
func (m *Metrics) ObserveSearch(algo routing.Algorithm, res *routing.Result, elapsed time.Duration) {
	outcome := "error"
	switch {
	case res == nil:
	case res.Found:
		outcome = "found"
	default:
		outcome = "not_found"
	}
	m.searches.WithLabelValues(string(algo), outcome).Inc()
	m.searchDuration.WithLabelValues(string(algo)).Observe(elapsed.Seconds())
	if res != nil {
		m.traceSteps.Observe(float64(len(res.Steps)))
	}
}

// ObservePlayback counts a playback event: started, completed or stopped.
func (m *Metrics) ObservePlayback(event string) {
	m.playbacks.WithLabelValues(event).Inc()
}
