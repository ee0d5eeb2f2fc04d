// Package playback replays a search trace to a sink a few edges per frame,
// so the host loop keeps running while the exploration is drawn.
package playback

import (
	"context"
	"time"
)

// FrameID identifies a requested frame callback.
type FrameID uint64

// Frames schedules callbacks on the next frame of a host loop.
type Frames interface {
	RequestFrame(fn func()) FrameID
	CancelFrame(id FrameID)
}

// Loop is a single-goroutine frame source. Callbacks requested during a
// tick run on the following tick. A Loop is not safe for concurrent use;
// other goroutines reach it by sending commands to Run.
type Loop struct {
	next    FrameID
	pending map[FrameID]func()
	order   []FrameID
	ticks   uint64
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{pending: make(map[FrameID]func())}
}

func (l *Loop) RequestFrame(fn func()) FrameID {
	l.next++
	l.pending[l.next] = fn
	l.order = append(l.order, l.next)
	return l.next
}

func (l *Loop) CancelFrame(id FrameID) {
	delete(l.pending, id)
}

// Pending returns the number of callbacks waiting for a tick.
func (l *Loop) Pending() int { return len(l.pending) }

// Ticks returns how many ticks have run.
func (l *Loop) Ticks() uint64 { return l.ticks }

// Tick runs every callback requested before the tick started, in request
// order, and returns how many ran.
func (l *Loop) Tick() int {
	l.ticks++
	order := l.order
	l.order = nil

	ran := 0
	for _, id := range order {
		fn, ok := l.pending[id]
		if !ok {
			continue
		}
		delete(l.pending, id)
		fn()
		ran++
	}
	return ran
}

// Run ticks every interval and executes commands between ticks until ctx
// is done or cmds is closed.
func (l *Loop) Run(ctx context.Context, interval time.Duration, cmds <-chan func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn, ok := <-cmds:
			if !ok {
				return nil
			}
			fn()
		case <-ticker.C:
			l.Tick()
		}
	}
}
