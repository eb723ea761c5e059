// Package replay plays an extracted telemetry track back in video-time
// order, either paced against the wall clock or as fast as the loop can
// run. It feeds live-consumer integrations without needing the original
// video on hand.
package replay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/fmv-telemetry/model"
)

// Mode describes how the Player advances through the track.
type Mode int

const (
	// RealTime paces emission by wall-clock time scaled by Speed.
	RealTime Mode = iota
	// Accelerated emits points as quickly as the loop can run.
	Accelerated
)

// Player walks a telemetry track in offset order and notifies registered
// listeners as playback passes each point.
type Player struct {
	mu    sync.RWMutex
	Mode  Mode
	Speed float64 // real-time rate multiplier, 1.0 plays at recorded speed

	entries []entry
	idx     int
	// position tracks the current playback offset in seconds of video
	// time. It is updated as points are emitted.
	position float64

	listeners []func(model.TelemetryPoint)
}

type entry struct {
	offset float64
	point  model.TelemetryPoint
}

// NewPlayer constructs a player over a copy of the given points. Points
// without a time base are dropped; absolute stamps are converted to offsets
// from the earliest point. The track is sorted by offset, preserving input
// order for ties.
func NewPlayer(points []model.TelemetryPoint, mode Mode) *Player {
	p := &Player{Mode: mode, Speed: 1}

	var firstMicros int64
	haveFirst := false
	for _, pt := range points {
		if pt.Base != model.TimeAbsolute {
			continue
		}
		if !haveFirst || pt.UnixMicros < firstMicros {
			firstMicros = pt.UnixMicros
			haveFirst = true
		}
	}

	for _, pt := range points {
		switch pt.Base {
		case model.TimeRelative:
			p.entries = append(p.entries, entry{offset: pt.VideoOffsetSec, point: pt.Clone()})
		case model.TimeAbsolute:
			offset := float64(pt.UnixMicros-firstMicros) / 1e6
			p.entries = append(p.entries, entry{offset: offset, point: pt.Clone()})
		}
	}
	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].offset < p.entries[j].offset
	})
	return p
}

// Len returns the number of playable points in the track.
func (p *Player) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Position returns the current playback offset in seconds.
func (p *Player) Position() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// Seek moves playback to the given offset. Points before the offset are
// skipped when playback next runs.
func (p *Player) Seek(offsetSec float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = offsetSec
	p.idx = sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].offset >= offsetSec
	})
}

// AddListener registers a callback invoked for every emitted point.
func (p *Player) AddListener(fn func(model.TelemetryPoint)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start plays the remaining track in a separate goroutine. It returns a
// channel that is closed when playback finishes or the context is cancelled.
func (p *Player) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		for {
			e, gap, ok := p.next()
			if !ok {
				return
			}

			if p.Mode == RealTime && gap > 0 {
				timer := time.NewTimer(gap)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			p.mu.Lock()
			p.position = e.offset
			p.idx++
			listeners := append([]func(model.TelemetryPoint){}, p.listeners...)
			p.mu.Unlock()

			// Notify listeners outside the lock to avoid deadlocks.
			for _, fn := range listeners {
				fn(e.point.Clone())
			}
		}
	}()
	return done
}

// next reports the upcoming entry and how long playback should wait for it.
func (p *Player) next() (entry, time.Duration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.idx >= len(p.entries) {
		return entry{}, 0, false
	}
	e := p.entries[p.idx]

	speed := p.Speed
	if speed <= 0 {
		speed = 1
	}
	gap := time.Duration((e.offset - p.position) / speed * float64(time.Second))
	if gap < 0 {
		gap = 0
	}
	return e, gap, true
}
