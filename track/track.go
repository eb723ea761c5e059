package track

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/fmv-telemetry/model"
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventPointAppended EventType = iota
)

// Event is emitted to subscribers when a track changes.
type Event struct {
	Type    EventType
	AssetID string
	Point   model.TelemetryPoint
}

// Store is an in-memory, thread-safe store of telemetry tracks and their
// enriched segments, keyed by video asset ID.
type Store struct {
	mu sync.RWMutex

	tracks map[string]*trackState

	subs []func(Event)
}

type trackState struct {
	source   string
	points   []model.TelemetryPoint
	segments []model.EnrichedSegment
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		tracks: make(map[string]*trackState),
	}
}

// StartTrack registers a new asset. It returns an error if the ID already
// exists. Source names where the telemetry came from (klv or subtitle).
func (s *Store) StartTrack(assetID, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tracks[assetID]; exists {
		return fmt.Errorf("track for asset %q already exists", assetID)
	}
	s.tracks[assetID] = &trackState{source: source}
	return nil
}

// AppendPoint adds a point to an asset's track and notifies subscribers.
func (s *Store) AppendPoint(assetID string, p model.TelemetryPoint) error {
	s.mu.Lock()
	tr, ok := s.tracks[assetID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("track for asset %q not found", assetID)
	}
	tr.points = append(tr.points, p)
	event := Event{
		Type:    EventPointAppended,
		AssetID: assetID,
		Point:   p.Clone(), // copy for safety
	}
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// SetSegments stores the enriched segments for an asset. It returns an error
// if the asset has no track.
func (s *Store) SetSegments(assetID string, segments []model.EnrichedSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.tracks[assetID]
	if !ok {
		return fmt.Errorf("track for asset %q not found", assetID)
	}
	tr.segments = append([]model.EnrichedSegment(nil), segments...)
	return nil
}

// Points returns a snapshot of an asset's track, or nil if the asset is
// unknown. Returned points are deep copies.
func (s *Store) Points(assetID string) []model.TelemetryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.tracks[assetID]
	if !ok {
		return nil
	}
	res := make([]model.TelemetryPoint, 0, len(tr.points))
	for _, p := range tr.points {
		res = append(res, p.Clone())
	}
	return res
}

// Segments returns a snapshot of an asset's enriched segments, or nil if the
// asset is unknown.
func (s *Store) Segments(assetID string) []model.EnrichedSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.tracks[assetID]
	if !ok {
		return nil
	}
	return append([]model.EnrichedSegment(nil), tr.segments...)
}

// Source returns where an asset's telemetry came from.
func (s *Store) Source(assetID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.tracks[assetID]
	if !ok {
		return "", false
	}
	return tr.source, true
}

// Assets returns the known asset IDs in sorted order.
func (s *Store) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]string, 0, len(s.tracks))
	for id := range s.tracks {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// Clear drops every track. Subscriptions survive so long-lived consumers can
// watch the next asset without re-registering.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = make(map[string]*trackState)
}

// Subscribe registers a callback for store events. It returns an unsubscribe
// function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}
