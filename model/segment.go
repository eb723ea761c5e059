package model

// ContentSegment is one time-aligned slice of transcript text, timed
// against the start of the video.
type ContentSegment struct {
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
	Text     string  `json:"text"`
}

// MidpointSec is the instant a segment is aligned at when matching it to
// telemetry.
func (s ContentSegment) MidpointSec() float64 {
	return (s.StartSec + s.EndSec) / 2
}

// EnrichedSegment is a content segment plus the geo context derived from
// its nearest telemetry point. Geo is nil when no telemetry could be
// matched. The correlator always builds a fresh copy; callers' segments
// are never mutated.
type EnrichedSegment struct {
	ContentSegment
	Geo *GeoContext `json:"geo,omitempty"`
}
