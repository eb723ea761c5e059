// Package correlate aligns time-stamped content segments to the nearest
// telemetry sample and derives a geo context for each.
package correlate

import (
	"errors"
	"sort"

	"github.com/signalsfoundry/fmv-telemetry/geo"
	"github.com/signalsfoundry/fmv-telemetry/model"
)

// ErrMixedTimeBases rejects construction from points stamped against
// different clocks. Absolute microseconds and video offsets cannot be
// compared, and silently picking one misplaces every match.
var ErrMixedTimeBases = errors.New("telemetry mixes absolute and relative time bases")

// Correlator indexes a telemetry track once and then answers
// nearest-point queries per segment. It is immutable after construction;
// Correlate is a pure function of its inputs.
type Correlator struct {
	points []model.TelemetryPoint
	base   model.TimeBase
}

// New filters out points without a time stamp, sorts the rest ascending,
// and fixes the time base for all later queries. A correlator built from
// zero usable points is valid: it enriches nothing.
func New(points []model.TelemetryPoint) (*Correlator, error) {
	c := &Correlator{base: model.TimeNone}
	for _, p := range points {
		if p.Base == model.TimeNone {
			continue
		}
		if c.base == model.TimeNone {
			c.base = p.Base
		}
		if p.Base != c.base {
			return nil, ErrMixedTimeBases
		}
		c.points = append(c.points, p)
	}
	sort.SliceStable(c.points, func(i, j int) bool {
		if c.base == model.TimeAbsolute {
			return c.points[i].UnixMicros < c.points[j].UnixMicros
		}
		return c.points[i].VideoOffsetSec < c.points[j].VideoOffsetSec
	})
	return c, nil
}

// PointCount returns how many usable points the correlator indexed.
func (c *Correlator) PointCount() int { return len(c.points) }

// TimeBase returns the clock the indexed track is stamped against.
func (c *Correlator) TimeBase() model.TimeBase { return c.base }

// Correlate returns one enriched copy per input segment; the caller's
// segments are never touched. Segments that match no telemetry come back
// with a nil geo context.
func (c *Correlator) Correlate(segments []model.ContentSegment) []model.EnrichedSegment {
	out := make([]model.EnrichedSegment, 0, len(segments))
	for _, seg := range segments {
		es := model.EnrichedSegment{ContentSegment: seg}
		if p := c.match(seg); p != nil {
			es.Geo = buildContext(p)
		}
		out = append(out, es)
	}
	return out
}

func (c *Correlator) match(seg model.ContentSegment) *model.TelemetryPoint {
	if len(c.points) == 0 {
		return nil
	}
	switch c.base {
	case model.TimeAbsolute:
		return c.nearestAbsolute(seg.MidpointSec())
	case model.TimeRelative:
		return c.scanRelative(seg)
	}
	return nil
}

// nearestAbsolute anchors the segment clock at the first telemetry
// sample: the segment midpoint is an offset from the start of the video,
// and the earliest packet is the best available estimate of that start.
func (c *Correlator) nearestAbsolute(midSec float64) *model.TelemetryPoint {
	target := c.points[0].UnixMicros + int64(midSec*1_000_000)
	i := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].UnixMicros >= target
	})
	if i == 0 {
		return &c.points[0]
	}
	if i == len(c.points) {
		return &c.points[len(c.points)-1]
	}
	before, after := &c.points[i-1], &c.points[i]
	if target-before.UnixMicros <= after.UnixMicros-target {
		return before
	}
	return after
}

// scanRelative has no shared clock to anchor on, so it settles for the
// first sample whose video offset falls inside the segment. Coarser than
// the absolute path, and deliberately so.
func (c *Correlator) scanRelative(seg model.ContentSegment) *model.TelemetryPoint {
	for i := range c.points {
		off := c.points[i].VideoOffsetSec
		if off >= seg.StartSec && off <= seg.EndSec {
			return &c.points[i]
		}
	}
	return nil
}

// buildContext derives a fresh GeoContext from the matched point. The
// context carries whatever the point can support; a point with only a
// latitude still witnesses that telemetry existed at that time.
func buildContext(p *model.TelemetryPoint) *model.GeoContext {
	gc := &model.GeoContext{}

	sLat, sLon, sAlt, sensorOK := p.SensorPosition()
	if sensorOK {
		gc.Sensor = &model.GeoPosition{LatDeg: sLat, LonDeg: sLon, AltM: sAlt}
		if h, ok := p.Field(model.FieldPlatformHeading); ok {
			gc.SensorHeadingDeg = model.Float(h)
		}
	}

	tLat, tLon, tElev, targetOK := p.TargetPosition()
	if targetOK {
		gc.Target = &model.GeoPosition{LatDeg: tLat, LonDeg: tLon, AltM: tElev}
	}

	if sensorOK && targetOK {
		lv := geo.LookVector(sLat, sLon, sAlt, tLat, tLon, tElev)
		gc.Look = &lv
	}

	if h, ok := p.Field(model.FieldHorizontalFOV); ok {
		gc.HorizontalFOVDeg = model.Float(h)
		gc.LikelyVisual = h < 10
	}
	if v, ok := p.Field(model.FieldVerticalFOV); ok {
		gc.VerticalFOVDeg = model.Float(v)
	}
	return gc
}
