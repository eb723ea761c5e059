package correlate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fmv-telemetry/geo"
	"github.com/signalsfoundry/fmv-telemetry/model"
)

const trackStart = int64(1_700_000_000_000_000)

// absPoint stamps a point at trackStart+offsetSec and tags it with an
// identifying latitude.
func absPoint(offsetSec float64, lat float64) model.TelemetryPoint {
	p := model.TelemetryPoint{
		Base:       model.TimeAbsolute,
		UnixMicros: trackStart + int64(offsetSec*1e6),
	}
	p.SetField(model.FieldSensorLatitude, lat)
	p.SetField(model.FieldSensorLongitude, 10)
	return p
}

func relPoint(offsetSec float64, lat float64) model.TelemetryPoint {
	p := model.TelemetryPoint{Base: model.TimeRelative, VideoOffsetSec: offsetSec}
	p.SetField(model.FieldSensorLatitude, lat)
	p.SetField(model.FieldSensorLongitude, 10)
	return p
}

func seg(start, end float64) model.ContentSegment {
	return model.ContentSegment{StartSec: start, EndSec: end, Text: "segment"}
}

func matchedLat(t *testing.T, es model.EnrichedSegment) float64 {
	t.Helper()
	require.NotNil(t, es.Geo, "segment %v-%v not enriched", es.StartSec, es.EndSec)
	require.NotNil(t, es.Geo.Sensor)
	return es.Geo.Sensor.LatDeg
}

func TestAbsoluteNearestPoint(t *testing.T) {
	c, err := New([]model.TelemetryPoint{
		absPoint(0, 1), absPoint(10, 2), absPoint(20, 3),
	})
	require.NoError(t, err)
	require.Equal(t, 3, c.PointCount())

	tests := []struct {
		name    string
		segment model.ContentSegment
		wantLat float64
	}{
		{"exact midpoint", seg(9, 11), 2},
		{"closer to first", seg(0, 4), 1},
		{"closer to later", seg(14, 17), 3},
		{"before first clamps", seg(-10, -2), 1},
		{"after last clamps", seg(1000, 1002), 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := c.Correlate([]model.ContentSegment{tc.segment})
			require.Len(t, out, 1)
			assert.Equal(t, tc.wantLat, matchedLat(t, out[0]))
		})
	}
}

func TestNearestNeverFartherThanNeighbors(t *testing.T) {
	offsets := []float64{0, 3, 4, 9, 27}
	points := make([]model.TelemetryPoint, len(offsets))
	for i, off := range offsets {
		points[i] = absPoint(off, float64(i))
	}
	c, err := New(points)
	require.NoError(t, err)

	for _, mid := range []float64{-1, 0.1, 3.4, 3.6, 6, 6.51, 15, 18.1, 30} {
		out := c.Correlate([]model.ContentSegment{seg(mid-1, mid+1)})
		idx := int(matchedLat(t, out[0]))
		target := trackStart + int64(mid*1e6)

		dist := func(i int) float64 {
			return math.Abs(float64(target - (trackStart + int64(offsets[i]*1e6))))
		}
		got := dist(idx)
		if idx > 0 {
			assert.LessOrEqual(t, got, dist(idx-1), "mid %v matched %d over left neighbor", mid, idx)
		}
		if idx < len(offsets)-1 {
			assert.LessOrEqual(t, got, dist(idx+1), "mid %v matched %d over right neighbor", mid, idx)
		}
	}
}

func TestCorrelateIdempotent(t *testing.T) {
	points := []model.TelemetryPoint{absPoint(0, 1), absPoint(7, 2)}
	points[0].SetField(model.FieldFrameCenterLatitude, 1.5)
	points[0].SetField(model.FieldFrameCenterLongitude, 10.5)
	points[0].SetField(model.FieldHorizontalFOV, 7)

	c, err := New(points)
	require.NoError(t, err)

	segments := []model.ContentSegment{seg(0, 2), seg(6, 9)}
	first := c.Correlate(segments)
	second := c.Correlate(segments)
	assert.Equal(t, first, second)
}

func TestRelativeWindowMatch(t *testing.T) {
	c, err := New([]model.TelemetryPoint{
		relPoint(1, 1), relPoint(5, 2), relPoint(5.5, 3), relPoint(9, 4),
	})
	require.NoError(t, err)
	require.Equal(t, model.TimeRelative, c.TimeBase())

	out := c.Correlate([]model.ContentSegment{
		seg(4, 6),  // two candidates in range, first wins
		seg(6, 8),  // nothing in range
		seg(0, 20), // whole track in range
	})
	require.Len(t, out, 3)
	assert.Equal(t, float64(2), matchedLat(t, out[0]))
	assert.Nil(t, out[1].Geo)
	assert.Equal(t, float64(1), matchedLat(t, out[2]))
}

func TestMixedTimeBasesRejected(t *testing.T) {
	_, err := New([]model.TelemetryPoint{absPoint(0, 1), relPoint(5, 2)})
	assert.ErrorIs(t, err, ErrMixedTimeBases)

	_, err = New([]model.TelemetryPoint{relPoint(5, 2), absPoint(0, 1)})
	assert.ErrorIs(t, err, ErrMixedTimeBases)
}

func TestZeroPointsPassThrough(t *testing.T) {
	unstamped := model.TelemetryPoint{}
	unstamped.SetField(model.FieldSensorLatitude, 12)

	for _, points := range [][]model.TelemetryPoint{nil, {unstamped}} {
		c, err := New(points)
		require.NoError(t, err)
		assert.Equal(t, 0, c.PointCount())

		segments := []model.ContentSegment{seg(0, 2), seg(2, 4)}
		out := c.Correlate(segments)
		require.Len(t, out, 2)
		for i, es := range out {
			assert.Nil(t, es.Geo)
			assert.Equal(t, segments[i], es.ContentSegment)
		}
	}
}

func TestUnstampedPointsFiltered(t *testing.T) {
	unstamped := model.TelemetryPoint{}
	unstamped.SetField(model.FieldSensorLatitude, 99)

	c, err := New([]model.TelemetryPoint{unstamped, absPoint(0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, c.PointCount())
	assert.Equal(t, model.TimeAbsolute, c.TimeBase())
}

func TestUnsortedInputSorted(t *testing.T) {
	c, err := New([]model.TelemetryPoint{absPoint(20, 3), absPoint(0, 1), absPoint(10, 2)})
	require.NoError(t, err)

	out := c.Correlate([]model.ContentSegment{seg(-2, 0)})
	assert.Equal(t, float64(1), matchedLat(t, out[0]))
}

func TestNarrowFOVFlagsVisualObservation(t *testing.T) {
	narrow := absPoint(0, 1)
	narrow.SetField(model.FieldHorizontalFOV, 5)
	wide := absPoint(10, 2)
	wide.SetField(model.FieldHorizontalFOV, 45)

	c, err := New([]model.TelemetryPoint{narrow, wide})
	require.NoError(t, err)

	out := c.Correlate([]model.ContentSegment{seg(0, 2), seg(9, 11)})
	require.Len(t, out, 2)

	require.NotNil(t, out[0].Geo)
	assert.True(t, out[0].Geo.LikelyVisual)
	require.NotNil(t, out[0].Geo.HorizontalFOVDeg)
	assert.Equal(t, 5.0, *out[0].Geo.HorizontalFOVDeg)

	require.NotNil(t, out[1].Geo)
	assert.False(t, out[1].Geo.LikelyVisual)
}

func TestGeoContextContents(t *testing.T) {
	p := absPoint(0, 34.0)
	p.SetField(model.FieldSensorTrueAltitude, 3000)
	p.SetField(model.FieldPlatformHeading, 271.5)
	p.SetField(model.FieldFrameCenterLatitude, 34.1)
	p.SetField(model.FieldFrameCenterLongitude, 10.2)
	p.SetField(model.FieldFrameCenterElevation, 150)
	p.SetField(model.FieldTargetLocationLatitude, -5) // must lose to frame center
	p.SetField(model.FieldTargetLocationLongitude, -5)

	c, err := New([]model.TelemetryPoint{p})
	require.NoError(t, err)

	out := c.Correlate([]model.ContentSegment{seg(0, 1)})
	gc := out[0].Geo
	require.NotNil(t, gc)

	require.NotNil(t, gc.Sensor)
	assert.Equal(t, 34.0, gc.Sensor.LatDeg)
	assert.Equal(t, 3000.0, gc.Sensor.AltM)
	require.NotNil(t, gc.SensorHeadingDeg)
	assert.Equal(t, 271.5, *gc.SensorHeadingDeg)

	require.NotNil(t, gc.Target)
	assert.Equal(t, 34.1, gc.Target.LatDeg)
	assert.Equal(t, 10.2, gc.Target.LonDeg)

	require.NotNil(t, gc.Look)
	want := geo.LookVector(34.0, 10, 3000, 34.1, 10.2, 150)
	assert.Equal(t, want, *gc.Look)
}

func TestSparsePointStillWitnessed(t *testing.T) {
	p := model.TelemetryPoint{Base: model.TimeAbsolute, UnixMicros: trackStart}
	p.SetField(model.FieldSensorLatitude, 42) // no longitude: no usable position

	c, err := New([]model.TelemetryPoint{p})
	require.NoError(t, err)

	out := c.Correlate([]model.ContentSegment{seg(0, 1)})
	require.NotNil(t, out[0].Geo)
	assert.Nil(t, out[0].Geo.Sensor)
	assert.Nil(t, out[0].Geo.Look)
}

func TestCallerSegmentsUntouched(t *testing.T) {
	c, err := New([]model.TelemetryPoint{absPoint(0, 1)})
	require.NoError(t, err)

	segments := []model.ContentSegment{seg(0, 2)}
	snapshot := segments[0]
	_ = c.Correlate(segments)
	assert.Equal(t, snapshot, segments[0])
}
