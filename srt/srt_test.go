package srt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fmv-telemetry/model"
)

func TestParseGPSDialect(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,000\nGPS(34.0522, -118.2437, 15)\n"

	points := Parse(text)
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, model.TimeRelative, p.Base)
	assert.Equal(t, 1.0, p.VideoOffsetSec)
	assert.Equal(t, 34.0522, p.Fields[model.FieldSensorLatitude])
	assert.Equal(t, -118.2437, p.Fields[model.FieldSensorLongitude])
	assert.Equal(t, 15.0, p.Fields[model.FieldSensorTrueAltitude])
}

func TestParseBracketDialect(t *testing.T) {
	text := "1\n" +
		"00:00:00,033 --> 00:00:00,066\n" +
		"F/2.8, SS 1/1000, ISO 100, EV 0\n" +
		"[latitude: 34.050012] [longitude: -118.240034] [rel_alt: 98.400 abs_alt: 412.862]\n"

	points := Parse(text)
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, model.TimeRelative, p.Base)
	assert.InDelta(t, 0.033, p.VideoOffsetSec, 1e-9)
	assert.Equal(t, 34.050012, p.Fields[model.FieldSensorLatitude])
	assert.Equal(t, -118.240034, p.Fields[model.FieldSensorLongitude])
	assert.Equal(t, 412.862, p.Fields[model.FieldSensorTrueAltitude], "absolute altitude, not relative")
}

func TestBracketAltitudeDefaultsToZero(t *testing.T) {
	text := "1\n00:00:05,000 --> 00:00:06,000\n[latitude: 51.5] [longitude: -0.12]\n"

	points := Parse(text)
	require.Len(t, points, 1)
	assert.Equal(t, 0.0, points[0].Fields[model.FieldSensorTrueAltitude])
}

func TestBracketDialectWinsOverGPS(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,000\n" +
		"[latitude: 10.0] [longitude: 20.0] GPS(30.0, 40.0, 50)\n"

	points := Parse(text)
	require.Len(t, points, 1)
	assert.Equal(t, 10.0, points[0].Fields[model.FieldSensorLatitude])
	assert.Equal(t, 20.0, points[0].Fields[model.FieldSensorLongitude])
}

func TestTimestampCommaBecomesDecimalPoint(t *testing.T) {
	cases := []struct {
		name string
		line string
		want float64
	}{
		{"millis", "00:00:01,500 --> 00:00:02,000", 1.5},
		{"minutes and hours", "01:02:03,250 --> 01:02:04,000", 3723.25},
		{"already a dot", "00:00:02.750 --> 00:00:03.000", 2.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := "1\n" + tc.line + "\nGPS(1.0, 2.0, 3.0)\n"
			points := Parse(text)
			require.Len(t, points, 1)
			assert.InDelta(t, tc.want, points[0].VideoOffsetSec, 1e-9)
		})
	}
}

func TestNonTelemetryBlocksSkipped(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,000\nWe have eyes on the compound.\n" +
		"\n" +
		"2\n00:00:02,000 --> 00:00:03,000\nGPS(34.0, -118.0, 500)\n" +
		"\n" +
		"3\n00:00:03,000 --> 00:00:04,000\nCopy. Hold position.\n"

	points := Parse(text)
	require.Len(t, points, 1)
	assert.Equal(t, 34.0, points[0].Fields[model.FieldSensorLatitude])
	assert.Equal(t, 2.0, points[0].VideoOffsetSec)
}

func TestMalformedBlocks(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty input", ""},
		{"blank lines only", "\n\n\n"},
		{"two lines", "1\nGPS(1.0, 2.0, 3.0)"},
		{"no timestamp line", "1\nnot a timestamp\nGPS(1.0, 2.0, 3.0)"},
		{"timestamp is last line", "1\n00:00:01,000 --> 00:00:02,000"},
		{"timestamp before index", "00:00:01,000 --> 00:00:02,000\n1\nGPS(1.0, 2.0, 3.0)"},
		{"garbage hours", "1\nxx:00:01,000 --> 00:00:02,000\nGPS(1.0, 2.0, 3.0)"},
		{"latitude without longitude", "1\n00:00:01,000 --> 00:00:02,000\n[latitude: 34.0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, Parse(tc.text))
		})
	}
}

func TestCRLFInput(t *testing.T) {
	text := "1\r\n00:00:01,000 --> 00:00:02,000\r\nGPS(34.0, -118.0, 12)\r\n\r\n" +
		"2\r\n00:00:02,000 --> 00:00:03,000\r\nGPS(34.1, -118.1, 13)\r\n"

	points := Parse(text)
	require.Len(t, points, 2)
	assert.Equal(t, 34.0, points[0].Fields[model.FieldSensorLatitude])
	assert.Equal(t, 34.1, points[1].Fields[model.FieldSensorLatitude])
}

func TestBlockOrderPreserved(t *testing.T) {
	text := "1\n00:00:00,000 --> 00:00:01,000\nGPS(0.0, 0.0, 0)\n\n" +
		"2\n00:00:10,000 --> 00:00:11,000\nGPS(1.0, 1.0, 10)\n\n" +
		"3\n00:00:20,000 --> 00:00:21,000\nGPS(2.0, 2.0, 20)\n"

	points := Parse(text)
	require.Len(t, points, 3)
	for i, want := range []float64{0, 10, 20} {
		assert.Equal(t, want, points[i].VideoOffsetSec)
	}
}

func TestNegativeCoordinates(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,000\n" +
		"[latitude: -33.8688] [longitude: 151.2093] [rel_alt: 50.0 abs_alt: -2.5]\n"

	points := Parse(text)
	require.Len(t, points, 1)
	assert.Equal(t, -33.8688, points[0].Fields[model.FieldSensorLatitude])
	assert.Equal(t, 151.2093, points[0].Fields[model.FieldSensorLongitude])
	assert.Equal(t, -2.5, points[0].Fields[model.FieldSensorTrueAltitude])
}
