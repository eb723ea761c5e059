package st0601

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fmv-telemetry/klv"
	"github.com/signalsfoundry/fmv-telemetry/model"
)

func TestRoundTripWithinWidthResolution(t *testing.T) {
	values := map[byte]float64{
		5:  271.3,
		6:  -10.25,
		7:  3.5,
		13: 34.0522,
		14: -118.2437,
		15: 1200.5,
		16: 54.4,
		17: 30.1,
		18: 180.0,
		19: -45.0,
		20: 359.9,
		21: 3456.7,
		22: 123.4,
		23: 1.234,
		24: 103.851,
		25: 15.0,
		40: -33.868,
		41: 151.209,
		42: 42.0,
	}
	for tag, want := range values {
		def, ok := Lookup(tag)
		require.True(t, ok, "tag %d", tag)
		min, max, mapped := def.Mapped()
		require.True(t, mapped, "tag %d", tag)

		raw, err := EncodeValue(tag, want)
		require.NoError(t, err, "tag %d", tag)
		require.Len(t, raw, def.Width, "tag %d", tag)

		got, err := Decode(tag, raw)
		require.NoError(t, err, "tag %d", tag)

		// One quantization step at this byte width.
		lsb := (max - min) / (math.Pow(2, float64(8*def.Width)) - 1)
		assert.InDelta(t, want, got.Num, lsb, "tag %d (%s)", tag, def.Name)
	}
}

func TestRoundTripRangeEndpointsExact(t *testing.T) {
	for _, tag := range []byte{5, 6, 7, 13, 14, 15, 16, 21} {
		def, _ := Lookup(tag)
		min, max, _ := def.Mapped()
		for _, v := range []float64{min, max} {
			raw, err := EncodeValue(tag, v)
			require.NoError(t, err)
			got, err := Decode(tag, raw)
			require.NoError(t, err)
			assert.Equal(t, v, got.Num, "tag %d endpoint %v", tag, v)
		}
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	_, err := EncodeValue(13, 90.0001)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = EncodeValue(15, -901)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestEncodeRejectsStringTag(t *testing.T) {
	_, err := EncodeValue(3, 1.0)
	assert.Error(t, err)
}

func TestEncodeUnknownTag(t *testing.T) {
	_, err := EncodeValue(200, 1.0)
	assert.Error(t, err)
}

func TestTimestampRoundTrip(t *testing.T) {
	p, _ := DecodePacket(NewBuilder().AddTimestampMicros(1_700_654_321_000_123).Payload())
	assert.Equal(t, model.TimeAbsolute, p.Base)
	assert.Equal(t, int64(1_700_654_321_000_123), p.UnixMicros)
}

func TestBuilderPacketThroughScanner(t *testing.T) {
	b := NewBuilder().AddTimestampMicros(1_699_000_000_000_000)
	require.NoError(t, b.AddFloat(13, -33.868))
	require.NoError(t, b.AddFloat(14, 151.209))
	require.NoError(t, b.AddFloat(16, 4.2))
	b.AddText(4, "N12345")

	s := klv.NewScanner(bytes.NewReader(b.Packet()))
	payload, err := s.Next()
	require.NoError(t, err)

	p, st := DecodePacket(payload)
	assert.Equal(t, 5, st.Decoded)
	lat, _ := p.Field(model.FieldSensorLatitude)
	assert.InDelta(t, -33.868, lat, 4.2e-8)
	fov, _ := p.Field(model.FieldHorizontalFOV)
	assert.InDelta(t, 4.2, fov, 2.8e-3)
	assert.Equal(t, "N12345", p.Text[model.TextPlatformTailNumber])

	_, err = s.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestTagForName(t *testing.T) {
	tag, ok := TagForName(model.FieldFrameCenterLatitude)
	require.True(t, ok)
	assert.Equal(t, byte(23), tag)

	_, ok = TagForName("NoSuchField")
	assert.False(t, ok)
}
