package st0601

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/fmv-telemetry/klv"
)

// EncodeValue produces the raw bytes for a numeric tag at its standard
// width, inverting the linear mapping for mapped tags. It rejects values
// outside the tag's physical range rather than clamping; a producer
// emitting out-of-range telemetry has a bug upstream of the encoding.
func EncodeValue(tag byte, v float64) ([]byte, error) {
	def, known := registry[tag]
	if !known {
		return nil, fmt.Errorf("tag %d not in dictionary", tag)
	}
	switch def.kind {
	case kindString:
		return nil, fmt.Errorf("tag %d is string-valued", tag)
	case kindTimestamp:
		if v < 0 {
			return nil, fmt.Errorf("%w: negative timestamp", ErrOutOfRange)
		}
		return appendUint(nil, uint64(math.Round(v*1e6)), def.Width), nil
	case kindUint:
		if v < 0 || v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %v as unsigned integer", ErrOutOfRange, v)
		}
		return appendUint(nil, uint64(v), def.Width), nil
	default:
		return encodeMapped(v, def.signed, def.min, def.max, def.Width)
	}
}

func encodeMapped(v float64, signed bool, min, max float64, width int) ([]byte, error) {
	if v < min || v > max {
		return nil, fmt.Errorf("%w: %v outside [%v, %v]", ErrOutOfRange, v, min, max)
	}
	bits := uint(width * 8)
	ratio := (v - min) / (max - min)
	if signed {
		intMin := int64(-1) << (bits - 1)
		intMax := -(intMin + 1)
		x := int64(math.Round(float64(intMin) + ratio*(float64(intMax)-float64(intMin))))
		return appendUint(nil, uint64(x), width), nil
	}
	var intMax float64
	if bits == 64 {
		intMax = float64(math.MaxUint64)
	} else {
		intMax = float64(uint64(1)<<bits - 1)
	}
	return appendUint(nil, uint64(math.Round(ratio*intMax)), width), nil
}

// appendUint writes the low width bytes of u big-endian.
func appendUint(dst []byte, u uint64, width int) []byte {
	for i := width - 1; i >= 0; i-- {
		dst = append(dst, byte(u>>(8*uint(i))))
	}
	return dst
}

// Builder assembles one local-set packet, for producers and for test
// fixtures that need byte-exact streams.
type Builder struct {
	payload []byte
}

func NewBuilder() *Builder { return &Builder{} }

// AddFloat encodes a numeric tag at its standard width.
func (b *Builder) AddFloat(tag byte, v float64) error {
	raw, err := EncodeValue(tag, v)
	if err != nil {
		return err
	}
	b.AddRaw(tag, raw)
	return nil
}

// AddTimestampMicros sets tag 2 from epoch microseconds.
func (b *Builder) AddTimestampMicros(us int64) *Builder {
	b.AddRaw(2, appendUint(nil, uint64(us), 8))
	return b
}

// AddText appends a string-valued tag verbatim.
func (b *Builder) AddText(tag byte, s string) *Builder {
	b.AddRaw(tag, []byte(s))
	return b
}

// AddRaw appends an arbitrary tag-length-value record, including tags
// outside the dictionary.
func (b *Builder) AddRaw(tag byte, value []byte) *Builder {
	b.payload = append(b.payload, tag)
	b.payload = klv.AppendLength(b.payload, len(value))
	b.payload = append(b.payload, value...)
	return b
}

// Payload returns the accumulated local-set value bytes.
func (b *Builder) Payload() []byte { return b.payload }

// Packet frames the payload as universal key + BER length + payload.
func (b *Builder) Packet() []byte {
	out := append([]byte{}, klv.UniversalKey[:]...)
	out = klv.AppendLength(out, len(b.payload))
	return append(out, b.payload...)
}
