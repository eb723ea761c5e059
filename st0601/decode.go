package st0601

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/fmv-telemetry/klv"
	"github.com/signalsfoundry/fmv-telemetry/model"
)

var (
	ErrBadWidth     = errors.New("value width not decodable")
	ErrOutOfRange   = errors.New("value outside encodable range")
	ErrUnmappedName = errors.New("field name has no tag")
)

// Value is one decoded tag. Exactly one of Num/Text is meaningful,
// selected by IsText.
type Value struct {
	Name   string
	Num    float64
	Text   string
	IsText bool
}

// Decode resolves a single tag's raw bytes. Unknown tags never fail:
// they come back under a synthetic UnknownTag_<id> name with the raw
// bytes hex-encoded, so one exotic tag cannot abort an extraction. An
// error means the bytes could not be decoded arithmetically and the tag
// should be dropped.
func Decode(tag byte, raw []byte) (Value, error) {
	def, known := registry[tag]
	if !known {
		return Value{
			Name:   fmt.Sprintf("UnknownTag_%d", tag),
			Text:   hex.EncodeToString(raw),
			IsText: true,
		}, nil
	}
	switch def.kind {
	case kindString:
		return Value{Name: def.Name, Text: string(raw), IsText: true}, nil
	case kindTimestamp:
		us, err := timestampMicros(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Name: def.Name, Num: float64(us) / 1e6}, nil
	case kindUint:
		u, err := decodeUint(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Name: def.Name, Num: float64(u)}, nil
	default:
		v, err := decodeMapped(raw, def.signed, def.min, def.max)
		if err != nil {
			return Value{}, err
		}
		return Value{Name: def.Name, Num: v}, nil
	}
}

// Stats summarizes one packet decode for diagnostic reporting.
type Stats struct {
	Decoded   int
	Dropped   int
	Unknown   int
	Truncated bool
}

// DecodePacket converts one local-set payload into a telemetry point.
// A tag that fails to decode is dropped and the rest of the packet still
// lands; the point carries an absolute time base when tag 2 is present.
func DecodePacket(payload []byte) (model.TelemetryPoint, Stats) {
	var p model.TelemetryPoint
	fields, truncated := klv.Fields(payload)
	st := Stats{Truncated: truncated}

	for _, f := range fields {
		def, known := registry[f.Tag]
		if !known {
			p.SetText(fmt.Sprintf("UnknownTag_%d", f.Tag), hex.EncodeToString(f.Value))
			st.Unknown++
			continue
		}
		switch def.kind {
		case kindString:
			p.SetText(def.Name, string(f.Value))
		case kindTimestamp:
			us, err := timestampMicros(f.Value)
			if err != nil {
				st.Dropped++
				continue
			}
			p.Base = model.TimeAbsolute
			p.UnixMicros = us
			p.SetField(def.Name, float64(us)/1e6)
		case kindUint:
			u, err := decodeUint(f.Value)
			if err != nil {
				st.Dropped++
				continue
			}
			p.SetField(def.Name, float64(u))
		default:
			v, err := decodeMapped(f.Value, def.signed, def.min, def.max)
			if err != nil {
				st.Dropped++
				continue
			}
			p.SetField(def.Name, v)
		}
		st.Decoded++
	}
	return p, st
}

// ---------- raw byte decoders ----------

func decodeUint(raw []byte) (uint64, error) {
	if len(raw) == 0 || len(raw) > 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadWidth, len(raw))
	}
	var u uint64
	for _, b := range raw {
		u = u<<8 | uint64(b)
	}
	return u, nil
}

func timestampMicros(raw []byte) (int64, error) {
	u, err := decodeUint(raw)
	if err != nil {
		return 0, err
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("%w: timestamp overflows", ErrBadWidth)
	}
	return int64(u), nil
}

// decodeMapped places the raw big-endian integer inside its representable
// range as a ratio and maps that ratio onto [min, max]. The arithmetic
// order matches what compliant producers encode against; do not "simplify"
// it.
func decodeMapped(raw []byte, signed bool, min, max float64) (float64, error) {
	if len(raw) == 0 || len(raw) > 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadWidth, len(raw))
	}
	bits := uint(len(raw) * 8)
	var u uint64
	for _, b := range raw {
		u = u<<8 | uint64(b)
	}

	var ratio float64
	if signed {
		shift := 64 - bits
		v := int64(u<<shift) >> shift
		intMin := int64(-1) << (bits - 1)
		intMax := -(intMin + 1)
		ratio = (float64(v) - float64(intMin)) / (float64(intMax) - float64(intMin))
	} else {
		var intMax float64
		if bits == 64 {
			intMax = float64(math.MaxUint64)
		} else {
			intMax = float64(uint64(1)<<bits - 1)
		}
		ratio = float64(u) / intMax
	}
	return min + ratio*(max-min), nil
}
