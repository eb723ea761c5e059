package model

// TimeBase indicates which clock a telemetry point is stamped against.
type TimeBase int

const (
	TimeNone     TimeBase = iota
	TimeAbsolute          // UnixMicros is valid (KLV path)
	TimeRelative          // VideoOffsetSec is valid (subtitle path)
)

func (b TimeBase) String() string {
	switch b {
	case TimeAbsolute:
		return "absolute"
	case TimeRelative:
		return "relative"
	default:
		return "none"
	}
}

// MarshalText renders the base as its string form in JSON output.
func (b TimeBase) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Canonical field names for the supported MISB ST 0601 tag subset.
// Decoders and parsers converge on these keys so downstream consumers
// never care which path produced a point.
const (
	FieldChecksum                = "Checksum"
	FieldUnixTimeStamp           = "UnixTimeStamp"
	FieldPlatformHeading         = "PlatformHeadingAngle"
	FieldPlatformPitch           = "PlatformPitchAngle"
	FieldPlatformRoll            = "PlatformRollAngle"
	FieldSensorLatitude          = "SensorLatitude"
	FieldSensorLongitude         = "SensorLongitude"
	FieldSensorTrueAltitude      = "SensorTrueAltitude"
	FieldHorizontalFOV           = "SensorHorizontalFieldOfView"
	FieldVerticalFOV             = "SensorVerticalFieldOfView"
	FieldSensorRelativeAzimuth   = "SensorRelativeAzimuthAngle"
	FieldSensorRelativeElevation = "SensorRelativeElevationAngle"
	FieldSensorRelativeRoll      = "SensorRelativeRollAngle"
	FieldSlantRange              = "SlantRange"
	FieldTargetWidth             = "TargetWidth"
	FieldFrameCenterLatitude     = "FrameCenterLatitude"
	FieldFrameCenterLongitude    = "FrameCenterLongitude"
	FieldFrameCenterElevation    = "FrameCenterElevation"
	FieldTargetLocationLatitude  = "TargetLocationLatitude"
	FieldTargetLocationLongitude = "TargetLocationLongitude"
	FieldTargetLocationElevation = "TargetLocationElevation"
	FieldVersion                 = "UASDatalinkLSVersion"
)

// String-valued tag names.
const (
	TextMissionID             = "MissionID"
	TextPlatformTailNumber    = "PlatformTailNumber"
	TextPlatformDesignation   = "PlatformDesignation"
	TextImageSourceSensor     = "ImageSourceSensor"
	TextImageCoordinateSystem = "ImageCoordinateSystem"
)

// TelemetryPoint is one decoded KLV packet or one subtitle-derived sample,
// normalized so the correlation layer never distinguishes the source.
//
// Exactly one of UnixMicros/VideoOffsetSec is meaningful, selected by Base.
// Points with Base == TimeNone cannot be correlated and are filtered out
// by consumers that need a clock.
type TelemetryPoint struct {
	Base           TimeBase `json:"time_base"`
	UnixMicros     int64    `json:"unix_micros,omitempty"`
	VideoOffsetSec float64  `json:"video_offset_sec,omitempty"`

	// Fields maps canonical tag names to decoded physical values
	// (degrees, meters, seconds).
	Fields map[string]float64 `json:"fields,omitempty"`
	// Text maps string-valued tag names (and UnknownTag_<id> hex dumps)
	// to their raw decoded strings.
	Text map[string]string `json:"text,omitempty"`
}

// Field returns the named decoded value and whether it is present.
func (p *TelemetryPoint) Field(name string) (float64, bool) {
	v, ok := p.Fields[name]
	return v, ok
}

// SetField stores a decoded value, allocating the map on first use.
func (p *TelemetryPoint) SetField(name string, v float64) {
	if p.Fields == nil {
		p.Fields = make(map[string]float64)
	}
	p.Fields[name] = v
}

// SetText stores a string-valued tag, allocating the map on first use.
func (p *TelemetryPoint) SetText(name, v string) {
	if p.Text == nil {
		p.Text = make(map[string]string)
	}
	p.Text[name] = v
}

// HasLatitude reports whether the point carries any usable latitude.
// Points without one are useless for geolocation and get dropped before
// correlation.
func (p *TelemetryPoint) HasLatitude() bool {
	for _, name := range []string{FieldSensorLatitude, FieldFrameCenterLatitude, FieldTargetLocationLatitude} {
		if _, ok := p.Fields[name]; ok {
			return true
		}
	}
	return false
}

// SensorPosition returns the platform position. Altitude defaults to 0 m
// when the stream never reported it; ok requires latitude and longitude.
func (p *TelemetryPoint) SensorPosition() (lat, lon, alt float64, ok bool) {
	lat, latOK := p.Fields[FieldSensorLatitude]
	lon, lonOK := p.Fields[FieldSensorLongitude]
	if !latOK || !lonOK {
		return 0, 0, 0, false
	}
	alt = p.Fields[FieldSensorTrueAltitude]
	return lat, lon, alt, true
}

// TargetPosition returns where the sensor is looking, preferring the frame
// center over the explicit target location. Elevation defaults to 0 m.
func (p *TelemetryPoint) TargetPosition() (lat, lon, elev float64, ok bool) {
	if lat, latOK := p.Fields[FieldFrameCenterLatitude]; latOK {
		if lon, lonOK := p.Fields[FieldFrameCenterLongitude]; lonOK {
			return lat, lon, p.Fields[FieldFrameCenterElevation], true
		}
	}
	lat, latOK := p.Fields[FieldTargetLocationLatitude]
	lon, lonOK := p.Fields[FieldTargetLocationLongitude]
	if !latOK || !lonOK {
		return 0, 0, 0, false
	}
	return lat, lon, p.Fields[FieldTargetLocationElevation], true
}

// Clone returns a deep copy; map mutations on the copy never touch the
// original.
func (p *TelemetryPoint) Clone() TelemetryPoint {
	out := *p
	if p.Fields != nil {
		out.Fields = make(map[string]float64, len(p.Fields))
		for k, v := range p.Fields {
			out.Fields[k] = v
		}
	}
	if p.Text != nil {
		out.Text = make(map[string]string, len(p.Text))
		for k, v := range p.Text {
			out.Text[k] = v
		}
	}
	return out
}
