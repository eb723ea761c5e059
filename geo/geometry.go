// Package geo holds the spherical-earth math behind look vectors and
// telemetry interpolation. All functions are pure.
package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/signalsfoundry/fmv-telemetry/model"
)

// EarthRadiusMeters is the mean Earth radius the range math assumes.
const EarthRadiusMeters = 6371000.0

// GroundRange returns the great-circle distance between two geodetic
// points in meters, via the haversine formula.
func GroundRange(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing returns the initial bearing (forward azimuth) from point 1 to
// point 2 in degrees, normalized to [0, 360). 0 is north, 90 east.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearingDeg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

// LookVector relates a sensor position to the point it is observing.
// Directly overhead resolves to +90 degrees depression when the sensor is
// above the target, -90 otherwise.
func LookVector(sensorLat, sensorLon, sensorAlt, targetLat, targetLon, targetElev float64) model.LookVector {
	ground := GroundRange(sensorLat, sensorLon, targetLat, targetLon)
	altDiff := sensorAlt - targetElev

	var depression float64
	if ground == 0 {
		if altDiff > 0 {
			depression = 90
		} else {
			depression = -90
		}
	} else {
		depression = math.Atan(altDiff/ground) * 180 / math.Pi
	}

	return model.LookVector{
		SlantRangeM:   math.Sqrt(ground*ground + altDiff*altDiff),
		GroundRangeM:  ground,
		BearingDeg:    Bearing(sensorLat, sensorLon, targetLat, targetLon),
		DepressionDeg: depression,
	}
}

// interpolable is the field subset it makes physical sense to blend
// between neighboring samples. Counters and identifiers stay out.
var interpolable = map[string]bool{
	model.FieldPlatformHeading:         true,
	model.FieldPlatformPitch:           true,
	model.FieldPlatformRoll:            true,
	model.FieldSensorLatitude:          true,
	model.FieldSensorLongitude:         true,
	model.FieldSensorTrueAltitude:      true,
	model.FieldHorizontalFOV:           true,
	model.FieldVerticalFOV:             true,
	model.FieldSensorRelativeAzimuth:   true,
	model.FieldSensorRelativeElevation: true,
	model.FieldSensorRelativeRoll:      true,
	model.FieldSlantRange:              true,
	model.FieldTargetWidth:             true,
	model.FieldFrameCenterLatitude:     true,
	model.FieldFrameCenterLongitude:    true,
	model.FieldFrameCenterElevation:    true,
	model.FieldTargetLocationLatitude:  true,
	model.FieldTargetLocationLongitude: true,
	model.FieldTargetLocationElevation: true,
}

// Interpolate blends the geo fields present in both points at the given
// fraction (0 returns p1's values, 1 returns p2's). A field missing from
// either point is omitted from the result, never defaulted. When the
// points share a time base the result's time is blended the same way.
func Interpolate(p1, p2 *model.TelemetryPoint, frac float64) model.TelemetryPoint {
	var out model.TelemetryPoint
	for name, v1 := range p1.Fields {
		if !interpolable[name] {
			continue
		}
		v2, ok := p2.Fields[name]
		if !ok {
			continue
		}
		out.SetField(name, v1+(v2-v1)*frac)
	}
	if p1.Base == p2.Base {
		switch p1.Base {
		case model.TimeAbsolute:
			out.Base = model.TimeAbsolute
			out.UnixMicros = p1.UnixMicros + int64(float64(p2.UnixMicros-p1.UnixMicros)*frac)
		case model.TimeRelative:
			out.Base = model.TimeRelative
			out.VideoOffsetSec = p1.VideoOffsetSec + (p2.VideoOffsetSec-p1.VideoOffsetSec)*frac
		}
	}
	return out
}
