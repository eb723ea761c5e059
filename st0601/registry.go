// Package st0601 decodes the MISB ST 0601 local set: the tag dictionary,
// the linear-mapped physical quantities, and whole-packet conversion into
// the normalized telemetry point.
package st0601

import "github.com/signalsfoundry/fmv-telemetry/model"

// decodeKind selects the decode routine for a tag. The set is closed;
// dispatch is a switch, not an interface.
type decodeKind int

const (
	kindUint decodeKind = iota
	kindString
	kindTimestamp
	kindMapped
)

// TagDef describes one dictionary entry. Width is the byte width a
// compliant producer emits; decoding accepts whatever width arrives.
type TagDef struct {
	Name  string
	Width int

	kind   decodeKind
	signed bool
	min    float64
	max    float64
}

// Mapped reports whether the tag decodes through the linear range
// mapping, and to which physical range.
func (d TagDef) Mapped() (min, max float64, ok bool) {
	if d.kind != kindMapped {
		return 0, 0, false
	}
	return d.min, d.max, true
}

// registry is the supported tag subset, resolved once at init. Tag 1 is
// recorded like any other value and deliberately never verified against
// the packet contents; rejecting checksum mismatches would discard
// streams that decode fine in the wild.
var registry = map[byte]TagDef{
	1:  {Name: model.FieldChecksum, Width: 2, kind: kindUint},
	2:  {Name: model.FieldUnixTimeStamp, Width: 8, kind: kindTimestamp},
	3:  {Name: model.TextMissionID, kind: kindString},
	4:  {Name: model.TextPlatformTailNumber, kind: kindString},
	5:  {Name: model.FieldPlatformHeading, Width: 2, kind: kindMapped, min: 0, max: 360},
	6:  {Name: model.FieldPlatformPitch, Width: 2, kind: kindMapped, signed: true, min: -20, max: 20},
	7:  {Name: model.FieldPlatformRoll, Width: 2, kind: kindMapped, signed: true, min: -50, max: 50},
	10: {Name: model.TextPlatformDesignation, kind: kindString},
	11: {Name: model.TextImageSourceSensor, kind: kindString},
	12: {Name: model.TextImageCoordinateSystem, kind: kindString},
	13: {Name: model.FieldSensorLatitude, Width: 4, kind: kindMapped, signed: true, min: -90, max: 90},
	14: {Name: model.FieldSensorLongitude, Width: 4, kind: kindMapped, signed: true, min: -180, max: 180},
	15: {Name: model.FieldSensorTrueAltitude, Width: 2, kind: kindMapped, min: -900, max: 19000},
	16: {Name: model.FieldHorizontalFOV, Width: 2, kind: kindMapped, min: 0, max: 180},
	17: {Name: model.FieldVerticalFOV, Width: 2, kind: kindMapped, min: 0, max: 180},
	18: {Name: model.FieldSensorRelativeAzimuth, Width: 4, kind: kindMapped, min: 0, max: 360},
	19: {Name: model.FieldSensorRelativeElevation, Width: 4, kind: kindMapped, signed: true, min: -180, max: 180},
	20: {Name: model.FieldSensorRelativeRoll, Width: 4, kind: kindMapped, min: 0, max: 360},
	21: {Name: model.FieldSlantRange, Width: 4, kind: kindMapped, min: 0, max: 5_000_000},
	22: {Name: model.FieldTargetWidth, Width: 2, kind: kindMapped, min: 0, max: 10_000},
	23: {Name: model.FieldFrameCenterLatitude, Width: 4, kind: kindMapped, signed: true, min: -90, max: 90},
	24: {Name: model.FieldFrameCenterLongitude, Width: 4, kind: kindMapped, signed: true, min: -180, max: 180},
	25: {Name: model.FieldFrameCenterElevation, Width: 2, kind: kindMapped, min: -900, max: 19000},
	40: {Name: model.FieldTargetLocationLatitude, Width: 4, kind: kindMapped, signed: true, min: -90, max: 90},
	41: {Name: model.FieldTargetLocationLongitude, Width: 4, kind: kindMapped, signed: true, min: -180, max: 180},
	42: {Name: model.FieldTargetLocationElevation, Width: 2, kind: kindMapped, min: -900, max: 19000},
	65: {Name: model.FieldVersion, Width: 1, kind: kindUint},
}

// tagByName is the reverse index, used by the encoder.
var tagByName = func() map[string]byte {
	m := make(map[string]byte, len(registry))
	for tag, def := range registry {
		m[def.Name] = tag
	}
	return m
}()

// Lookup returns the dictionary entry for a tag.
func Lookup(tag byte) (TagDef, bool) {
	def, ok := registry[tag]
	return def, ok
}

// TagForName returns the tag carrying the named field.
func TagForName(name string) (byte, bool) {
	tag, ok := tagByName[name]
	return tag, ok
}
