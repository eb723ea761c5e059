// Package srt recovers telemetry from subtitle tracks of consumer drones
// that embed position readouts in caption text instead of a standards
// compliant metadata stream. Points carry video-relative time only.
package srt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/signalsfoundry/fmv-telemetry/model"
)

// The two caption dialects seen in the wild: bracketed readouts
// ([latitude: ..] [longitude: ..] [rel_alt: .. abs_alt: ..]) and a
// function-call form (GPS(lat, lon, alt)). Bracket notation is tried
// first; a block matching neither yields no point.
var (
	bracketLatRe = regexp.MustCompile(`\[latitude\s*:\s*(-?\d+(?:\.\d+)?)\s*\]`)
	bracketLonRe = regexp.MustCompile(`\[longitude\s*:\s*(-?\d+(?:\.\d+)?)\s*\]`)
	bracketAltRe = regexp.MustCompile(`\[rel_alt\s*:\s*(-?\d+(?:\.\d+)?)\s+abs_alt\s*:\s*(-?\d+(?:\.\d+)?)\s*\]`)
	gpsRe        = regexp.MustCompile(`GPS\s*\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)`)
)

// Parse scans SRT text for telemetry captions. Blocks that are not valid
// SRT entries or carry no recognizable telemetry are skipped; an input
// with no telemetry at all parses to zero points, not an error.
func Parse(text string) []model.TelemetryPoint {
	var points []model.TelemetryPoint
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, block := range strings.Split(text, "\n\n") {
		if p, ok := parseBlock(block); ok {
			points = append(points, p)
		}
	}
	return points
}

// parseBlock expects index line, timestamp line, then content lines.
func parseBlock(block string) (model.TelemetryPoint, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 3 {
		return model.TelemetryPoint{}, false
	}
	arrow := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			arrow = i
			break
		}
	}
	if arrow < 1 || arrow == len(lines)-1 {
		return model.TelemetryPoint{}, false
	}
	startSec, ok := startSeconds(lines[arrow])
	if !ok {
		return model.TelemetryPoint{}, false
	}

	content := strings.Join(lines[arrow+1:], "\n")
	lat, lon, alt, ok := coordinates(content)
	if !ok {
		return model.TelemetryPoint{}, false
	}

	p := model.TelemetryPoint{Base: model.TimeRelative, VideoOffsetSec: startSec}
	p.SetField(model.FieldSensorLatitude, lat)
	p.SetField(model.FieldSensorLongitude, lon)
	p.SetField(model.FieldSensorTrueAltitude, alt)
	return p, true
}

// startSeconds converts the left side of "HH:MM:SS,mmm --> ..." to
// seconds. The decimal separator arrives as a comma.
func startSeconds(line string) (float64, bool) {
	arrow := strings.Index(line, "-->")
	if arrow < 0 {
		return 0, false
	}
	start := strings.ReplaceAll(strings.TrimSpace(line[:arrow]), ",", ".")
	parts := strings.Split(start, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

func coordinates(content string) (lat, lon, alt float64, ok bool) {
	if lat, lon, alt, ok = bracketDialect(content); ok {
		return lat, lon, alt, true
	}
	return gpsDialect(content)
}

func bracketDialect(content string) (lat, lon, alt float64, ok bool) {
	latM := bracketLatRe.FindStringSubmatch(content)
	lonM := bracketLonRe.FindStringSubmatch(content)
	if latM == nil || lonM == nil {
		return 0, 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(latM[1], 64)
	lon, lonErr := strconv.ParseFloat(lonM[1], 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, 0, false
	}
	// Altitude is optional; when present, the absolute value is the
	// one comparable across flights.
	if altM := bracketAltRe.FindStringSubmatch(content); altM != nil {
		if v, err := strconv.ParseFloat(altM[2], 64); err == nil {
			alt = v
		}
	}
	return lat, lon, alt, true
}

func gpsDialect(content string) (lat, lon, alt float64, ok bool) {
	m := gpsRe.FindStringSubmatch(content)
	if m == nil {
		return 0, 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(m[1], 64)
	lon, lonErr := strconv.ParseFloat(m[2], 64)
	alt, altErr := strconv.ParseFloat(m[3], 64)
	if latErr != nil || lonErr != nil || altErr != nil {
		return 0, 0, 0, false
	}
	return lat, lon, alt, true
}
