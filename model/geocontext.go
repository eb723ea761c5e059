package model

// GeoPosition is a geodetic point. AltM is 0 when the source stream never
// reported an altitude for it.
type GeoPosition struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

// LookVector is the geometric relationship from a sensor position to the
// point it is observing.
type LookVector struct {
	SlantRangeM   float64 `json:"slant_range_m"`
	GroundRangeM  float64 `json:"ground_range_m"`
	BearingDeg    float64 `json:"bearing_deg"`
	DepressionDeg float64 `json:"depression_deg"`
}

// GeoContext is derived from the telemetry point matched to a content
// segment; it is owned by the enriched segment it is attached to and is
// recomputed on every correlation pass rather than cached.
type GeoContext struct {
	Sensor           *GeoPosition `json:"sensor,omitempty"`
	SensorHeadingDeg *float64     `json:"sensor_heading_deg,omitempty"`
	Target           *GeoPosition `json:"target,omitempty"`
	Look             *LookVector  `json:"look,omitempty"`

	HorizontalFOVDeg *float64 `json:"horizontal_fov_deg,omitempty"`
	VerticalFOVDeg   *float64 `json:"vertical_fov_deg,omitempty"`

	// LikelyVisual is set when the horizontal field of view is narrow
	// enough (< 10 degrees) that the segment plausibly describes what
	// the sensor was pointed at.
	LikelyVisual bool `json:"likely_visual,omitempty"`
}

// Float returns a pointer to v, for the optional scalar fields above.
func Float(v float64) *float64 { return &v }
