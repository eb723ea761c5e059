package extract

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/fmv-telemetry/model"
)

// LoadSegments reads transcript segments from JSON. Both the wrapped form
// produced by transcription tooling ({"segments": [...]}) and a bare array
// are accepted.
func LoadSegments(r io.Reader) ([]model.ContentSegment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadSegments: read failed: %w", err)
	}

	var wrapper struct {
		Segments []model.ContentSegment `json:"segments"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Segments != nil {
		return wrapper.Segments, nil
	}

	var segments []model.ContentSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("LoadSegments: decode failed: %w", err)
	}
	return segments, nil
}
