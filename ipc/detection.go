package ipc

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/pithecene-io/radar/types"
)

// DetectionType is the type discriminant of structured detection lines.
const DetectionType = "detection"

// DecodeDetection extracts a detection record from a daemon JSON line.
// Returns false for free-form text, invalid JSON, or JSON of another type.
func DecodeDetection(text string) (*types.Detection, bool) {
	if len(text) == 0 || text[0] != '{' || !gjson.Valid(text) {
		return nil, false
	}

	fields := gjson.GetMany(text, "type", "score", "class", "type_str", "desc")
	if fields[0].String() != DetectionType {
		return nil, false
	}

	return &types.Detection{
		Score:       clampScore(fields[1]),
		Class:       int(fields[2].Int()),
		Type:        fields[3].String(),
		Description: fields[4].String(),
	}, true
}

// clampScore bounds the score to the uint32 range instead of wrapping.
func clampScore(v gjson.Result) uint32 {
	switch f := v.Float(); {
	case f <= 0:
		return 0
	case f >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v.Uint())
}
