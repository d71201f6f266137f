package types

import (
	"strings"
	"time"
)

// Severity is the classification tag assigned to a telemetry event.
type Severity int

// Severity levels, ordered from least to most severe.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AtLeast reports whether s is as severe as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// ParseSeverity parses a severity name (INFO, WARNING, CRITICAL), ignoring case.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToUpper(name) {
	case "INFO":
		return SeverityInfo, true
	case "WARNING", "WARN":
		return SeverityWarning, true
	case "CRITICAL":
		return SeverityCritical, true
	default:
		return SeverityInfo, false
	}
}

// TelemetryEvent is a classified daemon message.
// Events are values: once created they are not modified.
type TelemetryEvent struct {
	// Timestamp is the wall-clock capture time, assigned on receipt.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// Text is the raw message content.
	Text string `json:"text" yaml:"text"`
	// Severity is derived from literal markers in Text.
	Severity Severity `json:"severity" yaml:"severity"`
	// Detection is set when Text is a structured detection record.
	Detection *Detection `json:"detection,omitempty" yaml:"detection,omitempty"`
}

// Detection is the structured form of a daemon detection line:
//
//	{"type":"detection","score":N,"class":N,"type_str":"...","desc":"..."}
type Detection struct {
	Score       uint32 `json:"score" yaml:"score" msgpack:"score"`
	Class       int    `json:"class" yaml:"class" msgpack:"class"`
	Type        string `json:"type_str" yaml:"type_str" msgpack:"type_str"`
	Description string `json:"desc" yaml:"desc" msgpack:"desc"`
}

// ThreatLevel is the dashboard's aggregate threat indicator.
type ThreatLevel int

// Threat levels.
const (
	ThreatLow ThreatLevel = iota
	ThreatHigh
)

func (l ThreatLevel) String() string {
	if l == ThreatHigh {
		return "HIGH"
	}
	return "LOW"
}

// MarshalText renders the threat level name.
func (l ThreatLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
