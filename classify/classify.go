// Package classify assigns severities to daemon messages.
//
// Classification is a pure function of the message text: literal,
// case-sensitive substring markers decide the severity, checked in order
// of precedence.
package classify

import (
	"strings"
	"time"

	"github.com/pithecene-io/radar/ipc"
	"github.com/pithecene-io/radar/types"
)

// Protocol markers emitted by the daemon.
const (
	AlertMarker      = "[ALERT]"
	SuspiciousMarker = "Suspicious"
)

// Severity returns the severity for text.
// AlertMarker wins over SuspiciousMarker when both appear.
func Severity(text string) types.Severity {
	switch {
	case strings.Contains(text, AlertMarker):
		return types.SeverityCritical
	case strings.Contains(text, SuspiciousMarker):
		return types.SeverityWarning
	default:
		return types.SeverityInfo
	}
}

// Classify builds a TelemetryEvent for text captured at the given time.
// Structured detection lines additionally carry their decoded fields; the
// severity is still decided by the text markers alone.
func Classify(text string, at time.Time) types.TelemetryEvent {
	ev := types.TelemetryEvent{
		Timestamp: at,
		Text:      text,
		Severity:  Severity(text),
	}
	if det, ok := ipc.DecodeDetection(text); ok {
		ev.Detection = det
	}
	return ev
}

// IsLifecycle reports whether a raw push-interface string is a lifecycle
// message rather than telemetry. Consumers of the string interface use it to
// keep lifecycle messages out of history.
func IsLifecycle(text string) bool {
	return text == types.ConnectedMessage || text == types.DisconnectedMessage
}
