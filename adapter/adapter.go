// Package adapter defines the alert-forwarding boundary.
//
// Adapters publish elevated daemon events to downstream systems.
// The notifier owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/radar/types"
)

// EventTypeAlert is the event_type of every AlertEvent.
const EventTypeAlert = "telemetry_alert"

// AlertEvent is the payload published for a forwarded daemon event.
type AlertEvent struct {
	ContractVersion string           `json:"contract_version" msgpack:"contract_version"`
	EventType       string           `json:"event_type" msgpack:"event_type"` // always "telemetry_alert"
	AlertID         string           `json:"alert_id" msgpack:"alert_id"`
	Endpoint        string           `json:"endpoint" msgpack:"endpoint"`
	Severity        string           `json:"severity" msgpack:"severity"` // INFO, WARNING, CRITICAL
	Text            string           `json:"text" msgpack:"text"`
	Timestamp       string           `json:"timestamp" msgpack:"timestamp"` // RFC 3339
	Detection       *types.Detection `json:"detection,omitempty" msgpack:"detection,omitempty"`
}

// NewAlertEvent builds the payload for ev. alertID must be unique per event.
func NewAlertEvent(alertID string, endpoint types.Endpoint, ev types.TelemetryEvent) *AlertEvent {
	return &AlertEvent{
		ContractVersion: types.AlertContractVersion,
		EventType:       EventTypeAlert,
		AlertID:         alertID,
		Endpoint:        endpoint.String(),
		Severity:        ev.Severity.String(),
		Text:            ev.Text,
		Timestamp:       ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Detection:       ev.Detection,
	}
}

// Adapter publishes alert events to a downstream system.
// Implementations must be safe for sequential use by one notifier.
type Adapter interface {
	// Publish sends an alert event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AlertEvent) error

	// Close releases adapter resources.
	Close() error
}
