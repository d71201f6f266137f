package types

// Lifecycle strings delivered to consumers of the raw string interface.
const (
	ConnectedMessage    = "System Connected"
	DisconnectedMessage = "Disconnected"
)

// SignalKind discriminates control-plane lifecycle signals from data.
type SignalKind int

// Signal kinds.
const (
	SignalEvent SignalKind = iota
	SignalConnected
	SignalDisconnected
)

func (k SignalKind) String() string {
	switch k {
	case SignalConnected:
		return "connected"
	case SignalDisconnected:
		return "disconnected"
	default:
		return "event"
	}
}

// MarshalText renders the signal kind name.
func (k SignalKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Signal is one entry in the push stream delivered to consumers.
// Lifecycle signals carry no Event and must not enter event history.
type Signal struct {
	Kind SignalKind `json:"kind" yaml:"kind"`
	// Event is set only for SignalEvent.
	Event *TelemetryEvent `json:"event,omitempty" yaml:"event,omitempty"`
	// Synthetic marks lifecycle signals produced by the status handshake
	// rather than by a real transition.
	Synthetic bool `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// IsLifecycle reports whether the signal is Connected or Disconnected.
func (s Signal) IsLifecycle() bool {
	return s.Kind == SignalConnected || s.Kind == SignalDisconnected
}

// String returns the wire-level string for the signal: the lifecycle
// message for control signals, the raw text for events.
func (s Signal) String() string {
	switch s.Kind {
	case SignalConnected:
		return ConnectedMessage
	case SignalDisconnected:
		return DisconnectedMessage
	default:
		if s.Event == nil {
			return ""
		}
		return s.Event.Text
	}
}

// LifecycleSignal returns the lifecycle signal reflecting state:
// Connected when state is StateConnected, Disconnected otherwise.
func LifecycleSignal(state ConnectionState, synthetic bool) Signal {
	kind := SignalDisconnected
	if state == StateConnected {
		kind = SignalConnected
	}
	return Signal{Kind: kind, Synthetic: synthetic}
}

// EventSignal wraps a telemetry event as a data signal.
func EventSignal(ev TelemetryEvent) Signal {
	return Signal{Kind: SignalEvent, Event: &ev}
}
