// Package sink keeps the bounded telemetry history and the derived threat
// level for a display layer.
package sink

import (
	"context"
	"sync"

	"github.com/pithecene-io/radar/runtime"
	"github.com/pithecene-io/radar/types"
)

// DefaultCapacity is the number of events retained.
const DefaultCapacity = 100

// StateSource reports the live connection state. *runtime.Manager
// implements it.
type StateSource interface {
	State() types.ConnectionState
}

// Stats summarizes what the sink has accepted since creation.
type Stats struct {
	Appended int64 `json:"appended" yaml:"appended"`
	Evicted  int64 `json:"evicted" yaml:"evicted"`
	Info     int64 `json:"info" yaml:"info"`
	Warning  int64 `json:"warning" yaml:"warning"`
	Critical int64 `json:"critical" yaml:"critical"`
	Retained int   `json:"retained" yaml:"retained"`
}

// Option configures a Sink.
type Option func(*Sink)

// WithCapacity overrides DefaultCapacity. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// Sink is the consumer-side store of recent events.
//
// Invariants:
//   - history holds at most capacity events, oldest first
//   - ThreatLevel only moves LOW → HIGH, except through ResetThreat
//   - lifecycle signals are never appended
type Sink struct {
	source   StateSource
	capacity int

	mu      sync.RWMutex
	history []types.TelemetryEvent
	threat  types.ThreatLevel
	online  bool
	stats   Stats
}

// New creates an empty Sink with ThreatLow. source may be nil, in which
// case LatestState reports DISCONNECTED.
func New(source StateSource, opts ...Option) *Sink {
	s := &Sink{
		source:   source,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = make([]types.TelemetryEvent, 0, s.capacity)
	return s
}

// Append stores ev, evicting the oldest event when full. A CRITICAL event
// raises the threat level to HIGH.
func (s *Sink) Append(ev types.TelemetryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == s.capacity {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
		s.stats.Evicted++
	}
	s.history = append(s.history, ev)
	s.stats.Appended++

	switch ev.Severity {
	case types.SeverityCritical:
		s.stats.Critical++
		s.threat = types.ThreatHigh
	case types.SeverityWarning:
		s.stats.Warning++
	default:
		s.stats.Info++
	}
}

// LatestState returns the connection state reported by the source.
func (s *Sink) LatestState() types.ConnectionState {
	if s.source == nil {
		return types.StateDisconnected
	}
	return s.source.State()
}

// Snapshot returns a copy of the history, oldest first.
func (s *Sink) Snapshot() []types.TelemetryEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.TelemetryEvent, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of retained events.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// ThreatLevel returns the current threat level.
func (s *Sink) ThreatLevel() types.ThreatLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threat
}

// ResetThreat lowers the threat level to LOW. Ingestion never calls it;
// it exists for an operator acknowledging the alert.
func (s *Sink) ResetThreat() {
	s.mu.Lock()
	s.threat = types.ThreatLow
	s.mu.Unlock()
}

// Online reports the last lifecycle signal seen by Consume.
func (s *Sink) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// Stats returns the running counters.
func (s *Sink) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Retained = len(s.history)
	return st
}

// Observe applies one signal: events are appended, lifecycle signals only
// update Online.
func (s *Sink) Observe(sig types.Signal) {
	switch sig.Kind {
	case types.SignalEvent:
		if sig.Event != nil {
			s.Append(*sig.Event)
		}
	case types.SignalConnected, types.SignalDisconnected:
		s.mu.Lock()
		s.online = sig.Kind == types.SignalConnected
		s.mu.Unlock()
	}
}

// Consume applies signals from sub until ctx is canceled or sub is closed.
func (s *Sink) Consume(ctx context.Context, sub *runtime.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sub.C():
			if !ok {
				return
			}
			s.Observe(sig)
		}
	}
}
