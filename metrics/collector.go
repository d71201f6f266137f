// Package metrics provides pipeline counters for the daemon connection.
//
// The Collector accumulates counters for the life of the process. It is a
// leaf package; the Prometheus exporter reads Collector snapshots and holds
// no state of its own.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all pipeline metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Connection lifecycle
	ConnectAttempts  int64
	ConnectFailures  int64
	Connects         int64
	StreamEnds       int64
	TransportErrors  int64
	ReconnectsWaited int64

	// Framing
	BytesReceived  int64
	FramesReceived int64
	FramesBlank    int64
	FrameOverflows int64

	// Classification
	EventsInfo     int64
	EventsWarning  int64
	EventsCritical int64

	// Dimensions (informational, set at construction)
	Endpoint string
}

// EventsTotal returns the number of classified events across severities.
func (s Snapshot) EventsTotal() int64 {
	return s.EventsInfo + s.EventsWarning + s.EventsCritical
}

// Collector accumulates pipeline metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	connectAttempts  int64
	connectFailures  int64
	connects         int64
	streamEnds       int64
	transportErrors  int64
	reconnectsWaited int64

	bytesReceived  int64
	framesReceived int64
	framesBlank    int64
	frameOverflows int64

	eventsInfo     int64
	eventsWarning  int64
	eventsCritical int64

	endpoint string
}

// NewCollector creates a Collector labelled with the daemon endpoint.
func NewCollector(endpoint string) *Collector {
	return &Collector{endpoint: endpoint}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Connection lifecycle ---

// IncConnectAttempt records a dial attempt.
func (c *Collector) IncConnectAttempt() {
	if c == nil {
		return
	}
	c.add(&c.connectAttempts, 1)
}

// IncConnectFailure records a failed dial (daemon absent or unreachable).
func (c *Collector) IncConnectFailure() {
	if c == nil {
		return
	}
	c.add(&c.connectFailures, 1)
}

// IncConnect records an established session.
func (c *Collector) IncConnect() {
	if c == nil {
		return
	}
	c.add(&c.connects, 1)
}

// IncStreamEnd records a graceful close by the daemon.
func (c *Collector) IncStreamEnd() {
	if c == nil {
		return
	}
	c.add(&c.streamEnds, 1)
}

// IncTransportError records a mid-stream I/O failure.
func (c *Collector) IncTransportError() {
	if c == nil {
		return
	}
	c.add(&c.transportErrors, 1)
}

// IncReconnectWait records one completed reconnect delay.
func (c *Collector) IncReconnectWait() {
	if c == nil {
		return
	}
	c.add(&c.reconnectsWaited, 1)
}

// --- Framing ---

// AddBytes records bytes read from the channel.
func (c *Collector) AddBytes(n int) {
	if c == nil {
		return
	}
	c.add(&c.bytesReceived, int64(n))
}

// IncFrame records a framed message. Blank frames are counted separately
// and never produce events.
func (c *Collector) IncFrame(blank bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesReceived++
	if blank {
		c.framesBlank++
	}
	c.mu.Unlock()
}

// IncFrameOverflow records an over-long line discarded by the framer.
func (c *Collector) IncFrameOverflow() {
	if c == nil {
		return
	}
	c.add(&c.frameOverflows, 1)
}

// --- Classification ---

// IncEvent records a classified event by severity name (INFO, WARNING, CRITICAL).
// The string form keeps this package free of dependencies on the types package.
func (c *Collector) IncEvent(severity string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	switch severity {
	case "CRITICAL":
		c.eventsCritical++
	case "WARNING":
		c.eventsWarning++
	default:
		c.eventsInfo++
	}
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ConnectAttempts:  c.connectAttempts,
		ConnectFailures:  c.connectFailures,
		Connects:         c.connects,
		StreamEnds:       c.streamEnds,
		TransportErrors:  c.transportErrors,
		ReconnectsWaited: c.reconnectsWaited,

		BytesReceived:  c.bytesReceived,
		FramesReceived: c.framesReceived,
		FramesBlank:    c.framesBlank,
		FrameOverflows: c.frameOverflows,

		EventsInfo:     c.eventsInfo,
		EventsWarning:  c.eventsWarning,
		EventsCritical: c.eventsCritical,

		Endpoint: c.endpoint,
	}
}
