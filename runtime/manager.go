package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/pithecene-io/radar/iox"
	"github.com/pithecene-io/radar/ipc"
	"github.com/pithecene-io/radar/log"
	"github.com/pithecene-io/radar/metrics"
	"github.com/pithecene-io/radar/types"
)

// DefaultRetryDelay is the fixed delay between connection attempts.
const DefaultRetryDelay = 2 * time.Second

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Endpoint is the daemon channel address (required).
	Endpoint types.Endpoint
	// Dialer opens the channel. If nil, uses ipc.LocalDialer.
	Dialer ipc.Dialer
	// Backoff yields the delay before each reconnect attempt. It is reset
	// after every successful connection. If nil, a constant
	// DefaultRetryDelay is used. A Stop value from the policy is treated as
	// DefaultRetryDelay: reconnection never gives up.
	Backoff backoff.BackOff
	// ReadBufferSize is the size of each channel read (default 4096).
	ReadBufferSize int
	// MaxPendingSize bounds an unterminated line. Zero means
	// ipc.DefaultMaxPendingSize; negative disables the bound.
	MaxPendingSize int
	// Logger is optional; nil disables logging.
	Logger *log.Logger
	// Collector is optional; all Collector methods are nil-safe.
	Collector *metrics.Collector
	// Clock overrides time for tests. If nil, uses the system clock.
	Clock Clock
}

// Manager owns the daemon connection lifecycle:
//
//	DISCONNECTED → CONNECTING → CONNECTED → DISCONNECTED → CONNECTING → ...
//
// Connect failures and mid-stream errors are retried indefinitely after the
// backoff delay. A graceful close by the daemon ends Run with ErrStreamEnded
// and is not retried.
//
// Consumers attach with Subscribe and receive Connected/Disconnected
// lifecycle signals and classified event signals in channel order.
type Manager struct {
	endpoint   types.Endpoint
	dialer     ipc.Dialer
	backoff    backoff.BackOff
	bufSize    int
	maxPending int
	logger     *log.Logger
	collector  *metrics.Collector
	clock      Clock

	fan     *fanout
	running atomic.Bool
}

// NewManager creates a Manager in the DISCONNECTED state.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("connection manager requires an endpoint")
	}
	if cfg.ReadBufferSize < 0 {
		return nil, fmt.Errorf("read buffer size must be >= 0, got %d", cfg.ReadBufferSize)
	}

	m := &Manager{
		endpoint:   cfg.Endpoint,
		dialer:     cfg.Dialer,
		backoff:    cfg.Backoff,
		bufSize:    cfg.ReadBufferSize,
		maxPending: cfg.MaxPendingSize,
		logger:     cfg.Logger,
		collector:  cfg.Collector,
		clock:      cfg.Clock,
		fan:        newFanout(),
	}
	if m.dialer == nil {
		m.dialer = ipc.LocalDialer{}
	}
	if m.backoff == nil {
		m.backoff = backoff.NewConstantBackOff(DefaultRetryDelay)
	}
	if m.bufSize == 0 {
		m.bufSize = DefaultReadBufferSize
	}
	switch {
	case m.maxPending == 0:
		m.maxPending = ipc.DefaultMaxPendingSize
	case m.maxPending < 0:
		m.maxPending = 0
	}
	if m.clock == nil {
		m.clock = systemClock{}
	}
	return m, nil
}

// ExponentialBackoff returns a reconnect policy that doubles the delay after
// each failure, starting at initial and capped at maxDelay, without jitter.
func ExponentialBackoff(initial, maxDelay time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Endpoint returns the configured daemon endpoint.
func (m *Manager) Endpoint() types.Endpoint {
	return m.endpoint
}

// State returns the current connection state.
func (m *Manager) State() types.ConnectionState {
	return m.fan.currentState()
}

// Subscribe attaches a consumer. The first signal delivered is a synthetic
// lifecycle signal for the current state (Connected if CONNECTED, otherwise
// Disconnected), so late subscribers never wait for a transition that
// already happened.
func (m *Manager) Subscribe() *Subscription {
	return m.fan.subscribe()
}

// Close detaches all subscribers. Each subscription channel closes after
// its queued signals are delivered. Call after Run has returned.
func (m *Manager) Close() {
	m.fan.closeAll()
}

// Start runs the manager in a new goroutine. The returned channel receives
// Run's result and is then closed.
func (m *Manager) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- m.Run(ctx)
	}()
	return done
}

// Run connects to the daemon and ingests its stream until ctx is canceled
// or the daemon closes the channel. Returns:
//   - nil: ctx was canceled (shutdown)
//   - an error wrapping ErrStreamEnded: graceful close by the daemon
//   - ErrAlreadyRunning: another Run is active
//
// No signal is delivered after ctx is canceled.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	m.backoff.Reset()
	m.fan.setState(types.StateConnecting)

	failures := 0
	for {
		if ctx.Err() != nil {
			return m.shutdown()
		}

		m.collector.IncConnectAttempt()
		conn, err := m.dialer.Dial(ctx, m.endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return m.shutdown()
			}
			failures++
			m.collector.IncConnectFailure()
			m.logConnectFailure(&ConnError{Kind: ConnErrorDial, Endpoint: m.endpoint, Err: err}, failures)
			if !m.wait(ctx) {
				return m.shutdown()
			}
			continue
		}
		failures = 0

		err = m.serve(ctx, conn)
		if ctx.Err() != nil {
			return m.shutdown()
		}
		if IsStreamEnd(err) {
			return err
		}

		// Transport error: same retry policy as a failed connect.
		m.fan.setState(types.StateConnecting)
		if !m.wait(ctx) {
			return m.shutdown()
		}
	}
}

// serve runs one connected session. The session's state transitions
// bracket the ingestion loop: CONNECTED on entry, DISCONNECTED on exit.
func (m *Manager) serve(ctx context.Context, conn io.ReadCloser) error {
	sessionID := uuid.NewString()
	logger := m.logger.WithSession(sessionID)

	// Closing the channel unblocks a pending Read on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer iox.DiscardClose(conn)

	m.backoff.Reset()
	m.collector.IncConnect()
	m.fan.transition(ctx, types.StateConnected)
	logger.Info("connected to daemon", nil)

	engine := newIngestionEngine(
		conn,
		ipc.NewLineFramer(m.maxPending),
		m.bufSize,
		m.fan,
		m.clock,
		m.endpoint,
		logger,
		m.collector,
	)
	err := engine.run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.fan.transition(ctx, types.StateDisconnected)
	switch {
	case IsStreamEnd(err):
		m.collector.IncStreamEnd()
		logger.Info("daemon closed the stream", nil)
	default:
		m.collector.IncTransportError()
		logger.Warn("daemon connection lost", map[string]any{
			"error": err.Error(),
		})
	}
	return err
}

// wait blocks for the next backoff delay. Returns false if ctx was
// canceled first; the pending timer is stopped.
func (m *Manager) wait(ctx context.Context) bool {
	d := m.backoff.NextBackOff()
	if d < 0 {
		d = DefaultRetryDelay
	}

	timer := m.clock.NewTimer(d)
	select {
	case <-timer.C():
		m.collector.IncReconnectWait()
		return true
	case <-ctx.Done():
		timer.Stop()
		return false
	}
}

// shutdown settles the state after cancellation without notifying anyone.
func (m *Manager) shutdown() error {
	m.fan.setState(types.StateDisconnected)
	m.logger.Debug("connection manager stopped", nil)
	return nil
}

// logConnectFailure reports the first failure of a streak at warn level and
// the rest at debug, since an absent daemon fails every retry.
func (m *Manager) logConnectFailure(err error, failures int) {
	fields := map[string]any{
		"error":    err.Error(),
		"failures": failures,
	}
	if failures == 1 {
		m.logger.Warn("daemon unreachable, retrying", fields)
		return
	}
	m.logger.Debug("daemon unreachable, retrying", fields)
}
