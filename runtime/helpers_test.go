package runtime

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/radar/types"
)

const signalWait = 2 * time.Second

// fakeClock hands every timer to the test, which decides when it fires.
type fakeClock struct {
	now    time.Time
	timers chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		timers: make(chan *fakeTimer, 64),
	}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	tm := &fakeTimer{d: d, c: make(chan time.Time, 1)}
	c.timers <- tm
	return tm
}

// nextTimer waits for the manager to arm a timer.
func (c *fakeClock) nextTimer(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case tm := <-c.timers:
		return tm
	case <-time.After(signalWait):
		t.Fatal("timed out waiting for reconnect timer")
		return nil
	}
}

type fakeTimer struct {
	d time.Duration
	c chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() { t.c <- time.Time{} }

// dialResult is one scripted outcome of Dial.
type dialResult struct {
	conn io.ReadCloser
	err  error
}

// scriptedDialer returns results in order. Once the script is exhausted,
// Dial blocks until ctx is canceled.
type scriptedDialer struct {
	mu     sync.Mutex
	script []dialResult
	calls  int
	dialed chan struct{}
}

func newScriptedDialer(script ...dialResult) *scriptedDialer {
	return &scriptedDialer{script: script, dialed: make(chan struct{}, 64)}
}

func (d *scriptedDialer) Dial(ctx context.Context, _ types.Endpoint) (io.ReadCloser, error) {
	d.mu.Lock()
	d.calls++
	var next *dialResult
	if len(d.script) > 0 {
		next = &d.script[0]
		d.script = d.script[1:]
	}
	d.mu.Unlock()

	select {
	case d.dialed <- struct{}{}:
	default:
	}

	if next == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return next.conn, next.err
}

func (d *scriptedDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *scriptedDialer) waitDial(t *testing.T) {
	t.Helper()
	select {
	case <-d.dialed:
	case <-time.After(signalWait):
		t.Fatal("timed out waiting for dial")
	}
}

// pipeConn is an in-memory daemon channel. The test writes as the daemon.
type pipeConn struct {
	*io.PipeReader
	w *io.PipeWriter
}

func newPipeConn() *pipeConn {
	r, w := io.Pipe()
	return &pipeConn{PipeReader: r, w: w}
}

// send writes daemon output from a goroutine; io.Pipe writes block until read.
func (p *pipeConn) send(chunks ...string) {
	go func() {
		for _, c := range chunks {
			if _, err := p.w.Write([]byte(c)); err != nil {
				return
			}
		}
	}()
}

func nextSignal(t *testing.T, sub *Subscription) types.Signal {
	t.Helper()
	select {
	case sig, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return sig
	case <-time.After(signalWait):
		t.Fatal("timed out waiting for signal")
		return types.Signal{}
	}
}

func expectSignal(t *testing.T, sub *Subscription, kind types.SignalKind, text string) types.Signal {
	t.Helper()
	sig := nextSignal(t, sub)
	if sig.Kind != kind {
		t.Fatalf("signal kind = %v (%q), want %v", sig.Kind, sig.String(), kind)
	}
	if text != "" && sig.String() != text {
		t.Fatalf("signal = %q, want %q", sig.String(), text)
	}
	return sig
}

func expectNoSignal(t *testing.T, sub *Subscription, within time.Duration) {
	t.Helper()
	select {
	case sig, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected signal %q", sig.String())
		}
	case <-time.After(within):
	}
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(signalWait):
		t.Fatal("timed out waiting for Run to return")
		return nil
	}
}
