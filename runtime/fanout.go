package runtime

import (
	"context"
	"sync"

	"github.com/pithecene-io/radar/types"
)

// fanout owns the connection state and the set of subscribers.
//
// State changes and broadcasts happen under one mutex, and a new subscriber
// receives its handshake signal under the same mutex, so every subscriber
// observes exactly one consistent sequence of lifecycle signals: no
// duplicate Connected for a session it attached to late, and no missed one.
type fanout struct {
	mu    sync.Mutex
	state types.ConnectionState
	subs  map[*Subscription]struct{}
}

func newFanout() *fanout {
	return &fanout{subs: make(map[*Subscription]struct{})}
}

func (f *fanout) currentState() types.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// setState changes state without notifying subscribers.
// CONNECTING has no lifecycle signal of its own.
func (f *fanout) setState(state types.ConnectionState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

// transition changes state and broadcasts the matching lifecycle signal.
// After ctx is canceled the state still changes but nothing is delivered.
func (f *fanout) transition(ctx context.Context, state types.ConnectionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	if ctx.Err() != nil {
		return
	}
	sig := types.LifecycleSignal(state, false)
	for sub := range f.subs {
		sub.push(sig)
	}
}

// broadcast delivers sig to every subscriber unless ctx is canceled.
func (f *fanout) broadcast(ctx context.Context, sig types.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	for sub := range f.subs {
		sub.push(sig)
	}
}

// subscribe registers a new subscriber and enqueues the handshake signal
// reflecting the current state before any later broadcast.
func (f *fanout) subscribe() *Subscription {
	sub := newSubscription(f)
	f.mu.Lock()
	sub.push(types.LifecycleSignal(f.state, true))
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	go sub.pump()
	return sub
}

// requestStatus enqueues a synthetic lifecycle signal for one subscriber.
func (f *fanout) requestStatus(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	sub.push(types.LifecycleSignal(f.state, true))
}

func (f *fanout) remove(sub *Subscription) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

// closeAll detaches every subscriber. Each channel closes once the
// signals already queued for it are delivered.
func (f *fanout) closeAll() {
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
		delete(f.subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.drain()
	}
}

// Subscription is one consumer's view of the signal stream.
//
// Signals are queued without blocking the I/O loop and delivered on C in
// broadcast order. The queue is unbounded; consumers must keep draining C
// until they Close the subscription.
type Subscription struct {
	fan *fanout
	out chan types.Signal

	mu       sync.Mutex
	queue    []types.Signal
	draining bool
	wake     chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newSubscription(f *fanout) *Subscription {
	return &Subscription{
		fan:  f,
		out:  make(chan types.Signal),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// C returns the signal channel. It is closed after Close.
func (s *Subscription) C() <-chan types.Signal {
	return s.out
}

// RequestStatus asks for a synthetic lifecycle signal reflecting the current
// connection state, delivered in order with other signals.
func (s *Subscription) RequestStatus() {
	s.fan.requestStatus(s)
}

// Close detaches the subscription. Undelivered signals are discarded.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.fan.remove(s)
		close(s.done)
	})
}

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// drain stops accepting signals; the pump exits after delivering the queue.
func (s *Subscription) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// push enqueues sig. Never blocks.
func (s *Subscription) push(sig types.Signal) {
	s.mu.Lock()
	s.queue = append(s.queue, sig)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued signals to out until the subscription is closed or
// drained.
func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			draining := s.draining
			s.mu.Unlock()
			if draining {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		sig := s.queue[0]
		s.queue[0] = types.Signal{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- sig:
		case <-s.done:
			return
		}
	}
}
