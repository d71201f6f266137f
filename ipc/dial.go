package ipc

import (
	"context"
	"io"
	"time"

	"github.com/pithecene-io/radar/types"
)

// DefaultDialTimeout bounds a single connection attempt.
const DefaultDialTimeout = 5 * time.Second

// Dialer opens the daemon channel.
type Dialer interface {
	// Dial connects to endpoint. The returned stream is read until EOF;
	// Close releases the channel and unblocks a pending Read.
	Dial(ctx context.Context, endpoint types.Endpoint) (io.ReadCloser, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, endpoint types.Endpoint) (io.ReadCloser, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, endpoint types.Endpoint) (io.ReadCloser, error) {
	return f(ctx, endpoint)
}

// LocalDialer dials the platform's local IPC transport: named pipes on
// Windows, unix domain sockets elsewhere.
type LocalDialer struct {
	// Timeout bounds each attempt. Zero means DefaultDialTimeout.
	Timeout time.Duration
}

// Dial connects to the endpoint using the platform transport.
func (d LocalDialer) Dial(ctx context.Context, endpoint types.Endpoint) (io.ReadCloser, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return dialLocal(dialCtx, endpoint)
}
