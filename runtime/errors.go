package runtime

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/radar/types"
)

// ErrStreamEnded is returned by Manager.Run when the daemon closed its side
// of the channel. No reconnect is attempted; the caller decides whether to
// run the manager again.
var ErrStreamEnded = errors.New("daemon closed the stream")

// ErrAlreadyRunning is returned when Run is called while another Run is active.
var ErrAlreadyRunning = errors.New("connection manager already running")

// ConnErrorKind classifies connection errors.
type ConnErrorKind int

const (
	// ConnErrorDial indicates the endpoint could not be opened (daemon absent).
	ConnErrorDial ConnErrorKind = iota
	// ConnErrorTransport indicates a mid-stream I/O failure.
	ConnErrorTransport
	// ConnErrorStreamEnd indicates a graceful close by the daemon.
	ConnErrorStreamEnd
)

func (k ConnErrorKind) String() string {
	switch k {
	case ConnErrorDial:
		return "dial"
	case ConnErrorTransport:
		return "transport"
	case ConnErrorStreamEnd:
		return "stream_end"
	default:
		return "unknown"
	}
}

// ConnError describes why a connection attempt or session ended.
// None of these are fatal to the process.
type ConnError struct {
	Kind     ConnErrorKind
	Endpoint types.Endpoint
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Endpoint, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

func connErrorKind(err error) (ConnErrorKind, bool) {
	var connErr *ConnError
	if errors.As(err, &connErr) {
		return connErr.Kind, true
	}
	return 0, false
}

// IsDialError returns true if err is a failed connection attempt.
func IsDialError(err error) bool {
	kind, ok := connErrorKind(err)
	return ok && kind == ConnErrorDial
}

// IsTransportError returns true if err is a mid-stream I/O failure.
func IsTransportError(err error) bool {
	kind, ok := connErrorKind(err)
	return ok && kind == ConnErrorTransport
}

// IsStreamEnd returns true if err is a graceful close by the daemon.
func IsStreamEnd(err error) bool {
	kind, ok := connErrorKind(err)
	return ok && kind == ConnErrorStreamEnd
}
