package types

import "runtime"

// Endpoint identifies the daemon's local IPC channel.
// On Windows it is a named pipe path; elsewhere a unix socket path.
type Endpoint string

// Default channel names used by the S.T.A.R. daemon.
const (
	DefaultPipeEndpoint   Endpoint = `\\.\pipe\star_daemon`
	DefaultSocketEndpoint Endpoint = "/tmp/star_daemon.sock"
)

// DefaultEndpoint returns the daemon endpoint for the current platform.
func DefaultEndpoint() Endpoint {
	if runtime.GOOS == "windows" {
		return DefaultPipeEndpoint
	}
	return DefaultSocketEndpoint
}

// String returns the endpoint address.
func (e Endpoint) String() string { return string(e) }

// ConnectionState is the lifecycle state of the daemon connection.
// The zero value is StateDisconnected.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name so it reads well in JSON and YAML output.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
