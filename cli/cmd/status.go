package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/radar/cli/render"
	"github.com/pithecene-io/radar/ipc"
	"github.com/pithecene-io/radar/log"
	"github.com/pithecene-io/radar/runtime"
	"github.com/pithecene-io/radar/types"
)

// DefaultStatusTimeout bounds the status check.
const DefaultStatusTimeout = 5 * time.Second

// StatusResponse is the response for the status command.
type StatusResponse struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	State     string `json:"state" yaml:"state"`
	Message   string `json:"message" yaml:"message"`
	Reachable bool   `json:"reachable" yaml:"reachable"`
	CheckedAt string `json:"checked_at" yaml:"checked_at"`
}

// StatusCommand returns the status command.
// It attaches to the daemon once and reports the handshake result.
func StatusCommand() *cli.Command {
	flags := append(ConnectionFlags(), OutputFlags()...)
	flags = append(flags, &cli.DurationFlag{
		Name:  "timeout",
		Usage: "How long to wait for the daemon",
		Value: DefaultStatusTimeout,
	})

	return &cli.Command{
		Name:   "status",
		Usage:  "Report whether the daemon is reachable",
		Flags:  flags,
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	level, err := log.ParseLevel(resolveLogLevel(c, cfg))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid log level: %v", err), exitConfigError)
	}

	endpoint := resolveEndpoint(c, cfg)
	logger := log.NewLogger(endpoint, log.Options{Level: level, Output: os.Stderr})

	resp, err := checkStatus(c.Context, endpoint, nil, c.Duration("timeout"), logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if err := r.Render(resp); err != nil {
		return err
	}
	if !resp.Reachable {
		return cli.Exit("", exitUnreachable)
	}
	return nil
}

// checkStatus attaches to a fresh manager, makes one dial attempt bounded by
// timeout, then asks for the current status through the handshake.
func checkStatus(
	ctx context.Context,
	endpoint types.Endpoint,
	dialer ipc.Dialer,
	timeout time.Duration,
	logger *log.Logger,
) (StatusResponse, error) {
	if timeout <= 0 {
		timeout = DefaultStatusTimeout
	}
	manager, err := runtime.NewManager(runtime.ManagerConfig{
		Endpoint: endpoint,
		Dialer:   dialer,
		Backoff:  statusBackoff(timeout),
		Logger:   logger,
	})
	if err != nil {
		return StatusResponse{}, err
	}

	sub := manager.Subscribe()
	defer sub.Close()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := manager.Start(runCtx)

	last := types.LifecycleSignal(types.StateDisconnected, true)
	connected := false
wait:
	for {
		select {
		case sig, ok := <-sub.C():
			if !ok {
				break wait
			}
			if !sig.IsLifecycle() {
				continue
			}
			last = sig
			if sig.Kind == types.SignalConnected && !connected {
				// Report the state through the status handshake.
				connected = true
				sub.RequestStatus()
				continue
			}
			if sig.Synthetic && connected {
				break wait
			}
		case err := <-done:
			// The daemon closed the stream before the status reply.
			if err != nil && !runtime.IsStreamEnd(err) {
				return StatusResponse{}, err
			}
			done = nil
			if !connected {
				break wait
			}
		case <-runCtx.Done():
			break wait
		}
	}

	cancel()
	if done != nil {
		<-done
	}

	return StatusResponse{
		Endpoint:  endpoint.String(),
		State:     stateOf(last).String(),
		Message:   last.String(),
		Reachable: last.Kind == types.SignalConnected,
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// statusBackoff delays any second dial past the status timeout, so the
// manager dials exactly once.
func statusBackoff(timeout time.Duration) backoff.BackOff {
	return backoff.NewConstantBackOff(timeout + time.Second)
}

func stateOf(sig types.Signal) types.ConnectionState {
	if sig.Kind == types.SignalConnected {
		return types.StateConnected
	}
	return types.StateDisconnected
}
