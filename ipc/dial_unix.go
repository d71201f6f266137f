//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/pithecene-io/radar/types"
)

func dialLocal(ctx context.Context, endpoint types.Endpoint) (io.ReadCloser, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("dial unix socket %s: %w", endpoint, err)
	}
	return conn, nil
}
