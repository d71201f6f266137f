//go:build windows

package ipc

import (
	"context"
	"fmt"
	"io"

	"github.com/Microsoft/go-winio"

	"github.com/pithecene-io/radar/types"
)

func dialLocal(ctx context.Context, endpoint types.Endpoint) (io.ReadCloser, error) {
	conn, err := winio.DialPipeContext(ctx, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("dial named pipe %s: %w", endpoint, err)
	}
	return conn, nil
}
