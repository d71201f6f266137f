package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pithecene-io/radar/classify"
	"github.com/pithecene-io/radar/ipc"
	"github.com/pithecene-io/radar/log"
	"github.com/pithecene-io/radar/metrics"
	"github.com/pithecene-io/radar/types"
)

// DefaultReadBufferSize matches the daemon's pipe buffer.
const DefaultReadBufferSize = 4096

// ingestionEngine reads one session's byte stream and turns it into event
// signals:
//   - Chunks are framed in arrival order
//   - Blank frames are discarded
//   - Every event of a chunk is broadcast before the next read
//   - Framing problems are logged and skipped, never fatal
type ingestionEngine struct {
	reader    io.Reader
	framer    *ipc.LineFramer
	buf       []byte
	fan       *fanout
	clock     Clock
	endpoint  types.Endpoint
	logger    *log.Logger
	collector *metrics.Collector
}

func newIngestionEngine(
	reader io.Reader,
	framer *ipc.LineFramer,
	bufSize int,
	fan *fanout,
	clock Clock,
	endpoint types.Endpoint,
	logger *log.Logger,
	collector *metrics.Collector,
) *ingestionEngine {
	return &ingestionEngine{
		reader:    reader,
		framer:    framer,
		buf:       make([]byte, bufSize),
		fan:       fan,
		clock:     clock,
		endpoint:  endpoint,
		logger:    logger,
		collector: collector,
	}
}

// run reads until the stream ends. Returns:
//   - *ConnError with Kind=ConnErrorStreamEnd: daemon closed its side
//   - *ConnError with Kind=ConnErrorTransport: read failed
func (e *ingestionEngine) run(ctx context.Context) error {
	for {
		n, err := e.reader.Read(e.buf)
		if n > 0 {
			e.collector.AddBytes(n)
			e.processChunk(ctx, e.buf[:n])
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			if pending := e.framer.Pending(); pending > 0 {
				e.logger.Debug("discarding unterminated line at stream end", map[string]any{
					"bytes": pending,
				})
			}
			return &ConnError{Kind: ConnErrorStreamEnd, Endpoint: e.endpoint, Err: ErrStreamEnded}
		}
		return &ConnError{Kind: ConnErrorTransport, Endpoint: e.endpoint, Err: fmt.Errorf("read: %w", err)}
	}
}

// processChunk frames, classifies, and broadcasts one chunk.
func (e *ingestionEngine) processChunk(ctx context.Context, chunk []byte) {
	frames, err := e.framer.Feed(chunk)
	if err != nil {
		var frameErr *ipc.FrameError
		if errors.As(err, &frameErr) {
			for range frameErr.Lines {
				e.collector.IncFrameOverflow()
			}
			e.logger.Warn("frame discarded", map[string]any{
				"error":     frameErr.Error(),
				"lines":     frameErr.Lines,
				"discarded": frameErr.Discarded,
			})
		}
	}

	for _, frame := range frames {
		blank := ipc.IsBlank(frame)
		e.collector.IncFrame(blank)
		if blank {
			continue
		}

		ev := classify.Classify(ipc.Text(frame), e.clock.Now())
		e.collector.IncEvent(ev.Severity.String())
		e.logger.Debug("daemon event", map[string]any{
			"severity": ev.Severity.String(),
			"text":     ev.Text,
		})
		e.fan.broadcast(ctx, types.EventSignal(ev))
	}
}
