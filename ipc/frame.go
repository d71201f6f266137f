// Package ipc implements the client side of the daemon channel: dialing the
// endpoint and framing its newline-delimited text stream.
package ipc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Framing constants for the daemon line protocol.
const (
	// Terminator ends every message on the wire.
	Terminator = '\n'
	// DefaultMaxPendingSize bounds the length of a single line (1 MiB).
	DefaultMaxPendingSize = 1024 * 1024
)

// RawFrame is one terminator-delimited message, without the terminator.
type RawFrame []byte

// FrameErrorKind classifies framing errors.
type FrameErrorKind int

const (
	// FrameErrorOverflow indicates a line exceeded the configured limit and
	// was discarded up to and including its terminator.
	FrameErrorOverflow FrameErrorKind = iota
)

// FrameError represents a framing error. Framing errors are never fatal:
// the framer discards the offending line and keeps accepting input.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	// Lines is the number of lines that started overflowing during the call.
	Lines int
	// Discarded is the number of bytes dropped when those overflows were
	// detected. The rest of each line is dropped as it arrives.
	Discarded int
}

func (e *FrameError) Error() string {
	return e.Msg
}

// IsOverflow returns true if err is a pending-buffer overflow.
func IsOverflow(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.Kind == FrameErrorOverflow
	}
	return false
}

// LineFramer accumulates byte chunks and splits them into complete lines.
// Chunks need not align with line boundaries: the frames produced depend only
// on the byte stream, never on how it was split into reads. A LineFramer is
// not safe for concurrent use; one framer serves one connection.
type LineFramer struct {
	pending    []byte
	maxPending int
	// discarding is set while the remainder of an over-long line is dropped.
	discarding bool
}

// NewLineFramer creates a framer that accepts lines of at most maxPending
// bytes, terminator excluded. maxPending <= 0 disables the limit.
func NewLineFramer(maxPending int) *LineFramer {
	return &LineFramer{maxPending: maxPending}
}

// Feed appends chunk to the pending buffer and returns every complete frame
// in arrival order. Bytes after the last terminator are retained for the
// next call. A trailing '\r' is stripped from each frame.
//
// Feed is total. A line longer than the limit is never framed: its bytes are
// dropped up to and including the next terminator, and Feed returns a
// *FrameError (Kind=FrameErrorOverflow) alongside the frames that were
// complete. The framer keeps accepting input.
func (f *LineFramer) Feed(chunk []byte) ([]RawFrame, error) {
	var (
		frames   []RawFrame
		overflow *FrameError
	)
	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, Terminator)

		if f.discarding {
			if idx < 0 {
				break
			}
			f.discarding = false
			chunk = chunk[idx+1:]
			continue
		}

		segment := chunk
		if idx >= 0 {
			segment = chunk[:idx]
		}

		if f.maxPending > 0 && len(f.pending)+len(segment) > f.maxPending {
			if overflow == nil {
				overflow = &FrameError{Kind: FrameErrorOverflow}
			}
			overflow.Lines++
			overflow.Discarded += len(f.pending) + len(segment)
			f.pending = f.pending[:0]
			if idx < 0 {
				f.discarding = true
				break
			}
			chunk = chunk[idx+1:]
			continue
		}

		if idx < 0 {
			f.pending = append(f.pending, segment...)
			break
		}

		frame := make(RawFrame, 0, len(f.pending)+len(segment))
		frame = append(frame, f.pending...)
		frame = append(frame, segment...)
		frame = bytes.TrimSuffix(frame, []byte{'\r'})
		frames = append(frames, frame)
		f.pending = f.pending[:0]
		chunk = chunk[idx+1:]
	}

	if overflow != nil {
		overflow.Msg = fmt.Sprintf("%d line(s) exceed %d bytes, discarded %d bytes",
			overflow.Lines, f.maxPending, overflow.Discarded)
		return frames, overflow
	}
	return frames, nil
}

// Pending returns the number of buffered bytes awaiting a terminator.
func (f *LineFramer) Pending() int {
	return len(f.pending)
}

// Reset drops any buffered partial line.
func (f *LineFramer) Reset() {
	f.pending = f.pending[:0]
	f.discarding = false
}

// IsBlank reports whether the frame is empty or whitespace only.
// Blank frames never produce telemetry events.
func IsBlank(frame RawFrame) bool {
	return len(bytes.TrimSpace(frame)) == 0
}

// Text converts a frame to a string, replacing invalid UTF-8 sequences with
// U+FFFD so malformed bytes pass through as opaque text.
func Text(frame RawFrame) string {
	return strings.ToValidUTF8(string(frame), "�")
}
