package ipc

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"testing/iotest"
)

// buildLineStream returns n daemon lines: mostly free-form text with an
// occasional alert and detection record.
func buildLineStream(b *testing.B, n int) []byte {
	b.Helper()
	var buf bytes.Buffer
	for i := range n {
		switch {
		case i%50 == 0:
			fmt.Fprintf(&buf, `{"type":"detection","score":%d,"class":3,"type_str":"Trojan","desc":"sample %d"}`+"\n", 80+i%20, i)
		case i%10 == 0:
			fmt.Fprintf(&buf, "[ALERT] suspicious handle on pid %d\n", 1000+i)
		default:
			fmt.Fprintf(&buf, "scan tick %d: 42 files, 0 findings\n", i)
		}
	}
	return buf.Bytes()
}

// feedFrom drains r through a framer using buf-sized reads.
func feedFrom(b *testing.B, r io.Reader, buf []byte) int {
	b.Helper()
	framer := NewLineFramer(DefaultMaxPendingSize)
	frames := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out, ferr := framer.Feed(buf[:n])
			if ferr != nil {
				b.Fatal(ferr)
			}
			frames += len(out)
		}
		if err == io.EOF {
			return frames
		}
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFeed_DefaultReads measures framing with the ingestion engine's
// default 4 KiB read size.
func BenchmarkFeed_DefaultReads(b *testing.B) {
	data := buildLineStream(b, 1000)
	buf := make([]byte, 4096)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		if got := feedFrom(b, bytes.NewReader(data), buf); got != 1000 {
			b.Fatalf("frames = %d, want 1000", got)
		}
	}
}

// BenchmarkFeed_OneByteReader measures worst-case small reads
// (e.g., a pipe returning 1 byte per read).
func BenchmarkFeed_OneByteReader(b *testing.B) {
	data := buildLineStream(b, 100)
	buf := make([]byte, 4096)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		if got := feedFrom(b, iotest.OneByteReader(bytes.NewReader(data)), buf); got != 100 {
			b.Fatalf("frames = %d, want 100", got)
		}
	}
}

// BenchmarkDecodeDetection compares the structured and free-form paths.
func BenchmarkDecodeDetection(b *testing.B) {
	cases := map[string]string{
		"detection":  `{"type":"detection","score":97,"class":3,"type_str":"Trojan","desc":"dropper"}`,
		"free_text":  "scan tick 17: 42 files, 0 findings",
		"other_json": `{"type":"heartbeat","seq":17}`,
	}
	for name, line := range cases {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				_, _ = DecodeDetection(line)
			}
		})
	}
}
