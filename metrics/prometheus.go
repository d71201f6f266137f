package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "radar"

// Exporter exposes a Collector to Prometheus.
// Values are read from Collector.Snapshot at scrape time.
type Exporter struct {
	collector *Collector

	connectAttempts  *prometheus.Desc
	connectFailures  *prometheus.Desc
	connects         *prometheus.Desc
	streamEnds       *prometheus.Desc
	transportErrors  *prometheus.Desc
	reconnectsWaited *prometheus.Desc
	bytesReceived    *prometheus.Desc
	framesReceived   *prometheus.Desc
	framesBlank      *prometheus.Desc
	frameOverflows   *prometheus.Desc
	events           *prometheus.Desc
}

// NewExporter creates an Exporter reading from c.
func NewExporter(c *Collector) *Exporter {
	labels := prometheus.Labels{"endpoint": c.Snapshot().Endpoint}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, labels)
	}
	return &Exporter{
		collector:        c,
		connectAttempts:  desc("connect_attempts_total", "Dial attempts against the daemon channel."),
		connectFailures:  desc("connect_failures_total", "Dial attempts that failed."),
		connects:         desc("connects_total", "Sessions established."),
		streamEnds:       desc("stream_ends_total", "Sessions closed gracefully by the daemon."),
		transportErrors:  desc("transport_errors_total", "Sessions lost to mid-stream I/O errors."),
		reconnectsWaited: desc("reconnect_waits_total", "Reconnect delays completed."),
		bytesReceived:    desc("bytes_received_total", "Bytes read from the daemon channel."),
		framesReceived:   desc("frames_received_total", "Lines framed from the stream, blank lines included."),
		framesBlank:      desc("frames_blank_total", "Blank lines discarded before classification."),
		frameOverflows:   desc("frame_overflows_total", "Lines discarded for exceeding the line length limit."),
		events:           desc("events_total", "Classified telemetry events.", "severity"),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.connectAttempts
	ch <- e.connectFailures
	ch <- e.connects
	ch <- e.streamEnds
	ch <- e.transportErrors
	ch <- e.reconnectsWaited
	ch <- e.bytesReceived
	ch <- e.framesReceived
	ch <- e.framesBlank
	ch <- e.frameOverflows
	ch <- e.events
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.collector.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(e.connectAttempts, s.ConnectAttempts)
	counter(e.connectFailures, s.ConnectFailures)
	counter(e.connects, s.Connects)
	counter(e.streamEnds, s.StreamEnds)
	counter(e.transportErrors, s.TransportErrors)
	counter(e.reconnectsWaited, s.ReconnectsWaited)
	counter(e.bytesReceived, s.BytesReceived)
	counter(e.framesReceived, s.FramesReceived)
	counter(e.framesBlank, s.FramesBlank)
	counter(e.frameOverflows, s.FrameOverflows)
	counter(e.events, s.EventsInfo, "INFO")
	counter(e.events, s.EventsWarning, "WARNING")
	counter(e.events, s.EventsCritical, "CRITICAL")
}

var _ prometheus.Collector = (*Exporter)(nil)

// Handler returns an HTTP handler serving c in the Prometheus text format
// from a dedicated registry.
func Handler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewExporter(c)); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// Serve exposes /metrics on ln until ctx is canceled.
func Serve(ctx context.Context, ln net.Listener, c *Collector) error {
	handler, err := Handler(c)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
