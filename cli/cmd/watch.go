package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/radar/adapter"
	"github.com/pithecene-io/radar/adapter/redis"
	"github.com/pithecene-io/radar/adapter/webhook"
	"github.com/pithecene-io/radar/cli/config"
	"github.com/pithecene-io/radar/cli/render"
	"github.com/pithecene-io/radar/iox"
	"github.com/pithecene-io/radar/ipc"
	"github.com/pithecene-io/radar/log"
	"github.com/pithecene-io/radar/metrics"
	"github.com/pithecene-io/radar/runtime"
	"github.com/pithecene-io/radar/sink"
	"github.com/pithecene-io/radar/types"
)

// WatchCommand returns the watch command, which runs the ingestion
// pipeline until interrupted.
func WatchCommand() *cli.Command {
	flags := append(ConnectionFlags(), OutputFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:  "history-size",
			Usage: "Number of recent events retained for the summary",
			Value: sink.DefaultCapacity,
		},
		&cli.IntFlag{
			Name:  "max-pending-bytes",
			Usage: "Longest line accepted; longer lines are discarded whole (negative: unbounded)",
			Value: ipc.DefaultMaxPendingSize,
		},
		&cli.DurationFlag{
			Name:  "reconnect-delay",
			Usage: "Delay between connection attempts",
			Value: runtime.DefaultRetryDelay,
		},
		&cli.DurationFlag{
			Name:  "reconnect-max-delay",
			Usage: "Cap for exponential backoff (0: constant delay)",
		},
		&cli.BoolFlag{
			Name:  "reconnect-on-close",
			Usage: "Reconnect when the daemon closes the stream instead of exiting",
		},
		&cli.StringFlag{
			Name:  "metrics-listen",
			Usage: "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Forward alerts to: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter URL (webhook endpoint or redis://host:port/db)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringFlag{
			Name:  "min-severity",
			Usage: "Lowest severity forwarded to the adapter: INFO, WARNING, CRITICAL",
		},
		&cli.BoolFlag{
			Name:  "print-history",
			Usage: "Print the retained history on exit",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Do not stream signals; print only the summary",
		},
	)

	return &cli.Command{
		Name:   "watch",
		Usage:  "Connect to the daemon and stream classified telemetry",
		Flags:  flags,
		Action: watchAction,
	}
}

// watchOptions is the resolved watch configuration.
type watchOptions struct {
	endpoint         types.Endpoint
	dialer           ipc.Dialer
	clock            runtime.Clock
	historySize      int
	maxPending       int
	readBuffer       int
	delay            time.Duration
	maxDelay         time.Duration
	reconnectOnClose bool
	metricsListen    string
	adapter          config.AdapterConfig
	quiet            bool
}

// WatchSummary is printed when watch exits.
type WatchSummary struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	ThreatLevel     string `json:"threat_level" yaml:"threat_level"`
	Online          bool   `json:"online" yaml:"online"`
	Events          int64  `json:"events" yaml:"events"`
	Critical        int64  `json:"critical" yaml:"critical"`
	Warning         int64  `json:"warning" yaml:"warning"`
	Retained        int    `json:"retained" yaml:"retained"`
	Evicted         int64  `json:"evicted" yaml:"evicted"`
	Connects        int64  `json:"connects" yaml:"connects"`
	ConnectFailures int64  `json:"connect_failures" yaml:"connect_failures"`
	BytesReceived   int64  `json:"bytes_received" yaml:"bytes_received"`
	AlertsPublished int    `json:"alerts_published" yaml:"alerts_published"`
	AlertsFailed    int    `json:"alerts_failed" yaml:"alerts_failed"`
	StreamEnded     bool   `json:"stream_ended" yaml:"stream_ended"`
}

// watchResult carries the summary and retained history out of runWatch.
type watchResult struct {
	Summary WatchSummary
	History []types.TelemetryEvent
}

func watchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	opts, err := resolveWatchOptions(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	level, err := log.ParseLevel(resolveLogLevel(c, cfg))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid log level: %v", err), exitConfigError)
	}
	logger := log.NewLogger(opts.endpoint, log.Options{Level: level, Output: os.Stderr})
	defer iox.DiscardErr(logger.Sync)

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if isStderrTTY() && !opts.quiet {
		fmt.Fprintf(os.Stderr, "radar: watching %s (Ctrl-C to stop)\n", opts.endpoint)
	}

	result, err := runWatch(ctx, opts, r, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	summaryOut := render.NewRendererWithWriter(r.Format(), c.Bool("no-color"), os.Stderr)
	if err := summaryOut.Render(result.Summary); err != nil {
		return err
	}
	if c.Bool("print-history") {
		if err := r.Render(result.History); err != nil {
			return err
		}
	}

	if result.Summary.StreamEnded {
		return cli.Exit("", exitStreamEnded)
	}
	return cli.Exit("", exitSuccess)
}

// resolveWatchOptions merges flags over config values.
func resolveWatchOptions(c *cli.Context, cfg *config.Config) (watchOptions, error) {
	opts := watchOptions{
		endpoint:         resolveEndpoint(c, cfg),
		historySize:      c.Int("history-size"),
		maxPending:       c.Int("max-pending-bytes"),
		readBuffer:       cfg.ReadBufferBytes,
		delay:            c.Duration("reconnect-delay"),
		maxDelay:         c.Duration("reconnect-max-delay"),
		reconnectOnClose: c.Bool("reconnect-on-close"),
		metricsListen:    c.String("metrics-listen"),
		adapter:          cfg.Adapter,
		quiet:            c.Bool("quiet"),
	}

	if !c.IsSet("history-size") && cfg.HistorySize > 0 {
		opts.historySize = cfg.HistorySize
	}
	if !c.IsSet("max-pending-bytes") && cfg.MaxPendingBytes != 0 {
		opts.maxPending = cfg.MaxPendingBytes
	}
	if !c.IsSet("reconnect-delay") && cfg.Reconnect.Delay.Duration > 0 {
		opts.delay = cfg.Reconnect.Delay.Duration
	}
	if !c.IsSet("reconnect-max-delay") && cfg.Reconnect.MaxDelay.Duration > 0 {
		opts.maxDelay = cfg.Reconnect.MaxDelay.Duration
	}
	if !c.IsSet("reconnect-on-close") {
		opts.reconnectOnClose = cfg.Reconnect.OnClose
	}
	if !c.IsSet("metrics-listen") {
		opts.metricsListen = cfg.Metrics.Listen
	}

	if c.IsSet("adapter") {
		opts.adapter.Type = c.String("adapter")
	}
	if c.IsSet("adapter-url") {
		opts.adapter.URL = c.String("adapter-url")
	}
	if c.IsSet("adapter-channel") {
		opts.adapter.Channel = c.String("adapter-channel")
	}
	if c.IsSet("min-severity") {
		opts.adapter.MinSeverity = c.String("min-severity")
	}

	if opts.historySize < 1 {
		return opts, fmt.Errorf("history size must be >= 1, got %d", opts.historySize)
	}
	if opts.delay <= 0 {
		return opts, fmt.Errorf("reconnect delay must be > 0, got %s", opts.delay)
	}
	if opts.maxDelay > 0 && opts.maxDelay < opts.delay {
		return opts, fmt.Errorf("reconnect max delay %s is below delay %s", opts.maxDelay, opts.delay)
	}
	return opts, nil
}

// buildBackoff returns a constant policy, or capped exponential when
// maxDelay exceeds delay.
func buildBackoff(delay, maxDelay time.Duration) backoff.BackOff {
	if maxDelay > delay {
		return runtime.ExponentialBackoff(delay, maxDelay)
	}
	return backoff.NewConstantBackOff(delay)
}

// buildAdapter creates the configured alert adapter, or nil when none is set.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		a, err := webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		retries := redis.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		a, err := redis.New(redis.Config{
			URL:      cfg.URL,
			Channel:  cfg.Channel,
			Encoding: redis.Encoding(cfg.Encoding),
			Timeout:  cfg.Timeout.Duration,
			Retries:  retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", cfg.Type)
	}
}

// runWatch runs the pipeline until ctx is canceled or the daemon closes the
// stream (unless reconnectOnClose). Errors are setup failures only.
func runWatch(ctx context.Context, opts watchOptions, r *render.Renderer, logger *log.Logger) (*watchResult, error) {
	collector := metrics.NewCollector(opts.endpoint.String())

	manager, err := runtime.NewManager(runtime.ManagerConfig{
		Endpoint:       opts.endpoint,
		Dialer:         opts.dialer,
		Backoff:        buildBackoff(opts.delay, opts.maxDelay),
		ReadBufferSize: opts.readBuffer,
		MaxPendingSize: opts.maxPending,
		Logger:         logger,
		Collector:      collector,
		Clock:          opts.clock,
	})
	if err != nil {
		return nil, err
	}

	alerts, err := buildAdapter(opts.adapter)
	if err != nil {
		return nil, err
	}

	var notifier *runtime.Notifier
	if alerts != nil {
		defer iox.DiscardClose(alerts)
		minSeverity := types.SeverityCritical
		if opts.adapter.MinSeverity != "" {
			sev, ok := types.ParseSeverity(opts.adapter.MinSeverity)
			if !ok {
				return nil, fmt.Errorf("invalid min severity %q", opts.adapter.MinSeverity)
			}
			minSeverity = sev
		}
		notifier, err = runtime.NewNotifier(runtime.NotifierConfig{
			Adapter:     alerts,
			Endpoint:    opts.endpoint,
			MinSeverity: &minSeverity,
			Timeout:     opts.adapter.Timeout.Duration,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
	}

	var metricsErr chan error
	stopMetrics := func() {}
	if opts.metricsListen != "" {
		ln, err := net.Listen("tcp", opts.metricsListen)
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		var metricsCtx context.Context
		metricsCtx, stopMetrics = context.WithCancel(ctx)
		defer stopMetrics()
		metricsErr = make(chan error, 1)
		go func() { metricsErr <- metrics.Serve(metricsCtx, ln, collector) }()
		logger.Info("serving metrics", map[string]any{"listen": ln.Addr().String()})
	}

	history := sink.New(manager, sink.WithCapacity(opts.historySize))

	// Consumers attach before Run so each sees the full signal sequence.
	// They exit when Close has delivered the last queued signal.
	var wg sync.WaitGroup
	consume := func(fn func(*runtime.Subscription)) {
		sub := manager.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(sub)
		}()
	}

	consume(func(sub *runtime.Subscription) { history.Consume(context.Background(), sub) })
	if !opts.quiet {
		consume(func(sub *runtime.Subscription) { printSignals(sub, r, logger) })
	}
	var published, failed int
	if notifier != nil {
		consume(func(sub *runtime.Subscription) {
			published, failed = notifier.Run(context.Background(), sub)
		})
	}

	streamEnded := runManager(ctx, manager, opts, logger)

	manager.Close()
	wg.Wait()

	stopMetrics()
	if metricsErr != nil {
		if err := <-metricsErr; err != nil {
			logger.Warn("metrics server stopped", map[string]any{"error": err.Error()})
		}
	}

	stats := history.Stats()
	snap := collector.Snapshot()
	return &watchResult{
		Summary: WatchSummary{
			Endpoint:        opts.endpoint.String(),
			ThreatLevel:     history.ThreatLevel().String(),
			Online:          history.Online(),
			Events:          stats.Appended,
			Critical:        stats.Critical,
			Warning:         stats.Warning,
			Retained:        stats.Retained,
			Evicted:         stats.Evicted,
			Connects:        snap.Connects,
			ConnectFailures: snap.ConnectFailures,
			BytesReceived:   snap.BytesReceived,
			AlertsPublished: published,
			AlertsFailed:    failed,
			StreamEnded:     streamEnded,
		},
		History: history.Snapshot(),
	}, nil
}

// runManager drives the manager until shutdown. Returns true when the
// daemon closed the stream and reconnect-on-close is off. Reconnects after
// a close follow the same delay policy as dial failures.
func runManager(ctx context.Context, manager *runtime.Manager, opts watchOptions, logger *log.Logger) bool {
	clock := opts.clock
	if clock == nil {
		clock = runtime.SystemClock()
	}
	reopen := buildBackoff(opts.delay, opts.maxDelay)

	for {
		err := manager.Run(ctx)
		switch {
		case err == nil:
			return false
		case runtime.IsStreamEnd(err) && opts.reconnectOnClose:
			delay := reopen.NextBackOff()
			if delay < 0 {
				delay = opts.delay
			}
			logger.Info("daemon closed the stream, reconnecting", map[string]any{
				"delay": delay.String(),
			})
			timer := clock.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return false
			case <-timer.C():
			}
		case runtime.IsStreamEnd(err):
			return true
		default:
			logger.Error("connection manager failed", map[string]any{"error": err.Error()})
			return false
		}
	}
}

// printSignals renders every signal until the subscription closes.
func printSignals(sub *runtime.Subscription, r *render.Renderer, logger *log.Logger) {
	for sig := range sub.C() {
		if err := r.RenderSignal(sig); err != nil {
			logger.Warn("render failed", map[string]any{"error": err.Error()})
		}
	}
}
